package usersession

import (
	"context"
	"fmt"
)

// UserStore manages account records keyed by email.
type UserStore struct {
	backend Backend
	tx      Transactor
	in      instruments
}

// AddUser inserts user with majority-acknowledged durability. The status is
// Conflict when a user with the same email exists, ValidationFailure when the
// email is empty or the preferences are malformed. Nil preferences are stored
// as an empty set.
func (s *UserStore) AddUser(ctx context.Context, user User) WriteResult {
	return s.in.write(ctx, "AddUser", []any{"email", user.Email}, func(ctx context.Context) (int64, error) {
		if user.Email == "" {
			return 0, fmt.Errorf("%w: email is required", ErrInvalid)
		}
		if user.Preferences == nil {
			user.Preferences = Preferences{}
		}
		if err := user.Preferences.Validate(); err != nil {
			return 0, err
		}
		if err := s.backend.InsertUser(ctx, user); err != nil {
			return 0, fmt.Errorf("insert user %q: %w", user.Email, err)
		}
		return 0, nil
	})
}

// GetUser returns the user with the given email. An unknown or empty email
// yields NotFound.
func (s *UserStore) GetUser(ctx context.Context, email string) Lookup[User] {
	return lookup(ctx, s.in, "GetUser", []any{"email", email}, func(ctx context.Context) (User, error) {
		if email == "" {
			return User{}, ErrNotFound
		}
		u, err := s.backend.FindUser(ctx, email)
		if err != nil {
			return User{}, fmt.Errorf("find user %q: %w", email, err)
		}
		return u, nil
	})
}

// UpdateUserPreferences replaces the preferences of the user with the given
// email. The whole set is replaced, keys are never merged. Nil preferences are
// rejected with ValidationFailure and storage is left untouched. Updating an
// unknown email succeeds with Affected set to zero.
func (s *UserStore) UpdateUserPreferences(ctx context.Context, email string, prefs Preferences) WriteResult {
	return s.in.write(ctx, "UpdateUserPreferences", []any{"email", email}, func(ctx context.Context) (int64, error) {
		if email == "" {
			return 0, fmt.Errorf("%w: email is required", ErrInvalid)
		}
		if err := prefs.Validate(); err != nil {
			return 0, err
		}
		n, err := s.backend.SetPreferences(ctx, email, prefs)
		if err != nil {
			return 0, fmt.Errorf("set preferences of %q: %w", email, err)
		}
		return n, nil
	})
}

// DeleteUser deletes the sessions of the user with the given email, then the
// user itself. Affected is the number of deleted users.
//
// Without a transaction the two deletes are independent: when the second one
// fails the sessions are gone and the user remains, and the result is
// TransientFailure. Both deletes are idempotent so the call can be retried.
func (s *UserStore) DeleteUser(ctx context.Context, email string) WriteResult {
	return s.in.write(ctx, "DeleteUser", []any{"email", email}, func(ctx context.Context) (int64, error) {
		if email == "" {
			return 0, fmt.Errorf("%w: email is required", ErrInvalid)
		}
		var deleted int64
		cascade := func(ctx context.Context) error {
			if _, err := s.backend.DeleteSessions(ctx, email); err != nil {
				return fmt.Errorf("delete sessions of %q: %w", email, err)
			}
			n, err := s.backend.DeleteUser(ctx, email)
			if err != nil {
				return fmt.Errorf("delete user %q: %w", email, err)
			}
			deleted = n
			return nil
		}
		if s.tx != nil {
			if err := s.tx.WithTransaction(ctx, cascade); err != nil {
				return 0, err
			}
			return deleted, nil
		}
		if err := cascade(ctx); err != nil {
			return 0, err
		}
		return deleted, nil
	})
}
