package usersession

import (
	"context"
	"fmt"
)

// SessionStore manages session records keyed by user id, at most one per
// user.
type SessionStore struct {
	backend Backend
	in      instruments
}

// CreateUserSession sets the session token of userID, creating the session if
// the user has none. The write is a single atomic upsert so concurrent calls
// for the same user leave exactly one session holding one of the submitted
// tokens.
func (s *SessionStore) CreateUserSession(ctx context.Context, userID, jwt string) WriteResult {
	return s.in.write(ctx, "CreateUserSession", []any{"user_id", userID}, func(ctx context.Context) (int64, error) {
		if userID == "" {
			return 0, fmt.Errorf("%w: user id is required", ErrInvalid)
		}
		if jwt == "" {
			return 0, fmt.Errorf("%w: jwt is required", ErrInvalid)
		}
		if err := s.backend.UpsertSession(ctx, userID, jwt); err != nil {
			return 0, fmt.Errorf("upsert session of %q: %w", userID, err)
		}
		return 0, nil
	})
}

// GetUserSession returns the session of userID. An unknown or empty user id
// yields NotFound.
func (s *SessionStore) GetUserSession(ctx context.Context, userID string) Lookup[Session] {
	return lookup(ctx, s.in, "GetUserSession", []any{"user_id", userID}, func(ctx context.Context) (Session, error) {
		if userID == "" {
			return Session{}, ErrNotFound
		}
		sess, err := s.backend.FindSession(ctx, userID)
		if err != nil {
			return Session{}, fmt.Errorf("find session of %q: %w", userID, err)
		}
		return sess, nil
	})
}

// DeleteUserSessions deletes every session of userID. Deleting when no
// session exists succeeds with Affected set to zero.
func (s *SessionStore) DeleteUserSessions(ctx context.Context, userID string) WriteResult {
	return s.in.write(ctx, "DeleteUserSessions", []any{"user_id", userID}, func(ctx context.Context) (int64, error) {
		if userID == "" {
			return 0, fmt.Errorf("%w: user id is required", ErrInvalid)
		}
		n, err := s.backend.DeleteSessions(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("delete sessions of %q: %w", userID, err)
		}
		return n, nil
	})
}
