// Package usersession stores user accounts and their login sessions on behalf
// of an authentication layer.
//
// A Store is composed of a UserStore (accounts keyed by email) and a
// SessionStore (at most one session per user) sharing a single Backend. The
// backend is injected at construction; production code uses the MongoDB
// backend in features/usersession/mongo, tests and local tooling use
// usersession/inmem.
//
// Every operation reports its outcome through a result value (WriteResult or
// Lookup) instead of mixing errors, booleans and zero values: callers switch on
// the status to tell "already exists", "not found", "invalid input" and
// "storage unavailable" apart.
//
// Sessions are keyed by the user's email. There is no separate user identity:
// the session user id and the account email are the same string. Renaming an
// email therefore orphans the user's session.
//
// Consistency notes:
//
//   - CreateUserSession is a single atomic upsert keyed on the user id. It never
//     reads before writing, so concurrent calls for one user converge on one
//     session holding one of the submitted tokens.
//   - DeleteUser removes the user's sessions and then the user with two
//     independent backend calls unless the store was built with
//     WithTransactionalCascade and the backend implements Transactor. A failure
//     between the two calls leaves the user without sessions. Both halves are
//     idempotent so retrying DeleteUser is safe.
//   - Only AddUser requests majority-acknowledged durability. All other writes
//     use the backend's default acknowledgment.
package usersession

import (
	"context"
	"errors"
	"fmt"
)

type (
	// User is an account record. Email is the unique key.
	User struct {
		// ID is the storage-assigned record identifier. It is ignored by AddUser.
		ID string
		// Email uniquely identifies the user and doubles as the session user id.
		Email string
		// Name is the display name.
		Name string
		// Password is the hashed credential. It is stored and returned verbatim.
		Password string
		// Preferences holds open-schema user settings.
		Preferences Preferences
	}

	// Session is the active login session of a user.
	Session struct {
		// ID is the storage-assigned record identifier.
		ID string
		// UserID is the email of the owning user.
		UserID string
		// JWT is the opaque session token.
		JWT string
	}

	// Backend is the storage handle shared by the user and session stores.
	// Implementations must be safe for concurrent use.
	//
	// Errors follow a fixed contract: ErrConflict (wrapped) for a duplicate
	// email on insert, ErrNotFound (wrapped) when a lookup matches nothing, any
	// other error is treated as a transient storage failure.
	Backend interface {
		// InsertUser inserts a new user with majority-acknowledged durability.
		InsertUser(ctx context.Context, user User) error
		// FindUser returns the user with the given email.
		FindUser(ctx context.Context, email string) (User, error)
		// SetPreferences replaces the preferences of the user with the given
		// email and returns the number of matched users.
		SetPreferences(ctx context.Context, email string, prefs Preferences) (int64, error)
		// DeleteUser deletes the user with the given email and returns the
		// number of deleted users. It does not touch sessions.
		DeleteUser(ctx context.Context, email string) (int64, error)

		// UpsertSession atomically sets the token of the user's session,
		// inserting the session if none exists.
		UpsertSession(ctx context.Context, userID, jwt string) error
		// FindSession returns the session of the given user.
		FindSession(ctx context.Context, userID string) (Session, error)
		// DeleteSessions deletes all sessions of the given user and returns the
		// number of deleted sessions.
		DeleteSessions(ctx context.Context, userID string) (int64, error)
	}

	// Transactor is implemented by backends able to run several operations in
	// one multi-document transaction. fn may be invoked more than once when
	// the backend retries a transient transaction error.
	Transactor interface {
		WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	}
)

var (
	// ErrInvalid indicates a precondition violation detected before any
	// storage call.
	ErrInvalid = errors.New("invalid argument")
	// ErrConflict indicates a unique-key violation on insert.
	ErrConflict = errors.New("already exists")
	// ErrNotFound indicates no record matched a lookup.
	ErrNotFound = errors.New("not found")

	// ErrNilPreferences is returned when preferences are absent.
	ErrNilPreferences = fmt.Errorf("%w: preferences are required", ErrInvalid)
)
