// Package inmem provides an in-memory usersession.Backend.
//
// It is intended for tests and local development. Production deployments
// should use a durable implementation (features/usersession/mongo).
package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"goa.design/authstore/usersession"
)

// Backend is an in-memory implementation of usersession.Backend. It is safe
// for concurrent use. Sessions are indexed by user id so at most one session
// per user can exist.
type Backend struct {
	mu       sync.RWMutex
	users    map[string]usersession.User
	sessions map[string]usersession.Session
}

var _ usersession.Backend = (*Backend)(nil)

// New returns an empty Backend.
func New() *Backend {
	return &Backend{
		users:    make(map[string]usersession.User),
		sessions: make(map[string]usersession.Session),
	}
}

// InsertUser implements usersession.Backend.
func (b *Backend) InsertUser(ctx context.Context, user usersession.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[user.Email]; ok {
		return fmt.Errorf("user %q: %w", user.Email, usersession.ErrConflict)
	}
	user.ID = uuid.NewString()
	user.Preferences = user.Preferences.Clone()
	b.users[user.Email] = user
	return nil
}

// FindUser implements usersession.Backend.
func (b *Backend) FindUser(ctx context.Context, email string) (usersession.User, error) {
	if err := ctx.Err(); err != nil {
		return usersession.User{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[email]
	if !ok {
		return usersession.User{}, usersession.ErrNotFound
	}
	u.Preferences = u.Preferences.Clone()
	return u, nil
}

// SetPreferences implements usersession.Backend.
func (b *Backend) SetPreferences(ctx context.Context, email string, prefs usersession.Preferences) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[email]
	if !ok {
		return 0, nil
	}
	u.Preferences = prefs.Clone()
	b.users[email] = u
	return 1, nil
}

// DeleteUser implements usersession.Backend.
func (b *Backend) DeleteUser(ctx context.Context, email string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[email]; !ok {
		return 0, nil
	}
	delete(b.users, email)
	return 1, nil
}

// UpsertSession implements usersession.Backend.
func (b *Backend) UpsertSession(ctx context.Context, userID, jwt string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[userID]
	if !ok {
		sess = usersession.Session{ID: uuid.NewString(), UserID: userID}
	}
	sess.JWT = jwt
	b.sessions[userID] = sess
	return nil
}

// FindSession implements usersession.Backend.
func (b *Backend) FindSession(ctx context.Context, userID string) (usersession.Session, error) {
	if err := ctx.Err(); err != nil {
		return usersession.Session{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	sess, ok := b.sessions[userID]
	if !ok {
		return usersession.Session{}, usersession.ErrNotFound
	}
	return sess, nil
}

// DeleteSessions implements usersession.Backend.
func (b *Backend) DeleteSessions(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[userID]; !ok {
		return 0, nil
	}
	delete(b.sessions, userID)
	return 1, nil
}

// Len returns the number of stored users and sessions.
func (b *Backend) Len() (users, sessions int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.users), len(b.sessions)
}

// Reset clears all stored users and sessions.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = make(map[string]usersession.User)
	b.sessions = make(map[string]usersession.Session)
}
