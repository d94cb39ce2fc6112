package usersession_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/authstore/telemetry"
	"goa.design/authstore/usersession"
	"goa.design/authstore/usersession/inmem"
)

func TestNewRequiresBackend(t *testing.T) {
	_, err := usersession.New(nil)
	require.EqualError(t, err, "backend is required")
}

// TestExampleScenario walks through account creation, session refresh and
// cascading deletion for a single user.
func TestExampleScenario(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()
	user := usersession.User{Email: "foo@bar.com", Name: "Foo Bar", Password: "h", Preferences: usersession.Preferences{}}

	require.Equal(t, usersession.Success, store.AddUser(ctx, user).Status)

	again := store.AddUser(ctx, user)
	require.Equal(t, usersession.Conflict, again.Status)
	require.ErrorIs(t, again.Err, usersession.ErrConflict)
	users, _ := backend.Len()
	require.Equal(t, 1, users)

	require.True(t, store.CreateUserSession(ctx, "foo@bar.com", "jwt1").OK())
	sess := store.GetUserSession(ctx, "foo@bar.com")
	require.Equal(t, usersession.Found, sess.Status)
	require.Equal(t, "jwt1", sess.Value.JWT)

	require.True(t, store.CreateUserSession(ctx, "foo@bar.com", "jwt2").OK())
	sess = store.GetUserSession(ctx, "foo@bar.com")
	require.Equal(t, "jwt2", sess.Value.JWT)
	_, sessions := backend.Len()
	require.Equal(t, 1, sessions)

	del := store.DeleteUser(ctx, "foo@bar.com")
	require.Equal(t, usersession.Success, del.Status)
	require.EqualValues(t, 1, del.Affected)
	require.Equal(t, usersession.NotFound, store.GetUser(ctx, "foo@bar.com").Status)
	require.Equal(t, usersession.NotFound, store.GetUserSession(ctx, "foo@bar.com").Status)
}

func TestGetUserReturnsStoredRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	prefs := usersession.Preferences{"theme": usersession.String("dark")}
	require.True(t, store.AddUser(ctx, usersession.User{Email: "a@b.c", Name: "A", Password: "hash", Preferences: prefs}).OK())

	got := store.GetUser(ctx, "a@b.c")
	require.True(t, got.OK())
	require.NoError(t, got.Err)
	require.Equal(t, "A", got.Value.Name)
	require.Equal(t, "hash", got.Value.Password)
	require.Equal(t, prefs, got.Value.Preferences)
}

func TestAddUserValidation(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	res := store.AddUser(ctx, usersession.User{Name: "no email"})
	require.Equal(t, usersession.ValidationFailure, res.Status)
	require.ErrorIs(t, res.Err, usersession.ErrInvalid)

	res = store.AddUser(ctx, usersession.User{Email: "a@b.c", Preferences: usersession.Preferences{"$bad": usersession.Int(1)}})
	require.Equal(t, usersession.ValidationFailure, res.Status)

	users, _ := backend.Len()
	require.Zero(t, users)
}

func TestAddUserNilPreferencesStoredEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.True(t, store.AddUser(ctx, usersession.User{Email: "a@b.c"}).OK())
	got := store.GetUser(ctx, "a@b.c")
	require.NotNil(t, got.Value.Preferences)
	require.Empty(t, got.Value.Preferences)
}

func TestUpdateUserPreferencesReplaces(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.True(t, store.AddUser(ctx, usersession.User{
		Email:       "a@b.c",
		Preferences: usersession.Preferences{"theme": usersession.String("dark"), "lang": usersession.String("en")},
	}).OK())

	res := store.UpdateUserPreferences(ctx, "a@b.c", usersession.Preferences{"volume": usersession.Int(3)})
	require.Equal(t, usersession.Success, res.Status)
	require.EqualValues(t, 1, res.Affected)

	got := store.GetUser(ctx, "a@b.c")
	require.Equal(t, usersession.Preferences{"volume": usersession.Int(3)}, got.Value.Preferences)

	res = store.UpdateUserPreferences(ctx, "a@b.c", usersession.Preferences{})
	require.True(t, res.OK())
	require.Empty(t, store.GetUser(ctx, "a@b.c").Value.Preferences)
}

func TestUpdateUserPreferencesNilLeavesStoreUntouched(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	prefs := usersession.Preferences{"theme": usersession.String("dark")}
	require.True(t, store.AddUser(ctx, usersession.User{Email: "a@b.c", Preferences: prefs}).OK())

	res := store.UpdateUserPreferences(ctx, "a@b.c", nil)
	require.Equal(t, usersession.ValidationFailure, res.Status)
	require.ErrorIs(t, res.Err, usersession.ErrNilPreferences)
	require.Equal(t, prefs, store.GetUser(ctx, "a@b.c").Value.Preferences)
}

func TestUpdateUserPreferencesUnknownUser(t *testing.T) {
	store, _ := newTestStore(t)
	res := store.UpdateUserPreferences(context.Background(), "missing@b.c", usersession.Preferences{})
	require.Equal(t, usersession.Success, res.Status)
	require.Zero(t, res.Affected)
}

func TestDeleteUserSessionsIdempotent(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	res := store.DeleteUserSessions(ctx, "nobody@b.c")
	require.Equal(t, usersession.Success, res.Status)
	require.Zero(t, res.Affected)
	users, sessions := backend.Len()
	require.Zero(t, users)
	require.Zero(t, sessions)

	require.True(t, store.CreateUserSession(ctx, "u@b.c", "jwt").OK())
	res = store.DeleteUserSessions(ctx, "u@b.c")
	require.EqualValues(t, 1, res.Affected)
	require.Equal(t, usersession.NotFound, store.GetUserSession(ctx, "u@b.c").Status)
	require.True(t, store.DeleteUserSessions(ctx, "u@b.c").OK())
}

func TestDeleteUserIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	res := store.DeleteUser(ctx, "nobody@b.c")
	require.Equal(t, usersession.Success, res.Status)
	require.Zero(t, res.Affected)
}

func TestEmptyKeys(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.Equal(t, usersession.NotFound, store.GetUser(ctx, "").Status)
	require.Equal(t, usersession.NotFound, store.GetUserSession(ctx, "").Status)
	require.Equal(t, usersession.ValidationFailure, store.DeleteUser(ctx, "").Status)
	require.Equal(t, usersession.ValidationFailure, store.DeleteUserSessions(ctx, "").Status)
	require.Equal(t, usersession.ValidationFailure, store.UpdateUserPreferences(ctx, "", usersession.Preferences{}).Status)
	require.Equal(t, usersession.ValidationFailure, store.CreateUserSession(ctx, "", "jwt").Status)
	require.Equal(t, usersession.ValidationFailure, store.CreateUserSession(ctx, "u", "").Status)
}

func TestConcurrentCreateUserSessionConverges(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()
	const n = 64
	submitted := make(map[string]struct{}, n)
	for i := range n {
		submitted[fmt.Sprintf("jwt-%d", i)] = struct{}{}
	}

	var wg sync.WaitGroup
	results := make(chan usersession.WriteResult, n)
	for jwt := range submitted {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.CreateUserSession(ctx, "u@b.c", jwt)
		}()
	}
	wg.Wait()
	close(results)
	for res := range results {
		require.True(t, res.OK())
	}

	_, sessions := backend.Len()
	require.Equal(t, 1, sessions)
	got := store.GetUserSession(ctx, "u@b.c")
	require.True(t, got.OK())
	require.Contains(t, submitted, got.Value.JWT)
}

func TestSubStoreAccessors(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.True(t, store.Users().AddUser(ctx, usersession.User{Email: "a@b.c"}).OK())
	require.True(t, store.Sessions().CreateUserSession(ctx, "a@b.c", "jwt").OK())
	require.True(t, store.Users().DeleteUser(ctx, "a@b.c").OK())
	require.False(t, store.Sessions().GetUserSession(ctx, "a@b.c").OK())
}

func TestTransientFailuresAreReportedAndLogged(t *testing.T) {
	boom := errors.New("connection reset")
	backend := &faultyBackend{Backend: inmem.New()}
	logger := &recordingLogger{}
	store, err := usersession.New(backend, usersession.WithLogger(logger),
		usersession.WithMetrics(telemetry.NewNoopMetrics()), usersession.WithTracer(telemetry.NewNoopTracer()))
	require.NoError(t, err)
	ctx := context.Background()

	backend.insertErr = boom
	res := store.AddUser(ctx, usersession.User{Email: "a@b.c"})
	require.Equal(t, usersession.TransientFailure, res.Status)
	require.ErrorIs(t, res.Err, boom)
	require.NotErrorIs(t, res.Err, usersession.ErrConflict)

	backend.findErr = boom
	got := store.GetUser(ctx, "a@b.c")
	require.Equal(t, usersession.ReadFailure, got.Status)
	require.ErrorIs(t, got.Err, boom)
	sess := store.GetUserSession(ctx, "a@b.c")
	require.Equal(t, usersession.ReadFailure, sess.Status)

	backend.upsertErr = boom
	require.Equal(t, usersession.TransientFailure, store.CreateUserSession(ctx, "a@b.c", "jwt").Status)

	require.Equal(t, []string{"AddUser failed", "GetUser failed", "GetUserSession failed", "CreateUserSession failed"}, logger.messages("error"))
}

func TestConflictIsLoggedAsWarning(t *testing.T) {
	logger := &recordingLogger{}
	store, err := usersession.New(inmem.New(), usersession.WithLogger(logger))
	require.NoError(t, err)
	ctx := context.Background()
	require.True(t, store.AddUser(ctx, usersession.User{Email: "a@b.c"}).OK())
	require.Equal(t, usersession.Conflict, store.AddUser(ctx, usersession.User{Email: "a@b.c"}).Status)
	require.Equal(t, []string{"AddUser conflict"}, logger.messages("warn"))
	require.Empty(t, logger.messages("error"))
}

func TestDeleteUserPartialFailureWindow(t *testing.T) {
	backend := &faultyBackend{Backend: inmem.New()}
	store, err := usersession.New(backend, usersession.WithLogger(telemetry.NewNoopLogger()))
	require.NoError(t, err)
	ctx := context.Background()
	require.True(t, store.AddUser(ctx, usersession.User{Email: "a@b.c"}).OK())
	require.True(t, store.CreateUserSession(ctx, "a@b.c", "jwt").OK())

	backend.deleteUserErr = errors.New("primary stepped down")
	res := store.DeleteUser(ctx, "a@b.c")
	require.Equal(t, usersession.TransientFailure, res.Status)
	require.Equal(t, usersession.NotFound, store.GetUserSession(ctx, "a@b.c").Status, "sessions deleted first")
	require.Equal(t, usersession.Found, store.GetUser(ctx, "a@b.c").Status, "user survives the failed second half")

	backend.deleteUserErr = nil
	res = store.DeleteUser(ctx, "a@b.c")
	require.Equal(t, usersession.Success, res.Status)
	require.EqualValues(t, 1, res.Affected)
	require.Equal(t, usersession.NotFound, store.GetUser(ctx, "a@b.c").Status)
}

func TestDeleteUserSessionsFailureKeepsUser(t *testing.T) {
	backend := &faultyBackend{Backend: inmem.New()}
	store, err := usersession.New(backend, usersession.WithLogger(telemetry.NewNoopLogger()))
	require.NoError(t, err)
	ctx := context.Background()
	require.True(t, store.AddUser(ctx, usersession.User{Email: "a@b.c"}).OK())

	backend.deleteSessionsErr = errors.New("timeout")
	require.Equal(t, usersession.TransientFailure, store.DeleteUser(ctx, "a@b.c").Status)
	require.Equal(t, usersession.Found, store.GetUser(ctx, "a@b.c").Status)
	require.Equal(t, usersession.TransientFailure, store.DeleteUserSessions(ctx, "a@b.c").Status)
}

func TestTransactionalCascade(t *testing.T) {
	backend := &txBackend{faultyBackend: &faultyBackend{Backend: inmem.New()}}
	store, err := usersession.New(backend, usersession.WithTransactionalCascade(), usersession.WithLogger(telemetry.NewNoopLogger()))
	require.NoError(t, err)
	ctx := context.Background()
	require.True(t, store.AddUser(ctx, usersession.User{Email: "a@b.c"}).OK())
	require.True(t, store.CreateUserSession(ctx, "a@b.c", "jwt").OK())

	res := store.DeleteUser(ctx, "a@b.c")
	require.True(t, res.OK())
	require.EqualValues(t, 1, res.Affected)
	require.Equal(t, 1, backend.transactions)
	require.Equal(t, usersession.NotFound, store.GetUserSession(ctx, "a@b.c").Status)
}

func TestTransactorIgnoredWithoutOption(t *testing.T) {
	backend := &txBackend{faultyBackend: &faultyBackend{Backend: inmem.New()}}
	store, err := usersession.New(backend)
	require.NoError(t, err)
	require.True(t, store.DeleteUser(context.Background(), "a@b.c").OK())
	require.Zero(t, backend.transactions)
}

func TestTransactionErrorIsTransient(t *testing.T) {
	backend := &txBackend{faultyBackend: &faultyBackend{Backend: inmem.New()}, err: errors.New("transaction aborted")}
	store, err := usersession.New(backend, usersession.WithTransactionalCascade(), usersession.WithLogger(telemetry.NewNoopLogger()))
	require.NoError(t, err)
	res := store.DeleteUser(context.Background(), "a@b.c")
	require.Equal(t, usersession.TransientFailure, res.Status)
	require.EqualError(t, res.Err, "transaction aborted")
}

func newTestStore(t *testing.T) (*usersession.Store, *inmem.Backend) {
	t.Helper()
	backend := inmem.New()
	store, err := usersession.New(backend,
		usersession.WithLogger(telemetry.NewNoopLogger()),
		usersession.WithMetrics(telemetry.NewNoopMetrics()),
		usersession.WithTracer(telemetry.NewNoopTracer()))
	require.NoError(t, err)
	return store, backend
}

type faultyBackend struct {
	*inmem.Backend
	insertErr         error
	findErr           error
	upsertErr         error
	deleteUserErr     error
	deleteSessionsErr error
}

func (b *faultyBackend) InsertUser(ctx context.Context, u usersession.User) error {
	if b.insertErr != nil {
		return b.insertErr
	}
	return b.Backend.InsertUser(ctx, u)
}

func (b *faultyBackend) FindUser(ctx context.Context, email string) (usersession.User, error) {
	if b.findErr != nil {
		return usersession.User{}, b.findErr
	}
	return b.Backend.FindUser(ctx, email)
}

func (b *faultyBackend) FindSession(ctx context.Context, userID string) (usersession.Session, error) {
	if b.findErr != nil {
		return usersession.Session{}, b.findErr
	}
	return b.Backend.FindSession(ctx, userID)
}

func (b *faultyBackend) UpsertSession(ctx context.Context, userID, jwt string) error {
	if b.upsertErr != nil {
		return b.upsertErr
	}
	return b.Backend.UpsertSession(ctx, userID, jwt)
}

func (b *faultyBackend) DeleteUser(ctx context.Context, email string) (int64, error) {
	if b.deleteUserErr != nil {
		return 0, b.deleteUserErr
	}
	return b.Backend.DeleteUser(ctx, email)
}

func (b *faultyBackend) DeleteSessions(ctx context.Context, userID string) (int64, error) {
	if b.deleteSessionsErr != nil {
		return 0, b.deleteSessionsErr
	}
	return b.Backend.DeleteSessions(ctx, userID)
}

type txBackend struct {
	*faultyBackend
	transactions int
	err          error
}

func (b *txBackend) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	b.transactions++
	if b.err != nil {
		return b.err
	}
	return fn(ctx)
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Debug(_ context.Context, msg string, _ ...any) { l.record("debug", msg) }
func (l *recordingLogger) Info(_ context.Context, msg string, _ ...any)  { l.record("info", msg) }
func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any)  { l.record("warn", msg) }
func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) { l.record("error", msg) }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}
