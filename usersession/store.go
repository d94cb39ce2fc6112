package usersession

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/codes"

	"goa.design/authstore/telemetry"
)

type (
	// Store is the user session store: a UserStore and a SessionStore sharing
	// one Backend. It is safe for concurrent use.
	Store struct {
		users    *UserStore
		sessions *SessionStore
	}

	// Option configures a Store.
	Option func(*options)

	options struct {
		logger        telemetry.Logger
		metrics       telemetry.Metrics
		tracer        telemetry.Tracer
		transactional bool
	}

	// instruments records logs, metrics and spans for store operations.
	instruments struct {
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
	}
)

const (
	metricOperations = "usersession.operations"
	metricDuration   = "usersession.duration"
)

// WithLogger sets the logger. Defaults to the Clue logger carried by the
// operation context.
func WithLogger(l telemetry.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics recorder. Defaults to OpenTelemetry.
func WithMetrics(m telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer. Defaults to OpenTelemetry.
func WithTracer(t telemetry.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithTransactionalCascade makes DeleteUser run its two deletes in a single
// transaction when the backend implements Transactor. It has no effect on
// other backends.
func WithTransactionalCascade() Option {
	return func(o *options) { o.transactional = true }
}

// New returns a Store backed by b.
func New(b Backend, opts ...Option) (*Store, error) {
	if b == nil {
		return nil, errors.New("backend is required")
	}
	o := options{
		logger:  telemetry.NewClueLogger(),
		metrics: telemetry.NewClueMetrics(),
		tracer:  telemetry.NewClueTracer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	in := instruments{logger: o.logger, metrics: o.metrics, tracer: o.tracer}
	var tx Transactor
	if t, ok := b.(Transactor); ok && o.transactional {
		tx = t
	}
	return &Store{
		users:    &UserStore{backend: b, tx: tx, in: in},
		sessions: &SessionStore{backend: b, in: in},
	}, nil
}

// Users returns the account sub-store.
func (s *Store) Users() *UserStore { return s.users }

// Sessions returns the session sub-store.
func (s *Store) Sessions() *SessionStore { return s.sessions }

// AddUser inserts a new user. See UserStore.AddUser.
func (s *Store) AddUser(ctx context.Context, user User) WriteResult {
	return s.users.AddUser(ctx, user)
}

// GetUser looks up a user by email. See UserStore.GetUser.
func (s *Store) GetUser(ctx context.Context, email string) Lookup[User] {
	return s.users.GetUser(ctx, email)
}

// UpdateUserPreferences replaces a user's preferences. See
// UserStore.UpdateUserPreferences.
func (s *Store) UpdateUserPreferences(ctx context.Context, email string, prefs Preferences) WriteResult {
	return s.users.UpdateUserPreferences(ctx, email, prefs)
}

// DeleteUser deletes a user and its sessions. See UserStore.DeleteUser.
func (s *Store) DeleteUser(ctx context.Context, email string) WriteResult {
	return s.users.DeleteUser(ctx, email)
}

// CreateUserSession creates or refreshes a user's session. See
// SessionStore.CreateUserSession.
func (s *Store) CreateUserSession(ctx context.Context, userID, jwt string) WriteResult {
	return s.sessions.CreateUserSession(ctx, userID, jwt)
}

// GetUserSession looks up a user's session. See SessionStore.GetUserSession.
func (s *Store) GetUserSession(ctx context.Context, userID string) Lookup[Session] {
	return s.sessions.GetUserSession(ctx, userID)
}

// DeleteUserSessions deletes a user's sessions. See
// SessionStore.DeleteUserSessions.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) WriteResult {
	return s.sessions.DeleteUserSessions(ctx, userID)
}

// write runs fn and turns its outcome into a WriteResult.
func (in instruments) write(ctx context.Context, op string, keyvals []any, fn func(context.Context) (int64, error)) WriteResult {
	start := time.Now()
	ctx, span := in.tracer.Start(ctx, "usersession."+op)
	defer span.End()

	n, err := fn(ctx)
	res := WriteResult{Status: classifyWrite(err), Affected: n, Err: err}
	switch res.Status {
	case Success:
		span.SetStatus(codes.Ok, "")
	case Conflict:
		span.AddEvent("conflict", keyvals...)
		in.logger.Warn(ctx, op+" conflict", append(keyvals, "err", err)...)
	case ValidationFailure:
		span.SetStatus(codes.Error, "validation failure")
		in.logger.Debug(ctx, op+" rejected", append(keyvals, "err", err)...)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.logger.Error(ctx, op+" failed", append(keyvals, "err", err)...)
	}
	in.metrics.IncCounter(metricOperations, 1, "op", op, "status", res.Status.String())
	in.metrics.RecordTimer(metricDuration, time.Since(start), "op", op)
	return res
}

// lookup runs fn and turns its outcome into a Lookup.
func lookup[T any](ctx context.Context, in instruments, op string, keyvals []any, fn func(context.Context) (T, error)) Lookup[T] {
	start := time.Now()
	ctx, span := in.tracer.Start(ctx, "usersession."+op)
	defer span.End()

	v, err := fn(ctx)
	var res Lookup[T]
	switch {
	case err == nil:
		res = Lookup[T]{Status: Found, Value: v}
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, ErrNotFound):
		res = Lookup[T]{Status: NotFound, Err: err}
		span.SetStatus(codes.Ok, "")
	default:
		res = Lookup[T]{Status: ReadFailure, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.logger.Error(ctx, op+" failed", append(keyvals, "err", err)...)
	}
	in.metrics.IncCounter(metricOperations, 1, "op", op, "status", res.Status.String())
	in.metrics.RecordTimer(metricDuration, time.Since(start), "op", op)
	return res
}

func classifyWrite(err error) WriteStatus {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrInvalid):
		return ValidationFailure
	case errors.Is(err, ErrConflict):
		return Conflict
	default:
		return TransientFailure
	}
}
