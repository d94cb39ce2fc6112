// Package mongo hosts the MongoDB client used by the user session store.
package mongo

//go:generate cmg gen .

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"goa.design/clue/health"

	"goa.design/authstore/usersession"
)

const (
	defaultUsersCollection    = "users"
	defaultSessionsCollection = "sessions"
	defaultOpTimeout          = 5 * time.Second
	clientName                = "usersession-mongo"
)

// Client exposes Mongo-backed operations for users and sessions.
type Client interface {
	health.Pinger
	usersession.Backend
	usersession.Transactor

	// CountSessions returns the number of session documents of userID.
	CountSessions(ctx context.Context, userID string) (int64, error)
}

// Options configures the Mongo client.
type Options struct {
	Client             *mongodriver.Client
	Database           string
	UsersCollection    string
	SessionsCollection string
	// Timeout bounds each individual database call. Defaults to 5s.
	Timeout time.Duration
}

type client struct {
	mongo *mongodriver.Client
	// users uses the database default write concern, durableUsers requests
	// w:majority and is only used for inserts.
	users        collection
	durableUsers collection
	sessions     collection
	timeout      time.Duration
	tx           func(ctx context.Context, fn func(context.Context) error) error
}

// New returns a Client backed by MongoDB. It creates the unique email index on
// the users collection and the unique user_id index on the sessions
// collection.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	usersName := opts.UsersCollection
	if usersName == "" {
		usersName = defaultUsersCollection
	}
	sessionsName := opts.SessionsCollection
	if sessionsName == "" {
		sessionsName = defaultSessionsCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	db := opts.Client.Database(opts.Database)
	users := mongoCollection{coll: db.Collection(usersName)}
	durableUsers := mongoCollection{coll: db.Collection(usersName,
		options.Collection().SetWriteConcern(writeconcern.Majority()))}
	sessions := mongoCollection{coll: db.Collection(sessionsName)}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := ensureIndexes(ctx, users, sessions); err != nil {
		return nil, err
	}
	c, err := newClientWithCollections(opts.Client, users, durableUsers, sessions, timeout)
	if err != nil {
		return nil, err
	}
	c.tx = c.mongoTransaction
	return c, nil
}

func (c *client) Name() string {
	return clientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.mongo == nil {
		return errors.New("mongo client is not connected")
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) InsertUser(ctx context.Context, user usersession.User) error {
	doc, err := fromUser(user)
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.durableUsers.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %w", usersession.ErrConflict, err)
		}
		return err
	}
	return nil
}

func (c *client) FindUser(ctx context.Context, email string) (usersession.User, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc userDocument
	if err := c.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return usersession.User{}, usersession.ErrNotFound
		}
		return usersession.User{}, err
	}
	return doc.toUser()
}

func (c *client) SetPreferences(ctx context.Context, email string, prefs usersession.Preferences) (int64, error) {
	if prefs == nil {
		return 0, usersession.ErrNilPreferences
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	update := bson.M{"$set": bson.M{"preferences": prefs.Raw()}}
	res, err := c.users.UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *client) DeleteUser(ctx context.Context, email string) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	res, err := c.users.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UpsertSession sets the session token with a single upsert keyed on user_id.
// Two racing upserts for a new user may both attempt the insert; the unique
// user_id index rejects the loser with a duplicate key error, and retrying
// then matches the winner's document.
func (c *client) UpsertSession(ctx context.Context, userID, jwt string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": bson.M{"jwt": jwt}}
	upsert := func() error {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		_, err := c.sessions.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
		return err
	}
	err := upsert()
	if err != nil && mongodriver.IsDuplicateKeyError(err) {
		err = upsert()
	}
	return err
}

func (c *client) FindSession(ctx context.Context, userID string) (usersession.Session, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc sessionDocument
	if err := c.sessions.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return usersession.Session{}, usersession.ErrNotFound
		}
		return usersession.Session{}, err
	}
	return doc.toSession(), nil
}

func (c *client) DeleteSessions(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	res, err := c.sessions.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *client) CountSessions(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sessions.CountDocuments(ctx, bson.M{"user_id": userID})
}

// WithTransaction runs fn inside a multi-document transaction. Requires a
// replica set or sharded cluster.
func (c *client) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if c.tx == nil {
		return errors.New("transactions are not supported by this client")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.tx(ctx, fn)
}

func (c *client) mongoTransaction(ctx context.Context, fn func(context.Context) error) error {
	sess, err := c.mongo.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

type userDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Email       string        `bson:"email"`
	Name        string        `bson:"name"`
	Password    string        `bson:"password"`
	Preferences bson.M        `bson:"preferences"`
}

type sessionDocument struct {
	ID     bson.ObjectID `bson:"_id,omitempty"`
	UserID string        `bson:"user_id"`
	JWT    string        `bson:"jwt"`
}

func fromUser(u usersession.User) (userDocument, error) {
	prefs := u.Preferences
	if prefs == nil {
		prefs = usersession.Preferences{}
	}
	if err := prefs.Validate(); err != nil {
		return userDocument{}, err
	}
	return userDocument{
		ID:          bson.NewObjectID(),
		Email:       u.Email,
		Name:        u.Name,
		Password:    u.Password,
		Preferences: prefs.Raw(),
	}, nil
}

func (doc userDocument) toUser() (usersession.User, error) {
	raw := make(map[string]any, len(doc.Preferences))
	for k, v := range doc.Preferences {
		raw[k] = fromBSON(v)
	}
	prefs, err := usersession.ParsePreferences(raw)
	if err != nil {
		return usersession.User{}, fmt.Errorf("decode preferences of %q: %w", doc.Email, err)
	}
	return usersession.User{
		ID:          doc.ID.Hex(),
		Email:       doc.Email,
		Name:        doc.Name,
		Password:    doc.Password,
		Preferences: prefs,
	}, nil
}

func (doc sessionDocument) toSession() usersession.Session {
	return usersession.Session{
		ID:     doc.ID.Hex(),
		UserID: doc.UserID,
		JWT:    doc.JWT,
	}
}

// fromBSON converts decoded BSON values into the plain Go values accepted by
// usersession.ParsePreferences. Embedded documents decode as bson.D.
func fromBSON(v any) any {
	switch x := v.(type) {
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = fromBSON(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = fromBSON(e)
		}
		return m
	default:
		return v
	}
}

func ensureIndexes(ctx context.Context, users, sessions collection) error {
	emailIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := users.Indexes().CreateOne(ctx, emailIndex); err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	userIDIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := sessions.Indexes().CreateOne(ctx, userIDIndex); err != nil {
		return fmt.Errorf("create sessions user_id index: %w", err)
	}
	return nil
}

func newClientWithCollections(mongoClient *mongodriver.Client, users, durableUsers, sessions collection, timeout time.Duration) (*client, error) {
	if users == nil || durableUsers == nil || sessions == nil {
		return nil, errors.New("collections are required")
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &client{
		mongo:        mongoClient,
		users:        users,
		durableUsers: durableUsers,
		sessions:     sessions,
		timeout:      timeout,
	}, nil
}

type collection interface {
	InsertOne(ctx context.Context, doc any) error
	FindOne(ctx context.Context, filter any) singleResult
	UpdateOne(ctx context.Context, filter, update any,
		opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error)
	DeleteMany(ctx context.Context, filter any) (*mongodriver.DeleteResult, error)
	CountDocuments(ctx context.Context, filter any) (int64, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c mongoCollection) FindOne(ctx context.Context, filter any) singleResult {
	return c.coll.FindOne(ctx, filter)
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter, update any,
	opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, opts...)
}

func (c mongoCollection) DeleteMany(ctx context.Context, filter any) (*mongodriver.DeleteResult, error) {
	return c.coll.DeleteMany(ctx, filter)
}

func (c mongoCollection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel) (string, error) {
	return v.view.CreateOne(ctx, model)
}
