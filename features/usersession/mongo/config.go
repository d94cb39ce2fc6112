package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/log"

	clientsmongo "goa.design/authstore/features/usersession/mongo/clients/mongo"
	"goa.design/authstore/usersession"
)

type (
	// Config holds the MongoDB settings of the user session store.
	Config struct {
		URI                  string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
		Database             string        `env:"MONGO_DATABASE" envDefault:"authstore"`
		UsersCollection      string        `env:"MONGO_USERS_COLLECTION" envDefault:"users"`
		SessionsCollection   string        `env:"MONGO_SESSIONS_COLLECTION" envDefault:"sessions"`
		OpTimeout            time.Duration `env:"MONGO_OP_TIMEOUT" envDefault:"5s"`
		TransactionalCascade bool          `env:"MONGO_TRANSACTIONAL_CASCADE"`
	}

	// Conn is a connected user session store.
	Conn struct {
		// Store serves user and session operations.
		Store *usersession.Store
		// Client is the low-level Mongo client, usable as a health.Pinger.
		Client clientsmongo.Client

		mongo *mongodriver.Client
	}
)

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the required settings are present.
func (c Config) Validate() error {
	if c.URI == "" {
		return errors.New("mongo URI is required")
	}
	if c.Database == "" {
		return errors.New("mongo database is required")
	}
	if c.OpTimeout < 0 {
		return fmt.Errorf("mongo op timeout must not be negative, got %s", c.OpTimeout)
	}
	return nil
}

// Connect dials MongoDB, verifies the primary is reachable and returns a
// store using cfg. opts are applied after the options derived from cfg.
func Connect(ctx context.Context, cfg Config, opts ...usersession.Option) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mc, err := mongodriver.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	conn, err := connect(ctx, mc, cfg, opts)
	if err != nil {
		if derr := mc.Disconnect(context.WithoutCancel(ctx)); derr != nil {
			log.Error(ctx, derr, log.KV{K: "msg", V: "mongo disconnect failed"})
		}
		return nil, err
	}
	log.Info(ctx,
		log.KV{K: "msg", V: "user session store connected"},
		log.KV{K: "database", V: cfg.Database},
		log.KV{K: "transactional_cascade", V: cfg.TransactionalCascade},
	)
	return conn, nil
}

func connect(ctx context.Context, mc *mongodriver.Client, cfg Config, opts []usersession.Option) (*Conn, error) {
	pingCtx := ctx
	if cfg.OpTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.OpTimeout)
		defer cancel()
	}
	if err := mc.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	client, err := clientsmongo.New(clientsmongo.Options{
		Client:             mc,
		Database:           cfg.Database,
		UsersCollection:    cfg.UsersCollection,
		SessionsCollection: cfg.SessionsCollection,
		Timeout:            cfg.OpTimeout,
	})
	if err != nil {
		return nil, err
	}
	store, err := NewStore(client, append(cfg.storeOptions(), opts...)...)
	if err != nil {
		return nil, err
	}
	return &Conn{Store: store, Client: client, mongo: mc}, nil
}

func (c Config) storeOptions() []usersession.Option {
	var opts []usersession.Option
	if c.TransactionalCascade {
		opts = append(opts, usersession.WithTransactionalCascade())
	}
	return opts
}

// Close disconnects from MongoDB.
func (c *Conn) Close(ctx context.Context) error {
	if c == nil || c.mongo == nil {
		return nil
	}
	return c.mongo.Disconnect(ctx)
}
