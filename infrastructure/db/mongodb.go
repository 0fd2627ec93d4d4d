package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propchat/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

type MongoStore struct {
	Client *mongo.Client
	DB     *mongo.Database

	transactions bool
	log          *logger.Logger
}

// NewMongoStore connects and pings. When transactions is true, WithTransaction
// runs callbacks inside a multi-document transaction (requires a replica set).
func NewMongoStore(ctx context.Context, uri, dbName string, transactions bool, log *logger.Logger) (*MongoStore, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if dbName == "" {
		return nil, errors.New("database name required (set MONGODB_DATABASE)")
	}
	if log == nil {
		log = logger.Global()
	}

	clientOpts := options.Client().ApplyURI(uri).
		SetMaxPoolSize(100)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Info("connected to mongodb",
		zap.String("database", dbName),
		zap.Bool("transactions", transactions),
	)

	store := &MongoStore{
		Client:       client,
		DB:           client.Database(dbName),
		transactions: transactions,
		log:          log,
	}
	return store, nil
}

// WithTransaction runs fn in a session transaction, or directly when
// transactions are disabled. Repositories must be called with the ctx handed to fn.
func (m *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.transactions {
		return fn(ctx)
	}

	session, err := m.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	if err != nil {
		m.log.Debug("transaction aborted", zap.Error(err))
		return err
	}

	return nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.Client.Disconnect(disconnectCtx)
}

func (m *MongoStore) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return errors.New("mongo client is nil")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.Client.Ping(pingCtx, nil)
}
