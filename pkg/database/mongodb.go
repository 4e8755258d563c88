package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const disconnectTimeout = 10 * time.Second

// MongoDB holds the client and the ride database handle.
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	Config   *DatabaseConfig
}

type DatabaseConfig struct {
	URI            string
	Database       string
	AppName        string
	MaxPoolSize    int
	MinPoolSize    int
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// clientOptions uses majority writes so an acknowledged ride transition
// survives a primary failover.
func (c *DatabaseConfig) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(c.URI).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary()).
		SetServerSelectionTimeout(c.ConnectTimeout).
		SetConnectTimeout(c.ConnectTimeout).
		SetSocketTimeout(c.SocketTimeout)
	if c.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(c.MaxPoolSize))
	}
	if c.MinPoolSize > 0 {
		opts.SetMinPoolSize(uint64(c.MinPoolSize))
	}
	if c.AppName != "" {
		opts.SetAppName(c.AppName)
	}
	return opts
}

// Connect dials MongoDB and verifies the primary is reachable before returning.
func Connect(ctx context.Context, config *DatabaseConfig) (*MongoDB, error) {
	if config.Database == "" {
		return nil, fmt.Errorf("mongodb database name is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, config.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDB{
		Client:   client,
		Database: client.Database(config.Database),
		Config:   config,
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// SupportsTransactions reports whether the deployment is a replica set or a
// sharded cluster. Standalone servers reject multi-document transactions.
func (m *MongoDB) SupportsTransactions(ctx context.Context) (bool, error) {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := m.Client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return false, fmt.Errorf("failed to run hello: %w", err)
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid", nil
}

// WithTransaction runs fn inside a multi-document transaction.
func (m *MongoDB) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := m.Client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	return session.WithTransaction(ctx, fn)
}
