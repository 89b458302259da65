package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ConnectMongoDB connects with the decimal codec registered. Transactions
// require the server to run as a replica set.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetRegistry(NewRegistry()).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// runInTransaction executes fn in a snapshot transaction with majority
// writes. The driver retries fn on TransientTransactionError and the commit on
// UnknownTransactionCommitResult.
func runInTransaction(ctx context.Context, db *mongo.Database, fn func(sc mongo.SessionContext) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	return err
}

// EnsureIndexes creates every index the repositories rely on for their
// invariants.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	creators := []interface {
		CreateIndexes(ctx context.Context) error
	}{
		&addressRepository{db: db, collection: db.Collection(addressesCollection)},
		&couponRepository{collection: db.Collection(couponsCollection)},
		&orderRepository{db: db, collection: db.Collection(ordersCollection)},
		&outboxRepository{collection: db.Collection(outboxCollection)},
	}
	for _, c := range creators {
		if err := c.CreateIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}
