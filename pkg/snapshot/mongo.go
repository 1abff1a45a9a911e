package snapshot

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/tilesim/pkg/errors"
)

// MongoDB defaults.
const (
	DefaultMongoURI        = "mongodb://localhost:27017"
	DefaultMongoDatabase   = "tilesim"
	DefaultMongoCollection = "snapshots"
)

// mongoCloseTimeout bounds the disconnect in Close.
const mongoCloseTimeout = 5 * time.Second

// MongoConfig configures a MongoSink.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoSink stores one document per snapshot, indexed by run and step.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
	retry  retryPolicy
}

// NewMongoSink connects to MongoDB, checks the connection and ensures the
// (run_id, step) index exists.
func NewMongoSink(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	if cfg.URI == "" {
		cfg.URI = DefaultMongoURI
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}, {Key: "step", Value: -1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create snapshot index")
	}
	return &MongoSink{client: client, coll: coll, retry: newRetryPolicy(func(err error) bool {
		return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
	})}, nil
}

// Write inserts snap. A snapshot for the same run and step replaces the old one.
func (s *MongoSink) Write(ctx context.Context, snap *Snapshot) error {
	n, err := s.retry.do(ctx, func(ctx context.Context) error {
		_, err := s.coll.ReplaceOne(ctx,
			bson.M{"run_id": snap.RunID, "step": snap.Step}, snap,
			options.Replace().SetUpsert(true))
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write snapshot %d of run %s (%d attempts)", snap.Step, snap.RunID, n)
	}
	return nil
}

// Latest finds the snapshot of runID with the highest step.
func (s *MongoSink) Latest(ctx context.Context, runID string) (*Snapshot, error) {
	var snap Snapshot
	err := s.coll.FindOne(ctx, bson.M{"run_id": runID},
		options.FindOne().SetSort(bson.D{{Key: "step", Value: -1}})).Decode(&snap)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read latest snapshot of run %s", runID)
	}
	return &snap, nil
}

// Close disconnects the client.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ensure MongoSink implements Sink.
var _ Sink = (*MongoSink)(nil)
