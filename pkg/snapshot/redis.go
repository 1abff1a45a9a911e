package snapshot

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/tilesim/pkg/errors"
)

// Redis defaults.
const (
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "tilesim:snapshot"
)

// RedisConfig configures a RedisSink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration // zero keeps snapshots forever
}

// RedisSink stores each snapshot under its own key and keeps a latest key per run.
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  retryPolicy
}

// NewRedisSink connects to Redis and checks the connection.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultRedisAddr
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to redis at %s", cfg.Addr)
	}
	return &RedisSink{client: client, prefix: cfg.Prefix, ttl: cfg.TTL, retry: newRetryPolicy(isNetError)}, nil
}

// Write stores snap under its step key and points the latest key at it, in one
// transaction.
func (s *RedisSink) Write(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot")
	}
	n, err := s.retry.do(ctx, func(ctx context.Context) error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stepKey(s.prefix, snap.RunID, snap.Step), data, s.ttl)
			pipe.Set(ctx, latestKey(s.prefix, snap.RunID), data, s.ttl)
			return nil
		})
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write snapshot %d of run %s (%d attempts)", snap.Step, snap.RunID, n)
	}
	return nil
}

// Latest reads the latest key of runID.
func (s *RedisSink) Latest(ctx context.Context, runID string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, latestKey(s.prefix, runID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read latest snapshot of run %s", runID)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode snapshot of run %s", runID)
	}
	return &snap, nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// isNetError reports connection-level failures worth retrying.
func isNetError(err error) bool {
	var ne net.Error
	return err != nil && stderrors.As(err, &ne)
}

// Ensure RedisSink implements Sink.
var _ Sink = (*RedisSink)(nil)
