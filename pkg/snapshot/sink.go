package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/observability"
)

// Sink is the interface for snapshot storage backends.
type Sink interface {
	// Write stores a snapshot.
	Write(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot of a run.
	// Returns nil, nil if the run has no snapshot.
	Latest(ctx context.Context, runID string) (*Snapshot, error)

	// Close releases the backend connection.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendNull   = "null"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Dir     string // file backend
	Redis   RedisConfig
	Mongo   MongoConfig
}

// Open connects the backend named by opts. An empty backend opens the null sink.
// The returned sink reports every write to the registered snapshot hooks.
func Open(ctx context.Context, opts Options) (Sink, error) {
	var (
		s   Sink
		err error
	)
	backend := opts.Backend
	switch backend {
	case "", BackendNull:
		backend = BackendNull
		s = NewNullSink()
	case BackendMemory:
		s = NewMemorySink(0)
	case BackendFile:
		s, err = NewFileSink(opts.Dir)
	case BackendRedis:
		s, err = NewRedisSink(ctx, opts.Redis)
	case BackendMongo:
		s, err = NewMongoSink(ctx, opts.Mongo)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown snapshot backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(s, backend), nil
}

// Instrument wraps s so that writes are reported to observability.Snapshot().
func Instrument(s Sink, backend string) Sink {
	return &instrumented{Sink: s, backend: backend}
}

type instrumented struct {
	Sink
	backend string
}

func (s *instrumented) Write(ctx context.Context, snap *Snapshot) error {
	start := time.Now()
	err := s.Sink.Write(ctx, snap)
	observability.Snapshot().OnSnapshotWrite(ctx, s.backend, snap.Step, time.Since(start), err)
	return err
}

// stepKey names the snapshot of one step.
// The key format is: prefix:run:step, with the step zero-padded so keys sort.
func stepKey(prefix, runID string, step int) string {
	return fmt.Sprintf("%s:%s:%010d", prefix, runID, step)
}

// latestKey names the pointer to the newest snapshot of a run.
func latestKey(prefix, runID string) string {
	return fmt.Sprintf("%s:%s:latest", prefix, runID)
}
