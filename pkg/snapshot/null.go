package snapshot

import "context"

// NullSink is a no-op sink that never stores anything.
// Useful for benchmarks or when snapshots are disabled.
type NullSink struct{}

// NewNullSink creates a null sink.
func NewNullSink() Sink {
	return &NullSink{}
}

// Write does nothing.
func (s *NullSink) Write(ctx context.Context, snap *Snapshot) error {
	return nil
}

// Latest always reports no snapshot.
func (s *NullSink) Latest(ctx context.Context, runID string) (*Snapshot, error) {
	return nil, nil
}

// Close does nothing.
func (s *NullSink) Close() error {
	return nil
}

// Ensure NullSink implements Sink.
var _ Sink = (*NullSink)(nil)
