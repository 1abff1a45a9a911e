package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/tilesim/pkg/errors"
)

// FileSink implements a file-based sink for CLI usage.
// Each run gets a directory holding one JSON file per step and a copy of the
// newest one.
type FileSink struct {
	dir string
}

// NewFileSink creates a file sink in the given directory.
// The directory will be created if it doesn't exist.
func NewFileSink(dir string) (Sink, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "file snapshot backend needs a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create snapshot directory")
	}
	return &FileSink{dir: dir}, nil
}

// Write stores snap as <dir>/<run>/<step>.json and updates latest.json.
func (s *FileSink) Write(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot")
	}
	runDir := filepath.Join(s.dir, snap.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create run directory")
	}
	if err := os.WriteFile(filepath.Join(runDir, fmt.Sprintf("%010d.json", snap.Step)), data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write snapshot")
	}
	// Write-then-rename so readers never see a partial latest.json.
	tmp := filepath.Join(runDir, "latest.json.tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write latest snapshot")
	}
	if err := os.Rename(tmp, filepath.Join(runDir, "latest.json")); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write latest snapshot")
	}
	return nil
}

// Latest reads <dir>/<run>/latest.json.
func (s *FileSink) Latest(ctx context.Context, runID string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, runID, "latest.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read latest snapshot")
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode snapshot of run %s", runID)
	}
	return &snap, nil
}

// Close does nothing for the file sink.
func (s *FileSink) Close() error {
	return nil
}

// Ensure FileSink implements Sink.
var _ Sink = (*FileSink)(nil)
