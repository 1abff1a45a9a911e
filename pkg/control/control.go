// Package control drives a simulation run and lets a host steer it.
//
// A [Controller] runs the steps of one [sim.Simulator] on a single goroutine.
// Pause, resume and stop requests are delivered over channels and take effect
// between steps, never inside one. After each step the controller keeps a
// snapshot of the state; when a step fails, that last good snapshot is written to
// the sink before the error is returned.
//
// # Usage
//
//	c := control.New(s, sink, control.Options{SnapshotEvery: 10}, logger)
//	if err := c.Run(ctx, 1000); err != nil {
//	    return err
//	}
//
// A host serving a control API starts the run in the background instead:
//
//	c.Start(ctx, 0) // unbounded
//	c.Pause()
//	c.Resume()
//	c.Stop()
//	err := c.Wait()
package control

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/multiset"
	"github.com/matzehuels/tilesim/pkg/sim"
	"github.com/matzehuels/tilesim/pkg/snapshot"
	"github.com/matzehuels/tilesim/pkg/tile"
)

// Default values.
const (
	// DefaultSnapshotEvery writes a snapshot after every step.
	DefaultSnapshotEvery = 1
)

// State is the lifecycle state of a controller.
type State string

// Controller states.
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Options tunes a Controller.
type Options struct {
	RunID          string        // empty for a fresh UUID
	Interval       time.Duration // minimum wall time per step
	SnapshotEvery  int           // steps between snapshot writes, 0 for the default
	IncludeObjects bool          // record floating-object positions in snapshots
}

// ValidateAndSetDefaults fills zero fields and rejects negative ones.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Interval < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "interval must not be negative")
	}
	if o.SnapshotEvery < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "snapshot interval must not be negative")
	}
	if o.SnapshotEvery == 0 {
		o.SnapshotEvery = DefaultSnapshotEvery
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	return nil
}

// Status is a point-in-time view of a controller.
type Status struct {
	RunID     string         `json:"run_id"`
	State     State          `json:"state"`
	Step      int            `json:"step"`
	Target    int            `json:"target,omitempty"` // last step of a bounded run
	Tiles     int            `json:"tiles"`
	Objects   int            `json:"objects"`
	Applied   map[string]int `json:"applied,omitempty"` // rules fired by the last step
	LastError string         `json:"last_error,omitempty"`
}

// Controller runs one simulator. Its methods are safe for concurrent use.
type Controller struct {
	Sink   snapshot.Sink
	Logger *log.Logger

	sim  *sim.Simulator
	opts Options

	pause  chan struct{}
	resume chan struct{}
	stop   chan struct{}

	mu       sync.RWMutex
	status   Status
	applied  multiset.Multiset
	lastGood *snapshot.Snapshot
	running  bool
	done     chan struct{}
	err      error
}

// New creates a controller for s.
// If sink is nil, a NullSink is used.
// If logger is nil, log.Default() is used.
// Invalid options are replaced by their defaults and logged.
func New(s *sim.Simulator, sink snapshot.Sink, opts Options, logger *log.Logger) *Controller {
	if sink == nil {
		sink = snapshot.NewNullSink()
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		logger.Warn("invalid run options, using defaults", "err", err)
		opts = Options{RunID: opts.RunID}
		_ = opts.ValidateAndSetDefaults()
	}
	c := &Controller{
		Sink:   sink,
		Logger: logger,
		sim:    s,
		opts:   opts,
		pause:  make(chan struct{}, 1),
		resume: make(chan struct{}, 1),
		stop:   make(chan struct{}, 1),
	}
	c.status = Status{
		RunID:   opts.RunID,
		State:   StateIdle,
		Step:    s.StepIndex(),
		Tiles:   s.Tiles().Count(),
		Objects: s.Objects().Len(),
	}
	c.lastGood = snapshot.Take(s, opts.RunID, opts.IncludeObjects)
	return c
}

// RunID returns the identifier snapshots are written under.
func (c *Controller) RunID() string { return c.opts.RunID }

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.status
	st.Applied = c.applied.Counts()
	return st
}

// LastSnapshot returns the snapshot taken after the last successful step.
func (c *Controller) LastSnapshot() *snapshot.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastGood
}

// Pause asks the run to hold after the current step.
func (c *Controller) Pause() { signal(c.pause) }

// Resume continues a paused run.
func (c *Controller) Resume() { signal(c.resume) }

// Stop ends the run after the current step.
func (c *Controller) Stop() { signal(c.stop) }

// Hurt removes up to n random non-seed tiles between runs and returns their IDs.
// It fails while a run is in progress.
func (c *Controller) Hurt(n int) ([]tile.ID, error) {
	if n < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "tile count must not be negative")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil, errors.New(errors.ErrCodeInvalidState, "run %s is running", c.opts.RunID)
	}
	removed, err := c.sim.Hurt(n)
	if err != nil {
		return nil, err
	}
	c.status.Tiles = c.sim.Tiles().Count()
	c.lastGood = snapshot.Take(c.sim, c.opts.RunID, c.opts.IncludeObjects)
	return removed, nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Start runs n steps in the background, or until stopped when n is zero.
func (c *Controller) Start(ctx context.Context, n int) error {
	if err := c.begin(n); err != nil {
		return err
	}
	go func() { _ = c.loop(ctx, n) }()
	return nil
}

// Wait blocks until a background run ends and returns its error.
func (c *Controller) Wait() error {
	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()
	if done == nil {
		return nil
	}
	<-done
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Run runs n steps on the calling goroutine, or until stopped when n is zero.
// It returns ctx.Err() when ctx ends the run.
func (c *Controller) Run(ctx context.Context, n int) error {
	if err := c.begin(n); err != nil {
		return err
	}
	return c.loop(ctx, n)
}

func (c *Controller) begin(n int) error {
	if n < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "step count must not be negative")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New(errors.ErrCodeInvalidState, "run %s is already running", c.opts.RunID)
	}
	c.running = true
	c.done = make(chan struct{})
	c.err = nil
	c.status.State = StateRunning
	c.status.LastError = ""
	c.status.Target = 0
	if n > 0 {
		c.status.Target = c.sim.StepIndex() + n
	}
	// Drop requests left over from an earlier run.
	drain(c.pause)
	drain(c.resume)
	drain(c.stop)
	return nil
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

func (c *Controller) finish(state State, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.status.State = state
	if err != nil {
		c.status.LastError = err.Error()
	}
	c.err = err
	close(c.done)
	return err
}

func (c *Controller) loop(ctx context.Context, n int) error {
	c.Logger.Info("run started", "run", c.opts.RunID, "steps", n)
	for i := 0; n == 0 || i < n; i++ {
		if stopped, err := c.checkpoint(ctx); err != nil {
			return c.finish(StateStopped, err)
		} else if stopped {
			c.Logger.Info("run stopped", "run", c.opts.RunID, "step", c.sim.StepIndex())
			return c.finish(StateStopped, nil)
		}

		start := time.Now()
		report, err := c.sim.Step(ctx)
		if err != nil {
			state := StateFailed
			if ctx.Err() != nil {
				state = StateStopped
			}
			return c.finish(state, c.fail(ctx, err))
		}
		if err := c.record(ctx, report); err != nil {
			return c.finish(StateFailed, err)
		}
		if wait := c.opts.Interval - time.Since(start); wait > 0 {
			select {
			case <-ctx.Done():
				return c.finish(StateStopped, ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	c.Logger.Info("run complete", "run", c.opts.RunID, "step", c.sim.StepIndex())
	return c.finish(StateDone, nil)
}

// checkpoint handles the requests that arrived during the last step. It blocks
// while paused.
func (c *Controller) checkpoint(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-c.stop:
		return true, nil
	case <-c.pause:
	default:
		return false, nil
	}

	c.setState(StatePaused)
	c.Logger.Info("run paused", "run", c.opts.RunID, "step", c.sim.StepIndex())
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-c.stop:
		return true, nil
	case <-c.resume:
		c.setState(StateRunning)
		c.Logger.Info("run resumed", "run", c.opts.RunID)
		return false, nil
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.status.State = s
	c.mu.Unlock()
}

// record updates the status after a good step and writes a snapshot when due.
func (c *Controller) record(ctx context.Context, r sim.StepReport) error {
	snap := snapshot.Take(c.sim, c.opts.RunID, c.opts.IncludeObjects)
	c.mu.Lock()
	c.lastGood = snap
	c.status.Step = c.sim.StepIndex()
	c.status.Tiles = r.Tiles
	c.status.Objects = r.Objects
	c.applied = r.Applied
	c.mu.Unlock()

	if snap.Step%c.opts.SnapshotEvery != 0 {
		return nil
	}
	if err := c.Sink.Write(ctx, snap); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "snapshot step %d", snap.Step)
	}
	return nil
}

// fail persists the last good snapshot and returns the step error.
func (c *Controller) fail(ctx context.Context, stepErr error) error {
	c.Logger.Error("step failed", "run", c.opts.RunID, "step", c.sim.StepIndex(), "err", stepErr)
	good := c.LastSnapshot()
	if good == nil {
		return stepErr
	}
	// The run context may be what failed the step.
	if err := c.Sink.Write(context.WithoutCancel(ctx), good); err != nil {
		c.Logger.Error("could not save last good snapshot", "run", c.opts.RunID, "step", good.Step, "err", err)
	}
	return stepErr
}
