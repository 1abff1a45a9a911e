// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about simulation steps, snapshot writes, and control API calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the simulator core stays
// free of any metrics framework.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSimHooks(&mySimHooks{})
//	    observability.SetSnapshotHooks(&mySnapshotHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Sim().OnStepStart(ctx, step)
//	// ... run the step ...
//	observability.Sim().OnStepComplete(ctx, step, report, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Simulation Hooks
// =============================================================================

// StepStats summarises one finished step for hook consumers.
type StepStats struct {
	Applied int // rules applied
	Tiles   int
	Objects int
}

// SimHooks receives events from the simulator.
type SimHooks interface {
	// Step events
	OnStepStart(ctx context.Context, step int)
	OnStepComplete(ctx context.Context, step int, stats StepStats, duration time.Duration, err error)

	// OnRuleApplied records one rule application at a site.
	OnRuleApplied(ctx context.Context, step int, rule, kind string)
}

// =============================================================================
// Snapshot Hooks
// =============================================================================

// SnapshotHooks receives events from snapshot sinks.
type SnapshotHooks interface {
	// OnSnapshotWrite records a snapshot write to a backend.
	OnSnapshotWrite(ctx context.Context, backend string, step int, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the control API server.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records the response to a request.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSimHooks is a no-op implementation of SimHooks.
type NoopSimHooks struct{}

func (NoopSimHooks) OnStepStart(context.Context, int)                                        {}
func (NoopSimHooks) OnStepComplete(context.Context, int, StepStats, time.Duration, error) {}
func (NoopSimHooks) OnRuleApplied(context.Context, int, string, string)                      {}

// NoopSnapshotHooks is a no-op implementation of SnapshotHooks.
type NoopSnapshotHooks struct{}

func (NoopSnapshotHooks) OnSnapshotWrite(context.Context, string, int, time.Duration, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	simHooks      SimHooks      = NoopSimHooks{}
	snapshotHooks SnapshotHooks = NoopSnapshotHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetSimHooks registers custom simulation hooks.
// Set it before the steps it should observe start.
func SetSimHooks(h SimHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		simHooks = h
	}
}

// SetSnapshotHooks registers custom snapshot hooks.
func SetSnapshotHooks(h SnapshotHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		snapshotHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Sim returns the registered simulation hooks.
func Sim() SimHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return simHooks
}

// Snapshot returns the registered snapshot hooks.
func Snapshot() SnapshotHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return snapshotHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	simHooks = NoopSimHooks{}
	snapshotHooks = NoopSnapshotHooks{}
	httpHooks = NoopHTTPHooks{}
}
