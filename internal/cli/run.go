package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilesim/pkg/config"
	"github.com/matzehuels/tilesim/pkg/observability"
)

// ruleCounter totals rule firings over a whole run.
type ruleCounter struct {
	observability.NoopSimHooks
	mu    sync.Mutex
	fired map[string]int
}

func (r *ruleCounter) OnRuleApplied(_ context.Context, _ int, rule, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fired == nil {
		r.fired = make(map[string]int)
	}
	r.fired[rule]++
}

func (r *ruleCounter) counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.fired))
	for k, v := range r.fired {
		out[k] = v
	}
	return out
}

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var (
		flags    runFlags
		steps    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario and print a summary",
		Long: `Run a built-in scenario for a number of steps.

Settings come from the configuration file given with --config, falling back to
defaults; flags override both. Snapshots go to the configured backend.`,
		Example: `  tilesim run --scenario squares --steps 200
  tilesim run -c run.toml --backend file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig(cmd, func(cfg *config.Run) {
				if cmd.Flags().Changed("steps") {
					cfg.Steps = steps
				}
				if cmd.Flags().Changed("interval") {
					cfg.Interval = interval
				}
			})
			if err != nil {
				return err
			}
			return c.runScenario(cmd, cfg)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&steps, "steps", "n", config.DefaultSteps, "steps to run, 0 to run until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 0, "minimum wall time per step")

	return cmd
}

func (c *CLI) runScenario(cmd *cobra.Command, cfg config.Run) error {
	ctx := cmd.Context()
	ctrl, err := c.newController(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ctrl.Sink.Close(); err != nil {
			c.Logger.Warn("close snapshot sink", "err", err)
		}
	}()

	counter := &ruleCounter{}
	observability.SetSimHooks(counter)
	defer observability.SetSimHooks(observability.NoopSimHooks{})

	prog := newProgress(c.Logger)
	var spin *Spinner
	if !c.verbose {
		spin = newSpinner(ctx, os.Stderr, "Starting "+cfg.Scenario)
		spin.Start()
	}
	if err := ctrl.Start(ctx, cfg.Steps); err != nil {
		if spin != nil {
			spin.Stop()
		}
		return err
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.Wait() }()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var runErr error
wait:
	for {
		select {
		case runErr = <-done:
			break wait
		case <-ticker.C:
			if spin != nil {
				st := ctrl.Status()
				spin.Update(stepMessage(cfg.Scenario, st.Step, st.Target, st.Tiles))
			}
		}
	}
	if spin != nil {
		spin.Stop()
	}

	prog.done("Run finished", "run", ctrl.RunID())
	printSummary(cmd.OutOrStdout(), ctrl.Status(), counter.counts(), prog.elapsed())
	return runErr
}

func stepMessage(name string, step, target, tiles int) string {
	if target > 0 {
		return fmt.Sprintf("%s: step %d/%d, %d tiles", name, step, target, tiles)
	}
	return fmt.Sprintf("%s: step %d, %d tiles", name, step, tiles)
}
