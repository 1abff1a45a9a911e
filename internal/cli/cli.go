// Package cli implements the tilesim command-line interface.
//
// # Commands
//
//   - run: run a scenario for a number of steps and print a summary
//   - serve: expose a run over the HTTP control API
//   - scenarios: list the built-in scenarios
//   - version: print build information
//
// Every command accepts --verbose (-v) for debug logging. Without it the level
// comes from the log_level key of the configuration file.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilesim/pkg/buildinfo"
	"github.com/matzehuels/tilesim/pkg/config"
	"github.com/matzehuels/tilesim/pkg/control"
	"github.com/matzehuels/tilesim/pkg/scenario"
	"github.com/matzehuels/tilesim/pkg/sim"
	"github.com/matzehuels/tilesim/pkg/snapshot"
)

// appName is the application name used for display.
const appName = "tilesim"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger  *log.Logger
	verbose bool
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Tilesim simulates self-assembling 3D tile structures",
		Long:         `Tilesim grows structures of rigid tiles that connect through glued connectors while diffusing floating objects react with them under parallel rewrite rules.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.scenariosCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// runFlags are the configuration overrides shared by run and serve.
type runFlags struct {
	config   string
	scenario string
	seed     uint64
	backend  string
	frozen   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "TOML run configuration")
	cmd.Flags().StringVarP(&f.scenario, "scenario", "s", "", "built-in scenario (see 'tilesim scenarios')")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&f.backend, "backend", "", "snapshot backend: null, memory, file, redis or mongo")
	cmd.Flags().BoolVar(&f.frozen, "frozen", false, "disable diffusion")
}

// loadConfig reads the configuration file, if any, and applies the flags the
// user set on top of it.
func (f *runFlags) loadConfig(cmd *cobra.Command, apply func(*config.Run)) (config.Run, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return config.Run{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("scenario") {
		cfg.Scenario = f.scenario
	}
	if flags.Changed("seed") {
		cfg.Seed = f.seed
	}
	if flags.Changed("backend") {
		cfg.Snapshot.Backend = f.backend
	}
	if flags.Changed("frozen") {
		cfg.Frozen = f.frozen
	}
	if apply != nil {
		apply(&cfg)
	}
	return cfg, cfg.Validate()
}

// newController builds the simulator and the snapshot sink of cfg. The caller
// closes the controller's sink.
func (c *CLI) newController(ctx context.Context, cfg config.Run) (*control.Controller, error) {
	if !c.verbose {
		c.SetLogLevel(cfg.Level())
	}
	in, err := scenario.Build(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	cfg.Apply(&in)
	s, err := sim.New(in, c.Logger)
	if err != nil {
		return nil, err
	}
	sink, err := snapshot.Open(ctx, cfg.SnapshotOptions())
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("snapshot sink open", "backend", cfg.Snapshot.Backend)
	return control.New(s, sink, cfg.ControlOptions(), c.Logger), nil
}
