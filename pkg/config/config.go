// Package config loads run configuration from TOML.
//
// A configuration file names a built-in scenario and tunes the run, the snapshot
// backend and the control server:
//
//	scenario = "squares"
//	steps    = 500
//	seed     = 7
//	interval = "50ms"
//
//	[snapshot]
//	backend = "redis"
//	every   = 10
//
//	[snapshot.redis]
//	addr = "localhost:6379"
//	ttl  = "24h"
//
//	[server]
//	addr = ":8080"
//
// Fields left out keep the values of [Default].
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/tilesim/pkg/control"
	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/scenario"
	"github.com/matzehuels/tilesim/pkg/sim"
	"github.com/matzehuels/tilesim/pkg/snapshot"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultScenario is the scenario run when none is named.
	DefaultScenario = "squares"

	// DefaultSteps is the number of steps of a bounded run.
	DefaultSteps = 100

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultServerAddr is the default control API listen address.
	DefaultServerAddr = ":8080"

	// DefaultSnapshotDir is where the file backend writes by default.
	DefaultSnapshotDir = "snapshots"
)

// Run is a complete run configuration.
type Run struct {
	Scenario     string        `toml:"scenario"`
	Steps        int           `toml:"steps"`
	Seed         uint64        `toml:"seed"`
	Interval     time.Duration `toml:"interval"`
	Frozen       bool          `toml:"frozen"`
	Refill       bool          `toml:"refill"`
	DropDetached bool          `toml:"drop_detached"`
	Workers      int           `toml:"workers"`
	GlueRadius   float64       `toml:"glue_radius"`
	LogLevel     string        `toml:"log_level"`

	Snapshot Snapshot `toml:"snapshot"`
	Server   Server   `toml:"server"`
}

// Snapshot configures snapshot output.
type Snapshot struct {
	Backend        string `toml:"backend"`
	Every          int    `toml:"every"`
	IncludeObjects bool   `toml:"include_objects"`
	Dir            string `toml:"dir"`
	Redis          Redis  `toml:"redis"`
	Mongo          Mongo  `toml:"mongo"`
}

// Redis configures the redis snapshot backend.
type Redis struct {
	Addr     string        `toml:"addr"`
	Password string        `toml:"password"`
	DB       int           `toml:"db"`
	Prefix   string        `toml:"prefix"`
	TTL      time.Duration `toml:"ttl"`
}

// Mongo configures the mongo snapshot backend.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Server configures the control API.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Run {
	return Run{
		Scenario: DefaultScenario,
		Steps:    DefaultSteps,
		Seed:     DefaultSeed,
		Refill:   true,
		LogLevel: DefaultLogLevel,
		Snapshot: Snapshot{
			Backend: snapshot.BackendNull,
			Every:   control.DefaultSnapshotEvery,
			Dir:     DefaultSnapshotDir,
			Redis: Redis{
				Addr:   snapshot.DefaultRedisAddr,
				Prefix: snapshot.DefaultRedisPrefix,
			},
			Mongo: Mongo{
				URI:        snapshot.DefaultMongoURI,
				Database:   snapshot.DefaultMongoDatabase,
				Collection: snapshot.DefaultMongoCollection,
			},
		},
		Server: Server{Addr: DefaultServerAddr},
	}
}

// Load reads and validates the TOML file at path over the defaults.
func Load(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	return Decode(string(data))
}

// Decode parses and validates a TOML document over the defaults.
func Decode(doc string) (Run, error) {
	cfg := Default()
	md, err := toml.Decode(doc, &cfg)
	if err != nil {
		return Run{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Run{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Run{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field in one error.
func (c Run) Validate() error {
	var ve errors.ValidationError
	if !scenario.Exists(c.Scenario) {
		ve.Add(errors.ErrCodeUnknownName, "unknown scenario %q (have %v)", c.Scenario, scenario.Names())
	}
	if c.Steps < 0 {
		ve.Add(errors.ErrCodeInvalidConfig, "steps must not be negative")
	}
	if c.Interval < 0 {
		ve.Add(errors.ErrCodeInvalidConfig, "interval must not be negative")
	}
	if c.Workers < 0 {
		ve.Add(errors.ErrCodeInvalidConfig, "workers must not be negative")
	}
	if c.GlueRadius < 0 {
		ve.Add(errors.ErrCodeInvalidConfig, "glue_radius must not be negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		ve.Add(errors.ErrCodeInvalidConfig, "invalid log_level %q", c.LogLevel)
	}

	s := c.Snapshot
	switch s.Backend {
	case snapshot.BackendNull, snapshot.BackendMemory, snapshot.BackendRedis, snapshot.BackendMongo:
	case snapshot.BackendFile:
		if s.Dir == "" {
			ve.Add(errors.ErrCodeInvalidConfig, "snapshot.dir is required for the file backend")
		}
	default:
		ve.Add(errors.ErrCodeInvalidConfig, "unknown snapshot.backend %q", s.Backend)
	}
	if s.Every < 1 {
		ve.Add(errors.ErrCodeInvalidConfig, "snapshot.every must be at least 1")
	}
	if s.Redis.DB < 0 || s.Redis.TTL < 0 {
		ve.Add(errors.ErrCodeInvalidConfig, "snapshot.redis db and ttl must not be negative")
	}
	if c.Server.Addr == "" {
		ve.Add(errors.ErrCodeInvalidConfig, "server.addr must not be empty")
	}
	return ve.Err()
}

// Level returns the parsed log level, or info when it is invalid.
func (c Run) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Apply copies the run parameters onto in, keeping what the scenario set for the
// tile world's circuit.
func (c Run) Apply(in *sim.Input) {
	p := &in.Params
	p.Seed = c.Seed
	p.Frozen = c.Frozen
	p.Refill = c.Refill
	p.DropDetached = c.DropDetached
	p.Workers = c.Workers
	if c.GlueRadius > 0 {
		p.World.GlueRadius = c.GlueRadius
	}
}

// ControlOptions returns the controller options of the run.
func (c Run) ControlOptions() control.Options {
	return control.Options{
		Interval:       c.Interval,
		SnapshotEvery:  c.Snapshot.Every,
		IncludeObjects: c.Snapshot.IncludeObjects,
	}
}

// SnapshotOptions returns the options that open the snapshot sink.
func (c Run) SnapshotOptions() snapshot.Options {
	s := c.Snapshot
	return snapshot.Options{
		Backend: s.Backend,
		Dir:     s.Dir,
		Redis: snapshot.RedisConfig{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
			Prefix:   s.Redis.Prefix,
			TTL:      s.Redis.TTL,
		},
		Mongo: snapshot.MongoConfig{
			URI:        s.Mongo.URI,
			Database:   s.Mongo.Database,
			Collection: s.Mongo.Collection,
		},
	}
}
