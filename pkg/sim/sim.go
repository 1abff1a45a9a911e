package sim

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/floating"
	"github.com/matzehuels/tilesim/pkg/multiset"
	"github.com/matzehuels/tilesim/pkg/observability"
	"github.com/matzehuels/tilesim/pkg/rule"
	"github.com/matzehuels/tilesim/pkg/tile"
	"github.com/matzehuels/tilesim/pkg/tileworld"
)

// Seed places one tile prototype before the first step.
type Seed struct {
	Tile        string
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Params tunes a run.
type Params struct {
	Seed         uint64 // random seed; equal seeds give equal runs
	Frozen       bool   // disable diffusion
	Refill       bool   // top up environment objects at the region boundary
	DropDetached bool   // remove components that lost every seed tile
	Workers      int    // diffusion parallelism, 0 for GOMAXPROCS
	World        tileworld.Params
}

// Input is everything a run is built from.
type Input struct {
	Tiles    []*tile.Tile
	Objects  []floating.Type
	Relation *tile.GlueRelation
	Rules    []rule.Definition
	Seeds    []Seed
	Params   Params
}

// StepReport summarises one finished step.
type StepReport struct {
	Step     int
	Applied  multiset.Multiset // rule name -> times fired
	Tiles    int
	Objects  int
	Duration time.Duration
}

// Simulator advances a tile system step by step. It is not safe for concurrent
// use.
type Simulator struct {
	step    int
	tiles   *tileworld.World
	objects *floating.World
	protos  map[string]*tile.Tile
	glues   map[string]*tile.Glue
	rules   *rule.Set
	params  Params
	rng     *rand.Rand
	logger  *log.Logger

	insertWarned bool
	applied      multiset.Multiset
}

// New validates in and builds a simulator with its seeds placed. A nil logger uses
// log.Default().
func New(in Input, logger *log.Logger) (*Simulator, error) {
	if logger == nil {
		logger = log.Default()
	}

	var ve errors.ValidationError
	protos := make(map[string]*tile.Tile, len(in.Tiles))
	glues := make(map[string]*tile.Glue)
	var proteins []string
	for _, t := range in.Tiles {
		if t == nil {
			ve.Add(errors.ErrCodeInvalidTile, "nil tile prototype")
			continue
		}
		if _, dup := protos[t.Name()]; dup {
			ve.Add(errors.ErrCodeDuplicateName, "tile %q declared twice", t.Name())
			continue
		}
		protos[t.Name()] = t
		for _, g := range t.Glues() {
			if prev, ok := glues[g.Name]; ok && prev != g {
				ve.Add(errors.ErrCodeDuplicateName, "two glues named %q", g.Name)
				continue
			}
			glues[g.Name] = g
		}
		for _, p := range t.Proteins() {
			proteins = append(proteins, p.Name)
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	objectNames := make([]string, len(in.Objects))
	for i, o := range in.Objects {
		objectNames[i] = o.Name
	}
	cat, err := rule.NewCatalog(objectNames, keys(glues), keys(protos), proteins)
	if err != nil {
		return nil, err
	}
	rules := make([]*rule.Rule, 0, len(in.Rules))
	for _, def := range in.Rules {
		r, err := rule.New(def, cat)
		if err != nil {
			ve.Append(err)
			continue
		}
		rules = append(rules, r)
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	set, err := rule.NewSet(rules...)
	if err != nil {
		return nil, err
	}

	p := in.Params
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	tw, err := tileworld.New(in.Relation, p.World, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())), logger)
	if err != nil {
		return nil, err
	}
	fw, err := floating.New(in.Objects, floating.Params{Frozen: p.Frozen, Refill: p.Refill, Workers: p.Workers},
		rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())), logger)
	if err != nil {
		return nil, err
	}
	tw.SetObjectField(fw)
	fw.SetObstacles(tw)

	s := &Simulator{
		tiles:   tw,
		objects: fw,
		protos:  protos,
		glues:   glues,
		rules:   set,
		params:  p,
		rng:     rng,
		logger:  logger,
	}
	if err := s.placeSeeds(in.Seeds); err != nil {
		return nil, err
	}
	s.tiles.UpdateCircuit()
	if err := s.objects.ExpandWith(s.tiles.Box()); err != nil {
		return nil, err
	}

	logger.Debug("simulator ready",
		"tiles", len(protos), "objects", len(in.Objects), "rules", set.Len(), "seeds", len(in.Seeds))
	return s, nil
}

func (s *Simulator) placeSeeds(seeds []Seed) error {
	placed := make([]*tile.TileInSpace, 0, len(seeds))
	for i, sd := range seeds {
		proto, ok := s.protos[sd.Tile]
		if !ok {
			return errors.New(errors.ErrCodeUnknownName, "seed %d: unknown tile %q", i, sd.Tile)
		}
		q := sd.Orientation
		if q.Len() == 0 {
			q = mgl64.QuatIdent()
		}
		t, err := s.tiles.Seed(proto, sd.Position, q)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidState, err, "seed %d", i)
		}
		placed = append(placed, t)
	}
	for _, t := range placed {
		if _, err := s.tiles.AutoConnect(t); err != nil {
			return err
		}
	}
	return nil
}

// Step applies one round of rules and finalizes it.
func (s *Simulator) Step(ctx context.Context) (StepReport, error) {
	start := time.Now()
	step := s.step
	hooks := observability.Sim()
	hooks.OnStepStart(ctx, step)

	s.applied = multiset.Multiset{}
	err := ctx.Err()
	for _, k := range rule.Order {
		if err != nil {
			break
		}
		err = s.applyKind(ctx, k)
	}
	if err == nil {
		err = s.FinalizeStep(ctx)
	}

	report := StepReport{
		Step:     step,
		Applied:  s.applied,
		Tiles:    s.tiles.Count(),
		Objects:  s.objects.Len(),
		Duration: time.Since(start),
	}
	hooks.OnStepComplete(ctx, step, observability.StepStats{
		Applied: report.Applied.Len(),
		Tiles:   report.Tiles,
		Objects: report.Objects,
	}, report.Duration, err)
	if err != nil {
		return report, errors.Wrap(errors.ErrCodeInternal, err, "step %d", step)
	}
	s.logger.Debug("step complete", "step", step, "applied", report.Applied, "tiles", report.Tiles,
		"objects", report.Objects, "duration", report.Duration)
	return report, nil
}

// FinalizeStep commits the changes of the current step and advances the step
// counter.
func (s *Simulator) FinalizeStep(ctx context.Context) error {
	if err := s.objects.FinalizeStep(ctx); err != nil {
		return err
	}
	if n, err := s.tiles.PerformDisconnects(); err != nil {
		return err
	} else if n > 0 {
		s.logger.Debug("links broken", "count", n)
	}
	if s.params.DropDetached {
		if gone, err := s.tiles.RemoveDetached(); err != nil {
			return err
		} else if len(gone) > 0 {
			s.logger.Debug("detached tiles dropped", "count", len(gone))
		}
	}
	s.tiles.UpdateCircuit()
	s.tiles.Unlock(s.step)
	s.tiles.ClearFlags()
	if _, err := s.tiles.RemoveDestroyed(); err != nil {
		return err
	}
	if err := s.objects.ExpandWith(s.tiles.Box()); err != nil {
		return err
	}
	s.step++
	return nil
}

// Hurt removes up to n random non-seed tiles and returns their IDs.
func (s *Simulator) Hurt(n int) ([]tile.ID, error) {
	var pool []tile.ID
	for _, t := range s.tiles.Tiles() {
		if !t.Seed {
			pool = append(pool, t.ID)
		}
	}
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	removed := pool[:n]
	for _, id := range removed {
		if err := s.tiles.Remove(id); err != nil {
			return nil, err
		}
	}
	if s.params.DropDetached {
		gone, err := s.tiles.RemoveDetached()
		if err != nil {
			return nil, err
		}
		removed = append(removed, gone...)
	}
	s.logger.Info("tiles removed", "count", len(removed))
	return removed, nil
}

// StepIndex returns the number of finished steps.
func (s *Simulator) StepIndex() int { return s.step }

// Tiles returns the tile world.
func (s *Simulator) Tiles() *tileworld.World { return s.tiles }

// Objects returns the floating-object world.
func (s *Simulator) Objects() *floating.World { return s.objects }

// Rules returns the validated rules.
func (s *Simulator) Rules() *rule.Set { return s.rules }

// Prototype returns the named tile prototype.
func (s *Simulator) Prototype(name string) (*tile.Tile, bool) {
	t, ok := s.protos[name]
	return t, ok
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
