package tileworld

import (
	"math/rand/v2"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/multiset"
	"github.com/matzehuels/tilesim/pkg/tile"
)

const (
	// DefaultGlueRadius is the distance within which free connectors auto-connect.
	DefaultGlueRadius = 1e-2

	// DefaultMaxPushRounds bounds the secondary pushing passes of one insertion.
	DefaultMaxPushRounds = 64

	// DefaultShortenSteps is the number of bisection steps used to shorten a
	// blocked segment.
	DefaultShortenSteps = 24
)

// ObjectField receives the floating-object side effects of tile mutations.
type ObjectField interface {
	// Release adds signal objects at a point.
	Release(signals multiset.Multiset, at mgl64.Vec3) error
	// Drag moves the objects a shape runs over while it is displaced by v.
	Drag(shape *geometry.Polytope, v mgl64.Vec3)
}

type nopField struct{}

func (nopField) Release(multiset.Multiset, mgl64.Vec3) error { return nil }
func (nopField) Drag(*geometry.Polytope, mgl64.Vec3)         {}

// Circuit configures the voltage ladder.
type Circuit struct {
	Sources    map[string]float64 // tile name -> held voltage
	Threshold  float64            // minimum voltage of the existing side to attach
	Iterations int                // Gauss–Seidel sweeps, 0 for the default
}

// Params tunes a World.
type Params struct {
	GlueRadius    float64
	MaxPushRounds int
	ShortenSteps  int
	Circuit       *Circuit
}

// ValidateAndSetDefaults fills zero fields with defaults and rejects negative ones.
func (p *Params) ValidateAndSetDefaults() error {
	if p.GlueRadius < 0 || p.MaxPushRounds < 0 || p.ShortenSteps < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "tile world parameters must not be negative")
	}
	if p.GlueRadius == 0 {
		p.GlueRadius = DefaultGlueRadius
	}
	if p.MaxPushRounds == 0 {
		p.MaxPushRounds = DefaultMaxPushRounds
	}
	if p.ShortenSteps == 0 {
		p.ShortenSteps = DefaultShortenSteps
	}
	if p.Circuit != nil && p.Circuit.Iterations == 0 {
		p.Circuit.Iterations = defaultCircuitIterations
	}
	return nil
}

// Release describes one connection made by the world and the signals it released.
type Release struct {
	A, B    tile.Ref
	Signals multiset.Multiset
	At      mgl64.Vec3
}

// World is the arena of placed tiles. It is not safe for concurrent mutation;
// read-only queries may run concurrently with each other.
type World struct {
	tiles    map[tile.ID]*tile.TileInSpace
	nextID   tile.ID
	relation *tile.GlueRelation
	params   Params
	field    ObjectField
	rng      *rand.Rand
	logger   *log.Logger
}

// New creates an empty world. A nil relation matches nothing, a nil rng is seeded
// from zero, and a nil logger uses log.Default().
func New(relation *tile.GlueRelation, params Params, rng *rand.Rand, logger *log.Logger) (*World, error) {
	if err := params.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if relation == nil {
		relation = tile.NewGlueRelation()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}
	if logger == nil {
		logger = log.Default()
	}
	return &World{
		tiles:    make(map[tile.ID]*tile.TileInSpace),
		relation: relation,
		params:   params,
		field:    nopField{},
		rng:      rng,
		logger:   logger,
	}, nil
}

// SetObjectField routes releases and drags to f. A nil f discards them.
func (w *World) SetObjectField(f ObjectField) {
	if f == nil {
		f = nopField{}
	}
	w.field = f
}

// Params returns the effective parameters.
func (w *World) Params() Params { return w.params }

// Relation returns the glue relation.
func (w *World) Relation() *tile.GlueRelation { return w.relation }

// Count returns the number of placed tiles.
func (w *World) Count() int { return len(w.tiles) }

// Get returns the tile with the given ID.
func (w *World) Get(id tile.ID) (*tile.TileInSpace, bool) {
	t, ok := w.tiles[id]
	return t, ok
}

// Tiles returns every placed tile ordered by ID.
func (w *World) Tiles() []*tile.TileInSpace {
	out := make([]*tile.TileInSpace, 0, len(w.tiles))
	for _, id := range w.ids() {
		out = append(out, w.tiles[id])
	}
	return out
}

func (w *World) ids() []tile.ID {
	ids := make([]tile.ID, 0, len(w.tiles))
	for id := range w.tiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Box returns the bounding box of every tile, or an empty box.
func (w *World) Box() geometry.Box {
	b := geometry.EmptyBox()
	for _, t := range w.tiles {
		b = b.Union(t.Box())
	}
	return b
}

// Polygons returns the polygon shapes whose boxes meet box. Segments never block.
func (w *World) Polygons(box geometry.Box) []*geometry.Polytope {
	var out []*geometry.Polytope
	for _, t := range w.tiles {
		if t.IsSegment() {
			continue
		}
		if t.Box().Intersects(box) {
			out = append(out, t.Shape())
		}
	}
	return out
}

func (w *World) insert(t *tile.TileInSpace) {
	w.nextID++
	t.ID = w.nextID
	w.tiles[t.ID] = t
}

// Seed places a tile directly. It fails if the tile interferes with any placed tile.
func (w *World) Seed(proto *tile.Tile, position mgl64.Vec3, orientation mgl64.Quat) (*tile.TileInSpace, error) {
	t := tile.Instantiate(proto, position, orientation)
	for _, id := range w.ids() {
		if w.tiles[id].Shape().Interferes(t.Shape()) {
			return nil, errors.New(errors.ErrCodeInvalidState, "seed %q interferes with tile %d", proto.Name(), id)
		}
	}
	t.Seed = true
	w.insert(t)
	w.logger.Debug("seed placed", "id", t.ID, "tile", proto.Name())
	return t, nil
}

// Remove disconnects every link of tile id and deletes it.
func (w *World) Remove(id tile.ID) error {
	t, ok := w.tiles[id]
	if !ok {
		return errors.New(errors.ErrCodeTileNotFound, "tile %d not found", id)
	}
	for i := 0; i < t.NumConnectors(); i++ {
		link := t.Connector(i).ConnectedTo
		if link.IsZero() {
			continue
		}
		if err := tile.Disconnect(t, i, w.tiles[link.Tile]); err != nil {
			return err
		}
	}
	for _, r := range t.SurfaceLinks() {
		rod, ok := w.tiles[r.Tile]
		if !ok {
			return errors.New(errors.ErrCodeInternal, "tile %d links missing tile %d", id, r.Tile)
		}
		if err := tile.Disconnect(rod, r.Connector, t); err != nil {
			return err
		}
	}
	delete(w.tiles, id)
	return nil
}

// Component returns the IDs rigidly connected to id, id first, in breadth-first
// order.
func (w *World) Component(id tile.ID) []tile.ID {
	if _, ok := w.tiles[id]; !ok {
		return nil
	}
	seen := map[tile.ID]bool{id: true}
	queue := []tile.ID{id}
	for i := 0; i < len(queue); i++ {
		for _, n := range w.tiles[queue[i]].Neighbors() {
			if _, ok := w.tiles[n]; ok && !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return queue
}

// components labels every tile with the index of its rigid component.
func (w *World) components() (map[tile.ID]int, [][]tile.ID) {
	label := make(map[tile.ID]int, len(w.tiles))
	var groups [][]tile.ID
	for _, id := range w.ids() {
		if _, ok := label[id]; ok {
			continue
		}
		members := w.Component(id)
		for _, m := range members {
			label[m] = len(groups)
		}
		groups = append(groups, members)
	}
	return label, groups
}

// IsNarrowSpace reports whether p sits in a gap between two tile faces that is
// narrower than MinFaceDist.
func (w *World) IsNarrowSpace(p mgl64.Vec3) bool {
	probe := geometry.NewBox(p).Expand(geometry.MinFaceDist)
	type hit struct {
		at mgl64.Vec3
		id tile.ID
	}
	var near []hit
	for _, id := range w.ids() {
		t := w.tiles[id]
		if t.IsSegment() || !t.Box().Intersects(probe) {
			continue
		}
		c := t.Shape().ClosestPoint(p)
		if c.Sub(p).Len() < geometry.MinFaceDist {
			near = append(near, hit{at: c, id: id})
		}
	}
	for i := range near {
		for j := i + 1; j < len(near); j++ {
			a, b := near[i].at.Sub(p), near[j].at.Sub(p)
			if a.Dot(b) < 0 && near[i].at.Sub(near[j].at).Len() < geometry.MinFaceDist {
				return true
			}
		}
	}
	return false
}
