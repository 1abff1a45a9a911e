package floating

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/multiset"
)

// Type is a kind of floating object.
type Type struct {
	Name          string
	Mobility      float64 // largest hop per step, also the reaction radius
	Concentration float64 // environment objects per unit volume, 0 for none
}

// IsEnvironment reports whether the type is kept at a background concentration.
func (t *Type) IsEnvironment() bool { return t.Concentration > 0 }

// Object is one floating object. Its position changes only through the world.
type Object struct {
	ID       uint64
	Type     *Type
	Position mgl64.Vec3
}

// Name returns the type name.
func (o *Object) Name() string { return o.Type.Name }

// Obstacles supplies the polygons that block diffusion and occlude queries.
type Obstacles interface {
	Polygons(box geometry.Box) []*geometry.Polytope
}

type noObstacles struct{}

func (noObstacles) Polygons(geometry.Box) []*geometry.Polytope { return nil }

// Params tunes a World.
type Params struct {
	Frozen  bool // skip diffusion, for deterministic runs
	Refill  bool // top up the boundary slabs after diffusion
	Workers int  // diffusion parallelism, 0 for GOMAXPROCS
}

// World is the floating-object store. Mutations other than diffusion are
// single-threaded.
type World struct {
	types     map[string]*Type
	order     []*Type
	mobility  float64
	grid      *grid
	region    geometry.Box
	obstacles Obstacles
	params    Params
	nextID    uint64
	rng       *rand.Rand
	logger    *log.Logger
}

// New creates an empty world over the given types. Type names must be unique and
// mobilities positive.
func New(types []Type, params Params, rng *rand.Rand, logger *log.Logger) (*World, error) {
	var ve errors.ValidationError
	w := &World{
		types:     make(map[string]*Type, len(types)),
		region:    geometry.EmptyBox(),
		obstacles: noObstacles{},
		params:    params,
		rng:       rng,
		logger:    logger,
	}
	for _, t := range types {
		switch {
		case t.Name == "":
			ve.Add(errors.ErrCodeInvalidConfig, "floating object type has no name")
			continue
		case w.types[t.Name] != nil:
			ve.Add(errors.ErrCodeDuplicateName, "floating object type %q declared twice", t.Name)
			continue
		case !(t.Mobility > 0) || math.IsInf(t.Mobility, 0):
			ve.Add(errors.ErrCodeInvalidConfig, "floating object %q: mobility must be positive", t.Name)
			continue
		case t.Concentration < 0 || math.IsNaN(t.Concentration):
			ve.Add(errors.ErrCodeInvalidConfig, "floating object %q: negative concentration", t.Name)
			continue
		}
		tt := t
		w.types[t.Name] = &tt
		w.order = append(w.order, &tt)
		w.mobility = math.Max(w.mobility, t.Mobility)
	}
	if params.Workers < 0 {
		ve.Add(errors.ErrCodeInvalidConfig, "diffusion workers must not be negative")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if w.mobility == 0 {
		w.mobility = 1
	}
	w.grid = newGrid(cellFactor * w.mobility)
	if w.rng == nil {
		w.rng = rand.New(rand.NewPCG(0, 0))
	}
	if w.logger == nil {
		w.logger = log.Default()
	}
	return w, nil
}

// SetObstacles routes occlusion and collision checks to o. Nil clears them.
func (w *World) SetObstacles(o Obstacles) {
	if o == nil {
		o = noObstacles{}
	}
	w.obstacles = o
}

// Type returns the named type.
func (w *World) Type(name string) (*Type, bool) {
	t, ok := w.types[name]
	return t, ok
}

// Types returns the types in declaration order.
func (w *World) Types() []*Type { return append([]*Type(nil), w.order...) }

// MaxMobility returns the largest mobility of any type.
func (w *World) MaxMobility() float64 { return w.mobility }

// Region returns the tracked region.
func (w *World) Region() geometry.Box { return w.region }

// ExpandWith grows the tracked region to cover box plus a mobility margin and fills
// the newly covered volume with environment objects. A region past the reach of
// the cell index is rejected and the current one is kept.
func (w *World) ExpandWith(box geometry.Box) error {
	if box.IsEmpty() {
		return nil
	}
	grown := w.region.Union(box.Expand(w.mobility))
	if !w.region.IsEmpty() && w.region.ContainsBox(grown) {
		return nil
	}
	if !w.grid.covers(grown) {
		return errors.New(errors.ErrCodeInvalidState,
			"floating region %v..%v exceeds %d cells per axis", grown.Min, grown.Max, 2*keyOffset)
	}
	pieces := grown.Subtract(w.region)
	w.region = grown
	added := 0
	for _, p := range pieces {
		added += w.fill(p, nil)
	}
	w.logger.Debug("floating region expanded", "min", w.region.Min, "max", w.region.Max, "added", added)
	return nil
}

// fill adds environment objects to box until each type reaches its expected count
// there. have, when non-nil, gives the counts already present. The fractional
// remainder is resolved against a uniform draw.
func (w *World) fill(box geometry.Box, have map[string]int) int {
	added := 0
	vol := box.Volume()
	for _, t := range w.order {
		if !t.IsEnvironment() {
			continue
		}
		want := vol*t.Concentration - float64(have[t.Name])
		if want <= 0 {
			continue
		}
		n := int(math.Floor(want))
		if w.rng.Float64() < want-float64(n) {
			n++
		}
		for i := 0; i < n; i++ {
			if p, ok := w.samplePoint(box); ok {
				w.put(t, p, false)
				added++
			}
		}
	}
	return added
}

// samplePoint draws a uniform point in box away from every polygon.
func (w *World) samplePoint(box geometry.Box) (mgl64.Vec3, bool) {
	size := box.Size()
	for try := 0; try < 8; try++ {
		p := box.Min.Add(mgl64.Vec3{w.rng.Float64() * size[0], w.rng.Float64() * size[1], w.rng.Float64() * size[2]})
		if !w.nearPolygon(p) {
			return p, true
		}
	}
	return mgl64.Vec3{}, false
}

func (w *World) nearPolygon(p mgl64.Vec3) bool {
	for _, poly := range w.obstacles.Polygons(geometry.NewBox(p).Expand(geometry.SideDist)) {
		if poly.Distance(p) < geometry.SideDist {
			return true
		}
	}
	return false
}

// put stores a new object. Reactable objects go to the old set.
func (w *World) put(t *Type, p mgl64.Vec3, fresh bool) *Object {
	w.nextID++
	o := &Object{ID: w.nextID, Type: t, Position: p}
	b := w.grid.get(w.grid.keyOf(p), true)
	if fresh {
		b.fresh[o.ID] = o
	} else {
		b.old[o.ID] = o
	}
	return o
}

// AddAt creates the objects of ms at p. They become reactable after the next
// FinalizeStep.
func (w *World) AddAt(ms multiset.Multiset, p mgl64.Vec3) error {
	for _, name := range ms.Names() {
		t, ok := w.types[name]
		if !ok {
			return errors.New(errors.ErrCodeUnknownName, "unknown floating object %q", name)
		}
		if ms.IsInfinite(name) {
			return errors.New(errors.ErrCodeUnsupported, "cannot create infinitely many %q", name)
		}
		for i := 0; i < ms.Count(name); i++ {
			w.put(t, p, true)
		}
	}
	return nil
}

// Release is AddAt under the name the tile world expects.
func (w *World) Release(ms multiset.Multiset, at mgl64.Vec3) error {
	return w.AddAt(ms, at)
}

// RemoveFrom deletes the objects of ms from found, a result of a Near query. It
// removes nothing and fails with MULTISET_UNDERFLOW unless every requested object
// is available. An infinite count removes every found object of that name.
func (w *World) RemoveFrom(found []*Object, ms multiset.Multiset) error {
	byName := make(map[string][]*Object)
	for _, o := range found {
		byName[o.Name()] = append(byName[o.Name()], o)
	}
	var doomed []*Object
	for _, name := range ms.Names() {
		avail := byName[name]
		n := ms.Count(name)
		if ms.IsInfinite(name) {
			n = len(avail)
		}
		if len(avail) < n {
			return errors.New(errors.ErrCodeMultisetUnderflow, "need %d %q, found %d", n, name, len(avail))
		}
		doomed = append(doomed, avail[:n]...)
	}
	for _, o := range doomed {
		if _, ok := w.locate(o); !ok {
			return errors.New(errors.ErrCodeMultisetUnderflow, "object %d (%s) is already gone", o.ID, o.Name())
		}
	}
	for _, o := range doomed {
		b, _ := w.locate(o)
		delete(b.old, o.ID)
		delete(b.fresh, o.ID)
	}
	return nil
}

// locate returns the bucket holding o.
func (w *World) locate(o *Object) (*bucket, bool) {
	b := w.grid.buckets[w.grid.keyOf(o.Position)]
	if b == nil {
		return nil, false
	}
	if b.old[o.ID] == o || b.fresh[o.ID] == o {
		return b, true
	}
	return nil, false
}

// move relocates o to p, keeping it in the same set.
func (w *World) move(o *Object, p mgl64.Vec3) {
	b, ok := w.locate(o)
	if !ok {
		return
	}
	_, fresh := b.fresh[o.ID]
	delete(b.old, o.ID)
	delete(b.fresh, o.ID)
	o.Position = p
	nb := w.grid.get(w.grid.keyOf(p), true)
	if fresh {
		nb.fresh[o.ID] = o
	} else {
		nb.old[o.ID] = o
	}
}

// Drag moves the objects that shape runs over while it is displaced by v. Each one
// is carried to the front of the moved face.
func (w *World) Drag(shape *geometry.Polytope, v mgl64.Vec3) {
	l := v.Len()
	if l <= geometry.Tolerance || !shape.IsPolygon() {
		return
	}
	d := v.Mul(1 / l)
	box := shape.Box().Union(shape.Box().Translated(v)).Expand(geometry.SideDist)
	var caught []*Object
	for _, k := range w.grid.keysAround(box.Min, box.Max) {
		b := w.grid.buckets[k]
		for _, set := range []map[uint64]*Object{b.old, b.fresh} {
			for _, o := range set {
				if shape.CrossesSegment(o.Position, o.Position.Sub(v)) {
					caught = append(caught, o)
				}
			}
		}
	}
	sort.Slice(caught, func(i, j int) bool { return caught[i].ID < caught[j].ID })
	for _, o := range caught {
		w.move(o, o.Position.Add(v).Add(d.Mul(geometry.SideDist)))
	}
	if len(caught) > 0 {
		w.logger.Debug("objects dragged", "count", len(caught))
	}
}

// Objects returns every object ordered by ID.
func (w *World) Objects() []*Object {
	var out []*Object
	for _, b := range w.grid.buckets {
		for _, o := range b.old {
			out = append(out, o)
		}
		for _, o := range b.fresh {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of objects of the named type.
func (w *World) Count(name string) int {
	n := 0
	for _, b := range w.grid.buckets {
		for _, o := range b.old {
			if o.Type.Name == name {
				n++
			}
		}
		for _, o := range b.fresh {
			if o.Type.Name == name {
				n++
			}
		}
	}
	return n
}

// Len returns the total number of objects.
func (w *World) Len() int {
	n := 0
	for _, b := range w.grid.buckets {
		n += len(b.old) + len(b.fresh)
	}
	return n
}
