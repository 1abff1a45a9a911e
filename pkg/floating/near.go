package floating

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/multiset"
	"github.com/matzehuels/tilesim/pkg/tile"
)

// Filter narrows a Near query. A nil Filter accepts everything.
type Filter func(o *Object) bool

// reference measures an object against what it is near to: the point the line
// of sight runs to, and the distance that is compared to the mobility.
type reference func(p mgl64.Vec3) (mgl64.Vec3, float64)

// NearPoint returns old objects around p that can satisfy target: each type within
// its own mobility of p, with no polygon between the object and p. The search
// stops once target is met.
func (w *World) NearPoint(p mgl64.Vec3, target multiset.Multiset, filter Filter) []*Object {
	return w.near(geometry.NewBox(p), func(q mgl64.Vec3) (mgl64.Vec3, float64) {
		return p, q.Sub(p).Len()
	}, target, filter)
}

// NearConnector searches around the connector position, or the edge midpoint.
func (w *World) NearConnector(c *tile.ConnectorInSpace, target multiset.Multiset, filter Filter) []*Object {
	return w.NearPoint(c.Point(), target, filter)
}

// NearProtein searches around protein i of t.
func (w *World) NearProtein(t *tile.TileInSpace, i int, target multiset.Multiset, filter Filter) []*Object {
	_, p := t.Protein(i)
	return w.NearPoint(p, target, filter)
}

// NearTile searches around the whole shape of t, measuring each object against its
// closest point on the tile.
func (w *World) NearTile(t *tile.TileInSpace, target multiset.Multiset, filter Filter) []*Object {
	shape := t.Shape()
	return w.near(shape.Box(), func(q mgl64.Vec3) (mgl64.Vec3, float64) {
		c := shape.ClosestPoint(q)
		return c, q.Sub(c).Len()
	}, target, filter)
}

func (w *World) near(around geometry.Box, ref reference, target multiset.Multiset, filter Filter) []*Object {
	need := make(map[string]int)
	radius := 0.0
	for _, name := range target.Names() {
		t, ok := w.types[name]
		if !ok {
			continue
		}
		need[name] = target.Count(name)
		if t.Mobility > radius {
			radius = t.Mobility
		}
	}
	if len(need) == 0 {
		return nil
	}
	box := around.Expand(radius)

	var candidates []*Object
	for _, k := range w.grid.keysAround(box.Min, box.Max) {
		for _, o := range w.grid.buckets[k].old {
			if need[o.Type.Name] > 0 {
				candidates = append(candidates, o)
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	var found []*Object
	left := len(need)
	for _, o := range candidates {
		name := o.Type.Name
		if need[name] == 0 {
			continue
		}
		at, dist := ref(o.Position)
		if dist > o.Type.Mobility {
			continue
		}
		if filter != nil && !filter(o) {
			continue
		}
		if w.occluded(o.Position, at) {
			continue
		}
		found = append(found, o)
		if need[name] != multiset.Infinite {
			need[name]--
			if need[name] == 0 {
				left--
				if left == 0 {
					break
				}
			}
		}
	}
	return found
}

func (w *World) occluded(a, b mgl64.Vec3) bool {
	for _, poly := range w.obstacles.Polygons(geometry.NewBox(a, b)) {
		if poly.CrossesSegment(a, b) {
			return true
		}
	}
	return false
}
