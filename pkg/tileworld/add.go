package tileworld

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/tile"
)

// pushPlan is a set of displacements along one growth direction that lets a
// candidate fit.
type pushPlan struct {
	dir  mgl64.Vec3
	push map[tile.ID]float64
}

// Add grows a new instance of proto out of the target connector. Compatible
// candidate connectors are tried in random order; the first one that fits is
// committed, linked to the target and returned with true.
//
// A target connector that is taken, a proto with no compatible connector, or a
// placement blocked by unmovable tiles all return false with a nil error and leave
// the world untouched. Errors are reserved for unknown tiles and connectors.
func (w *World) Add(proto *tile.Tile, target tile.Ref) (*tile.TileInSpace, bool, error) {
	t, ok := w.tiles[target.Tile]
	if !ok {
		return nil, false, errors.New(errors.ErrCodeTileNotFound, "tile %d not found", target.Tile)
	}
	if target.Connector < 0 || target.Connector >= t.NumConnectors() {
		return nil, false, errors.New(errors.ErrCodeInvalidConnector, "tile %d has no connector %d", t.ID, target.Connector)
	}
	if !t.Connector(target.Connector).IsFree() {
		return nil, false, nil
	}

	var candidates []int
	for ci := 0; ci < proto.NumConnectors(); ci++ {
		if w.protoCompatible(t, target.Connector, proto, ci) {
			candidates = append(candidates, ci)
		}
	}
	w.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for _, ci := range candidates {
		cand, err := tile.Place(proto, ci, t, target.Connector, w.rng)
		if err != nil {
			return nil, false, err
		}
		plan, ok := w.plan(cand, ci, t)
		if !ok && cand.IsSegment() {
			plan, ok = w.shorten(cand, ci, t)
		}
		if !ok {
			continue
		}
		w.commit(plan)
		w.insert(cand)
		if err := w.link(cand, ci, t, target.Connector); err != nil {
			return nil, false, err
		}
		w.logger.Debug("tile added", "id", cand.ID, "tile", proto.Name(), "target", t.ID, "pushed", len(plan.push))
		return cand, true, nil
	}
	return nil, false, nil
}

// growthDir is the unit direction along which cand emerges from its connector ci.
func growthDir(cand *tile.TileInSpace, ci int, target *tile.TileInSpace) mgl64.Vec3 {
	anchor := cand.Connector(ci).Point()
	if d := cand.Position().Sub(anchor); d.Len() > geometry.Tolerance {
		return d.Normalize()
	}
	if !cand.IsSegment() {
		return cand.Shape().Normal()
	}
	if !target.IsSegment() {
		return target.Shape().Normal()
	}
	return target.Shape().Direction()
}

// plan works out the pushes that make room for cand. It reports false when an
// unmovable tile is in the way or the pushes do not settle.
func (w *World) plan(cand *tile.TileInSpace, ci int, target *tile.TileInSpace) (pushPlan, bool) {
	d := growthDir(cand, ci, target)
	anchor := cand.Connector(ci).Point()

	reach := 0.0
	for _, v := range cand.Shape().Vertices() {
		reach = math.Max(reach, d.Dot(v.Sub(anchor)))
	}
	l := reach + geometry.MinFaceDist
	start := cand.Shape().Translated(d.Mul(-l))

	label, groups := w.components()
	home := label[target.ID]
	fixed := make(map[int]bool)
	fixed[home] = true
	for id, t := range w.tiles {
		if t.Locked {
			fixed[label[id]] = true
		}
	}

	p := pushPlan{dir: d, push: make(map[tile.ID]float64)}
	spread := func(id tile.ID, amount float64) bool {
		grown := false
		for _, m := range groups[label[id]] {
			if amount > p.push[m]+geometry.Tolerance {
				p.push[m] = amount
				grown = true
			}
		}
		return grown
	}

	ids := w.ids()
	for _, id := range ids {
		x := w.tiles[id]
		if label[id] == home {
			if cand.Shape().Interferes(x.Shape()) {
				return pushPlan{}, false
			}
			continue
		}
		if !ahead(x.Shape(), anchor, d) {
			continue
		}
		amount := start.PushingOf(x.Shape(), d.Mul(l)).Len()
		if amount <= geometry.Tolerance {
			continue
		}
		if fixed[label[id]] {
			return pushPlan{}, false
		}
		spread(id, amount)
	}

	for round := 0; ; round++ {
		if round == w.params.MaxPushRounds {
			w.logger.Debug("pushing did not settle", "tile", cand.Name(), "rounds", round)
			return pushPlan{}, false
		}
		changed := false
		for _, id := range sortedKeys(p.push) {
			moving := w.tiles[id].Shape()
			v := d.Mul(p.push[id])
			for _, oid := range ids {
				if label[oid] == label[id] {
					continue
				}
				amount := moving.PushingOf(w.tiles[oid].Shape(), v).Len()
				if amount <= p.push[oid]+geometry.Tolerance {
					continue
				}
				if fixed[label[oid]] {
					return pushPlan{}, false
				}
				if spread(oid, amount) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	moved := make(map[tile.ID]*geometry.Polytope, len(p.push))
	for id, amount := range p.push {
		moved[id] = w.tiles[id].Shape().Translated(d.Mul(amount))
	}
	shapeOf := func(id tile.ID) *geometry.Polytope {
		if s, ok := moved[id]; ok {
			return s
		}
		return w.tiles[id].Shape()
	}
	for _, id := range ids {
		if cand.Shape().Interferes(shapeOf(id)) {
			return pushPlan{}, false
		}
	}
	for id, s := range moved {
		for _, oid := range ids {
			if label[oid] != label[id] && s.Interferes(shapeOf(oid)) {
				return pushPlan{}, false
			}
		}
	}
	return p, true
}

// ahead reports whether any part of s lies in front of the plane through anchor
// with normal d. Tiles wholly behind the connector are never in the growth path.
func ahead(s *geometry.Polytope, anchor, d mgl64.Vec3) bool {
	for _, v := range s.Vertices() {
		if d.Dot(v.Sub(anchor)) > geometry.Tolerance {
			return true
		}
	}
	return false
}

// shorten bisects the length of a segment candidate for the longest one that fits
// and shortens cand to it.
func (w *World) shorten(cand *tile.TileInSpace, ci int, target *tile.TileInSpace) (pushPlan, bool) {
	c := cand.Connector(ci)
	if len(c.Positions) != 1 {
		return pushPlan{}, false
	}
	anchor := cand.EndpointAt(c.Positions[0])
	if anchor < 0 {
		return pushPlan{}, false
	}

	lo, hi := 0.0, cand.Shape().Length()
	var best pushPlan
	bestLen := 0.0
	for i := 0; i < w.params.ShortenSteps; i++ {
		mid := (lo + hi) / 2
		probe := cand.Clone()
		if err := probe.ShortenTo(anchor, mid); err != nil {
			break
		}
		if p, ok := w.plan(probe, ci, target); ok {
			best, bestLen, lo = p, mid, mid
		} else {
			hi = mid
		}
	}
	if bestLen < geometry.Tolerance {
		return pushPlan{}, false
	}
	if err := cand.ShortenTo(anchor, bestLen); err != nil {
		return pushPlan{}, false
	}
	w.logger.Debug("segment shortened", "tile", cand.Name(), "length", bestLen)
	return best, true
}

// commit applies every push and drags the floating objects in the way.
func (w *World) commit(p pushPlan) {
	for _, id := range sortedKeys(p.push) {
		t := w.tiles[id]
		v := p.dir.Mul(p.push[id])
		w.field.Drag(t.Shape(), v)
		t.Translate(v)
		t.Push = p.push[id]
	}
}

func sortedKeys(m map[tile.ID]float64) []tile.ID {
	keys := make([]tile.ID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
