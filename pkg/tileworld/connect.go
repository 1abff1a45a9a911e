package tileworld

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/tile"
)

// AreCompatible reports whether connector ai of a may connect to connector bi of b:
// their glues match, they have the same arity and edge length, and, with a circuit
// configured, one side reaches the threshold voltage.
func (w *World) AreCompatible(a *tile.TileInSpace, ai int, b *tile.TileInSpace, bi int) bool {
	ca, cb := a.Connector(ai), b.Connector(bi)
	if !w.relation.Matches(ca.Glue, cb.Glue) {
		return false
	}
	if !sameShape(ca.Positions, cb.Positions) {
		return false
	}
	return w.powered(math.Max(a.Voltage, b.Voltage))
}

// protoCompatible is AreCompatible between a placed connector and a connector of a
// prototype that is not placed yet. Only the placed side's voltage counts.
func (w *World) protoCompatible(t *tile.TileInSpace, ti int, proto *tile.Tile, ci int) bool {
	tc, pc := t.Connector(ti), proto.Connector(ci)
	if !w.relation.Matches(tc.Glue, pc.Glue) {
		return false
	}
	if !sameShape(tc.Positions, pc.Positions) {
		return false
	}
	return w.powered(t.Voltage)
}

func (w *World) powered(v float64) bool {
	return w.params.Circuit == nil || v >= w.params.Circuit.Threshold
}

func sameShape(a, b []mgl64.Vec3) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 2 {
		la := a[1].Sub(a[0]).Len()
		lb := b[1].Sub(b[0]).Len()
		return math.Abs(la-lb) <= geometry.Tolerance*math.Max(1, la)
	}
	return true
}

// meets reports whether two connectors coincide within r. Edges match with their
// endpoints in either order.
func meets(a, b []mgl64.Vec3, r float64) bool {
	near := func(p, q mgl64.Vec3) bool { return p.Sub(q).Len() <= r }
	if len(a) != len(b) {
		return false
	}
	if len(a) == 1 {
		return near(a[0], b[0])
	}
	return (near(a[0], b[1]) && near(a[1], b[0])) || (near(a[0], b[0]) && near(a[1], b[1]))
}

// link connects the two sides and releases the glue pair's signals.
func (w *World) link(a *tile.TileInSpace, ai int, b *tile.TileInSpace, bi int) error {
	if err := tile.Connect(a, ai, b, bi); err != nil {
		return err
	}
	ca, cb := a.Connector(ai), b.Connector(bi)
	signals, _ := w.relation.Signals(ca.Glue, cb.Glue)
	if signals.IsEmpty() {
		return nil
	}
	return w.field.Release(signals, ca.Point().Add(cb.Point()).Mul(0.5))
}

func (w *World) linkSurface(rod *tile.TileInSpace, ri int, polygon *tile.TileInSpace) error {
	if err := tile.ConnectSurface(rod, ri, polygon); err != nil {
		return err
	}
	c := rod.Connector(ri)
	signals, _ := w.relation.Signals(c.Glue, polygon.Proto().SurfaceGlue())
	if signals.IsEmpty() {
		return nil
	}
	return w.field.Release(signals, c.Point())
}

// AutoConnect links every free connector of t to a compatible free connector of
// another tile within the glue radius. Free rod endpoints also attach to polygon
// surfaces with a matching surface glue, and a polygon with a surface glue picks up
// rod endpoints resting on it. It returns the links made.
func (w *World) AutoConnect(t *tile.TileInSpace) ([]Release, error) {
	r := w.params.GlueRadius
	reach := t.Box().Expand(r)
	var others []*tile.TileInSpace
	for _, id := range w.ids() {
		if o := w.tiles[id]; o != t && o.Box().Intersects(reach) {
			others = append(others, o)
		}
	}

	var made []Release
	record := func(a tile.Ref, b tile.Ref, ga, gb *tile.Glue, at mgl64.Vec3) {
		signals, _ := w.relation.Signals(ga, gb)
		made = append(made, Release{A: a, B: b, Signals: signals, At: at})
	}

	for _, ci := range t.FreeConnectors() {
		c := t.Connector(ci)
	search:
		for _, o := range others {
			for _, oi := range o.FreeConnectors() {
				oc := o.Connector(oi)
				if !meets(c.Positions, oc.Positions, r) || !w.AreCompatible(t, ci, o, oi) {
					continue
				}
				if err := w.link(t, ci, o, oi); err != nil {
					return made, err
				}
				record(tile.Ref{Tile: t.ID, Connector: ci}, tile.Ref{Tile: o.ID, Connector: oi}, c.Glue, oc.Glue, c.Point())
				break search
			}
		}
	}

	if t.IsSegment() {
		for _, ci := range t.FreeConnectors() {
			c := t.Connector(ci)
			if len(c.Positions) != 1 {
				continue
			}
			for _, o := range others {
				if !w.restsOn(c, o) {
					continue
				}
				if err := w.linkSurface(t, ci, o); err != nil {
					return made, err
				}
				record(tile.Ref{Tile: t.ID, Connector: ci}, tile.Ref{Tile: o.ID, Connector: tile.SurfaceConnector},
					c.Glue, o.Proto().SurfaceGlue(), c.Point())
				break
			}
		}
		return made, nil
	}

	if t.Proto().SurfaceGlue() == nil {
		return made, nil
	}
	for _, o := range others {
		if !o.IsSegment() {
			continue
		}
		for _, oi := range o.FreeConnectors() {
			oc := o.Connector(oi)
			if len(oc.Positions) != 1 || !w.restsOn(oc, t) {
				continue
			}
			if err := w.linkSurface(o, oi, t); err != nil {
				return made, err
			}
			record(tile.Ref{Tile: o.ID, Connector: oi}, tile.Ref{Tile: t.ID, Connector: tile.SurfaceConnector},
				oc.Glue, t.Proto().SurfaceGlue(), oc.Point())
		}
	}
	return made, nil
}

// restsOn reports whether point connector c lies on the surface of polygon o and
// its glue matches o's surface glue.
func (w *World) restsOn(c *tile.ConnectorInSpace, o *tile.TileInSpace) bool {
	if o.IsSegment() || o.Proto().SurfaceGlue() == nil {
		return false
	}
	if !w.relation.Matches(c.Glue, o.Proto().SurfaceGlue()) || !w.powered(o.Voltage) {
		return false
	}
	p := c.Positions[0]
	return o.Shape().Distance(p) <= w.params.GlueRadius && o.Shape().Contains(o.Shape().Plane().Project(p))
}
