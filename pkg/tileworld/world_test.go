package tileworld

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/multiset"
	"github.com/matzehuels/tilesim/pkg/tile"
)

type recordingField struct {
	released []multiset.Multiset
	drags    int
}

func (f *recordingField) Release(s multiset.Multiset, _ mgl64.Vec3) error {
	f.released = append(f.released, s)
	return nil
}

func (f *recordingField) Drag(*geometry.Polytope, mgl64.Vec3) { f.drags++ }

func square(t *testing.T, name string, glue, surface *tile.Glue) *tile.Tile {
	t.Helper()
	v := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	shape, err := geometry.NewPolygon(v...)
	if err != nil {
		t.Fatalf("NewPolygon() error: %v", err)
	}
	var conns []tile.Connector
	for i, n := range []string{"bottom", "right", "top", "left"} {
		conns = append(conns, tile.Connector{
			Name:      n,
			Positions: []mgl64.Vec3{v[i], v[(i+1)%4]},
			Glue:      glue,
			Angle:     math.Pi,
		})
	}
	tl, err := tile.New(tile.Definition{Name: name, Shape: shape, Connectors: conns, SurfaceGlue: surface})
	if err != nil {
		t.Fatalf("tile.New() error: %v", err)
	}
	return tl
}

func rod(t *testing.T, name string, glue *tile.Glue, resistance float64) *tile.Tile {
	t.Helper()
	shape, err := geometry.NewSegment(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})
	if err != nil {
		t.Fatalf("NewSegment() error: %v", err)
	}
	tl, err := tile.New(tile.Definition{Name: name, Shape: shape, Connectors: []tile.Connector{
		{Name: "tail", Positions: []mgl64.Vec3{{0, 0, 0}}, Glue: glue, Angle: math.Pi, Resistance: resistance},
		{Name: "head", Positions: []mgl64.Vec3{{1, 0, 0}}, Glue: glue, Angle: math.Pi, Resistance: resistance},
	}})
	if err != nil {
		t.Fatalf("tile.New() error: %v", err)
	}
	return tl
}

func newWorld(t *testing.T, rel *tile.GlueRelation, params Params) *World {
	t.Helper()
	w, err := New(rel, params, rand.New(rand.NewPCG(1, 2)), nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return w
}

func seed(t *testing.T, w *World, proto *tile.Tile, at mgl64.Vec3, q mgl64.Quat) *tile.TileInSpace {
	t.Helper()
	ts, err := w.Seed(proto, at, q)
	if err != nil {
		t.Fatalf("Seed(%s) error: %v", proto.Name(), err)
	}
	return ts
}

func TestAddBlockedByLockedTile(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.New("s")); err != nil {
		t.Fatal(err)
	}
	proto := square(t, "sq", g, nil)
	w := newWorld(t, rel, Params{})
	field := &recordingField{}
	w.SetObjectField(field)

	a := seed(t, w, proto, mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())
	b := seed(t, w, proto, mgl64.Vec3{2, 0.5, 0}, mgl64.QuatIdent())
	// Seeds are in StateCreate until the step that placed them is finalized.
	w.ClearFlags()
	b.Locked = true

	if _, ok, err := w.Add(proto, tile.Ref{Tile: a.ID, Connector: 1}); err != nil || ok {
		t.Fatalf("Add() = %v, %v; want false, nil", ok, err)
	}
	if w.Count() != 2 {
		t.Errorf("Count() = %d, want 2", w.Count())
	}
	if b.Position().Sub(mgl64.Vec3{2, 0.5, 0}).Len() > 1e-12 {
		t.Errorf("locked tile moved to %v", b.Position())
	}

	b.Locked = false
	c, ok, err := w.Add(proto, tile.Ref{Tile: a.ID, Connector: 1})
	if err != nil || !ok {
		t.Fatalf("Add() = %v, %v; want true, nil", ok, err)
	}
	if got := b.Position().X(); math.Abs(got-2.5) > 1e-6 {
		t.Errorf("pushed tile x = %v, want 2.5", got)
	}
	if b.State != tile.StateMove {
		t.Errorf("pushed tile state = %v, want move", b.State)
	}
	if field.drags != 1 {
		t.Errorf("drags = %d, want 1", field.drags)
	}
	if got := c.Position(); got.Sub(mgl64.Vec3{1.5, 0.5, 0}).Len() > 1e-9 {
		t.Errorf("new tile at %v, want (1.5, 0.5, 0)", got)
	}
	if a.Connector(1).ConnectedTo.Tile != c.ID {
		t.Errorf("target connector linked to %v, want %d", a.Connector(1).ConnectedTo, c.ID)
	}

	made, err := w.AutoConnect(c)
	if err != nil {
		t.Fatalf("AutoConnect() error: %v", err)
	}
	if len(made) != 1 || made[0].B.Tile != b.ID {
		t.Fatalf("AutoConnect() = %+v, want one link to tile %d", made, b.ID)
	}
	if len(field.released) != 2 {
		t.Errorf("released %d multisets, want 2", len(field.released))
	}
	if got := w.Component(a.ID); len(got) != 3 {
		t.Errorf("Component() = %v, want 3 tiles", got)
	}
}

func TestAddPushCascades(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.Multiset{}); err != nil {
		t.Fatal(err)
	}
	proto := square(t, "sq", g, nil)
	w := newWorld(t, rel, Params{})
	w.SetObjectField(&recordingField{})

	a := seed(t, w, proto, mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())
	b := seed(t, w, proto, mgl64.Vec3{2, 0.5, 0}, mgl64.QuatIdent())
	c := seed(t, w, proto, mgl64.Vec3{3.2, 0.5, 0}, mgl64.QuatIdent())

	n, ok, err := w.Add(proto, tile.Ref{Tile: a.ID, Connector: 1})
	if err != nil || !ok {
		t.Fatalf("Add() = %v, %v; want true, nil", ok, err)
	}
	tests := []struct {
		name string
		tile *tile.TileInSpace
		want float64
	}{
		{"new", n, 1.5},
		{"pushed", b, 2.5},
		{"pushed by pushed", c, 3.5},
	}
	for _, tt := range tests {
		if got := tt.tile.Position().X(); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("%s tile x = %v, want %v", tt.name, got, tt.want)
		}
	}
	all := []*tile.TileInSpace{a, b, c, n}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Shape().Interferes(all[j].Shape()) {
				t.Errorf("tiles %d and %d interfere after Add()", all[i].ID, all[j].ID)
			}
		}
	}
}

func TestAddPushCarriesComponent(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.Multiset{}); err != nil {
		t.Fatal(err)
	}
	proto := square(t, "sq", g, nil)
	w := newWorld(t, rel, Params{})
	w.SetObjectField(&recordingField{})

	a := seed(t, w, proto, mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())
	b := seed(t, w, proto, mgl64.Vec3{2, 0.5, 0}, mgl64.QuatIdent())
	c := seed(t, w, proto, mgl64.Vec3{3, 0.5, 0}, mgl64.QuatIdent())
	if made, err := w.AutoConnect(b); err != nil || len(made) != 1 {
		t.Fatalf("AutoConnect() = %+v, %v; want one link", made, err)
	}

	if _, ok, err := w.Add(proto, tile.Ref{Tile: a.ID, Connector: 1}); err != nil || !ok {
		t.Fatalf("Add() = %v, %v; want true, nil", ok, err)
	}
	if got := b.Position().X(); math.Abs(got-2.5) > 1e-6 {
		t.Errorf("pushed tile x = %v, want 2.5", got)
	}
	if got := c.Position().X(); math.Abs(got-3.5) > 1e-6 {
		t.Errorf("connected tile x = %v, want 3.5", got)
	}
	if b.Connector(1).ConnectedTo.Tile != c.ID {
		t.Errorf("link between pushed tiles lost: %v", b.Connector(1).ConnectedTo)
	}
}

func TestAddTakenConnector(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, g, multiset.Multiset{})
	proto := square(t, "sq", g, nil)
	w := newWorld(t, rel, Params{})
	a := seed(t, w, proto, mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())

	if _, ok, _ := w.Add(proto, tile.Ref{Tile: a.ID, Connector: 0}); !ok {
		t.Fatal("first Add() failed")
	}
	if _, ok, err := w.Add(proto, tile.Ref{Tile: a.ID, Connector: 0}); ok || err != nil {
		t.Errorf("second Add() = %v, %v; want false, nil", ok, err)
	}
	if _, _, err := w.Add(proto, tile.Ref{Tile: 99, Connector: 0}); err == nil {
		t.Error("Add() on unknown tile: want error")
	}
}

func TestAddIncompatibleGlue(t *testing.T) {
	g, h := tile.NewGlue("g"), tile.NewGlue("h")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, g, multiset.Multiset{})
	w := newWorld(t, rel, Params{})
	a := seed(t, w, square(t, "a", g, nil), mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())

	if _, ok, err := w.Add(square(t, "b", h, nil), tile.Ref{Tile: a.ID, Connector: 0}); ok || err != nil {
		t.Errorf("Add() = %v, %v; want false, nil", ok, err)
	}
	if w.Count() != 1 {
		t.Errorf("Count() = %d, want 1", w.Count())
	}
}

func TestShortenBlockedSegment(t *testing.T) {
	g, none := tile.NewGlue("g"), tile.NewGlue("none")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, g, multiset.Multiset{})
	w := newWorld(t, rel, Params{})

	a := seed(t, w, rod(t, "rod", g, 0), mgl64.Vec3{0.5, 0, 0}, mgl64.QuatIdent())
	wall := seed(t, w, square(t, "wall", none, nil), mgl64.Vec3{1.5, 0, 0},
		geometry.RotationAbout(mgl64.Vec3{0, 1, 0}, math.Pi/2))
	wall.Locked = true

	c, ok, err := w.Add(rod(t, "rod", g, 0), tile.Ref{Tile: a.ID, Connector: 1})
	if err != nil || !ok {
		t.Fatalf("Add() = %v, %v; want true, nil", ok, err)
	}
	if l := c.Shape().Length(); l <= 0.45 || l > 0.5 {
		t.Errorf("shortened length = %v, want just under 0.5", l)
	}
	if c.Shape().Interferes(wall.Shape()) {
		t.Error("shortened segment still interferes with the wall")
	}
}

func TestSurfaceAutoConnect(t *testing.T) {
	g, m := tile.NewGlue("g"), tile.NewGlue("membrane")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, m, multiset.New("anchor"))
	w := newWorld(t, rel, Params{})
	field := &recordingField{}
	w.SetObjectField(field)

	sq := seed(t, w, square(t, "sq", m, m), mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())
	stick := seed(t, w, rod(t, "rod", g, 0), mgl64.Vec3{0.5, 0.5, 0.5},
		geometry.RotationAbout(mgl64.Vec3{0, 1, 0}, -math.Pi/2))

	made, err := w.AutoConnect(stick)
	if err != nil {
		t.Fatalf("AutoConnect() error: %v", err)
	}
	if len(made) != 1 || !made[0].B.IsSurface() {
		t.Fatalf("AutoConnect() = %+v, want one surface link", made)
	}
	if got := len(sq.SurfaceLinks()); got != 1 {
		t.Errorf("SurfaceLinks() = %d, want 1", got)
	}
	if len(field.released) != 1 || field.released[0].Count("anchor") != 1 {
		t.Errorf("released = %v, want one anchor", field.released)
	}

	if err := w.Remove(sq.ID); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if stick.IsConnected() {
		t.Error("rod still connected after its surface was removed")
	}
}

func TestComponentAndDetached(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, g, multiset.Multiset{})
	proto := square(t, "sq", g, nil)
	w := newWorld(t, rel, Params{})

	a := seed(t, w, proto, mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())
	b, ok, err := w.Add(proto, tile.Ref{Tile: a.ID, Connector: 1})
	if err != nil || !ok {
		t.Fatalf("Add() = %v, %v", ok, err)
	}
	c, ok, err := w.Add(proto, tile.Ref{Tile: b.ID, Connector: b.FreeConnectors()[0]})
	if err != nil || !ok {
		t.Fatalf("Add() = %v, %v", ok, err)
	}
	if got := w.Component(c.ID); len(got) != 3 || got[0] != c.ID {
		t.Errorf("Component(%d) = %v, want 3 tiles starting at %d", c.ID, got, c.ID)
	}

	for i := 0; i < b.NumConnectors(); i++ {
		b.MarkDisconnect(i, nil)
	}
	n, err := w.PerformDisconnects()
	if err != nil || n != 2 {
		t.Fatalf("PerformDisconnects() = %d, %v; want 2", n, err)
	}
	removed, err := w.RemoveDetached()
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 || w.Count() != 1 {
		t.Errorf("RemoveDetached() = %v, Count() = %d; want 2 removed, 1 left", removed, w.Count())
	}
}

func TestIsNarrowSpace(t *testing.T) {
	proto := square(t, "sq", tile.NewGlue("g"), nil)
	w := newWorld(t, nil, Params{})
	const theta = 0.1
	seed(t, w, proto, mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())
	seed(t, w, proto, mgl64.Vec3{0.5, 0.5 * math.Cos(theta), 0.5 * math.Sin(theta)},
		geometry.RotationAbout(mgl64.Vec3{1, 0, 0}, theta))

	tests := []struct {
		p    mgl64.Vec3
		want bool
	}{
		{mgl64.Vec3{0.5, 0.01, 0.0005}, true},
		{mgl64.Vec3{0.5, 0.5, 0.02}, false},
		{mgl64.Vec3{0.5, 0.5, -0.0005}, false},
	}
	for _, tt := range tests {
		if got := w.IsNarrowSpace(tt.p); got != tt.want {
			t.Errorf("IsNarrowSpace(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestUpdateCircuit(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, g, multiset.Multiset{})
	w := newWorld(t, rel, Params{Circuit: &Circuit{Sources: map[string]float64{"battery": 1}}})

	a := seed(t, w, rod(t, "battery", g, 1), mgl64.Vec3{0.5, 0, 0}, mgl64.QuatIdent())
	wire := rod(t, "wire", g, 1)
	b, ok, err := w.Add(wire, tile.Ref{Tile: a.ID, Connector: 1})
	if err != nil || !ok {
		t.Fatalf("Add() = %v, %v", ok, err)
	}
	c, ok, err := w.Add(wire, tile.Ref{Tile: b.ID, Connector: b.FreeConnectors()[0]})
	if err != nil || !ok {
		t.Fatalf("Add() = %v, %v", ok, err)
	}

	w.UpdateCircuit()
	tests := []struct {
		id   tile.ID
		want float64
	}{
		{a.ID, 1}, {b.ID, 0.6}, {c.ID, 0.2},
	}
	for _, tt := range tests {
		if got := w.Voltage(tt.id); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("Voltage(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestCircuitThresholdGatesAdd(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, g, multiset.Multiset{})
	w := newWorld(t, rel, Params{Circuit: &Circuit{Threshold: 0.5}})
	a := seed(t, w, rod(t, "wire", g, 1), mgl64.Vec3{0.5, 0, 0}, mgl64.QuatIdent())

	if _, ok, _ := w.Add(rod(t, "wire", g, 1), tile.Ref{Tile: a.ID, Connector: 1}); ok {
		t.Error("Add() on an unpowered tile succeeded")
	}
	a.Voltage = 0.5
	if _, ok, _ := w.Add(rod(t, "wire", g, 1), tile.Ref{Tile: a.ID, Connector: 1}); !ok {
		t.Error("Add() on a powered tile failed")
	}
}

func TestUnlockAndRemoveDestroyed(t *testing.T) {
	w := newWorld(t, nil, Params{})
	proto := square(t, "sq", tile.NewGlue("g"), nil)
	a := seed(t, w, proto, mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())
	a.Locked, a.ReadyStep, a.PendingDestroy = true, 3, true

	if got := w.Unlock(2); len(got) != 0 {
		t.Errorf("Unlock(2) = %v, want none", got)
	}
	if got := w.Unlock(3); len(got) != 1 || a.State != tile.StateDestroy {
		t.Fatalf("Unlock(3) = %v, state %v; want one, destroy", got, a.State)
	}
	removed, err := w.RemoveDestroyed()
	if err != nil || len(removed) != 1 || w.Count() != 0 {
		t.Errorf("RemoveDestroyed() = %v, %v; Count() = %d", removed, err, w.Count())
	}
}

func TestSeedInterference(t *testing.T) {
	w := newWorld(t, nil, Params{})
	proto := square(t, "sq", tile.NewGlue("g"), nil)
	seed(t, w, proto, mgl64.Vec3{0.5, 0.5, 0}, mgl64.QuatIdent())
	if _, err := w.Seed(proto, mgl64.Vec3{0.5, 0.5, 0.001}, mgl64.QuatIdent()); err == nil {
		t.Error("Seed() of an overlapping tile: want error")
	}
}
