package sim

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/floating"
	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/multiset"
	"github.com/matzehuels/tilesim/pkg/rule"
	"github.com/matzehuels/tilesim/pkg/tile"
)

func square(t *testing.T, glue *tile.Glue, proteins ...tile.Protein) *tile.Tile {
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
	tl, err := tile.New(tile.Definition{Name: "square", Shape: shape, Connectors: conns, Proteins: proteins})
	if err != nil {
		t.Fatalf("tile.New() error: %v", err)
	}
	return tl
}

func newSim(t *testing.T, proto *tile.Tile, rel *tile.GlueRelation, rules ...rule.Definition) *Simulator {
	t.Helper()
	s, err := New(Input{
		Tiles: []*tile.Tile{proto},
		Objects: []floating.Type{
			{Name: "atp", Mobility: 1},
			{Name: "adp", Mobility: 1},
			{Name: "na", Mobility: 1},
		},
		Relation: rel,
		Rules:    rules,
		Seeds:    []Seed{{Tile: proto.Name(), Position: mgl64.Vec3{0.5, 0.5, 0}}},
		Params:   Params{Seed: 42, Frozen: true},
	}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func step(t *testing.T, s *Simulator) StepReport {
	t.Helper()
	r, err := s.Step(context.Background())
	if err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	return r
}

func TestDestroyWaitsForReactants(t *testing.T) {
	s := newSim(t, square(t, tile.NewGlue("g")), nil, rule.Definition{
		Name: "decay", Kind: rule.KindDestroy, Left: []string{"atp", "square"}, Right: []string{"adp"},
	})

	r := step(t, s)
	if !r.Applied.IsEmpty() {
		t.Errorf("Applied = %v without reactants, want empty", r.Applied)
	}
	if s.Tiles().Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Tiles().Count())
	}

	if err := s.Objects().AddAt(multiset.New("atp"), mgl64.Vec3{0.5, 0.5, 0.4}); err != nil {
		t.Fatalf("AddAt() error: %v", err)
	}
	if err := s.FinalizeStep(context.Background()); err != nil {
		t.Fatalf("FinalizeStep() error: %v", err)
	}

	r = step(t, s)
	if got := r.Applied.Count("decay"); got != 1 {
		t.Errorf("decay fired %d times, want 1", got)
	}
	if s.Tiles().Count() != 0 {
		t.Errorf("Count() = %d after finalize, want 0", s.Tiles().Count())
	}
	if s.Objects().Count("atp") != 0 || s.Objects().Count("adp") != 1 {
		t.Errorf("atp = %d, adp = %d, want 0 and 1", s.Objects().Count("atp"), s.Objects().Count("adp"))
	}

	r = step(t, s)
	if !r.Applied.IsEmpty() {
		t.Errorf("Applied = %v after the tile is gone, want empty", r.Applied)
	}
}

func TestCreateGrowsTile(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.Multiset{}); err != nil {
		t.Fatal(err)
	}
	s := newSim(t, square(t, g), rel, rule.Definition{
		Name: "grow", Kind: rule.KindCreate, Left: []string{"atp", "g"}, Right: []string{"square"},
	})
	if err := s.Objects().AddAt(multiset.New("atp"), mgl64.Vec3{0.5, 0, 0.3}); err != nil {
		t.Fatal(err)
	}
	if err := s.FinalizeStep(context.Background()); err != nil {
		t.Fatal(err)
	}

	r := step(t, s)
	if got := r.Applied.Count("grow"); got != 1 {
		t.Fatalf("grow fired %d times, want 1", got)
	}
	if r.Tiles != 2 {
		t.Errorf("Tiles = %d, want 2", r.Tiles)
	}
	if s.Objects().Count("atp") != 0 {
		t.Errorf("atp = %d, want 0", s.Objects().Count("atp"))
	}
	for _, ts := range s.Tiles().Tiles() {
		if !ts.IsConnected() {
			t.Errorf("tile %d is not connected", ts.ID)
		}
	}

	r = step(t, s)
	if !r.Applied.IsEmpty() {
		t.Errorf("Applied = %v with no atp left, want empty", r.Applied)
	}
}

func TestCategoryOrder(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, g, multiset.Multiset{})
	s := newSim(t, square(t, g), rel,
		rule.Definition{Name: "grow", Kind: rule.KindCreate, Priority: 9, Left: []string{"g"}, Right: []string{"square"}},
		rule.Definition{Name: "kill", Kind: rule.KindDestroy, Left: []string{"square"}},
	)

	r := step(t, s)
	if r.Applied.Count("kill") != 1 || r.Applied.Count("grow") != 0 {
		t.Errorf("Applied = %v, want only kill", r.Applied)
	}
	if s.Tiles().Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Tiles().Count())
	}
}

func TestPriority(t *testing.T) {
	s := newSim(t, square(t, tile.NewGlue("g")), nil,
		rule.Definition{Name: "low", Kind: rule.KindDestroy, Priority: 1, Left: []string{"square"}},
		rule.Definition{Name: "high", Kind: rule.KindDestroy, Priority: 2, Left: []string{"square"}, Right: []string{"adp"}},
	)
	r := step(t, s)
	if r.Applied.Count("high") != 1 || r.Applied.Len() != 1 {
		t.Errorf("Applied = %v, want {high:1}", r.Applied)
	}
}

func TestDelayedDestroy(t *testing.T) {
	s := newSim(t, square(t, tile.NewGlue("g")), nil, rule.Definition{
		Name: "slow", Kind: rule.KindDestroy, Delay: 2, Left: []string{"square"},
	})

	tests := []struct {
		applied int
		tiles   int
	}{
		{1, 1},
		{0, 1},
		{0, 0},
	}
	for i, tt := range tests {
		r := step(t, s)
		if got := r.Applied.Count("slow"); got != tt.applied {
			t.Errorf("step %d: slow fired %d times, want %d", i, got, tt.applied)
		}
		if r.Tiles != tt.tiles {
			t.Errorf("step %d: Tiles = %d, want %d", i, r.Tiles, tt.tiles)
		}
	}
}

func TestMetabolicCrossesMembrane(t *testing.T) {
	proto := square(t, tile.NewGlue("g"), tile.Protein{Name: "pump", Position: mgl64.Vec3{0.5, 0.5, 0}})
	s := newSim(t, proto, nil, rule.Definition{
		Name: "import", Kind: rule.KindMetabolic, Left: []string{"na", "pump"}, Right: []string{"pump", "na"},
	})
	membrane := s.Tiles().Tiles()[0]
	out := mgl64.Vec3{0.5, 0.5, 0.5}
	if membrane.Side(out) < 0 {
		out = mgl64.Vec3{0.5, 0.5, -0.5}
	}
	_ = s.Objects().AddAt(multiset.New("na"), out)
	_ = s.Objects().AddAt(multiset.New("na"), out.Mul(-1).Add(mgl64.Vec3{1, 1, 0}))
	_ = s.FinalizeStep(context.Background())

	r := step(t, s)
	if r.Applied.Count("import") != 1 {
		t.Fatalf("import fired %d times, want 1", r.Applied.Count("import"))
	}
	for _, o := range s.Objects().Objects() {
		if membrane.Side(o.Position) != -1 {
			t.Errorf("object %d at %v is still outside", o.ID, o.Position)
		}
	}
	if s.Objects().Count("na") != 2 {
		t.Errorf("na = %d, want 2", s.Objects().Count("na"))
	}
}

func TestInsertNeverFires(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.Multiset{}); err != nil {
		t.Fatal(err)
	}
	proto := square(t, g)
	s, err := New(Input{
		Tiles:    []*tile.Tile{proto},
		Relation: rel,
		Rules: []rule.Definition{{
			Name: "wedge", Kind: rule.KindInsert, Left: []string{"g", "g"}, Right: []string{"g", "square", "g"},
		}},
		Seeds: []Seed{
			{Tile: "square", Position: mgl64.Vec3{0.5, 0.5, 0}},
			{Tile: "square", Position: mgl64.Vec3{1.5, 0.5, 0}},
		},
		Params: Params{Seed: 42, Frozen: true},
	}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	links := s.linkSites()
	if len(links) != 1 {
		t.Fatalf("got %d link sites, want 1", len(links))
	}
	if a, b := s.linkGlues(links[0]); a != "g" || b != "g" {
		t.Errorf("got link glues %q/%q, want g/g", a, b)
	}

	for i := 0; i < 2; i++ {
		if r := step(t, s); !r.Applied.IsEmpty() {
			t.Errorf("Applied = %v, want empty", r.Applied)
		}
	}
	if got := s.Tiles().Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	if got := len(s.linkSites()); got != 1 {
		t.Errorf("got %d link sites after steps, want 1", got)
	}
}

func TestNewValidation(t *testing.T) {
	g := tile.NewGlue("g")
	proto := square(t, g)
	tests := []struct {
		name string
		in   Input
		code errors.Code
	}{
		{
			name: "duplicate tile",
			in:   Input{Tiles: []*tile.Tile{proto, proto}},
			code: errors.ErrCodeDuplicateName,
		},
		{
			name: "unknown seed",
			in:   Input{Tiles: []*tile.Tile{proto}, Seeds: []Seed{{Tile: "hexagon"}}},
			code: errors.ErrCodeUnknownName,
		},
		{
			name: "unknown rule name",
			in: Input{Tiles: []*tile.Tile{proto}, Rules: []rule.Definition{
				{Name: "r", Kind: rule.KindDestroy, Left: []string{"ghost", "square"}},
			}},
			code: errors.ErrCodeUnknownName,
		},
		{
			name: "misplaced glue",
			in: Input{Tiles: []*tile.Tile{proto}, Rules: []rule.Definition{
				{Name: "r", Kind: rule.KindCreate, Left: []string{"square"}, Right: []string{"square"}},
			}},
			code: errors.ErrCodeInvalidRule,
		},
		{
			name: "object clashes with tile",
			in:   Input{Tiles: []*tile.Tile{proto}, Objects: []floating.Type{{Name: "square", Mobility: 1}}},
			code: errors.ErrCodeDuplicateName,
		},
		{
			name: "overlapping seeds",
			in:   Input{Tiles: []*tile.Tile{proto}, Seeds: []Seed{{Tile: "square"}, {Tile: "square"}}},
			code: errors.ErrCodeInvalidState,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.in, nil)
			if !errors.Is(err, tt.code) {
				t.Errorf("New() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestHurtKeepsSeeds(t *testing.T) {
	g := tile.NewGlue("g")
	rel := tile.NewGlueRelation()
	_ = rel.Add(g, g, multiset.Multiset{})
	s := newSim(t, square(t, g), rel, rule.Definition{
		Name: "grow", Kind: rule.KindCreate, Left: []string{"g"}, Right: []string{"square"},
	})
	for i := 0; i < 2; i++ {
		step(t, s)
	}
	before := s.Tiles().Count()
	if before < 2 {
		t.Fatalf("Count() = %d after growing, want at least 2", before)
	}
	removed, err := s.Hurt(before)
	if err != nil {
		t.Fatalf("Hurt() error: %v", err)
	}
	if len(removed) != before-1 {
		t.Errorf("Hurt() removed %d tiles, want %d", len(removed), before-1)
	}
	if s.Tiles().Count() != 1 || !s.Tiles().Tiles()[0].Seed {
		t.Errorf("seed tile did not survive")
	}
}

func TestSameSeedSameRun(t *testing.T) {
	run := func() []mgl64.Vec3 {
		g := tile.NewGlue("g")
		rel := tile.NewGlueRelation()
		_ = rel.Add(g, g, multiset.Multiset{})
		s := newSim(t, square(t, g), rel, rule.Definition{
			Name: "grow", Kind: rule.KindCreate, Left: []string{"g"}, Right: []string{"square"},
		})
		for i := 0; i < 3; i++ {
			step(t, s)
		}
		var out []mgl64.Vec3
		for _, ts := range s.Tiles().Tiles() {
			out = append(out, ts.Position())
		}
		return out
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("runs grew %d and %d tiles", len(a), len(b))
	}
	for i := range a {
		if a[i].Sub(b[i]).Len() > 1e-9 {
			t.Errorf("tile %d at %v and %v", i, a[i], b[i])
		}
	}
}
