// Package scenario provides built-in tile systems defined in Go.
//
// Each scenario builds a complete [sim.Input]: prototypes, floating-object types,
// glue relation, rules and seeds. Run parameters are left at their zero values
// except where the system depends on them, such as the circuit of "circuit".
//
//	in, err := scenario.Build("squares")
//	if err != nil {
//	    return err
//	}
//	in.Params.Seed = 7
//	s, err := sim.New(in, logger)
package scenario

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/floating"
	"github.com/matzehuels/tilesim/pkg/geometry"
	"github.com/matzehuels/tilesim/pkg/multiset"
	"github.com/matzehuels/tilesim/pkg/rule"
	"github.com/matzehuels/tilesim/pkg/sim"
	"github.com/matzehuels/tilesim/pkg/tile"
	"github.com/matzehuels/tilesim/pkg/tileworld"
)

// Scenario is a named, buildable tile system.
type Scenario struct {
	Name        string
	Description string
	build       func() (sim.Input, error)
}

var registry = map[string]Scenario{
	"rods": {
		Name:        "rods",
		Description: "point-connected rods growing a chain from fuel",
		build:       rods,
	},
	"squares": {
		Name:        "squares",
		Description: "edge-connected squares tiling a plane, each link releasing waste",
		build:       squares,
	},
	"membrane": {
		Name:        "membrane",
		Description: "folding membrane patches pumping ions across themselves",
		build:       membrane,
	},
	"circuit": {
		Name:        "circuit",
		Description: "resistive wires that only grow where the voltage from a battery suffices",
		build:       circuit,
	},
}

// Names returns the built-in scenario names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// All returns every built-in scenario, sorted by name.
func All() []Scenario {
	out := make([]Scenario, 0, len(registry))
	for _, n := range Names() {
		out = append(out, registry[n])
	}
	return out
}

// Exists reports whether name is a built-in scenario.
func Exists(name string) bool {
	_, ok := registry[name]
	return ok
}

// Build returns a fresh input for the named scenario.
func Build(name string) (sim.Input, error) {
	sc, ok := registry[name]
	if !ok {
		return sim.Input{}, errors.New(errors.ErrCodeUnknownName, "unknown scenario %q", name)
	}
	return sc.build()
}

// Environment types shared by the scenarios.
var (
	fuel  = floating.Type{Name: "atp", Mobility: 0.4, Concentration: 0.5}
	waste = floating.Type{Name: "adp", Mobility: 0.4}
)

func rods() (sim.Input, error) {
	g := tile.NewGlue("end")
	rod, err := segment("rod", 1, g, 0, "#d9822b")
	if err != nil {
		return sim.Input{}, err
	}
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.Multiset{}); err != nil {
		return sim.Input{}, err
	}
	return sim.Input{
		Tiles:    []*tile.Tile{rod},
		Objects:  []floating.Type{fuel, waste},
		Relation: rel,
		Rules: []rule.Definition{
			{Name: "extend", Kind: rule.KindCreate, Left: []string{"atp", "end"}, Right: []string{"rod"}},
		},
		Seeds: []sim.Seed{{Tile: "rod"}},
	}, nil
}

func squares() (sim.Input, error) {
	g := tile.NewGlue("side")
	sq, err := square("square", g, math.Pi, nil, "#3b7dd8")
	if err != nil {
		return sim.Input{}, err
	}
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.New("adp")); err != nil {
		return sim.Input{}, err
	}
	return sim.Input{
		Tiles:    []*tile.Tile{sq},
		Objects:  []floating.Type{fuel, waste},
		Relation: rel,
		Rules: []rule.Definition{
			{Name: "grow", Kind: rule.KindCreate, Left: []string{"atp", "side"}, Right: []string{"square"}},
			{Name: "decay", Kind: rule.KindDestroy, Delay: 3, Left: []string{"adp", "adp", "adp", "square"}, Right: []string{"atp"}},
		},
		Seeds:    []sim.Seed{{Tile: "square"}},
	}, nil
}

func membrane() (sim.Input, error) {
	g := tile.NewGlue("rim")
	patch, err := square("patch", g, 3*math.Pi/4, []tile.Protein{{Name: "pump", Position: mgl64.Vec3{0.5, 0.5, 0}}}, "#5fa05f")
	if err != nil {
		return sim.Input{}, err
	}
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.Multiset{}); err != nil {
		return sim.Input{}, err
	}
	ion := floating.Type{Name: "na", Mobility: 0.3, Concentration: 0.5}
	return sim.Input{
		Tiles:    []*tile.Tile{patch},
		Objects:  []floating.Type{fuel, waste, ion},
		Relation: rel,
		Rules: []rule.Definition{
			{Name: "pump", Kind: rule.KindMetabolic, Left: []string{"na", "atp", "pump"}, Right: []string{"adp", "pump", "na"}},
			{Name: "fold", Kind: rule.KindCreate, Delay: 1, Left: []string{"atp", "atp", "rim"}, Right: []string{"patch"}},
		},
		Seeds: []sim.Seed{{Tile: "patch"}},
	}, nil
}

func circuit() (sim.Input, error) {
	g := tile.NewGlue("contact")
	battery, err := segment("battery", 1, g, 0, "#c94040")
	if err != nil {
		return sim.Input{}, err
	}
	wire, err := segment("wire", 1, g, 1, "#888888")
	if err != nil {
		return sim.Input{}, err
	}
	rel := tile.NewGlueRelation()
	if err := rel.Add(g, g, multiset.Multiset{}); err != nil {
		return sim.Input{}, err
	}
	return sim.Input{
		Tiles:    []*tile.Tile{battery, wire},
		Objects:  []floating.Type{fuel, waste},
		Relation: rel,
		Rules: []rule.Definition{
			{Name: "lay", Kind: rule.KindCreate, Left: []string{"atp", "contact"}, Right: []string{"wire"}},
		},
		Seeds: []sim.Seed{{Tile: "battery"}},
		Params: sim.Params{World: tileworld.Params{Circuit: &tileworld.Circuit{
			Sources:   map[string]float64{"battery": 1},
			Threshold: 0.3,
		}}},
	}, nil
}

// segment builds a rod of the given length along x with a point connector at each
// end.
func segment(name string, length float64, g *tile.Glue, resistance float64, color string) (*tile.Tile, error) {
	a, b := mgl64.Vec3{0, 0, 0}, mgl64.Vec3{length, 0, 0}
	shape, err := geometry.NewSegment(a, b)
	if err != nil {
		return nil, err
	}
	return tile.New(tile.Definition{
		Name:  name,
		Shape: shape,
		Color: color,
		Connectors: []tile.Connector{
			{Name: "tail", Positions: []mgl64.Vec3{a}, Glue: g, Angle: math.Pi, Resistance: resistance},
			{Name: "head", Positions: []mgl64.Vec3{b}, Glue: g, Angle: math.Pi, Resistance: resistance},
		},
	})
}

// square builds a unit square in the xy plane with one edge connector per side.
func square(name string, g *tile.Glue, angle float64, proteins []tile.Protein, color string) (*tile.Tile, error) {
	v := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	shape, err := geometry.NewPolygon(v...)
	if err != nil {
		return nil, err
	}
	conns := make([]tile.Connector, 4)
	for i, n := range []string{"bottom", "right", "top", "left"} {
		conns[i] = tile.Connector{Name: n, Positions: []mgl64.Vec3{v[i], v[(i+1)%4]}, Glue: g, Angle: angle}
	}
	return tile.New(tile.Definition{
		Name:       name,
		Shape:      shape,
		Connectors: conns,
		Proteins:   proteins,
		Color:      color,
	})
}
