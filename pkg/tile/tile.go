package tile

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/geometry"
)

// Connector is a named, glue-typed attachment point in prototype coordinates. One
// position makes a point connector; two make an edge (on a polygon) or a rod (on a
// segment).
type Connector struct {
	Name       string
	Positions  []mgl64.Vec3
	Glue       *Glue
	// Angle is the attachment angle in radians, measured between the attached
	// tile and the target. π continues the target straight on (flat for edges,
	// collinear for rods); π/2 is a right angle. It is taken against −n of the
	// target tile, so the applied tilt is π − Angle.
	Angle      float64
	Resistance float64 // ohms, used by the circuit variant
}

// IsEdge reports whether the connector has two positions.
func (c Connector) IsEdge() bool { return len(c.Positions) == 2 }

// Length returns the edge length, or zero for a point connector.
func (c Connector) Length() float64 {
	if !c.IsEdge() {
		return 0
	}
	return c.Positions[1].Sub(c.Positions[0]).Len()
}

// Protein is a named membrane site at a fixed position on a tile.
type Protein struct {
	Name     string
	Position mgl64.Vec3
}

// Definition describes a tile prototype before validation.
type Definition struct {
	Name        string
	Shape       *geometry.Polytope
	Connectors  []Connector
	SurfaceGlue *Glue // optional; lets rods attach anywhere on a polygon
	Proteins    []Protein
	Color       string
}

// Tile is an immutable, validated prototype.
type Tile struct {
	name        string
	shape       *geometry.Polytope
	connectors  []Connector
	surfaceGlue *Glue
	proteins    []Protein
	color       string
}

// New validates def and returns the prototype. Every problem found is reported in a
// single *errors.ValidationError.
func New(def Definition) (*Tile, error) {
	var ve errors.ValidationError
	if def.Name == "" {
		ve.Add(errors.ErrCodeInvalidTile, "tile name must not be empty")
	}
	if def.Shape == nil {
		ve.Add(errors.ErrCodeInvalidTile, "tile %q has no shape", def.Name)
		return nil, ve.Err()
	}

	seen := make(map[string]bool, len(def.Connectors))
	for i, c := range def.Connectors {
		if c.Name == "" {
			ve.Add(errors.ErrCodeInvalidConnector, "tile %q: connector %d has no name", def.Name, i)
		} else if seen[c.Name] {
			ve.Add(errors.ErrCodeDuplicateName, "tile %q: duplicate connector %q", def.Name, c.Name)
		}
		seen[c.Name] = true
		ve.Append(validateConnector(def.Name, def.Shape, c))
	}

	for _, p := range def.Proteins {
		if p.Name == "" {
			ve.Add(errors.ErrCodeInvalidTile, "tile %q: protein has no name", def.Name)
		}
		if !def.Shape.Contains(p.Position) {
			ve.Add(errors.ErrCodeInvalidTile, "tile %q: protein %q lies off the tile", def.Name, p.Name)
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	t := &Tile{
		name:        def.Name,
		shape:       def.Shape,
		connectors:  make([]Connector, len(def.Connectors)),
		surfaceGlue: def.SurfaceGlue,
		proteins:    append([]Protein(nil), def.Proteins...),
		color:       def.Color,
	}
	for i, c := range def.Connectors {
		c.Positions = append([]mgl64.Vec3(nil), c.Positions...)
		t.connectors[i] = c
	}
	return t, nil
}

func validateConnector(tile string, shape *geometry.Polytope, c Connector) error {
	if c.Glue == nil {
		return errors.New(errors.ErrCodeInvalidConnector, "tile %q: connector %q has no glue", tile, c.Name)
	}
	if n := len(c.Positions); n != 1 && n != 2 {
		return errors.New(errors.ErrCodeInvalidConnector, "tile %q: connector %q needs 1 or 2 positions, got %d", tile, c.Name, n)
	}
	if c.IsEdge() && c.Length() <= geometry.Tolerance {
		return errors.New(errors.ErrCodeInvalidConnector, "tile %q: connector %q has zero length", tile, c.Name)
	}
	if math.IsNaN(c.Angle) || c.Angle < 0 || c.Angle > 2*math.Pi {
		return errors.New(errors.ErrCodeInvalidConnector, "tile %q: connector %q angle %v outside [0, 2π]", tile, c.Name, c.Angle)
	}
	if math.IsNaN(c.Resistance) || math.IsInf(c.Resistance, 0) || c.Resistance < 0 {
		return errors.New(errors.ErrCodeInvalidConnector, "tile %q: connector %q has invalid resistance", tile, c.Name)
	}

	if shape.IsSegment() {
		for _, p := range c.Positions {
			if endpointIndex(shape, p) < 0 {
				return errors.New(errors.ErrCodeInvalidConnector, "tile %q: connector %q is not at a segment endpoint", tile, c.Name)
			}
		}
		return nil
	}
	for _, p := range c.Positions {
		if !shape.Contains(p) {
			return errors.New(errors.ErrCodeInvalidConnector, "tile %q: connector %q lies off the polygon", tile, c.Name)
		}
	}
	return nil
}

// endpointIndex returns the segment endpoint at p, or -1.
func endpointIndex(seg *geometry.Polytope, p mgl64.Vec3) int {
	for i := 0; i < 2; i++ {
		if seg.Vertex(i).Sub(p).Len() <= geometry.Tolerance {
			return i
		}
	}
	return -1
}

// Name returns the prototype name.
func (t *Tile) Name() string { return t.name }

// Shape returns the prototype polytope in local coordinates.
func (t *Tile) Shape() *geometry.Polytope { return t.shape }

// IsSegment reports whether the tile is one-dimensional.
func (t *Tile) IsSegment() bool { return t.shape.IsSegment() }

// NumConnectors returns the connector count.
func (t *Tile) NumConnectors() int { return len(t.connectors) }

// Connector returns connector i.
func (t *Tile) Connector(i int) Connector { return t.connectors[i] }

// ConnectorIndex returns the index of the named connector, or -1.
func (t *Tile) ConnectorIndex(name string) int {
	for i, c := range t.connectors {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// SurfaceGlue returns the glue covering the polygon surface, or nil.
func (t *Tile) SurfaceGlue() *Glue { return t.surfaceGlue }

// Proteins returns a copy of the protein sites.
func (t *Tile) Proteins() []Protein { return append([]Protein(nil), t.proteins...) }

// Color returns the prototype color.
func (t *Tile) Color() string { return t.color }

// Glues returns every distinct glue used by the prototype.
func (t *Tile) Glues() []*Glue {
	var out []*Glue
	seen := make(map[*Glue]bool)
	for _, c := range t.connectors {
		if !seen[c.Glue] {
			seen[c.Glue] = true
			out = append(out, c.Glue)
		}
	}
	if t.surfaceGlue != nil && !seen[t.surfaceGlue] {
		out = append(out, t.surfaceGlue)
	}
	return out
}
