package tile

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/geometry"
)

// ID identifies a placed tile within one world. The zero ID is never assigned.
type ID uint64

// SurfaceConnector is the connector index of a link onto a polygon surface.
const SurfaceConnector = -1

// Ref is a handle to a connector of a placed tile, or to its surface when Connector
// is SurfaceConnector. The zero Ref links nothing.
type Ref struct {
	Tile      ID  `json:"tile"`
	Connector int `json:"connector"`
}

// IsZero reports whether r links nothing.
func (r Ref) IsZero() bool { return r.Tile == 0 }

// IsSurface reports whether r points at a polygon surface.
func (r Ref) IsSurface() bool { return r.Tile != 0 && r.Connector == SurfaceConnector }

// State is the per-step lifecycle state of a placed tile.
type State uint8

const (
	StateUnchanged State = iota
	StateCreate
	StateMove
	StateDestroy
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCreate:
		return "create"
	case StateMove:
		return "move"
	case StateDestroy:
		return "destroy"
	}
	return "unchanged"
}

// ConnectorInSpace is the live counterpart of a prototype connector.
type ConnectorInSpace struct {
	Index             int          // index into the prototype connectors
	Positions         []mgl64.Vec3 // world positions
	Glue              *Glue        // current glue, replaced by division
	ConnectedTo       Ref          // peer connector or surface, zero when free
	PendingDisconnect bool         // disconnect at the next finalize
	NextGlue          *Glue        // glue to take when the pending disconnect happens
	LastLink          Ref          // peer before the most recent disconnect
}

// IsFree reports whether the connector is unconnected and not pending a disconnect.
func (c *ConnectorInSpace) IsFree() bool {
	return c.ConnectedTo.IsZero() && !c.PendingDisconnect
}

// Point returns the connector position, or the edge midpoint.
func (c *ConnectorInSpace) Point() mgl64.Vec3 {
	if len(c.Positions) == 2 {
		return c.Positions[0].Add(c.Positions[1]).Mul(0.5)
	}
	return c.Positions[0]
}

// TileInSpace is one placed instance of a prototype. Its position is the centroid of
// its world vertices.
type TileInSpace struct {
	ID ID

	proto       *Tile
	shape       *geometry.Polytope
	orientation mgl64.Quat
	connectors  []ConnectorInSpace
	proteins    []mgl64.Vec3
	surface     []Ref // rods attached to this polygon's surface

	State          State
	Locked         bool    // a delayed rule holds this tile
	ReadyStep      int     // step at which the lock is released
	PendingDestroy bool    // remove once the lock is released
	Push           float64 // pushing scratch along the current growth direction
	Voltage        float64
	Color          string
	Seed           bool
}

// Instantiate places proto with its centroid at position and the given orientation.
// The returned tile has no ID and state StateCreate.
func Instantiate(proto *Tile, position mgl64.Vec3, orientation mgl64.Quat) *TileInSpace {
	q := orientation.Normalize()
	pivot := proto.shape.Centroid()
	local := func(p mgl64.Vec3) mgl64.Vec3 {
		return position.Add(q.Rotate(p.Sub(pivot)))
	}

	t := &TileInSpace{
		proto:       proto,
		shape:       proto.shape.Transformed(q, pivot, position),
		orientation: q,
		connectors:  make([]ConnectorInSpace, len(proto.connectors)),
		proteins:    make([]mgl64.Vec3, len(proto.proteins)),
		State:       StateCreate,
		Color:       proto.color,
	}
	for i, c := range proto.connectors {
		pos := make([]mgl64.Vec3, len(c.Positions))
		for j, p := range c.Positions {
			pos[j] = local(p)
		}
		t.connectors[i] = ConnectorInSpace{Index: i, Positions: pos, Glue: c.Glue}
	}
	for i, p := range proto.proteins {
		t.proteins[i] = local(p.Position)
	}
	return t
}

// Proto returns the prototype.
func (t *TileInSpace) Proto() *Tile { return t.proto }

// Name returns the prototype name.
func (t *TileInSpace) Name() string { return t.proto.name }

// Shape returns the world-space polytope.
func (t *TileInSpace) Shape() *geometry.Polytope { return t.shape }

// Position returns the centroid of the world vertices.
func (t *TileInSpace) Position() mgl64.Vec3 { return t.shape.Centroid() }

// Orientation returns the rotation from prototype to world coordinates.
func (t *TileInSpace) Orientation() mgl64.Quat { return t.orientation }

// Box returns the world bounding box.
func (t *TileInSpace) Box() geometry.Box { return t.shape.Box() }

// IsSegment reports whether the tile is one-dimensional.
func (t *TileInSpace) IsSegment() bool { return t.shape.IsSegment() }

// NumConnectors returns the connector count.
func (t *TileInSpace) NumConnectors() int { return len(t.connectors) }

// Connector returns live connector i. The pointer stays valid for the tile's life.
func (t *TileInSpace) Connector(i int) *ConnectorInSpace { return &t.connectors[i] }

// ConnectorProto returns the prototype definition of connector i.
func (t *TileInSpace) ConnectorProto(i int) Connector { return t.proto.connectors[i] }

// NumProteins returns the protein count.
func (t *TileInSpace) NumProteins() int { return len(t.proteins) }

// Protein returns the name and world position of protein i.
func (t *TileInSpace) Protein(i int) (string, mgl64.Vec3) {
	return t.proto.proteins[i].Name, t.proteins[i]
}

// SurfaceLinks returns the rods attached to this tile's surface.
func (t *TileInSpace) SurfaceLinks() []Ref {
	return append([]Ref(nil), t.surface...)
}

// FreeConnectors returns the indices of free connectors.
func (t *TileInSpace) FreeConnectors() []int {
	var out []int
	for i := range t.connectors {
		if t.connectors[i].IsFree() {
			out = append(out, i)
		}
	}
	return out
}

// Neighbors returns the IDs of every tile linked through a connector or the surface,
// without duplicates.
func (t *TileInSpace) Neighbors() []ID {
	var out []ID
	seen := make(map[ID]bool)
	add := func(id ID) {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for i := range t.connectors {
		add(t.connectors[i].ConnectedTo.Tile)
	}
	for _, r := range t.surface {
		add(r.Tile)
	}
	return out
}

// IsConnected reports whether any connector or surface link is active.
func (t *TileInSpace) IsConnected() bool {
	return len(t.Neighbors()) > 0
}

// Side classifies p against the tile: +1 on the normal side, -1 on the other, 0 on
// the surface or for segments.
func (t *TileInSpace) Side(p mgl64.Vec3) int {
	if t.shape.IsSegment() {
		return 0
	}
	return t.shape.Plane().Side(p)
}

// Translate moves the tile and everything on it by v.
func (t *TileInSpace) Translate(v mgl64.Vec3) {
	if v.Len() == 0 {
		return
	}
	t.shape = t.shape.Translated(v)
	for i := range t.connectors {
		for j := range t.connectors[i].Positions {
			t.connectors[i].Positions[j] = t.connectors[i].Positions[j].Add(v)
		}
	}
	for i := range t.proteins {
		t.proteins[i] = t.proteins[i].Add(v)
	}
	if t.State == StateUnchanged {
		t.State = StateMove
	}
}

// ShortenTo keeps endpoint anchor of a segment tile fixed and moves the other one so
// that the segment has the given length. Connectors and proteins scale with it.
func (t *TileInSpace) ShortenTo(anchor int, length float64) error {
	if !t.shape.IsSegment() {
		return errors.New(errors.ErrCodeUnsupported, "tile %q is not a segment", t.Name())
	}
	if length < geometry.Tolerance {
		return errors.New(errors.ErrCodeShortenBelowTolerance, "tile %q: length %g below tolerance", t.Name(), length)
	}
	a := t.shape.Vertex(anchor)
	free := 1 - anchor
	old := t.shape.Length()
	scale := length / old
	shape, err := t.shape.WithVertex(free, a.Add(t.shape.Vertex(free).Sub(a).Mul(scale)))
	if err != nil {
		return err
	}
	t.shape = shape
	rescale := func(p mgl64.Vec3) mgl64.Vec3 {
		return a.Add(p.Sub(a).Mul(scale))
	}
	for i := range t.connectors {
		for j := range t.connectors[i].Positions {
			t.connectors[i].Positions[j] = rescale(t.connectors[i].Positions[j])
		}
	}
	for i := range t.proteins {
		t.proteins[i] = rescale(t.proteins[i])
	}
	return nil
}

// Clone returns a detached copy with the same geometry and no links.
func (t *TileInSpace) Clone() *TileInSpace {
	c := *t
	c.connectors = make([]ConnectorInSpace, len(t.connectors))
	for i, cs := range t.connectors {
		cs.Positions = append([]mgl64.Vec3(nil), cs.Positions...)
		cs.ConnectedTo = Ref{}
		cs.PendingDisconnect = false
		c.connectors[i] = cs
	}
	c.proteins = append([]mgl64.Vec3(nil), t.proteins...)
	c.surface = nil
	return &c
}

// EndpointAt returns the segment endpoint index at p, or -1.
func (t *TileInSpace) EndpointAt(p mgl64.Vec3) int {
	if !t.shape.IsSegment() {
		return -1
	}
	return endpointIndex(t.shape, p)
}
