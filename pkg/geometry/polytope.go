package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
)

// Tolerances shared by every predicate in the package.
const (
	// Tolerance is the coincidence distance: touching within Tolerance is not
	// intersecting.
	Tolerance = 1e-9

	// SideDist separates reference points on either side of a surface from the
	// surface itself.
	SideDist = 1e-3

	// MinFaceDist is the smallest gap allowed between parallel polygon faces.
	MinFaceDist = 2 * SideDist
)

// parallelTolerance bounds |n1 × n2| for two polygon normals to count as parallel.
const parallelTolerance = 1e-9

// Kind tells polygons and segments apart.
type Kind uint8

const (
	KindPolygon Kind = iota
	KindSegment
)

// String returns "polygon" or "segment".
func (k Kind) String() string {
	if k == KindSegment {
		return "segment"
	}
	return "polygon"
}

// halfPlane is an in-plane border: b·p − d ≥ 0 holds inside the polygon.
type halfPlane struct {
	normal mgl64.Vec3
	offset float64
}

// Polytope is an immutable convex polygon or line segment.
type Polytope struct {
	kind     Kind
	vertices []mgl64.Vec3
	normal   mgl64.Vec3
	offset   float64
	borders  []halfPlane
	centroid mgl64.Vec3
	box      Box
}

// NewPolygon validates and builds a convex polygon. The vertices must be at least
// three, distinct, coplanar and strictly convex in the given order; the normal is
// derived from that order.
func NewPolygon(vertices ...mgl64.Vec3) (*Polytope, error) {
	if len(vertices) < 3 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "polygon needs at least 3 vertices, got %d", len(vertices))
	}
	for i := range vertices {
		for j := i + 1; j < len(vertices); j++ {
			if vertices[i].Sub(vertices[j]).Len() <= Tolerance {
				return nil, errors.New(errors.ErrCodeInvalidGeometry, "duplicate polygon vertices %d and %d", i, j)
			}
		}
	}

	n := newellNormal(vertices)
	if n.Len() <= Tolerance {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "polygon vertices are collinear")
	}
	n = n.Normalize()

	box := NewBox(vertices...)
	planar := Tolerance * math.Max(1, box.Size().Len())
	offset := n.Dot(vertices[0])
	for i, v := range vertices {
		if math.Abs(n.Dot(v)-offset) > planar {
			return nil, errors.New(errors.ErrCodeInvalidGeometry, "polygon vertex %d is not coplanar", i)
		}
	}

	turning := 0.0
	count := len(vertices)
	for i := 0; i < count; i++ {
		e1 := vertices[(i+1)%count].Sub(vertices[i])
		e2 := vertices[(i+2)%count].Sub(vertices[(i+1)%count])
		s := e1.Cross(e2).Dot(n)
		if s <= Tolerance*e1.Len()*e2.Len() {
			return nil, errors.New(errors.ErrCodeInvalidGeometry, "polygon is not strictly convex at vertex %d", (i+1)%count)
		}
		turning += math.Atan2(s, e1.Dot(e2))
	}
	if math.Abs(turning-2*math.Pi) > 1e-6 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "polygon winds more than once")
	}

	return newPolytope(KindPolygon, append([]mgl64.Vec3(nil), vertices...)), nil
}

// NewOrientedPolygon builds a polygon whose stored normal points to the same side as
// facing, reversing the vertex order when needed.
func NewOrientedPolygon(facing mgl64.Vec3, vertices ...mgl64.Vec3) (*Polytope, error) {
	p, err := NewPolygon(vertices...)
	if err != nil {
		return nil, err
	}
	if p.normal.Dot(facing) < 0 {
		return p.Reversed(), nil
	}
	return p, nil
}

// NewSegment builds a segment between two points farther apart than Tolerance.
func NewSegment(a, b mgl64.Vec3) (*Polytope, error) {
	if a.Sub(b).Len() <= Tolerance {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "segment endpoints coincide")
	}
	return newPolytope(KindSegment, []mgl64.Vec3{a, b}), nil
}

func newPolytope(kind Kind, vertices []mgl64.Vec3) *Polytope {
	p := &Polytope{kind: kind, vertices: vertices, box: NewBox(vertices...)}
	var sum mgl64.Vec3
	for _, v := range vertices {
		sum = sum.Add(v)
	}
	p.centroid = sum.Mul(1 / float64(len(vertices)))

	if kind == KindPolygon {
		p.normal = newellNormal(vertices).Normalize()
		p.offset = p.normal.Dot(vertices[0])
		p.borders = make([]halfPlane, len(vertices))
		for i, v := range vertices {
			e := vertices[(i+1)%len(vertices)].Sub(v)
			b := p.normal.Cross(e).Normalize()
			p.borders[i] = halfPlane{normal: b, offset: b.Dot(v)}
		}
	}
	return p
}

func newellNormal(vs []mgl64.Vec3) mgl64.Vec3 {
	var n mgl64.Vec3
	for i, cur := range vs {
		next := vs[(i+1)%len(vs)]
		n[0] += (cur[1] - next[1]) * (cur[2] + next[2])
		n[1] += (cur[2] - next[2]) * (cur[0] + next[0])
		n[2] += (cur[0] - next[0]) * (cur[1] + next[1])
	}
	return n
}

// Kind returns the shape kind.
func (p *Polytope) Kind() Kind { return p.kind }

// IsSegment reports whether p is a segment.
func (p *Polytope) IsSegment() bool { return p.kind == KindSegment }

// IsPolygon reports whether p is a polygon.
func (p *Polytope) IsPolygon() bool { return p.kind == KindPolygon }

// NumVertices returns the vertex count.
func (p *Polytope) NumVertices() int { return len(p.vertices) }

// Vertex returns vertex i.
func (p *Polytope) Vertex(i int) mgl64.Vec3 { return p.vertices[i] }

// Vertices returns a copy of the vertices in canonical order.
func (p *Polytope) Vertices() []mgl64.Vec3 {
	return append([]mgl64.Vec3(nil), p.vertices...)
}

// Normal returns the unit normal of a polygon, or the zero vector for a segment.
func (p *Polytope) Normal() mgl64.Vec3 { return p.normal }

// Plane returns the supporting plane of a polygon.
func (p *Polytope) Plane() Plane { return Plane{Normal: p.normal, Offset: p.offset} }

// Centroid returns the average of the vertices.
func (p *Polytope) Centroid() mgl64.Vec3 { return p.centroid }

// Box returns the axis-aligned bounding box.
func (p *Polytope) Box() Box { return p.box }

// Direction returns the unit vector from the first to the second endpoint of a
// segment, or the zero vector for a polygon.
func (p *Polytope) Direction() mgl64.Vec3 {
	if p.kind != KindSegment {
		return mgl64.Vec3{}
	}
	return p.vertices[1].Sub(p.vertices[0]).Normalize()
}

// Length returns the segment length, or the perimeter of a polygon.
func (p *Polytope) Length() float64 {
	if p.kind == KindSegment {
		return p.vertices[1].Sub(p.vertices[0]).Len()
	}
	total := 0.0
	for i, v := range p.vertices {
		total += p.vertices[(i+1)%len(p.vertices)].Sub(v).Len()
	}
	return total
}

// Edge returns the endpoints of edge i. A segment has a single edge.
func (p *Polytope) Edge(i int) (mgl64.Vec3, mgl64.Vec3) {
	if p.kind == KindSegment {
		return p.vertices[0], p.vertices[1]
	}
	return p.vertices[i], p.vertices[(i+1)%len(p.vertices)]
}

// NumEdges returns the number of edges.
func (p *Polytope) NumEdges() int {
	if p.kind == KindSegment {
		return 1
	}
	return len(p.vertices)
}

// Translated returns a copy moved by v.
func (p *Polytope) Translated(v mgl64.Vec3) *Polytope {
	vs := make([]mgl64.Vec3, len(p.vertices))
	for i, x := range p.vertices {
		vs[i] = x.Add(v)
	}
	return newPolytope(p.kind, vs)
}

// Transformed returns the copy that maps every vertex x to offset + q·(x − pivot).
// q must be a unit quaternion.
func (p *Polytope) Transformed(q mgl64.Quat, pivot, offset mgl64.Vec3) *Polytope {
	vs := make([]mgl64.Vec3, len(p.vertices))
	for i, x := range p.vertices {
		vs[i] = offset.Add(q.Rotate(x.Sub(pivot)))
	}
	return newPolytope(p.kind, vs)
}

// Reversed returns a polygon with the opposite winding and normal. Segments swap
// their endpoints.
func (p *Polytope) Reversed() *Polytope {
	vs := make([]mgl64.Vec3, len(p.vertices))
	for i, x := range p.vertices {
		vs[len(vs)-1-i] = x
	}
	return newPolytope(p.kind, vs)
}

// WithVertex returns a segment whose endpoint i is replaced by v.
func (p *Polytope) WithVertex(i int, v mgl64.Vec3) (*Polytope, error) {
	if p.kind != KindSegment {
		return nil, errors.New(errors.ErrCodeUnsupported, "only segment endpoints can be replaced")
	}
	vs := p.Vertices()
	vs[i] = v
	return NewSegment(vs[0], vs[1])
}

// Contains reports whether p lies on the shape. Points on the boundary count.
func (p *Polytope) Contains(x mgl64.Vec3) bool {
	return p.ContainsWithBorder(x, 0)
}

// ContainsWithBorder reports whether x lies on the shape at least w away from its
// boundary: from every polygon edge, or from both segment endpoints.
func (p *Polytope) ContainsWithBorder(x mgl64.Vec3, w float64) bool {
	if p.kind == KindSegment {
		a, b := p.vertices[0], p.vertices[1]
		t, c := closestOnSegment(a, b, x)
		if x.Sub(c).Len() > Tolerance {
			return false
		}
		l := b.Sub(a).Len()
		return t*l >= w-Tolerance && (1-t)*l >= w-Tolerance
	}
	if math.Abs(p.normal.Dot(x)-p.offset) > Tolerance {
		return false
	}
	return p.inPlane(x, w)
}

// inPlane tests the border half-planes only.
func (p *Polytope) inPlane(x mgl64.Vec3, w float64) bool {
	for _, b := range p.borders {
		if b.normal.Dot(x)-b.offset < w-Tolerance {
			return false
		}
	}
	return true
}

// BorderDistance returns how far x lies inside the boundary: the smallest distance
// to a polygon edge line, or to a segment endpoint along the segment. Negative
// values are outside. The plane distance is ignored.
func (p *Polytope) BorderDistance(x mgl64.Vec3) float64 {
	if p.kind == KindSegment {
		a, b := p.vertices[0], p.vertices[1]
		l := b.Sub(a).Len()
		t := x.Sub(a).Dot(b.Sub(a)) / (l * l)
		return math.Min(t*l, (1-t)*l)
	}
	d := math.Inf(1)
	for _, b := range p.borders {
		d = math.Min(d, b.normal.Dot(x)-b.offset)
	}
	return d
}

// ClosestPoint returns the point of the shape nearest to x.
func (p *Polytope) ClosestPoint(x mgl64.Vec3) mgl64.Vec3 {
	if p.kind == KindSegment {
		_, c := closestOnSegment(p.vertices[0], p.vertices[1], x)
		return c
	}
	q := p.Plane().Project(x)
	if p.inPlane(q, 0) {
		return q
	}
	best := p.vertices[0]
	bestDist := math.Inf(1)
	for i := range p.vertices {
		a, b := p.Edge(i)
		_, c := closestOnSegment(a, b, x)
		if d := x.Sub(c).Len(); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Distance returns the distance from x to the shape.
func (p *Polytope) Distance(x mgl64.Vec3) float64 {
	return x.Sub(p.ClosestPoint(x)).Len()
}

// CrossesSegment reports whether the open segment a→b passes through the polygon.
// Segments never block anything and always return false.
func (p *Polytope) CrossesSegment(a, b mgl64.Vec3) bool {
	if p.kind != KindPolygon {
		return false
	}
	if !p.box.Expand(Tolerance).Intersects(NewBox(a, b)) {
		return false
	}
	x, ok := p.Plane().CrossesSegment(a, b)
	return ok && p.inPlane(x, 0)
}

// closestOnSegment returns the parameter t in [0,1] and the point of segment a→b
// nearest to x.
func closestOnSegment(a, b, x mgl64.Vec3) (float64, mgl64.Vec3) {
	ab := b.Sub(a)
	t := x.Sub(a).Dot(ab) / ab.Dot(ab)
	t = math.Max(0, math.Min(1, t))
	return t, a.Add(ab.Mul(t))
}
