package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// axis is a candidate separating direction. Along dir, the two shapes interfere
// while the projected range of B − A has lo < slack and hi > −slack. contact is the
// slack that defines first contact; slack is the stricter value that defines actual
// interference.
type axis struct {
	dir     mgl64.Vec3
	contact float64
	slack   float64
}

// minAxisLen discards cross products of nearly parallel directions.
const minAxisLen = 1e-9

func appendAxis(axes []axis, dir mgl64.Vec3, contact, slack float64) []axis {
	l := dir.Len()
	if l < minAxisLen {
		return axes
	}
	return append(axes, axis{dir: dir.Mul(1 / l), contact: contact, slack: slack})
}

func (p *Polytope) edgeDirs() []mgl64.Vec3 {
	n := p.NumEdges()
	dirs := make([]mgl64.Vec3, 0, n)
	for i := 0; i < n; i++ {
		a, b := p.Edge(i)
		dirs = append(dirs, b.Sub(a))
	}
	return dirs
}

// ParallelTo reports whether both shapes are polygons with parallel planes.
func (p *Polytope) ParallelTo(q *Polytope) bool {
	if p.kind != KindPolygon || q.kind != KindPolygon {
		return false
	}
	return p.normal.Cross(q.normal).Len() < parallelTolerance
}

// separatingAxes returns the axes for a pair that is not two segments. faceSlack
// is the slack of the shared normal of parallel polygons: Tolerance for an interior
// intersection test, MinFaceDist for the overlap and pushing tests.
func separatingAxes(a, b *Polytope, faceContact, faceSlack float64) []axis {
	var axes []axis
	if a.ParallelTo(b) {
		axes = appendAxis(axes, a.normal, faceContact, faceSlack)
		for _, h := range a.borders {
			axes = appendAxis(axes, h.normal, 0, -Tolerance)
		}
		for _, h := range b.borders {
			axes = appendAxis(axes, h.normal, 0, -Tolerance)
		}
		return axes
	}

	if a.kind == KindSegment {
		a, b = b, a
	}
	// a is a polygon from here on
	ae := a.edgeDirs()
	be := b.edgeDirs()

	axes = appendAxis(axes, a.normal, 0, -Tolerance)
	for _, h := range a.borders {
		axes = appendAxis(axes, h.normal, 0, -Tolerance)
	}
	for _, e := range ae {
		for _, f := range be {
			axes = appendAxis(axes, e.Cross(f), 0, -Tolerance)
		}
	}
	if b.kind == KindPolygon {
		axes = appendAxis(axes, b.normal, 0, -Tolerance)
		for _, h := range b.borders {
			axes = appendAxis(axes, h.normal, 0, -Tolerance)
		}
		for _, e := range ae {
			axes = appendAxis(axes, e.Cross(b.normal), 0, -Tolerance)
		}
		for _, f := range be {
			axes = appendAxis(axes, a.normal.Cross(f), 0, -Tolerance)
		}
		axes = appendAxis(axes, a.normal.Cross(b.normal), 0, -Tolerance)
	} else {
		for _, f := range be {
			axes = appendAxis(axes, f.Cross(a.normal), 0, -Tolerance)
		}
	}
	return axes
}

func projectRange(vs []mgl64.Vec3, u mgl64.Vec3) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		d := u.Dot(v)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// difference returns the projected range of b − a on u.
func difference(a, b *Polytope, u mgl64.Vec3) (float64, float64) {
	alo, ahi := projectRange(a.vertices, u)
	blo, bhi := projectRange(b.vertices, u)
	return blo - ahi, bhi - alo
}

// separated reports whether some axis separates a and b in place.
func separated(axes []axis, a, b *Polytope) bool {
	for _, ax := range axes {
		lo, hi := difference(a, b, ax.dir)
		if !(lo < ax.slack && hi > -ax.slack) {
			return true
		}
	}
	return false
}

// sweep clips the travel of a along unit direction d against every axis and returns
// the open window (t0, t1) during which a and b are not separated. With contact
// set, the contact slacks are used instead of the interference slacks.
func sweep(axes []axis, a, b *Polytope, d mgl64.Vec3, contact bool) (float64, float64, bool) {
	t0, t1 := math.Inf(-1), math.Inf(1)
	for _, ax := range axes {
		slack := ax.slack
		if contact {
			slack = ax.contact
		}
		lo, hi := difference(a, b, ax.dir)
		ud := ax.dir.Dot(d)
		if math.Abs(ud) < 1e-12 {
			if !(lo < slack && hi > -slack) {
				return 0, 0, false
			}
			continue
		}
		enter := (lo - slack) / ud
		exit := (hi + slack) / ud
		if enter > exit {
			enter, exit = exit, enter
		}
		t0 = math.Max(t0, enter)
		t1 = math.Min(t1, exit)
		if t0 >= t1 {
			return 0, 0, false
		}
	}
	return t0, t1, true
}

// Intersects reports whether the interiors of p and q share a point. Touching within
// Tolerance is not intersecting, and two segments never intersect.
func (p *Polytope) Intersects(q *Polytope) bool {
	if p.kind == KindSegment && q.kind == KindSegment {
		return false
	}
	if !p.box.Expand(Tolerance).Intersects(q.box) {
		return false
	}
	return !separated(separatingAxes(p, q, Tolerance, Tolerance), p, q)
}

// Overlaps reports whether p and q are parallel polygons closer than MinFaceDist
// whose projections onto their common plane overlap.
func (p *Polytope) Overlaps(q *Polytope) bool {
	if !p.ParallelTo(q) {
		return false
	}
	if !p.box.Expand(MinFaceDist).Intersects(q.box) {
		return false
	}
	return !separated(separatingAxes(p, q, MinFaceDist, MinFaceDist-Tolerance), p, q)
}

// Interferes reports whether p intersects or overlaps q.
func (p *Polytope) Interferes(q *Polytope) bool {
	return p.Intersects(q) || p.Overlaps(q)
}

// PushingOf returns the displacement q needs when p moves by v: a vector along v
// with length |v| minus the distance p travels before touching q, or zero when p
// never interferes with q along the way. Parallel polygons keep MinFaceDist apart.
// Two segments never push each other.
func (p *Polytope) PushingOf(q *Polytope, v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l <= Tolerance {
		return mgl64.Vec3{}
	}
	if p.kind == KindSegment && q.kind == KindSegment {
		return mgl64.Vec3{}
	}
	swept := p.box.Union(p.box.Translated(v)).Expand(MinFaceDist)
	if !swept.Intersects(q.box) {
		return mgl64.Vec3{}
	}

	d := v.Mul(1 / l)
	axes := separatingAxes(p, q, MinFaceDist, MinFaceDist-Tolerance)
	t0, t1, ok := sweep(axes, p, q, d, false)
	if !ok || t1 <= 0 || t0 >= l {
		return mgl64.Vec3{}
	}
	c0, _, _ := sweep(axes, p, q, d, true)
	free := math.Max(c0, 0)
	if free < Tolerance {
		free = 0
	}
	if free >= l {
		return mgl64.Vec3{}
	}
	return d.Mul(l - free)
}
