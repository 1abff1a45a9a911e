package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane is the set of points p with Normal·p = Offset. Normal has unit length.
type Plane struct {
	Normal mgl64.Vec3
	Offset float64
}

// NewPlane returns the plane through point with the given normal. The normal is
// normalised; a zero normal yields the zero plane.
func NewPlane(normal, point mgl64.Vec3) Plane {
	if normal.Len() == 0 {
		return Plane{}
	}
	n := normal.Normalize()
	return Plane{Normal: n, Offset: n.Dot(point)}
}

// SignedDistance returns the distance from p to the plane, positive on the normal side.
func (pl Plane) SignedDistance(p mgl64.Vec3) float64 {
	return pl.Normal.Dot(p) - pl.Offset
}

// Side classifies p: +1 on the normal side, -1 on the opposite side, 0 within
// SideDist of the plane.
func (pl Plane) Side(p mgl64.Vec3) int {
	d := pl.SignedDistance(p)
	switch {
	case d > SideDist:
		return 1
	case d < -SideDist:
		return -1
	}
	return 0
}

// Project returns the orthogonal projection of p onto the plane.
func (pl Plane) Project(p mgl64.Vec3) mgl64.Vec3 {
	return p.Sub(pl.Normal.Mul(pl.SignedDistance(p)))
}

// CrossesSegment reports whether the open segment a→b passes from one side of the
// plane to the other, and returns the crossing point. Endpoints within Tolerance of
// the plane do not count as crossing.
func (pl Plane) CrossesSegment(a, b mgl64.Vec3) (mgl64.Vec3, bool) {
	da := pl.SignedDistance(a)
	db := pl.SignedDistance(b)
	if math.Abs(da) <= Tolerance || math.Abs(db) <= Tolerance || da*db > 0 {
		return mgl64.Vec3{}, false
	}
	t := da / (da - db)
	return a.Add(b.Sub(a).Mul(t)), true
}
