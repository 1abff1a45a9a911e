package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RotationBetween returns the shortest unit rotation taking direction a to
// direction b. Antiparallel inputs rotate half a turn about an arbitrary
// perpendicular axis.
func RotationBetween(a, b mgl64.Vec3) mgl64.Quat {
	a = a.Normalize()
	b = b.Normalize()
	c := a.Dot(b)
	switch {
	case c > 1-1e-12:
		return mgl64.QuatIdent()
	case c < -1+1e-12:
		return mgl64.QuatRotate(math.Pi, Perpendicular(a))
	}
	axis := a.Cross(b)
	return mgl64.QuatRotate(math.Atan2(axis.Len(), c), axis.Normalize())
}

// RotationAbout returns the rotation by angle radians about axis, right-handed.
func RotationAbout(axis mgl64.Vec3, angle float64) mgl64.Quat {
	if axis.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(angle, axis.Normalize())
}

// SignedAngle returns the angle that rotates a onto b about axis, in (−π, π]. a and
// b should both be perpendicular to axis.
func SignedAngle(a, b, axis mgl64.Vec3) float64 {
	n := axis.Normalize()
	return math.Atan2(a.Cross(b).Dot(n), a.Dot(b))
}

// Perpendicular returns a unit vector perpendicular to v.
func Perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	helper := mgl64.Vec3{1, 0, 0}
	if math.Abs(v.Normalize().Dot(helper)) > 0.9 {
		helper = mgl64.Vec3{0, 1, 0}
	}
	return v.Cross(helper).Normalize()
}
