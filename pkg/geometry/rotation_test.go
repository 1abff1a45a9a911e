package geometry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRotationBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b mgl64.Vec3
	}{
		{"same", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0}},
		{"perpendicular", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{"oblique", mgl64.Vec3{1, 2, 3}, mgl64.Vec3{-3, 1, 0.5}},
		{"opposite", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, -1}},
		{"nearly opposite", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-1, 1e-4, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := RotationBetween(tt.a, tt.b)
			got := q.Rotate(tt.a.Normalize())
			if !near(got, tt.b.Normalize()) {
				t.Errorf("rotated = %v, want %v", got, tt.b.Normalize())
			}
			if math.Abs(q.Len()-1) > 1e-12 {
				t.Errorf("|q| = %v, want 1", q.Len())
			}
		})
	}
}

func TestSignedAngle(t *testing.T) {
	z := mgl64.Vec3{0, 0, 1}
	if got := SignedAngle(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, z); math.Abs(got-math.Pi/2) > 1e-12 {
		t.Errorf("SignedAngle() = %v, want π/2", got)
	}
	if got := SignedAngle(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0}, z); math.Abs(got+math.Pi/2) > 1e-12 {
		t.Errorf("SignedAngle() = %v, want -π/2", got)
	}
}

func TestPerpendicular(t *testing.T) {
	for _, v := range []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}} {
		p := Perpendicular(v)
		if math.Abs(p.Dot(v)) > 1e-12 || math.Abs(p.Len()-1) > 1e-12 {
			t.Errorf("Perpendicular(%v) = %v", v, p)
		}
	}
}
