package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis-aligned bounding box. The zero value is the degenerate box at the
// origin; use [EmptyBox] as the identity for [Box.Union].
type Box struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// EmptyBox returns a box that contains nothing and is absorbed by any union.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// NewBox returns the smallest box holding every point.
func NewBox(points ...mgl64.Vec3) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether the box holds no point.
func (b Box) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Size returns the extent along each axis.
func (b Box) Size() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Volume returns the box volume. Flat boxes have zero volume.
func (b Box) Volume() float64 {
	s := b.Size()
	return s[0] * s[1] * s[2]
}

// Extend returns the box grown to include p.
func (b Box) Extend(p mgl64.Vec3) Box {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box holding both boxes.
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Expand returns the box grown by margin on every side.
func (b Box) Expand(margin float64) Box {
	if b.IsEmpty() {
		return b
	}
	m := mgl64.Vec3{margin, margin, margin}
	return Box{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Translated returns the box moved by v.
func (b Box) Translated(v mgl64.Vec3) Box {
	if b.IsEmpty() {
		return b
	}
	return Box{Min: b.Min.Add(v), Max: b.Max.Add(v)}
}

// Contains reports whether p lies in the closed box.
func (b Box) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsBox reports whether o lies entirely inside b.
func (b Box) ContainsBox(o Box) bool {
	if o.IsEmpty() {
		return true
	}
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Intersects reports whether the closed boxes share a point.
func (b Box) Intersects(o Box) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Subtract returns up to six disjoint boxes covering b minus inner. inner must lie
// inside b; an empty inner yields b itself.
func (b Box) Subtract(inner Box) []Box {
	if b.IsEmpty() {
		return nil
	}
	if inner.IsEmpty() || !b.Intersects(inner) {
		return []Box{b}
	}
	inner = Box{Min: maxVec(inner.Min, b.Min), Max: minVec(inner.Max, b.Max)}

	var out []Box
	add := func(min, max mgl64.Vec3) {
		c := Box{Min: min, Max: max}
		if c.Volume() > 0 {
			out = append(out, c)
		}
	}
	// x slabs span the full y and z range of b
	add(b.Min, mgl64.Vec3{inner.Min[0], b.Max[1], b.Max[2]})
	add(mgl64.Vec3{inner.Max[0], b.Min[1], b.Min[2]}, b.Max)
	// y slabs are limited to inner's x range
	add(mgl64.Vec3{inner.Min[0], b.Min[1], b.Min[2]}, mgl64.Vec3{inner.Max[0], inner.Min[1], b.Max[2]})
	add(mgl64.Vec3{inner.Min[0], inner.Max[1], b.Min[2]}, mgl64.Vec3{inner.Max[0], b.Max[1], b.Max[2]})
	// z slabs are limited to inner's x and y range
	add(mgl64.Vec3{inner.Min[0], inner.Min[1], b.Min[2]}, mgl64.Vec3{inner.Max[0], inner.Max[1], inner.Min[2]})
	add(mgl64.Vec3{inner.Min[0], inner.Min[1], inner.Max[2]}, mgl64.Vec3{inner.Max[0], inner.Max[1], b.Max[2]})
	return out
}

// Slabs returns the six boundary slabs of thickness t lying inside b, in the order
// -x, +x, -y, +y, -z, +z. Slabs overlap along the box edges.
func (b Box) Slabs(t float64) []Box {
	if b.IsEmpty() {
		return nil
	}
	s := b.Size()
	slabs := make([]Box, 0, 6)
	for axis := 0; axis < 3; axis++ {
		th := math.Min(t, s[axis])
		lo := b
		lo.Max[axis] = b.Min[axis] + th
		hi := b
		hi.Min[axis] = b.Max[axis] - th
		slabs = append(slabs, lo, hi)
	}
	return slabs
}

func minVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func maxVec(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}
