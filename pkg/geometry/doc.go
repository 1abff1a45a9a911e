// Package geometry is the polytope kernel of the tile simulator.
//
// Tiles are either flat convex polygons or line segments in 3D space. This package
// represents both as an immutable [Polytope] and provides the predicates the rest of
// the simulator is built on: point containment, interior intersection, face-to-face
// overlap, and pushing, the collision-resolution displacement one shape imposes on
// another when it moves.
//
// # Tolerances
//
// Two distances govern every predicate:
//
//   - [Tolerance] (ε) decides coincidence. Shapes that touch within ε are not
//     intersecting, and points within ε of a polygon's plane are on it.
//   - [SideDist] is the distance used to pick reference points on either side of a
//     surface, and the minimum clearance of a floating object from a polygon.
//
// Parallel polygon faces must keep [MinFaceDist] (twice SideDist) between them;
// anything closer counts as an overlap even though the faces never intersect.
//
// # Winding
//
// A polygon's unit normal is derived from its vertex order with Newell's method.
// Seen from the tip of the normal the vertices run counter-clockwise, so they wind
// clockwise when viewed along the normal. [NewOrientedPolygon] reverses the input when
// needed so that the stored normal matches a requested facing.
//
// # Pushing
//
// [Polytope.PushingOf] uses a swept separating-axis test. Every candidate axis
// contributes an open interval of travel along the push direction during which the
// two shapes are not separated on that axis. The intersection of these intervals is
// the contact window; the part of the push that remains after first contact is what
// the other shape has to move.
//
//	a, _ := geometry.NewPolygon(square...)
//	b := a.Translated(mgl64.Vec3{1.5, 0, 0})
//	push := a.PushingOf(b, mgl64.Vec3{1, 0, 0}) // {0.5, 0, 0}
package geometry
