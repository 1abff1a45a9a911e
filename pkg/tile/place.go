package tile

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/geometry"
)

// Place builds a new instance of proto whose connector ci coincides with connector
// ti of the placed tile target. The target connector's angle decides the fold.
//
// Edge connectors on two polygons are matched with their endpoints reversed. The new
// tile is first unfolded flat on the far side of the edge and then folded by
// π − angle toward the target's normal side, so an angle of π/2 stands it upright.
// Edges involving a segment only match direction and endpoints.
//
// Point connectors put the new tile's body straight out along the target's
// reference axis (a rod's tangent, or a polygon's normal), tilt it by π − angle and
// spin it about that axis by a uniformly random angle drawn from rng.
func Place(proto *Tile, ci int, target *TileInSpace, ti int, rng *rand.Rand) (*TileInSpace, error) {
	if ci < 0 || ci >= len(proto.connectors) {
		return nil, errors.New(errors.ErrCodeInvalidConnector, "tile %q has no connector %d", proto.name, ci)
	}
	cand := proto.connectors[ci]
	tc := target.connectors[ti]
	angle := target.ConnectorProto(ti).Angle

	if cand.IsEdge() != (len(tc.Positions) == 2) {
		return nil, errors.New(errors.ErrCodeInvalidConnector,
			"connector %q of %q and connector %d of %q differ in arity", cand.Name, proto.name, ti, target.Name())
	}

	var q mgl64.Quat
	var anchorLocal, anchorWorld mgl64.Vec3
	if cand.IsEdge() {
		q = edgeRotation(proto, cand, target, tc, angle)
		anchorLocal, anchorWorld = cand.Positions[0], tc.Positions[1]
	} else {
		q = pointRotation(proto, cand, target, tc, angle, rng)
		anchorLocal, anchorWorld = cand.Positions[0], tc.Positions[0]
	}

	pivot := proto.shape.Centroid()
	position := anchorWorld.Sub(q.Rotate(anchorLocal.Sub(pivot)))
	return Instantiate(proto, position, q), nil
}

// inward returns the unit direction perpendicular to edge e, in the polygon's plane,
// pointing toward the polygon.
func inward(shape *geometry.Polytope, from, e mgl64.Vec3) mgl64.Vec3 {
	w := shape.Normal().Cross(e).Normalize()
	if w.Dot(shape.Centroid().Sub(from)) < 0 {
		w = w.Mul(-1)
	}
	return w
}

func edgeRotation(proto *Tile, cand Connector, target *TileInSpace, tc ConnectorInSpace, angle float64) mgl64.Quat {
	e := cand.Positions[1].Sub(cand.Positions[0])
	edge := tc.Positions[1].Sub(tc.Positions[0])

	align := geometry.RotationBetween(e, edge.Mul(-1))
	if proto.shape.IsSegment() || target.shape.IsSegment() {
		return align
	}

	wt := inward(target.shape, tc.Positions[0], edge)
	wc := align.Rotate(inward(proto.shape, cand.Positions[0], e))
	roll := geometry.RotationAbout(edge, geometry.SignedAngle(wc, wt.Mul(-1), edge))

	nt := target.shape.Normal()
	fold := geometry.RotationAbout(wt.Mul(-1).Cross(nt), math.Pi-angle)
	return fold.Mul(roll).Mul(align).Normalize()
}

func pointRotation(proto *Tile, cand Connector, target *TileInSpace, tc ConnectorInSpace, angle float64, rng *rand.Rand) mgl64.Quat {
	p := cand.Positions[0]
	var body mgl64.Vec3
	if proto.shape.IsSegment() {
		body = otherEndpoint(proto.shape, p).Sub(p)
	} else if d := proto.shape.Centroid().Sub(p); d.Len() > geometry.Tolerance {
		body = d
	} else {
		body = proto.shape.Normal().Mul(-1)
	}

	var ref mgl64.Vec3
	if target.shape.IsSegment() {
		ref = otherEndpoint(target.shape, tc.Positions[0]).Sub(tc.Positions[0]).Normalize()
	} else {
		ref = target.shape.Normal().Mul(-1)
	}

	align := geometry.RotationBetween(body, ref.Mul(-1))
	tilt := geometry.RotationAbout(geometry.Perpendicular(ref), math.Pi-angle)
	spin := mgl64.QuatIdent()
	if rng != nil {
		spin = geometry.RotationAbout(ref, rng.Float64()*2*math.Pi)
	}
	return spin.Mul(tilt).Mul(align).Normalize()
}

// otherEndpoint returns the segment endpoint farther from p.
func otherEndpoint(seg *geometry.Polytope, p mgl64.Vec3) mgl64.Vec3 {
	a, b := seg.Vertex(0), seg.Vertex(1)
	if a.Sub(p).Len() > b.Sub(p).Len() {
		return a
	}
	return b
}
