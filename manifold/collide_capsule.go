package manifold

import (
	"math"

	"github.com/akmonengine/collide/clip"
	"github.com/akmonengine/collide/gjk"
	"github.com/akmonengine/collide/sat"
	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// segmentParallelTol bounds the normalized cross product magnitude under
// which two segments are treated as parallel.
const segmentParallelTol = 0.005

// CollideCapsules builds the manifold of two capsules from the closest
// points of their medial segments. Parallel overlapping capsules get a
// two-point manifold (stable rolling contact); every other touching
// configuration gets a single point along the closest-point normal.
func CollideCapsules(m *Manifold, xf1 shape.Transform, c1 *shape.Capsule, xf2 shape.Transform, c2 *shape.Capsule) {
	m.Count = 0

	s1 := shape.Segment{A: xf1.Apply(c1.Segment.A), B: xf1.Apply(c1.Segment.B)}
	s2 := shape.Segment{A: xf2.Apply(c2.Segment.A), B: xf2.Apply(c2.Segment.B)}
	totalRadius := c1.Radius + c2.Radius

	p1, p2 := shape.ClosestPointsSegments(s1, s2)
	distance := p2.Sub(p1).Len()
	if distance > totalRadius {
		return
	}

	e1 := s1.B.Sub(s1.A)
	e2 := s2.B.Sub(s2.A)
	length1 := e1.Len()
	length2 := e2.Len()

	if distance > epsilon && length1 > epsilon && length2 > epsilon {
		parallel := e1.Cross(e2).Len() < segmentParallelTol*length1*length2
		if parallel && collideParallelCapsules(m, xf1, c1, s1, xf2, c2, s2, totalRadius) {
			return
		}
	}

	// Single-point fallback along the closest-point normal.
	var normal mgl64.Vec3
	switch {
	case distance > epsilon:
		normal = p2.Sub(p1).Mul(1.0 / distance)
	case length1 > epsilon && length2 > epsilon && e1.Cross(e2).Len() > epsilon:
		normal = e1.Cross(e2).Normalize()
	case length1 > epsilon:
		normal = shape.PerpendicularTo(e1)
	default:
		normal = mgl64.Vec3{1, 0, 0}
	}

	m.Count = 1
	m.Points[0] = Point{
		LocalNormal1: xf1.RotateDirInverse(normal),
		LocalPoint1:  xf1.ApplyInverse(p1),
		LocalPoint2:  xf2.ApplyInverse(p2),
		TriangleKey:  NullTriangle,
		Key:          0,
	}
}

// collideParallelCapsules attempts the two-point manifold of two parallel
// capsules: segment 1 is clipped against the endpoint planes of segment 2
// and both surviving points must stay within contact range of segment 2.
// Returns false when the overlap region degenerates, in which case the
// caller emits the single-point fallback.
func collideParallelCapsules(m *Manifold, xf1 shape.Transform, c1 *shape.Capsule, s1 shape.Segment, xf2 shape.Transform, c2 *shape.Capsule, s2 shape.Segment, totalRadius float64) bool {
	axis := s2.B.Sub(s2.A).Normalize()

	edge := clip.BuildEdge(s1)

	// The two side planes of segment 2 cut segment 1 down to the
	// overlapping span.
	planeA := clip.Plane{Plane: shape.NewPlane(axis.Mul(-1), s2.A), ID: 0}
	out, count := clip.ClipEdgeToPlane(edge, planeA)
	if count < 2 {
		return false
	}

	planeB := clip.Plane{Plane: shape.NewPlane(axis, s2.B), ID: 1}
	out, count = clip.ClipEdgeToPlane(out, planeB)
	if count < 2 {
		return false
	}

	var points [2]mgl64.Vec3
	var normal mgl64.Vec3
	for i := 0; i < 2; i++ {
		q := shape.ClosestPointOnSegment(s2, out[i].Position)
		d := q.Sub(out[i].Position).Len()
		if d <= epsilon || d > totalRadius {
			return false
		}
		points[i] = q
		if i == 0 {
			normal = q.Sub(out[i].Position).Mul(1.0 / d)
		}
	}

	m.Count = 2
	for i := 0; i < 2; i++ {
		m.Points[i] = Point{
			LocalNormal1: xf1.RotateDirInverse(normal),
			LocalPoint1:  xf1.ApplyInverse(out[i].Position),
			LocalPoint2:  xf2.ApplyInverse(points[i]),
			TriangleKey:  NullTriangle,
			Key:          out[i].Pair.Key(),
		}
	}
	return true
}

// CollideCapsuleAndHull runs face and edge separating-axis queries of the
// capsule's segment against the hull, preceded by a warm-started distance
// query that makes the common separated case cheap.
func CollideCapsuleAndHull(m *Manifold, xf1 shape.Transform, c1 *shape.Capsule, xf2 shape.Transform, h2 *shape.Hull, cache *ConvexCache) {
	m.Count = 0

	totalRadius := c1.Radius + h2.Radius

	proxy1 := &gjk.Proxy{Vertices: []mgl64.Vec3{c1.Segment.A, c1.Segment.B}, Radius: c1.Radius}
	out := gjk.Distance(xf1, proxy1, xf2, hullProxy(h2), false, &cache.Simplex)
	if out.Distance > totalRadius {
		return
	}

	// The segment in the hull's local frame.
	segment := shape.Segment{
		A: xf2.ApplyInverse(xf1.Apply(c1.Segment.A)),
		B: xf2.ApplyInverse(xf1.Apply(c1.Segment.B)),
	}

	faceQuery := querySegmentFaceSeparation(segment, h2)
	edgeQuery := querySegmentEdgeSeparation(segment, h2)

	if edgeQuery.Separation > faceQuery.Separation+faceBias {
		if collideSegmentHullEdge(m, xf1, c1, xf2, h2, segment, edgeQuery, totalRadius) {
			return
		}
	}

	collideSegmentHullFace(m, xf1, c1, xf2, h2, faceQuery.Index, totalRadius, out)
}

// querySegmentFaceSeparation finds the hull face with the maximum signed
// distance to the segment. Everything runs in the hull's local frame.
func querySegmentFaceSeparation(segment shape.Segment, hull *shape.Hull) sat.FaceQuery {
	out := sat.FaceQuery{Index: 0, Separation: -math.MaxFloat64}
	for i, plane := range hull.Planes {
		support := segment.Support(plane.Normal.Mul(-1))
		if separation := plane.DistanceTo(support); separation > out.Separation {
			out.Index = i
			out.Separation = separation
		}
	}
	return out
}

// querySegmentEdgeSeparation finds the hull edge whose cross product with
// the segment direction yields the axis of maximum separation. An axis
// only counts when it lies in the normal cone spanned by the edge's two
// face normals; the hull's support along such an axis is attained on the
// edge itself, so the projection against the edge origin is exact and far
// parallel edges are never candidates. Index2 is unused for the degenerate
// segment side.
func querySegmentEdgeSeparation(segment shape.Segment, hull *shape.Hull) sat.EdgeQuery {
	out := sat.EdgeQuery{Index1: -1, Index2: -1, Separation: -math.MaxFloat64}

	e1 := segment.B.Sub(segment.A)

	for j := 0; j < len(hull.Edges); j += 2 {
		p2 := hull.Vertices[hull.Edges[j].Origin]
		q2 := hull.Vertices[hull.Edges[j^1].Origin]
		e2 := q2.Sub(p2)

		axis := e1.Cross(e2)
		length := axis.Len()
		if length < segmentParallelTol*math.Sqrt(e1.Dot(e1)*e2.Dot(e2)) {
			continue
		}

		u := hull.Planes[hull.Edges[j].Face].Normal
		v := hull.Planes[hull.Edges[j^1].Face].Normal

		normal, ok := orientInNormalCone(axis.Mul(1.0/length), u, v)
		if !ok {
			continue
		}

		// Signed distance of the nearest segment point beyond the plane
		// through the edge.
		separation := normal.Dot(segment.Support(normal.Mul(-1)).Sub(p2))
		if separation > out.Separation {
			out.Index1 = j
			out.Separation = separation
		}
	}
	return out
}

// orientInNormalCone flips n, if needed, into the cone of nonnegative
// combinations of the adjacent face normals u and v. Reports false when
// neither orientation is a supporting direction of the hull at the edge.
func orientInNormalCone(n, u, v mgl64.Vec3) (mgl64.Vec3, bool) {
	c := u.Dot(v)
	nu := n.Dot(u)
	nv := n.Dot(v)
	if nu-c*nv >= 0 && nv-c*nu >= 0 {
		return n, true
	}
	if -nu+c*nv >= 0 && -nv+c*nu >= 0 {
		return n.Mul(-1), true
	}
	return mgl64.Vec3{}, false
}

// collideSegmentHullEdge emits the single-point edge-edge contact between
// the capsule segment and the winning hull edge.
func collideSegmentHullEdge(m *Manifold, xf1 shape.Transform, c1 *shape.Capsule, xf2 shape.Transform, h2 *shape.Hull, segment shape.Segment, query sat.EdgeQuery, totalRadius float64) bool {
	if query.Index1 < 0 {
		return false
	}

	hullEdge := shape.Segment{
		A: h2.Vertices[h2.Edges[query.Index1].Origin],
		B: h2.Vertices[h2.Edges[query.Index1^1].Origin],
	}

	p1, p2 := shape.ClosestPointsSegments(segment, hullEdge)
	d := p1.Sub(p2)
	distance := d.Len()
	if distance <= epsilon || distance > totalRadius {
		return false
	}

	// Normal from the capsule toward the hull, in world space.
	normal := xf2.RotateDir(p2.Sub(p1).Mul(1.0 / distance))

	pair := clip.MakePair(0, 1, query.Index1, query.Index1^1)

	m.Count = 1
	m.Points[0] = Point{
		LocalNormal1: xf1.RotateDirInverse(normal),
		LocalPoint1:  xf1.ApplyInverse(xf2.Apply(p1)),
		LocalPoint2:  p2,
		TriangleKey:  NullTriangle,
		Key:          pair.Key(),
	}
	return true
}

// collideSegmentHullFace clips the capsule segment against the reference
// face's side planes for up to two contact points, falling back to the
// distance-query witness points when the clipped span misses the face.
func collideSegmentHullFace(m *Manifold, xf1 shape.Transform, c1 *shape.Capsule, xf2 shape.Transform, h2 *shape.Hull, refFace int, totalRadius float64, out gjk.Output) {
	refPlane := xf2.ApplyPlane(h2.Planes[refFace])

	worldSegment := shape.Segment{
		A: xf1.Apply(c1.Segment.A),
		B: xf1.Apply(c1.Segment.B),
	}
	edge := clip.BuildEdge(worldSegment)
	clipped, count := clip.ClipEdgeToFace(edge, xf2, totalRadius, h2, refFace)

	// The outward face normal points from the hull toward the capsule.
	normal := refPlane.Normal.Mul(-1)

	for i := 0; i < count; i++ {
		separation := refPlane.DistanceTo(clipped[i].Position) - totalRadius
		if separation > 0 {
			continue
		}

		cp := refPlane.ClosestPoint(clipped[i].Position)
		m.Points[m.Count] = Point{
			LocalNormal1: xf1.RotateDirInverse(normal),
			LocalPoint1:  xf1.ApplyInverse(clipped[i].Position),
			LocalPoint2:  xf2.ApplyInverse(cp),
			TriangleKey:  NullTriangle,
			Key:          clipped[i].Pair.Key(),
		}
		m.Count++
	}

	if m.Count > 0 {
		return
	}

	// The segment projects outside the face ring (corner contact);
	// the witness points of the distance query are the contact.
	if out.Distance > epsilon {
		n := out.Point2.Sub(out.Point1).Mul(1.0 / out.Distance)
		m.Count = 1
		m.Points[0] = Point{
			LocalNormal1: xf1.RotateDirInverse(n),
			LocalPoint1:  xf1.ApplyInverse(out.Point1),
			LocalPoint2:  xf2.ApplyInverse(out.Point2),
			TriangleKey:  NullTriangle,
			Key:          0,
		}
	}
}
