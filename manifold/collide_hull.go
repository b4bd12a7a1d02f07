package manifold

import (
	"math"
	"sort"

	"github.com/akmonengine/collide/clip"
	"github.com/akmonengine/collide/sat"
	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// areaTolerance rejects near-colinear candidates during manifold reduction.
const areaTolerance = 0.01

// CollideHulls builds the manifold of two convex hulls. The feature cache
// gates the expensive separating-axis sweep: a cache that certifies the same
// state twice in a row is trusted, otherwise it is flushed and the full
// queries run.
func CollideHulls(m *Manifold, xf1 shape.Transform, h1 *shape.Hull, xf2 shape.Transform, h2 *shape.Hull, cache *ConvexCache) {
	m.Count = 0

	totalRadius := h1.Radius + h2.Radius

	state0 := cache.Feature.State
	state1 := cache.Feature.ReadState(xf1, h1, xf2, h2, totalRadius)

	if state0 == sat.CacheSeparation && state1 == sat.CacheSeparation {
		// Separation cache hit.
		return
	}

	if state0 == sat.CacheOverlap && state1 == sat.CacheOverlap {
		switch cache.Feature.Type {
		case sat.FeatureEdges:
			rebuildEdgeContact(m, xf1, cache.Feature.Index1, h1, xf2, cache.Feature.Index2, h2)
		case sat.FeatureFace1:
			buildFaceContact(m, xf1, cache.Feature.Index1, h1, xf2, h2, totalRadius, false)
		case sat.FeatureFace2:
			buildFaceContact(m, xf2, cache.Feature.Index1, h2, xf1, h1, totalRadius, true)
		}
		if m.Count > 0 {
			// Overlap cache hit.
			return
		}
	}

	// The cached feature proved nothing. Flush and run the full queries.
	cache.Feature.State = sat.CacheEmpty
	collideHullsCache(m, xf1, h1, xf2, h2, totalRadius, cache)
}

// collideHullsCache runs the three separating-axis queries and writes the
// winning feature back into the cache, as a separation certificate when the
// hulls are apart or as an overlap certificate when a contact was built.
func collideHullsCache(m *Manifold, xf1 shape.Transform, h1 *shape.Hull, xf2 shape.Transform, h2 *shape.Hull, totalRadius float64, cache *ConvexCache) {
	faceQuery1 := sat.QueryFaceSeparation(xf1, h1, xf2, h2)
	if faceQuery1.Separation > totalRadius {
		cache.Feature.State = sat.CacheSeparation
		cache.Feature.Type = sat.FeatureFace1
		cache.Feature.Index1 = faceQuery1.Index
		cache.Feature.Index2 = faceQuery1.Index
		return
	}

	faceQuery2 := sat.QueryFaceSeparation(xf2, h2, xf1, h1)
	if faceQuery2.Separation > totalRadius {
		cache.Feature.State = sat.CacheSeparation
		cache.Feature.Type = sat.FeatureFace2
		cache.Feature.Index1 = faceQuery2.Index
		cache.Feature.Index2 = faceQuery2.Index
		return
	}

	edgeQuery := sat.QueryEdgeSeparation(xf1, h1, xf2, h2)
	if edgeQuery.Separation > totalRadius {
		cache.Feature.State = sat.CacheSeparation
		cache.Feature.Type = sat.FeatureEdges
		cache.Feature.Index1 = edgeQuery.Index1
		cache.Feature.Index2 = edgeQuery.Index2
		return
	}

	// Prefer face contacts over edge contacts within tolerance. Face
	// contacts are more stable and reusable across steps.
	if edgeQuery.Separation > math.Max(faceQuery1.Separation, faceQuery2.Separation)+faceBias {
		buildEdgeContact(m, xf1, edgeQuery.Index1, h1, xf2, edgeQuery.Index2, h2)
		if m.Count > 0 {
			cache.Feature.State = sat.CacheOverlap
			cache.Feature.Type = sat.FeatureEdges
			cache.Feature.Index1 = edgeQuery.Index1
			cache.Feature.Index2 = edgeQuery.Index2
		}
		return
	}

	if faceQuery1.Separation+faceBias > faceQuery2.Separation {
		buildFaceContact(m, xf1, faceQuery1.Index, h1, xf2, h2, totalRadius, false)
		if m.Count > 0 {
			cache.Feature.State = sat.CacheOverlap
			cache.Feature.Type = sat.FeatureFace1
			cache.Feature.Index1 = faceQuery1.Index
			cache.Feature.Index2 = faceQuery1.Index
		}
		return
	}

	buildFaceContact(m, xf2, faceQuery2.Index, h2, xf1, h1, totalRadius, true)
	if m.Count > 0 {
		cache.Feature.State = sat.CacheOverlap
		cache.Feature.Type = sat.FeatureFace2
		cache.Feature.Index1 = faceQuery2.Index
		cache.Feature.Index2 = faceQuery2.Index
	}
}

// faceCandidate is one clipped incident-face vertex that survived the
// reference plane test, kept around until reduction picks the final four.
type faceCandidate struct {
	position   mgl64.Vec3 // world point on the incident face
	separation float64
	pair       clip.FeaturePair
}

// buildFaceContact clips the incident face of the second hull against the
// side planes of the reference face of the first and keeps every point at or
// below the reference plane. When flip is set the reference hull is really
// the second shape of the pair and the output is mirrored accordingly.
func buildFaceContact(m *Manifold, xf1 shape.Transform, refFace int, h1 *shape.Hull, xf2 shape.Transform, h2 *shape.Hull, totalRadius float64, flip bool) {
	refPlane := xf1.ApplyPlane(h1.Planes[refFace])

	// The incident face is the one most anti-parallel to the reference
	// normal, found in the incident hull's frame.
	localNormal := xf2.RotateDirInverse(refPlane.Normal)
	incidentFace := h2.SupportFace(localNormal.Mul(-1))

	polygon := clip.BuildPolygon(xf2, h2, incidentFace)
	clipped := clip.ClipPolygonToFace(polygon, xf1, totalRadius, h1, refFace)
	if len(clipped) == 0 {
		return
	}

	candidates := make([]faceCandidate, 0, len(clipped))
	for _, v := range clipped {
		separation := refPlane.DistanceTo(v.Position) - totalRadius
		if separation <= 0 {
			candidates = append(candidates, faceCandidate{
				position:   v.Position,
				separation: separation,
				pair:       v.Pair,
			})
		}
	}
	if len(candidates) == 0 {
		return
	}

	reduced := reducePolygon(candidates, refPlane.Normal)

	for _, c := range reduced {
		cp := refPlane.ClosestPoint(c.position)

		point := &m.Points[m.Count]
		if flip {
			// The reference hull is shape 2; mirror the output so the
			// normal still points from shape 1 to shape 2.
			point.LocalNormal1 = xf2.RotateDirInverse(refPlane.Normal.Mul(-1))
			point.LocalPoint1 = xf2.ApplyInverse(c.position)
			point.LocalPoint2 = xf1.ApplyInverse(cp)
			point.Key = c.pair.Flipped().Key()
		} else {
			point.LocalNormal1 = xf1.RotateDirInverse(refPlane.Normal)
			point.LocalPoint1 = xf1.ApplyInverse(cp)
			point.LocalPoint2 = xf2.ApplyInverse(c.position)
			point.Key = c.pair.Key()
		}
		point.TriangleKey = NullTriangle
		m.Count++
	}
}

// buildEdgeContact emits the single contact point between the closest points
// of two crossing hull edges.
func buildEdgeContact(m *Manifold, xf1 shape.Transform, index1 int, h1 *shape.Hull, xf2 shape.Transform, index2 int, h2 *shape.Hull) {
	c1, c2, e1, e2, ok := closestPointsEdges(xf1, index1, h1, xf2, index2, h2)
	if !ok {
		return
	}
	writeEdgePoint(m, xf1, index1, h1, xf2, index2, c1, c2, e1, e2)
}

// rebuildEdgeContact re-derives the contact of a cached edge pair. Unlike
// the fresh build the closest points must still lie within both segments,
// otherwise the cached pair has slid apart and the caller reruns the sweep.
func rebuildEdgeContact(m *Manifold, xf1 shape.Transform, index1 int, h1 *shape.Hull, xf2 shape.Transform, index2 int, h2 *shape.Hull) {
	c1, c2, e1, e2, ok := closestPointsEdges(xf1, index1, h1, xf2, index2, h2)
	if !ok {
		return
	}

	p1 := xf1.Apply(h1.Vertices[h1.Edges[index1].Origin])
	q1 := xf1.Apply(h1.Vertices[h1.Edges[index1^1].Origin])
	p2 := xf2.Apply(h2.Vertices[h2.Edges[index2].Origin])
	q2 := xf2.Apply(h2.Vertices[h2.Edges[index2^1].Origin])

	if !onSegment(p1, q1, c2) || !onSegment(p2, q2, c1) {
		return
	}

	writeEdgePoint(m, xf1, index1, h1, xf2, index2, c1, c2, e1, e2)
}

// closestPointsEdges computes the closest points of the infinite lines
// through two hull edges. Reports false for parallel lines.
func closestPointsEdges(xf1 shape.Transform, index1 int, h1 *shape.Hull, xf2 shape.Transform, index2 int, h2 *shape.Hull) (c1, c2, e1, e2 mgl64.Vec3, ok bool) {
	p1 := xf1.Apply(h1.Vertices[h1.Edges[index1].Origin])
	q1 := xf1.Apply(h1.Vertices[h1.Edges[index1^1].Origin])
	e1 = q1.Sub(p1)
	n1 := e1.Normalize()

	p2 := xf2.Apply(h2.Vertices[h2.Edges[index2].Origin])
	q2 := xf2.Apply(h2.Vertices[h2.Edges[index2^1].Origin])
	e2 = q2.Sub(p2)
	n2 := e2.Normalize()

	b := n1.Dot(n2)
	den := 1 - b*b
	if den <= 0 {
		return c1, c2, e1, e2, false
	}
	invDen := 1 / den

	e3 := p1.Sub(p2)
	d := n1.Dot(e3)
	e := n2.Dot(e3)

	s := invDen * (b*e - d)
	t := invDen * (e - b*d)

	c1 = p1.Add(n1.Mul(s))
	c2 = p2.Add(n2.Mul(t))
	return c1, c2, e1, e2, true
}

func writeEdgePoint(m *Manifold, xf1 shape.Transform, index1 int, h1 *shape.Hull, xf2 shape.Transform, index2 int, c1, c2, e1, e2 mgl64.Vec3) {
	normal := e1.Cross(e2)
	length := normal.Len()
	if length < epsilon {
		return
	}
	normal = normal.Mul(1.0 / length)

	// Orient the normal away from the first hull.
	centroid1 := xf1.Apply(h1.Centroid)
	p1 := xf1.Apply(h1.Vertices[h1.Edges[index1].Origin])
	if normal.Dot(p1.Sub(centroid1)) < 0 {
		normal = normal.Mul(-1)
	}

	pair := clip.MakePair(index1, index1^1, index2, index2^1)

	m.Count = 1
	m.Points[0] = Point{
		LocalNormal1: xf1.RotateDirInverse(normal),
		LocalPoint1:  xf1.ApplyInverse(c1),
		LocalPoint2:  xf2.ApplyInverse(c2),
		TriangleKey:  NullTriangle,
		Key:          pair.Key(),
	}
}

// onSegment reports whether point c projects inside segment pq.
func onSegment(p, q, c mgl64.Vec3) bool {
	e := q.Sub(p)
	dd := e.Dot(e)
	if dd < epsilon {
		return false
	}
	t := e.Dot(c.Sub(p)) / dd
	return t > 0 && t < 1
}

// reducePolygon selects at most MaxPoints candidates preserving the deepest
// point and maximizing the area they span on the contact plane. The result
// is ordered counter-clockwise about the normal.
func reducePolygon(in []faceCandidate, normal mgl64.Vec3) []faceCandidate {
	if len(in) <= MaxPoints {
		return sortCCW(in, normal)
	}

	out := make([]faceCandidate, 0, MaxPoints)
	chosen := make([]bool, len(in))

	// Start with the deepest point. It must survive reduction or the
	// contact loses its most important constraint.
	start := 0
	for i := range in {
		if in[i].separation < in[start].separation {
			start = i
		}
	}
	out = append(out, in[start])
	chosen[start] = true

	// Furthest point from the first.
	{
		a := out[0].position
		index, max := -1, -1.0
		for i := range in {
			if chosen[i] {
				continue
			}
			d := in[i].position.Sub(a)
			if dd := d.Dot(d); dd > max {
				max = dd
				index = i
			}
		}
		if max < epsilon*epsilon {
			return out
		}
		out = append(out, in[index])
		chosen[index] = true
	}

	// Point spanning the maximum triangle area with the first two.
	{
		a := out[0].position
		b := out[1].position
		index, max := -1, -math.MaxFloat64
		for i := range in {
			if chosen[i] {
				continue
			}
			n := b.Sub(a).Cross(in[i].position.Sub(a))
			if area := math.Abs(n.Dot(normal)); area > max {
				max = area
				index = i
			}
		}
		if max < 2*areaTolerance {
			// Everything else is colinear with AB.
			return out
		}
		out = append(out, in[index])
		chosen[index] = true
	}

	// Fourth point on the opposite side of the first triangle, found by
	// the most negative signed area.
	{
		a := out[0].position
		b := out[1].position
		sign := b.Sub(a).Cross(out[2].position.Sub(a)).Dot(normal)
		if sign < 0 {
			a, b = b, a
		}

		index, min := -1, math.MaxFloat64
		for i := range in {
			if chosen[i] {
				continue
			}
			n := b.Sub(a).Cross(in[i].position.Sub(a))
			if area := n.Dot(normal); area < min {
				min = area
				index = i
			}
		}
		// Only a genuinely opposite-side point widens the patch.
		if min > -2*areaTolerance {
			return sortCCW(out, normal)
		}
		out = append(out, in[index])
	}

	return sortCCW(out, normal)
}

// sortCCW orders contact candidates counter-clockwise about the normal,
// keeping the set stable across steps for warm starting.
func sortCCW(in []faceCandidate, normal mgl64.Vec3) []faceCandidate {
	if len(in) < 3 {
		return in
	}

	var center mgl64.Vec3
	for _, c := range in {
		center = center.Add(c.position)
	}
	center = center.Mul(1.0 / float64(len(in)))

	tangent1 := shape.PerpendicularTo(normal)
	tangent2 := normal.Cross(tangent1)

	sort.SliceStable(in, func(i, j int) bool {
		di := in[i].position.Sub(center)
		dj := in[j].position.Sub(center)
		return math.Atan2(di.Dot(tangent2), di.Dot(tangent1)) < math.Atan2(dj.Dot(tangent2), dj.Dot(tangent1))
	})
	return in
}
