// Package sat implements separating-axis queries between convex hulls.
//
// Two convex shapes are disjoint iff their projections fail to overlap on
// some axis. The candidate axes for a pair of hulls are the face normals of
// either hull and the cross products of their edge directions; the queries
// below return, for each family, the axis of maximum separation (or minimum
// penetration when every axis overlaps).
//
// A FeatureCache remembers the winning feature of the previous step so that
// slowly moving pairs can be re-certified with a single plane or edge test
// instead of a full sweep.
package sat

import (
	"math"

	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// parallelTolerance rejects edge cross products whose magnitude is below
// this fraction of the edge lengths; such axes are numerically unreliable
// and always covered by a face axis.
const parallelTolerance = 0.005

// FaceQuery reports the best separating face candidate of one hull:
// the face whose plane has the maximum signed distance to the support
// point of the other hull.
type FaceQuery struct {
	Index      int
	Separation float64
}

// EdgeQuery reports the best separating edge-edge candidate:
// the pair of edges whose cross product yields the axis of maximum
// separation. Indices refer to half-edges of the respective hulls.
type EdgeQuery struct {
	Index1     int
	Index2     int
	Separation float64
}

// Project returns the signed distance of the hull to a plane given in the
// hull's local space. Negative values measure penetration.
func Project(hull *shape.Hull, plane shape.Plane) float64 {
	support := hull.Vertices[hull.SupportVertex(plane.Normal.Mul(-1))]
	return plane.DistanceTo(support)
}

// QueryFaceSeparation finds the face of hull1 with the maximum separation
// from hull2. Computations run in hull2's local frame so hull2's support
// queries need no transform.
func QueryFaceSeparation(xf1 shape.Transform, hull1 *shape.Hull, xf2 shape.Transform, hull2 *shape.Hull) FaceQuery {
	xf := shape.MulT(xf2, xf1)

	out := FaceQuery{Index: 0, Separation: -math.MaxFloat64}
	for i, plane := range hull1.Planes {
		separation := Project(hull2, xf.ApplyPlane(plane))
		if separation > out.Separation {
			out.Index = i
			out.Separation = separation
		}
	}
	return out
}

// QueryEdgeSeparation finds the edge pair with the maximum separation along
// the cross product of the two edge directions. Only edge pairs forming a
// face on the Minkowski difference are considered (Gauss map test); other
// pairs cannot be the minimal separating feature and testing them would
// produce false separating axes.
func QueryEdgeSeparation(xf1 shape.Transform, hull1 *shape.Hull, xf2 shape.Transform, hull2 *shape.Hull) EdgeQuery {
	// Work in hull2's local frame.
	xf := shape.MulT(xf2, xf1)
	centroid1 := xf.Apply(hull1.Centroid)

	out := EdgeQuery{Index1: -1, Index2: -1, Separation: -math.MaxFloat64}

	// Half-edges come in twin pairs; visiting even indices visits every
	// undirected edge once.
	for i := 0; i < len(hull1.Edges); i += 2 {
		edge1 := hull1.Edges[i]
		twin1 := hull1.Edges[i+1]

		p1 := xf.Apply(hull1.Vertices[edge1.Origin])
		q1 := xf.Apply(hull1.Vertices[twin1.Origin])
		e1 := q1.Sub(p1)

		// The arc of edge1 on the Gauss map runs between its two
		// face normals.
		u1 := xf.RotateDir(hull1.Planes[edge1.Face].Normal)
		v1 := xf.RotateDir(hull1.Planes[twin1.Face].Normal)

		for j := 0; j < len(hull2.Edges); j += 2 {
			edge2 := hull2.Edges[j]
			twin2 := hull2.Edges[j+1]

			p2 := hull2.Vertices[edge2.Origin]
			q2 := hull2.Vertices[twin2.Origin]
			e2 := q2.Sub(p2)

			u2 := hull2.Planes[edge2.Face].Normal
			v2 := hull2.Planes[twin2.Face].Normal

			// Negate hull2's arc to account for the Minkowski difference.
			if !isMinkowskiFace(u1, v1, e1.Mul(-1), u2.Mul(-1), v2.Mul(-1), e2.Mul(-1)) {
				continue
			}

			if separation := edgeSeparation(p1, e1, p2, e2, centroid1); separation > out.Separation {
				out.Index1 = i
				out.Index2 = j
				out.Separation = separation
			}
		}
	}
	return out
}

// isMinkowskiFace reports whether the arcs AB and CD intersect on the unit
// sphere, meaning the corresponding edge pair builds a face of the Minkowski
// difference. bxa and dxc are the arc edge directions.
func isMinkowskiFace(a, b, bxa, c, d, dxc mgl64.Vec3) bool {
	cba := c.Dot(bxa)
	dba := d.Dot(bxa)
	adc := a.Dot(dxc)
	bdc := b.Dot(dxc)

	return cba*dba < 0 && adc*bdc < 0 && cba*bdc > 0
}

// edgeSeparation projects the two edges on their mutual cross product axis,
// oriented away from hull1's centroid. Near-parallel edges are rejected with
// -MaxFloat64 since their axis is degenerate.
func edgeSeparation(p1, e1, p2, e2, centroid1 mgl64.Vec3) float64 {
	axis := e1.Cross(e2)
	length := axis.Len()
	if length < parallelTolerance*math.Sqrt(e1.Dot(e1)*e2.Dot(e2)) {
		return -math.MaxFloat64
	}

	normal := axis.Mul(1.0 / length)
	if normal.Dot(p1.Sub(centroid1)) < 0 {
		normal = normal.Mul(-1)
	}

	return normal.Dot(p2.Sub(p1))
}
