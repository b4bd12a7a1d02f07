// Package clip turns a winning separating-axis feature into a contact
// polygon via Sutherland-Hodgman half-space clipping.
//
// Every clip vertex carries a FeaturePair naming the edges that produced it.
// Original vertices name the incident-face edges arriving at and leaving the
// vertex; vertices synthesized where an incident edge crosses a clip plane
// combine the crossing edge with the clip plane's id. The packed 32-bit key
// derived from the pair is a stable identity for the point across frames,
// which lets a solver warm-start accumulated impulses.
package clip

import (
	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// NullEdge marks an unused slot of a FeaturePair.
const NullEdge = 0xFF

// FeaturePair identifies the combination of edges that generated a contact
// point: the clip-side edges on the reference feature (InEdge1/OutEdge1) and
// the incident-side edges (InEdge2/OutEdge2).
type FeaturePair struct {
	InEdge1  uint8
	OutEdge1 uint8
	InEdge2  uint8
	OutEdge2 uint8
}

// MakePair builds a feature pair from edge indices. Pass NullEdge for
// unused slots.
func MakePair(inEdge1, outEdge1, inEdge2, outEdge2 int) FeaturePair {
	return FeaturePair{
		InEdge1:  uint8(inEdge1),
		OutEdge1: uint8(outEdge1),
		InEdge2:  uint8(inEdge2),
		OutEdge2: uint8(outEdge2),
	}
}

// Key packs the pair into a 32-bit identity.
func (p FeaturePair) Key() uint32 {
	return uint32(p.InEdge1)<<24 | uint32(p.OutEdge1)<<16 | uint32(p.InEdge2)<<8 | uint32(p.OutEdge2)
}

// PairFromKey unpacks a 32-bit key back into its feature pair.
func PairFromKey(key uint32) FeaturePair {
	return FeaturePair{
		InEdge1:  uint8(key >> 24),
		OutEdge1: uint8(key >> 16),
		InEdge2:  uint8(key >> 8),
		OutEdge2: uint8(key),
	}
}

// Flipped swaps the reference and incident sides of the pair. Used when a
// manifold is computed with the shapes in swapped roles.
func (p FeaturePair) Flipped() FeaturePair {
	return FeaturePair{
		InEdge1:  p.InEdge2,
		OutEdge1: p.OutEdge2,
		InEdge2:  p.InEdge1,
		OutEdge2: p.OutEdge1,
	}
}

// Vertex is a point of the polygon being clipped, tagged with the features
// that produced it.
type Vertex struct {
	Position mgl64.Vec3
	Pair     FeaturePair
}

// Plane is a clipping half-space: points with positive distance are cut
// away. ID names the reference edge the plane was built from and flows into
// the feature pairs of synthesized vertices.
type Plane struct {
	Plane shape.Plane
	ID    int
}

// BuildEdge materializes a segment as a two-vertex clip polygon. Endpoint
// indices act as the incident edge ids.
func BuildEdge(segment shape.Segment) [2]Vertex {
	return [2]Vertex{
		{Position: segment.A, Pair: MakePair(NullEdge, NullEdge, 0, 0)},
		{Position: segment.B, Pair: MakePair(NullEdge, NullEdge, 1, 1)},
	}
}

// BuildPolygon materializes a hull face ring in world space. Each vertex
// records the half-edge arriving at it and the half-edge leaving it.
func BuildPolygon(xf shape.Transform, hull *shape.Hull, face int) []Vertex {
	var out []Vertex

	begin := hull.Faces[face].Edge
	edge := begin
	prev := edge
	// Find the edge arriving at the first vertex.
	for hull.Edges[prev].Next != begin {
		prev = hull.Edges[prev].Next
	}
	for {
		out = append(out, Vertex{
			Position: xf.Apply(hull.Vertices[hull.Edges[edge].Origin]),
			Pair:     MakePair(NullEdge, NullEdge, prev, edge),
		})
		prev = edge
		edge = hull.Edges[edge].Next
		if edge == begin {
			break
		}
	}
	return out
}

// interpolate synthesizes the vertex where the segment v1-v2 crosses the
// plane. d1 and d2 are the endpoint distances to the plane.
func interpolate(v1, v2 Vertex, d1, d2 float64) mgl64.Vec3 {
	t := d1 / (d1 - d2)
	return v1.Position.Add(v2.Position.Sub(v1.Position).Mul(t))
}

// ClipEdgeToPlane clips a segment against a half-space, keeping the part on
// or behind the plane. It returns the surviving points: 0, 1 or 2.
func ClipEdgeToPlane(in [2]Vertex, plane Plane) ([2]Vertex, int) {
	var out [2]Vertex
	count := 0

	d1 := plane.Plane.DistanceTo(in[0].Position)
	d2 := plane.Plane.DistanceTo(in[1].Position)

	if d1 <= 0 {
		out[count] = in[0]
		count++
	}
	if d2 <= 0 {
		out[count] = in[1]
		count++
	}

	if d1*d2 < 0 && count < 2 {
		// The segment crosses the plane: synthesize the crossing point,
		// combining the segment ids with the clip plane id.
		position := interpolate(in[0], in[1], d1, d2)
		var pair FeaturePair
		if d1 > 0 {
			// Entering the half-space.
			pair = MakePair(plane.ID, NullEdge, NullEdge, int(in[1].Pair.OutEdge2))
		} else {
			// Leaving the half-space.
			pair = MakePair(NullEdge, plane.ID, int(in[0].Pair.InEdge2), NullEdge)
		}
		out[count] = Vertex{Position: position, Pair: pair}
		count++
	}

	return out, count
}

// ClipPolygonToPlane clips a convex polygon against a half-space, keeping
// vertices on or behind the plane. Crossing edges synthesize interpolated
// vertices whose pairs combine the crossing incident edge with the clip
// plane id, so interpolated contact points stay trackable across frames.
func ClipPolygonToPlane(in []Vertex, plane Plane) []Vertex {
	var out []Vertex

	for i := range in {
		v1 := in[i]
		v2 := in[(i+1)%len(in)]

		d1 := plane.Plane.DistanceTo(v1.Position)
		d2 := plane.Plane.DistanceTo(v2.Position)

		switch {
		case d1 <= 0 && d2 <= 0:
			out = append(out, v2)
		case d1 <= 0 && d2 > 0:
			// Leaving the half-space.
			out = append(out, Vertex{
				Position: interpolate(v1, v2, d1, d2),
				Pair:     MakePair(NullEdge, plane.ID, int(v1.Pair.OutEdge2), NullEdge),
			})
		case d1 > 0 && d2 <= 0:
			// Entering the half-space.
			out = append(out, Vertex{
				Position: interpolate(v1, v2, d1, d2),
				Pair:     MakePair(plane.ID, NullEdge, NullEdge, int(v1.Pair.OutEdge2)),
			})
			out = append(out, v2)
		}
	}

	return out
}

// SidePlanes returns the clipping half-spaces of a hull face: one plane per
// ring edge, normal facing outward from the polygon, offset by the given
// radius for rounded shapes. The plane id is the half-edge index.
func SidePlanes(xf shape.Transform, radius float64, hull *shape.Hull, face int) []Plane {
	var out []Plane

	faceNormal := xf.RotateDir(hull.Planes[face].Normal)

	begin := hull.Faces[face].Edge
	edge := begin
	for {
		next := hull.Edges[edge].Next
		p := xf.Apply(hull.Vertices[hull.Edges[edge].Origin])
		q := xf.Apply(hull.Vertices[hull.Edges[next].Origin])

		normal := q.Sub(p).Cross(faceNormal).Normalize()
		out = append(out, Plane{
			Plane: shape.Plane{Normal: normal, Offset: normal.Dot(p) + radius},
			ID:    edge,
		})

		edge = next
		if edge == begin {
			break
		}
	}
	return out
}

// ClipEdgeToFace clips a segment against every side plane of a hull face.
func ClipEdgeToFace(in [2]Vertex, xf shape.Transform, radius float64, hull *shape.Hull, face int) ([2]Vertex, int) {
	out := in
	count := 2
	for _, plane := range SidePlanes(xf, radius, hull, face) {
		if count < 2 {
			// A segment clipped below two points cannot regain them.
			break
		}
		out, count = ClipEdgeToPlane(out, plane)
	}
	return out, count
}

// ClipPolygonToFace clips a polygon against every side plane of a hull face.
// The result may be empty when the polygons do not overlap laterally.
func ClipPolygonToFace(in []Vertex, xf shape.Transform, radius float64, hull *shape.Hull, face int) []Vertex {
	out := in
	for _, plane := range SidePlanes(xf, radius, hull, face) {
		out = ClipPolygonToPlane(out, plane)
		if len(out) == 0 {
			break
		}
	}
	return out
}
