package shape

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// HalfEdge is one directed side of a hull edge. Its twin runs between the
// same two vertices in the opposite direction and is always stored at the
// paired index: Twin(2k) == 2k+1 and Twin(2k+1) == 2k.
type HalfEdge struct {
	Origin int // index of the tail vertex
	Twin   int // index of the opposite half-edge
	Face   int // index of the face on the left of the edge
	Next   int // next half-edge of the face ring, counter-clockwise
}

// Face references one half-edge of its ring. The full vertex ring is
// recovered by following Next until the starting edge comes back.
type Face struct {
	Edge int
}

// Hull is a closed convex polytope in half-edge representation.
// Faces wind counter-clockwise seen from outside, so face plane normals
// point away from the centroid. Hulls are immutable once built and may be
// shared between shapes and between concurrent queries.
type Hull struct {
	Vertices []mgl64.Vec3
	Edges    []HalfEdge
	Faces    []Face
	Planes   []Plane
	Centroid mgl64.Vec3

	// Radius inflates the hull surface for rounded convex shapes.
	// Zero for sharp polytopes.
	Radius float64
}

func (h *Hull) Type() Type { return TypeHull }

func (h *Hull) ComputeAABB(transform Transform) AABB {
	aabb := EmptyAABB()
	for _, v := range h.Vertices {
		p := transform.Apply(v)
		aabb = aabb.Combine(AABB{Min: p, Max: p})
	}
	return aabb.Extend(h.Radius)
}

func (h *Hull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return h.Vertices[h.SupportVertex(direction)]
}

// SupportVertex returns the index of the vertex furthest along the direction.
func (h *Hull) SupportVertex(direction mgl64.Vec3) int {
	best := 0
	bestDot := h.Vertices[0].Dot(direction)
	for i := 1; i < len(h.Vertices); i++ {
		if d := h.Vertices[i].Dot(direction); d > bestDot {
			bestDot = d
			best = i
		}
	}
	return best
}

// SupportFace returns the index of the face whose normal is most aligned
// with the direction.
func (h *Hull) SupportFace(direction mgl64.Vec3) int {
	best := 0
	bestDot := h.Planes[0].Normal.Dot(direction)
	for i := 1; i < len(h.Planes); i++ {
		if d := h.Planes[i].Normal.Dot(direction); d > bestDot {
			bestDot = d
			best = i
		}
	}
	return best
}

// FaceVertices returns the positions of the face ring in winding order.
func (h *Hull) FaceVertices(face int) []mgl64.Vec3 {
	var out []mgl64.Vec3
	begin := h.Faces[face].Edge
	edge := begin
	for {
		out = append(out, h.Vertices[h.Edges[edge].Origin])
		edge = h.Edges[edge].Next
		if edge == begin {
			break
		}
	}
	return out
}

// NewHull builds a half-edge hull from vertex positions and faces given as
// vertex index rings in counter-clockwise order seen from outside.
// It returns an error if the mesh is not a closed 2-manifold: an edge shared
// by more than two faces, a boundary edge, or a ring that does not satisfy
// Euler's formula V - E + F = 2.
func NewHull(vertices []mgl64.Vec3, faces [][]int) (*Hull, error) {
	if len(vertices) < 4 || len(faces) < 4 {
		return nil, fmt.Errorf("hull requires at least 4 vertices and 4 faces, got %d and %d", len(vertices), len(faces))
	}

	hull := &Hull{
		Vertices: append([]mgl64.Vec3(nil), vertices...),
		Faces:    make([]Face, len(faces)),
		Planes:   make([]Plane, len(faces)),
	}

	// Allocate half-edges in twin pairs so that Twin(i) == i^1.
	type vertexPair struct{ a, b int }
	edgeIndex := make(map[vertexPair]int)
	allocate := func(a, b int) (int, error) {
		if e, ok := edgeIndex[vertexPair{a, b}]; ok {
			if hull.Edges[e].Face != -1 {
				return 0, fmt.Errorf("edge %d-%d shared by more than two faces", a, b)
			}
			return e, nil
		}
		e := len(hull.Edges)
		hull.Edges = append(hull.Edges,
			HalfEdge{Origin: a, Twin: e + 1, Face: -1, Next: -1},
			HalfEdge{Origin: b, Twin: e, Face: -1, Next: -1},
		)
		edgeIndex[vertexPair{a, b}] = e
		edgeIndex[vertexPair{b, a}] = e + 1
		return e, nil
	}

	for f, ring := range faces {
		if len(ring) < 3 {
			return nil, fmt.Errorf("face %d has fewer than 3 vertices", f)
		}

		ringEdges := make([]int, len(ring))
		for i := range ring {
			a := ring[i]
			b := ring[(i+1)%len(ring)]
			if a < 0 || a >= len(vertices) || b < 0 || b >= len(vertices) {
				return nil, fmt.Errorf("face %d references vertex out of range", f)
			}

			e, err := allocate(a, b)
			if err != nil {
				return nil, err
			}
			hull.Edges[e].Face = f
			ringEdges[i] = e
		}
		for i, e := range ringEdges {
			hull.Edges[e].Next = ringEdges[(i+1)%len(ringEdges)]
		}

		hull.Faces[f] = Face{Edge: ringEdges[0]}
		hull.Planes[f] = newellPlane(hull.Vertices, ring)
	}

	for i, e := range hull.Edges {
		if e.Face == -1 {
			return nil, fmt.Errorf("open mesh: half-edge %d has no face", i)
		}
	}

	// V - E + F = 2 for a closed convex polytope.
	if euler := len(hull.Vertices) - len(hull.Edges)/2 + len(hull.Faces); euler != 2 {
		return nil, fmt.Errorf("mesh is not a closed hull: Euler characteristic %d", euler)
	}

	centroid := mgl64.Vec3{}
	for _, v := range hull.Vertices {
		centroid = centroid.Add(v)
	}
	hull.Centroid = centroid.Mul(1.0 / float64(len(hull.Vertices)))

	return hull, nil
}

// newellPlane fits the face plane using Newell's method, which stays stable
// for rings with nearly colinear consecutive vertices.
func newellPlane(vertices []mgl64.Vec3, ring []int) Plane {
	normal := mgl64.Vec3{}
	center := mgl64.Vec3{}
	for i := range ring {
		a := vertices[ring[i]]
		b := vertices[ring[(i+1)%len(ring)]]
		normal = normal.Add(mgl64.Vec3{
			(a.Y() - b.Y()) * (a.Z() + b.Z()),
			(a.Z() - b.Z()) * (a.X() + b.X()),
			(a.X() - b.X()) * (a.Y() + b.Y()),
		})
		center = center.Add(a)
	}
	normal = normal.Normalize()
	center = center.Mul(1.0 / float64(len(ring)))
	return NewPlane(normal, center)
}

// NewBox builds the hull of an axis-aligned box from its half-extents.
func NewBox(hx, hy, hz float64) *Hull {
	vertices := []mgl64.Vec3{
		{-hx, -hy, -hz},
		{+hx, -hy, -hz},
		{+hx, +hy, -hz},
		{-hx, +hy, -hz},
		{-hx, -hy, +hz},
		{+hx, -hy, +hz},
		{+hx, +hy, +hz},
		{-hx, +hy, +hz},
	}
	faces := [][]int{
		{1, 2, 6, 5}, // +X
		{0, 4, 7, 3}, // -X
		{2, 3, 7, 6}, // +Y
		{0, 1, 5, 4}, // -Y
		{4, 5, 6, 7}, // +Z
		{0, 3, 2, 1}, // -Z
	}

	hull, err := NewHull(vertices, faces)
	if err != nil {
		// The box topology is fixed; failure here is a programming error.
		panic(err)
	}
	return hull
}

// Validate panics if the half-edge connectivity is inconsistent. It is a
// debug helper for hulls built from external data.
func (h *Hull) Validate() {
	for i, e := range h.Edges {
		if e.Twin != i^1 || h.Edges[e.Twin].Twin != i {
			panic(fmt.Sprintf("hull edge %d: twin symmetry violated", i))
		}
		if h.Edges[e.Next].Face != e.Face {
			panic(fmt.Sprintf("hull edge %d: next edge belongs to another face", i))
		}
	}
	for f, face := range h.Faces {
		begin := face.Edge
		edge := begin
		count := 0
		for {
			if h.Edges[edge].Face != f {
				panic(fmt.Sprintf("hull face %d: ring contains foreign edge", f))
			}
			edge = h.Edges[edge].Next
			count++
			if edge == begin {
				break
			}
			if count > len(h.Edges) {
				panic(fmt.Sprintf("hull face %d: ring does not close", f))
			}
		}
	}
	for _, v := range h.Vertices {
		for f, p := range h.Planes {
			if p.DistanceTo(v) > 1e-6+maxExtent(h)*1e-9 {
				panic(fmt.Sprintf("hull face %d: vertex outside face plane", f))
			}
		}
	}
}

func maxExtent(h *Hull) float64 {
	m := 0.0
	for _, v := range h.Vertices {
		m = math.Max(m, math.Max(math.Abs(v.X()), math.Max(math.Abs(v.Y()), math.Abs(v.Z()))))
	}
	return m
}
