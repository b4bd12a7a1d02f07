package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Type represents the type of collision shape
type Type int

const (
	TypeSphere Type = iota
	TypeCapsule
	TypeHull
	TypeMesh
)

// Shape is the interface that all collision shapes implement.
// All geometry is expressed in the shape's local frame; the world Transform
// is supplied by the caller on every query so shapes stay immutable and
// shareable between concurrent narrow-phase workers.
type Shape interface {
	// Type returns the shape tag used by the manifold dispatch table
	Type() Type
	// ComputeAABB calculates the world-space axis-aligned bounding box
	// for the shape at the given transform
	ComputeAABB(transform Transform) AABB
	// Support returns the local-space point of the shape furthest
	// along the given local-space direction, ignoring the radius
	Support(direction mgl64.Vec3) mgl64.Vec3
}

// Sphere represents a spherical collision shape centered at the local origin
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

func (s *Sphere) Type() Type { return TypeSphere }

// ComputeAABB calculates the axis-aligned bounding box for the sphere
func (s *Sphere) ComputeAABB(transform Transform) AABB {
	center := transform.Apply(s.Center)
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	return AABB{
		Min: center.Sub(radiusVec),
		Max: center.Add(radiusVec),
	}
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return s.Center
}

// Segment is a pair of points. It is the medial axis of a capsule and the
// degenerate "edge" shape consumed by the separating-axis queries.
type Segment struct {
	A mgl64.Vec3
	B mgl64.Vec3
}

// Support returns the endpoint furthest along the direction.
func (s Segment) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if s.A.Dot(direction) > s.B.Dot(direction) {
		return s.A
	}
	return s.B
}

// Capsule represents a capsule collision shape: a segment inflated by a radius
type Capsule struct {
	Segment Segment
	Radius  float64
}

func (c *Capsule) Type() Type { return TypeCapsule }

func (c *Capsule) ComputeAABB(transform Transform) AABB {
	a := transform.Apply(c.Segment.A)
	b := transform.Apply(c.Segment.B)
	radiusVec := mgl64.Vec3{c.Radius, c.Radius, c.Radius}

	return AABB{
		Min: mgl64.Vec3{
			math.Min(a.X(), b.X()),
			math.Min(a.Y(), b.Y()),
			math.Min(a.Z(), b.Z()),
		}.Sub(radiusVec),
		Max: mgl64.Vec3{
			math.Max(a.X(), b.X()),
			math.Max(a.Y(), b.Y()),
			math.Max(a.Z(), b.Z()),
		}.Add(radiusVec),
	}
}

func (c *Capsule) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return c.Segment.Support(direction)
}

// Mesh is a triangle soup used for static level geometry. It participates in
// the broad phase and tags manifold points with the triangle that produced
// them; per-triangle narrow phase routines live with the caller.
type Mesh struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int
}

func (m *Mesh) Type() Type { return TypeMesh }

func (m *Mesh) ComputeAABB(transform Transform) AABB {
	aabb := EmptyAABB()
	for _, v := range m.Vertices {
		p := transform.Apply(v)
		aabb = aabb.Combine(AABB{Min: p, Max: p})
	}
	return aabb
}

func (m *Mesh) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := mgl64.Vec3{}
	bestDot := math.Inf(-1)
	for _, v := range m.Vertices {
		if d := v.Dot(direction); d > bestDot {
			bestDot = d
			best = v
		}
	}
	return best
}
