package shape

import "github.com/go-gl/mathgl/mgl64"

// Plane represents the set of points p satisfying Normal·p = Offset.
// Normal must be normalized.
type Plane struct {
	Normal mgl64.Vec3
	Offset float64
}

// NewPlane creates a plane from a normal and a point lying on the plane.
func NewPlane(normal, point mgl64.Vec3) Plane {
	return Plane{
		Normal: normal,
		Offset: normal.Dot(point),
	}
}

// PlaneFromPoints creates the plane through three counter-clockwise points.
// The normal points toward the side from which a, b, c appear counter-clockwise.
func PlaneFromPoints(a, b, c mgl64.Vec3) Plane {
	normal := b.Sub(a).Cross(c.Sub(a)).Normalize()
	return NewPlane(normal, a)
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive values are on the normal side.
func (p Plane) DistanceTo(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) - p.Offset
}

// ClosestPoint projects a point onto the plane.
func (p Plane) ClosestPoint(point mgl64.Vec3) mgl64.Vec3 {
	return point.Sub(p.Normal.Mul(p.DistanceTo(point)))
}
