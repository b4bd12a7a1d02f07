package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns the identity element for Combine: merging it with any
// other AABB yields that AABB unchanged.
func EmptyAABB() AABB {
	return AABB{
		Min: mgl64.Vec3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		Max: mgl64.Vec3{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Contains checks if another AABB is fully inside this AABB
func (a AABB) Contains(other AABB) bool {
	return a.Min.X() <= other.Min.X() && other.Max.X() <= a.Max.X() &&
		a.Min.Y() <= other.Min.Y() && other.Max.Y() <= a.Max.Y() &&
		a.Min.Z() <= other.Min.Z() && other.Max.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Combine returns the smallest AABB enclosing both inputs
func (a AABB) Combine(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{
			math.Min(a.Min.X(), other.Min.X()),
			math.Min(a.Min.Y(), other.Min.Y()),
			math.Min(a.Min.Z(), other.Min.Z()),
		},
		Max: mgl64.Vec3{
			math.Max(a.Max.X(), other.Max.X()),
			math.Max(a.Max.Y(), other.Max.Y()),
			math.Max(a.Max.Z(), other.Max.Z()),
		},
	}
}

// SurfaceArea returns the total area of the six box faces.
// It is the cost metric used by the dynamic tree insertion heuristic.
func (a AABB) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2.0 * (d.X()*d.Y() + d.Y()*d.Z() + d.Z()*d.X())
}

// Extend grows the AABB by the same margin on all sides
func (a AABB) Extend(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{
		Min: a.Min.Sub(m),
		Max: a.Max.Add(m),
	}
}
