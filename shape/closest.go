package shape

import "github.com/go-gl/mathgl/mgl64"

// ClosestPointOnSegment returns the point of the segment closest to q.
func ClosestPointOnSegment(s Segment, q mgl64.Vec3) mgl64.Vec3 {
	ab := s.B.Sub(s.A)
	den := ab.Dot(ab)
	if den < 1e-12 {
		// Degenerate segment.
		return s.A
	}

	t := q.Sub(s.A).Dot(ab) / den
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return s.A.Add(ab.Mul(t))
}

// ClosestPointsSegments returns the pair of closest points between two
// segments. Zero-length segments fall back to point-versus-segment queries
// and near-parallel segments are resolved by clamping against one segment
// first, so the result is always well defined.
func ClosestPointsSegments(s1, s2 Segment) (mgl64.Vec3, mgl64.Vec3) {
	d1 := s1.B.Sub(s1.A)
	d2 := s2.B.Sub(s2.A)
	r := s1.A.Sub(s2.A)

	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	// Both segments degenerate to points.
	if a < 1e-12 && e < 1e-12 {
		return s1.A, s2.A
	}
	if a < 1e-12 {
		return s1.A, ClosestPointOnSegment(s2, s1.A)
	}
	if e < 1e-12 {
		return ClosestPointOnSegment(s1, s2.A), s2.A
	}

	b := d1.Dot(d2)
	c := d1.Dot(r)
	den := a*e - b*b

	// For parallel segments den vanishes; start from s = 0 and let the
	// clamping passes below pick a consistent pair.
	s := 0.0
	if den > 1e-12 {
		s = clamp01((b*f - c*e) / den)
	}

	t := (b*s + f) / e
	// If t lands outside s2, clamp t and recompute s against s1.
	if t < 0 {
		t = 0
		s = clamp01(-c / a)
	} else if t > 1 {
		t = 1
		s = clamp01((b - c) / a)
	}

	return s1.A.Add(d1.Mul(s)), s2.A.Add(d2.Mul(t))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PerpendicularTo returns an arbitrary unit vector orthogonal to v.
func PerpendicularTo(v mgl64.Vec3) mgl64.Vec3 {
	// Pick the axis least aligned with v to keep the cross product stable.
	other := mgl64.Vec3{1, 0, 0}
	if abs(v.X()) > abs(v.Y()) {
		other = mgl64.Vec3{0, 1, 0}
	}
	return v.Cross(other).Normalize()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
