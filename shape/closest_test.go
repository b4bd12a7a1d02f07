package shape

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestClosestPointOnSegment(t *testing.T) {
	s := Segment{A: mgl64.Vec3{0, 0, 0}, B: mgl64.Vec3{2, 0, 0}}

	t.Run("projects inside", func(t *testing.T) {
		p := ClosestPointOnSegment(s, mgl64.Vec3{1, 3, 0})
		assert.Equal(t, mgl64.Vec3{1, 0, 0}, p)
	})

	t.Run("clamps to endpoints", func(t *testing.T) {
		assert.Equal(t, s.A, ClosestPointOnSegment(s, mgl64.Vec3{-5, 1, 0}))
		assert.Equal(t, s.B, ClosestPointOnSegment(s, mgl64.Vec3{9, -1, 0}))
	})

	t.Run("degenerate segment", func(t *testing.T) {
		point := Segment{A: mgl64.Vec3{1, 1, 1}, B: mgl64.Vec3{1, 1, 1}}
		assert.Equal(t, point.A, ClosestPointOnSegment(point, mgl64.Vec3{7, 7, 7}))
	})
}

func TestClosestPointsSegments(t *testing.T) {
	t.Run("crossing perpendicular segments", func(t *testing.T) {
		s1 := Segment{A: mgl64.Vec3{-1, 0, 0}, B: mgl64.Vec3{1, 0, 0}}
		s2 := Segment{A: mgl64.Vec3{0, -1, 1}, B: mgl64.Vec3{0, 1, 1}}

		p1, p2 := ClosestPointsSegments(s1, s2)
		assert.InDelta(t, 0, p1.Sub(mgl64.Vec3{0, 0, 0}).Len(), 1e-12)
		assert.InDelta(t, 0, p2.Sub(mgl64.Vec3{0, 0, 1}).Len(), 1e-12)
	})

	t.Run("parallel segments pick overlapping span", func(t *testing.T) {
		s1 := Segment{A: mgl64.Vec3{0, 0, 0}, B: mgl64.Vec3{4, 0, 0}}
		s2 := Segment{A: mgl64.Vec3{2, 1, 0}, B: mgl64.Vec3{6, 1, 0}}

		p1, p2 := ClosestPointsSegments(s1, s2)
		assert.InDelta(t, 1.0, p2.Sub(p1).Len(), 1e-12)
	})

	t.Run("disjoint colinear segments clamp to nearest endpoints", func(t *testing.T) {
		s1 := Segment{A: mgl64.Vec3{0, 0, 0}, B: mgl64.Vec3{1, 0, 0}}
		s2 := Segment{A: mgl64.Vec3{3, 0, 0}, B: mgl64.Vec3{5, 0, 0}}

		p1, p2 := ClosestPointsSegments(s1, s2)
		assert.InDelta(t, 2.0, p2.Sub(p1).Len(), 1e-12)
	})

	t.Run("degenerate first segment", func(t *testing.T) {
		s1 := Segment{A: mgl64.Vec3{0, 2, 0}, B: mgl64.Vec3{0, 2, 0}}
		s2 := Segment{A: mgl64.Vec3{-1, 0, 0}, B: mgl64.Vec3{1, 0, 0}}

		p1, p2 := ClosestPointsSegments(s1, s2)
		assert.Equal(t, s1.A, p1)
		assert.InDelta(t, 0, p2.Sub(mgl64.Vec3{0, 0, 0}).Len(), 1e-12)
	})
}

func TestTransformRoundTrip(t *testing.T) {
	xf := Transform{
		Position: mgl64.Vec3{1, -2, 3},
		Rotation: mgl64.QuatRotate(0.7, mgl64.Vec3{1, 2, 3}.Normalize()),
	}

	p := mgl64.Vec3{0.5, 4, -1}
	assert.InDelta(t, 0, xf.ApplyInverse(xf.Apply(p)).Sub(p).Len(), 1e-12)

	d := mgl64.Vec3{0, 1, 0}
	assert.InDelta(t, 0, xf.RotateDirInverse(xf.RotateDir(d)).Sub(d).Len(), 1e-12)
}

func TestTransformPlane(t *testing.T) {
	xf := Transform{
		Position: mgl64.Vec3{0, 5, 0},
		Rotation: mgl64.QuatIdent(),
	}
	plane := NewPlane(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 0})
	moved := xf.ApplyPlane(plane)

	// The translated plane passes through (0, 6, 0).
	assert.InDelta(t, 0, moved.DistanceTo(mgl64.Vec3{0, 6, 0}), 1e-12)
	assert.InDelta(t, -1.0, moved.DistanceTo(mgl64.Vec3{0, 5, 0}), 1e-12)
}
