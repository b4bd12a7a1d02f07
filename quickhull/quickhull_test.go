package quickhull

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func cubeCorners(h float64) []mgl64.Vec3 {
	var out []mgl64.Vec3
	for _, x := range []float64{-h, h} {
		for _, y := range []float64{-h, h} {
			for _, z := range []float64{-h, h} {
				out = append(out, mgl64.Vec3{x, y, z})
			}
		}
	}
	return out
}

func countFaces(h *Hull) int {
	count := 0
	for f := h.Faces; f != nil; f = f.next {
		count++
	}
	return count
}

// containsPoints verifies every input point is on or inside the hull within
// the construction tolerance.
func containsPoints(t *testing.T, h *Hull, points []mgl64.Vec3) {
	t.Helper()
	for i, p := range points {
		for f := h.Faces; f != nil; f = f.next {
			if d := f.Plane.DistanceTo(p); d > h.Tolerance+1e-9 {
				t.Errorf("Point %d at %v is outside a hull face by %v", i, p, d)
			}
		}
	}
}

func TestNewCube(t *testing.T) {
	points := cubeCorners(1)

	h, err := New(points)
	if err != nil {
		t.Fatalf("Expected a hull from the cube corners, got %v", err)
	}

	if !h.IsConsistent() {
		t.Error("Expected a consistent half-edge mesh")
	}
	if got := countFaces(h); got != 6 {
		t.Errorf("Expected coplanar triangles merged into 6 faces, got %v", got)
	}
	containsPoints(t, h, points)

	// Every face ring must lie on its own plane.
	for f := h.Faces; f != nil; f = f.next {
		e := f.Edge
		for {
			if d := math.Abs(f.Plane.DistanceTo(e.Tail.Position)); d > h.Tolerance+1e-9 {
				t.Errorf("Ring vertex %v is off its face plane by %v", e.Tail.Position, d)
			}
			e = e.Next
			if e == f.Edge {
				break
			}
		}
	}
}

func TestNewDropsInteriorPoints(t *testing.T) {
	points := cubeCorners(1)
	points = append(points,
		mgl64.Vec3{0, 0, 0},
		mgl64.Vec3{0.5, 0.25, -0.5},
		mgl64.Vec3{-0.9, 0.9, 0.1},
	)

	h, err := New(points)
	if err != nil {
		t.Fatalf("Expected a hull, got %v", err)
	}

	vertices, rings := h.Collect()
	if len(vertices) != 8 {
		t.Errorf("Expected only the 8 corners on the hull, got %v vertices", len(vertices))
	}
	if len(rings) != 6 {
		t.Errorf("Expected 6 faces, got %v", len(rings))
	}
	containsPoints(t, h, points)
}

func TestNewRandomCloud(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := make([]mgl64.Vec3, 64)
	for i := range points {
		points[i] = mgl64.Vec3{
			rng.Float64()*2 - 1,
			rng.Float64()*2 - 1,
			rng.Float64()*2 - 1,
		}
	}

	h, err := New(points)
	if err != nil {
		t.Fatalf("Expected a hull from the random cloud, got %v", err)
	}
	if !h.IsConsistent() {
		t.Error("Expected a consistent half-edge mesh")
	}
	containsPoints(t, h, points)

	// Every hull vertex must be one of the input points.
	vertices, _ := h.Collect()
	for _, v := range vertices {
		found := false
		for _, p := range points {
			if v == p {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Hull vertex %v is not an input point", v)
		}
	}
}

func TestBuild(t *testing.T) {
	hull, err := Build(cubeCorners(1))
	if err != nil {
		t.Fatalf("Expected a collision hull, got %v", err)
	}

	if len(hull.Vertices) != 8 {
		t.Errorf("Expected 8 vertices, got %v", len(hull.Vertices))
	}
	if len(hull.Faces) != 6 {
		t.Errorf("Expected 6 faces, got %v", len(hull.Faces))
	}
	if len(hull.Edges) != 24 {
		t.Errorf("Expected 24 half-edges, got %v", len(hull.Edges))
	}
	hull.Validate()

	// The support point along each axis reaches the cube extent.
	for _, direction := range []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		if d := hull.Support(direction).Dot(direction); math.Abs(d-1) > 1e-12 {
			t.Errorf("Expected support extent 1 along %v, got %v", direction, d)
		}
	}
}

func TestDegenerateInputs(t *testing.T) {
	t.Run("too few points", func(t *testing.T) {
		_, err := New([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
		if !errors.Is(err, ErrTooFewPoints) {
			t.Errorf("Expected ErrTooFewPoints, got %v", err)
		}
	})

	t.Run("coincident points", func(t *testing.T) {
		p := mgl64.Vec3{1, 2, 3}
		_, err := New([]mgl64.Vec3{p, p, p, p})
		if !errors.Is(err, ErrCoincident) {
			t.Errorf("Expected ErrCoincident, got %v", err)
		}
	})

	t.Run("colinear points", func(t *testing.T) {
		_, err := New([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}})
		if !errors.Is(err, ErrColinear) {
			t.Errorf("Expected ErrColinear, got %v", err)
		}
	})

	t.Run("coplanar points", func(t *testing.T) {
		_, err := New([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
		if !errors.Is(err, ErrCoplanar) {
			t.Errorf("Expected ErrCoplanar, got %v", err)
		}
	})

	t.Run("build propagates construction errors", func(t *testing.T) {
		_, err := Build([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
		if !errors.Is(err, ErrCoplanar) {
			t.Errorf("Expected ErrCoplanar from Build, got %v", err)
		}
	})
}
