package gjk

import (
	"math"
	"testing"

	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

func boxProxy(hx, hy, hz float64) *Proxy {
	hull := shape.NewBox(hx, hy, hz)
	return &Proxy{Vertices: hull.Vertices}
}

func pointProxy(p mgl64.Vec3, radius float64) *Proxy {
	return &Proxy{Vertices: []mgl64.Vec3{p}, Radius: radius}
}

func transformAt(x, y, z float64) shape.Transform {
	return shape.Transform{Position: mgl64.Vec3{x, y, z}, Rotation: mgl64.QuatIdent()}
}

func TestDistance(t *testing.T) {
	t.Run("separated unit boxes along x", func(t *testing.T) {
		var cache SimplexCache
		out := Distance(transformAt(0, 0, 0), boxProxy(1, 1, 1), transformAt(3, 0, 0), boxProxy(1, 1, 1), false, &cache)

		if math.Abs(out.Distance-1.0) > 1e-9 {
			t.Errorf("Expected distance 1, got %v", out.Distance)
		}
		if math.Abs(out.Point1.X()-1.0) > 1e-9 {
			t.Errorf("Expected witness on face x=1, got %v", out.Point1)
		}
		if math.Abs(out.Point2.X()-2.0) > 1e-9 {
			t.Errorf("Expected witness on face x=2, got %v", out.Point2)
		}
	})

	t.Run("overlapping boxes report zero distance", func(t *testing.T) {
		var cache SimplexCache
		out := Distance(transformAt(0, 0, 0), boxProxy(1, 1, 1), transformAt(1.5, 0, 0), boxProxy(1, 1, 1), false, &cache)

		if out.Distance > 1e-9 {
			t.Errorf("Expected zero distance for overlapping boxes, got %v", out.Distance)
		}
	})

	t.Run("point versus box", func(t *testing.T) {
		var cache SimplexCache
		out := Distance(transformAt(0, 5, 0), pointProxy(mgl64.Vec3{0, 0, 0}, 0), transformAt(0, 0, 0), boxProxy(1, 1, 1), false, &cache)

		if math.Abs(out.Distance-4.0) > 1e-9 {
			t.Errorf("Expected distance 4, got %v", out.Distance)
		}
	})

	t.Run("radius application shrinks the distance", func(t *testing.T) {
		var cache SimplexCache
		p1 := pointProxy(mgl64.Vec3{0, 0, 0}, 1.0)
		p2 := pointProxy(mgl64.Vec3{0, 0, 0}, 1.0)
		out := Distance(transformAt(0, 0, 0), p1, transformAt(5, 0, 0), p2, true, &cache)

		if math.Abs(out.Distance-3.0) > 1e-9 {
			t.Errorf("Expected surface distance 3 for two unit spheres 5 apart, got %v", out.Distance)
		}
		if math.Abs(out.Point1.X()-1.0) > 1e-9 || math.Abs(out.Point2.X()-4.0) > 1e-9 {
			t.Errorf("Expected witness points on the sphere surfaces, got %v and %v", out.Point1, out.Point2)
		}
	})

	t.Run("diagonal separation", func(t *testing.T) {
		var cache SimplexCache
		out := Distance(transformAt(0, 0, 0), boxProxy(1, 1, 1), transformAt(3, 3, 0), boxProxy(1, 1, 1), false, &cache)

		// Closest features are the corners (1,1,z) and (2,2,z).
		want := math.Sqrt2
		if math.Abs(out.Distance-want) > 1e-9 {
			t.Errorf("Expected distance %v, got %v", want, out.Distance)
		}
	})
}

func TestDistanceWarmStart(t *testing.T) {
	proxy1 := boxProxy(1, 1, 1)
	proxy2 := boxProxy(1, 1, 1)

	var cache SimplexCache
	cold := Distance(transformAt(0, 0, 0), proxy1, transformAt(3, 0.5, 0), proxy2, false, &cache)

	if cache.Count == 0 {
		t.Fatal("Expected the cache to hold a simplex after the first query")
	}

	// Re-run the same query warm. The result must not change and the warm
	// start should converge at least as fast.
	warm := Distance(transformAt(0, 0, 0), proxy1, transformAt(3, 0.5, 0), proxy2, false, &cache)

	if math.Abs(cold.Distance-warm.Distance) > 1e-9 {
		t.Errorf("Warm start changed the distance: %v vs %v", cold.Distance, warm.Distance)
	}
	if warm.Iterations > cold.Iterations {
		t.Errorf("Expected warm start to converge in at most %d iterations, took %d", cold.Iterations, warm.Iterations)
	}

	// A slightly moved query still benefits from the cached simplex.
	moved := Distance(transformAt(0, 0, 0), proxy1, transformAt(3.01, 0.5, 0), proxy2, false, &cache)
	if math.Abs(moved.Distance-(warm.Distance+0.01)) > 1e-9 {
		t.Errorf("Expected distance %v after moving apart, got %v", warm.Distance+0.01, moved.Distance)
	}
}

func TestDistanceMatchesBruteForce(t *testing.T) {
	// Distance between two boxes equals the minimum vertex-face distance
	// computed by dense sampling of support directions. Here a rotated box
	// so the answer is not axis aligned.
	xf1 := shape.Transform{Position: mgl64.Vec3{0, 0, 0}, Rotation: mgl64.QuatIdent()}
	xf2 := shape.Transform{
		Position: mgl64.Vec3{4, 0, 0},
		Rotation: mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1}),
	}

	var cache SimplexCache
	out := Distance(xf1, boxProxy(1, 1, 1), xf2, boxProxy(1, 1, 1), false, &cache)

	// The rotated box's corner points at the first box's face: the gap is
	// 4 - 1 - sqrt(2).
	want := 4.0 - 1.0 - math.Sqrt2
	if math.Abs(out.Distance-want) > 1e-9 {
		t.Errorf("Expected distance %v, got %v", want, out.Distance)
	}

	// Witness points straddle the gap along x.
	gap := out.Point2.Sub(out.Point1)
	if math.Abs(gap.Len()-want) > 1e-9 {
		t.Errorf("Witness point distance %v does not match reported distance %v", gap.Len(), want)
	}
}
