package manifold

import (
	"math"

	"github.com/akmonengine/collide/gjk"
	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// CollideSpheres builds the manifold of two spheres: a direct center
// distance test yielding zero or one contact point.
func CollideSpheres(m *Manifold, xf1 shape.Transform, s1 *shape.Sphere, xf2 shape.Transform, s2 *shape.Sphere) {
	m.Count = 0

	c1 := xf1.Apply(s1.Center)
	c2 := xf2.Apply(s2.Center)
	d := c2.Sub(c1)
	distance := d.Len()

	if distance > s1.Radius+s2.Radius {
		return
	}

	normal := mgl64.Vec3{1, 0, 0}
	if distance > epsilon {
		normal = d.Mul(1.0 / distance)
	}

	m.Count = 1
	m.Points[0] = Point{
		LocalNormal1: xf1.RotateDirInverse(normal),
		LocalPoint1:  s1.Center,
		LocalPoint2:  s2.Center,
		TriangleKey:  NullTriangle,
		Key:          0,
	}
}

// CollideSphereAndCapsule tests the sphere center against the capsule's
// medial segment.
func CollideSphereAndCapsule(m *Manifold, xf1 shape.Transform, s1 *shape.Sphere, xf2 shape.Transform, s2 *shape.Capsule) {
	m.Count = 0

	center := xf1.Apply(s1.Center)
	segment := shape.Segment{
		A: xf2.Apply(s2.Segment.A),
		B: xf2.Apply(s2.Segment.B),
	}

	closest := shape.ClosestPointOnSegment(segment, center)
	d := closest.Sub(center)
	distance := d.Len()

	if distance > s1.Radius+s2.Radius {
		return
	}

	normal := shape.PerpendicularTo(segment.B.Sub(segment.A))
	if distance > epsilon {
		normal = d.Mul(1.0 / distance)
	}

	m.Count = 1
	m.Points[0] = Point{
		LocalNormal1: xf1.RotateDirInverse(normal),
		LocalPoint1:  s1.Center,
		LocalPoint2:  xf2.ApplyInverse(closest),
		TriangleKey:  NullTriangle,
		Key:          0,
	}
}

// CollideSphereAndHull reduces the sphere to a point and runs a warm-started
// distance query against the hull. A deep center falls back to the hull face
// of minimum penetration since the witness points degenerate.
func CollideSphereAndHull(m *Manifold, xf1 shape.Transform, s1 *shape.Sphere, xf2 shape.Transform, s2 *shape.Hull, cache *ConvexCache) {
	m.Count = 0

	totalRadius := s1.Radius + s2.Radius

	// The GJK simplex cache makes the common separated case nearly free
	// for a slowly moving pair.
	proxy1 := &gjk.Proxy{Vertices: []mgl64.Vec3{s1.Center}, Radius: s1.Radius}
	out := gjk.Distance(xf1, proxy1, xf2, hullProxy(s2), false, &cache.Simplex)

	if out.Distance > totalRadius {
		return
	}

	if out.Distance > epsilon {
		// Shallow contact: the witness points define the normal.
		normal := out.Point2.Sub(out.Point1).Mul(1.0 / out.Distance)

		m.Count = 1
		m.Points[0] = Point{
			LocalNormal1: xf1.RotateDirInverse(normal),
			LocalPoint1:  s1.Center,
			LocalPoint2:  xf2.ApplyInverse(out.Point2),
			TriangleKey:  NullTriangle,
			Key:          0,
		}
		return
	}

	// The center is inside the hull. Use the face of minimum penetration.
	center := xf2.ApplyInverse(xf1.Apply(s1.Center))
	bestFace := 0
	bestSeparation := -math.MaxFloat64
	for i, plane := range s2.Planes {
		if separation := plane.DistanceTo(center); separation > bestSeparation {
			bestFace = i
			bestSeparation = separation
		}
	}

	plane := s2.Planes[bestFace]
	normal := xf2.RotateDir(plane.Normal)

	m.Count = 1
	m.Points[0] = Point{
		// The outward face normal points from the hull toward the
		// escaping sphere, so the 1-to-2 normal is its negation.
		LocalNormal1: xf1.RotateDirInverse(normal.Mul(-1)),
		LocalPoint1:  s1.Center,
		LocalPoint2:  plane.ClosestPoint(center),
		TriangleKey:  NullTriangle,
		Key:          0,
	}
}
