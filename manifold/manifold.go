// Package manifold builds contact manifolds for pairs of convex shapes.
//
// Each shape-pair type has its own routine composing the separating-axis
// queries, the GJK distance query and the clipping pipeline into a final set
// of contact points. A ConvexCache persists per pair across simulation steps
// and makes the common almost-still case cheap: the cached feature or simplex
// usually re-certifies the pair without a full sweep.
package manifold

import (
	"github.com/akmonengine/collide/clip"
	"github.com/akmonengine/collide/gjk"
	"github.com/akmonengine/collide/sat"
	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxPoints is the maximum number of contact points of a manifold. Four
// points are enough to stabilize a face-face contact; larger clip polygons
// are reduced.
const MaxPoints = 4

// NullTriangle marks manifold points that did not come from a mesh triangle.
const NullTriangle = ^uint32(0)

const (
	// linearSlop is the collision tolerance in length units.
	linearSlop = 0.005

	// faceBias favors face separating axes over edge axes of comparable
	// magnitude: face contacts produce multi-point manifolds that are far
	// more stable than single-point edge contacts. One tenth of the slop
	// keeps the preference below any observable penetration.
	faceBias = 0.1 * linearSlop

	epsilon = 1e-9
)

// Point is a single contact point of a manifold. Positions and normals are
// stored in each body's local frame so that a solver can re-derive world
// coordinates from fresh transforms. Key is the packed feature-pair identity
// used to match the point against the previous step's manifold.
type Point struct {
	// LocalNormal1 points from shape 1 toward shape 2, in shape 1's frame.
	LocalNormal1 mgl64.Vec3
	LocalPoint1  mgl64.Vec3
	LocalPoint2  mgl64.Vec3
	TriangleKey  uint32
	Key          uint32
}

// Manifold is the set of contact points describing how two shapes touch.
type Manifold struct {
	Points [MaxPoints]Point
	Count  int
}

// ConvexCache persists the narrow phase state of a shape pair between steps:
// the GJK simplex and the winning separating-axis feature. One instance
// belongs to exactly one pair; it is created when a broad phase overlap first
// appears and destroyed when the pair separates. At most one goroutine may
// use a cache at a time.
type ConvexCache struct {
	Simplex gjk.SimplexCache
	Feature sat.FeatureCache
}

// Collide dispatches to the routine matching the two shape types and fills
// the manifold. Unsupported pairs (anything involving a mesh) leave the
// manifold empty; mesh narrow phase is performed per triangle by the caller.
func Collide(m *Manifold, xf1 shape.Transform, s1 shape.Shape, xf2 shape.Transform, s2 shape.Shape, cache *ConvexCache) {
	m.Count = 0

	// Canonical order: sphere < capsule < hull. Reversed pairs are
	// computed with the roles swapped and flipped back.
	if s1.Type() > s2.Type() {
		var swapped Manifold
		Collide(&swapped, xf2, s2, xf1, s1, cache)
		flipManifold(m, &swapped, xf1, xf2)
		return
	}

	switch a := s1.(type) {
	case *shape.Sphere:
		switch b := s2.(type) {
		case *shape.Sphere:
			CollideSpheres(m, xf1, a, xf2, b)
		case *shape.Capsule:
			CollideSphereAndCapsule(m, xf1, a, xf2, b)
		case *shape.Hull:
			CollideSphereAndHull(m, xf1, a, xf2, b, cache)
		}
	case *shape.Capsule:
		switch b := s2.(type) {
		case *shape.Capsule:
			CollideCapsules(m, xf1, a, xf2, b)
		case *shape.Hull:
			CollideCapsuleAndHull(m, xf1, a, xf2, b, cache)
		}
	case *shape.Hull:
		if b, ok := s2.(*shape.Hull); ok {
			CollideHulls(m, xf1, a, xf2, b, cache)
		}
	}
}

// flipManifold rewrites a manifold computed with swapped shape roles back
// into the caller's order. xf1 and xf2 are the caller's transforms.
func flipManifold(m *Manifold, swapped *Manifold, xf1, xf2 shape.Transform) {
	m.Count = swapped.Count
	for i := 0; i < swapped.Count; i++ {
		p := swapped.Points[i]
		worldNormal := xf2.RotateDir(p.LocalNormal1)
		m.Points[i] = Point{
			LocalNormal1: xf1.RotateDirInverse(worldNormal.Mul(-1)),
			LocalPoint1:  p.LocalPoint2,
			LocalPoint2:  p.LocalPoint1,
			TriangleKey:  p.TriangleKey,
			Key:          clip.PairFromKey(p.Key).Flipped().Key(),
		}
	}
}

func hullProxy(h *shape.Hull) *gjk.Proxy {
	return &gjk.Proxy{Vertices: h.Vertices, Radius: h.Radius}
}
