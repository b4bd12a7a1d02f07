// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) distance algorithm
// using Voronoi regions and barycentric coordinates.
//
// GJK computes the minimum distance and the closest points between two convex
// point clouds by refining a simplex on their Minkowski difference. A
// SimplexCache persists the simplex between queries so that a slowly moving
// pair resumes near the previous solution instead of restarting from scratch,
// which is the property that makes continuous narrow phase queries cheap.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance
//     Between Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"math"

	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

const epsilon = 1e-12

// Proxy encapsulates a convex shape as a vertex cloud plus an optional
// surface radius. Spheres reduce to a single vertex, capsules to two.
type Proxy struct {
	Vertices []mgl64.Vec3
	Radius   float64
}

// SupportIndex returns the index of the vertex furthest along the direction.
func (p *Proxy) SupportIndex(direction mgl64.Vec3) int {
	best := 0
	bestDot := p.Vertices[0].Dot(direction)
	for i := 1; i < len(p.Vertices); i++ {
		if d := p.Vertices[i].Dot(direction); d > bestDot {
			bestDot = d
			best = i
		}
	}
	return best
}

// Vertex returns the vertex at the given index.
func (p *Proxy) Vertex(index int) mgl64.Vec3 {
	return p.Vertices[index]
}

// SimplexCache stores the support indices and the size metric of the previous
// query's simplex. Set Count to zero for a cold start; the cache is refreshed
// on every query.
type SimplexCache struct {
	Metric float64
	Count  int
	Index1 [4]uint8 // support indices on proxy 1
	Index2 [4]uint8 // support indices on proxy 2
}

// Output reports the closest points in world space and their distance.
// Distance is zero when the proxies overlap.
type Output struct {
	Point1     mgl64.Vec3
	Point2     mgl64.Vec3
	Distance   float64
	Iterations int
}

type simplexVertex struct {
	point1 mgl64.Vec3 // support point on proxy 1 in world space
	point2 mgl64.Vec3 // support point on proxy 2 in world space
	point  mgl64.Vec3 // point2 - point1, in the Minkowski difference
	weight float64    // barycentric weight of the closest point
	index1 int
	index2 int
}

type simplex struct {
	vertices [4]simplexVertex
	count    int
}

// Distance computes the closest points between two convex proxies.
//
// When applyRadius is set the proxy radii are subtracted from the result: the
// witness points move to the outer surfaces, or collapse to the midpoint with
// a zero distance when the inflated shapes overlap.
//
// The cache is read to warm-start the simplex and rewritten with the final
// simplex before returning. Passing a zeroed cache is always valid.
func Distance(xf1 shape.Transform, proxy1 *Proxy, xf2 shape.Transform, proxy2 *Proxy, applyRadius bool, cache *SimplexCache) Output {
	var s simplex
	s.readCache(cache, xf1, proxy1, xf2, proxy2)

	// Support indices of the previous iteration, used to detect
	// duplicate support points and stop before cycling.
	var save1, save2 [4]int

	const maxIterations = 20

	iterations := 0
	for iterations < maxIterations {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			save1[i] = s.vertices[i].index1
			save2[i] = s.vertices[i].index2
		}

		// Find the feature of the simplex closest to the origin and
		// drop the vertices that do not support it.
		switch s.count {
		case 1:
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		case 4:
			s.solve4()
		}

		// A full tetrahedron contains the origin: overlap.
		if s.count == 4 {
			break
		}

		direction := s.searchDirection()
		if direction.Dot(direction) < epsilon*epsilon {
			// The origin lies on a simplex feature; treat as touching.
			break
		}

		// Tentative new vertex from the support mapping.
		vertex := &s.vertices[s.count]
		vertex.index1 = proxy1.SupportIndex(xf1.RotateDirInverse(direction.Mul(-1)))
		vertex.point1 = xf1.Apply(proxy1.Vertex(vertex.index1))
		vertex.index2 = proxy2.SupportIndex(xf2.RotateDirInverse(direction))
		vertex.point2 = xf2.Apply(proxy2.Vertex(vertex.index2))
		vertex.point = vertex.point2.Sub(vertex.point1)

		iterations++

		// A repeated support point means the simplex cannot get any
		// closer to the origin. This is the main termination criterion.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vertex.index1 == save1[i] && vertex.index2 == save2[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		s.count++
	}

	var out Output
	out.Point1, out.Point2 = s.closestPoints()
	out.Distance = out.Point2.Sub(out.Point1).Len()
	out.Iterations = iterations

	s.writeCache(cache)

	if applyRadius {
		r1 := proxy1.Radius
		r2 := proxy2.Radius

		if out.Distance > r1+r2 && out.Distance > epsilon {
			// Still separated: move the witness points to the surfaces.
			out.Distance -= r1 + r2
			normal := out.Point2.Sub(out.Point1).Normalize()
			out.Point1 = out.Point1.Add(normal.Mul(r1))
			out.Point2 = out.Point2.Sub(normal.Mul(r2))
		} else {
			// Overlapped once the radii are considered: collapse the
			// witness points to the midpoint.
			p := out.Point1.Add(out.Point2).Mul(0.5)
			out.Point1 = p
			out.Point2 = p
			out.Distance = 0
		}
	}

	return out
}

// readCache seeds the simplex from the previous query. If the cached simplex
// metric differs too much from the value recomputed with the current
// transforms, the cache is stale and the simplex restarts from one vertex.
func (s *simplex) readCache(cache *SimplexCache, xf1 shape.Transform, proxy1 *Proxy, xf2 shape.Transform, proxy2 *Proxy) {
	s.count = cache.Count
	for i := 0; i < s.count; i++ {
		v := &s.vertices[i]
		v.index1 = int(cache.Index1[i])
		v.index2 = int(cache.Index2[i])
		v.point1 = xf1.Apply(proxy1.Vertex(v.index1))
		v.point2 = xf2.Apply(proxy2.Vertex(v.index2))
		v.point = v.point2.Sub(v.point1)
		v.weight = 0
	}

	if s.count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < epsilon {
			// Flush the stale simplex.
			s.count = 0
		}
	}

	if s.count == 0 {
		v := &s.vertices[0]
		v.index1 = 0
		v.index2 = 0
		v.point1 = xf1.Apply(proxy1.Vertex(0))
		v.point2 = xf2.Apply(proxy2.Vertex(0))
		v.point = v.point2.Sub(v.point1)
		v.weight = 1
		s.count = 1
	}
}

func (s *simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.count
	for i := 0; i < s.count; i++ {
		cache.Index1[i] = uint8(s.vertices[i].index1)
		cache.Index2[i] = uint8(s.vertices[i].index2)
	}
}

// metric measures the simplex size: segment length, triangle area or
// tetrahedron volume. Comparable metrics between frames mean the cached
// simplex is still representative.
func (s *simplex) metric() float64 {
	switch s.count {
	case 1:
		return 0
	case 2:
		return s.vertices[1].point.Sub(s.vertices[0].point).Len()
	case 3:
		e1 := s.vertices[1].point.Sub(s.vertices[0].point)
		e2 := s.vertices[2].point.Sub(s.vertices[0].point)
		return e1.Cross(e2).Len()
	case 4:
		e1 := s.vertices[1].point.Sub(s.vertices[0].point)
		e2 := s.vertices[2].point.Sub(s.vertices[0].point)
		e3 := s.vertices[3].point.Sub(s.vertices[0].point)
		return math.Abs(det(e1, e2, e3))
	}
	return 0
}

// searchDirection returns the direction from the closest simplex feature
// toward the origin.
func (s *simplex) searchDirection() mgl64.Vec3 {
	switch s.count {
	case 1:
		return s.vertices[0].point.Mul(-1)
	case 2:
		a := s.vertices[0].point
		b := s.vertices[1].point
		ab := b.Sub(a)
		ao := a.Mul(-1)
		return ab.Cross(ao).Cross(ab)
	case 3:
		a := s.vertices[0].point
		b := s.vertices[1].point
		c := s.vertices[2].point
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Dot(a) > 0 {
			return n.Mul(-1)
		}
		return n
	}
	return mgl64.Vec3{}
}

func (s *simplex) closestPoints() (mgl64.Vec3, mgl64.Vec3) {
	switch s.count {
	case 1:
		return s.vertices[0].point1, s.vertices[0].point2
	case 2:
		p1 := s.vertices[0].point1.Mul(s.vertices[0].weight).Add(s.vertices[1].point1.Mul(s.vertices[1].weight))
		p2 := s.vertices[0].point2.Mul(s.vertices[0].weight).Add(s.vertices[1].point2.Mul(s.vertices[1].weight))
		return p1, p2
	case 3:
		p1 := s.vertices[0].point1.Mul(s.vertices[0].weight).
			Add(s.vertices[1].point1.Mul(s.vertices[1].weight)).
			Add(s.vertices[2].point1.Mul(s.vertices[2].weight))
		p2 := s.vertices[0].point2.Mul(s.vertices[0].weight).
			Add(s.vertices[1].point2.Mul(s.vertices[1].weight)).
			Add(s.vertices[2].point2.Mul(s.vertices[2].weight))
		return p1, p2
	case 4:
		// Overlap: both witness points coincide inside the intersection.
		p1 := s.vertices[0].point1.Mul(s.vertices[0].weight).
			Add(s.vertices[1].point1.Mul(s.vertices[1].weight)).
			Add(s.vertices[2].point1.Mul(s.vertices[2].weight)).
			Add(s.vertices[3].point1.Mul(s.vertices[3].weight))
		return p1, p1
	}
	return mgl64.Vec3{}, mgl64.Vec3{}
}

// barycentric2 expresses the origin's projection on segment AB.
// out[0], out[1] are the unnormalized weights of A and B, out[2] the divisor.
func barycentric2(a, b mgl64.Vec3) [3]float64 {
	ab := b.Sub(a)
	var out [3]float64
	out[0] = b.Dot(ab) // weight of A grows as the origin approaches A
	out[1] = -a.Dot(ab)
	out[2] = out[0] + out[1]
	return out
}

// barycentric3 expresses the origin's projection on triangle ABC.
// out[0..2] are the unnormalized weights, out[3] the divisor.
func barycentric3(a, b, c mgl64.Vec3) [4]float64 {
	ab := b.Sub(a)
	ac := c.Sub(a)

	qbqc := b.Cross(c)
	qcqa := c.Cross(a)
	qaqb := a.Cross(b)

	n := ab.Cross(ac)

	var out [4]float64
	out[0] = qbqc.Dot(n)
	out[1] = qcqa.Dot(n)
	out[2] = qaqb.Dot(n)
	out[3] = out[0] + out[1] + out[2]
	return out
}

// barycentric4 expresses the origin inside tetrahedron ABCD.
// out[0..3] are the unnormalized weights, out[4] the (positive) divisor.
func barycentric4(a, b, c, d mgl64.Vec3) [5]float64 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)

	divisor := det(ab, ac, ad)
	sign := 1.0
	if divisor < 0 {
		sign = -1.0
	}

	var out [5]float64
	out[0] = sign * det(b, c, d)
	out[1] = sign * det(a, d, c)
	out[2] = sign * det(a, b, d)
	out[3] = sign * det(a, c, b)
	out[4] = sign * divisor
	return out
}

func det(a, b, c mgl64.Vec3) float64 {
	return a.Dot(b.Cross(c))
}

// solve2 keeps the feature of segment AB closest to the origin.
func (s *simplex) solve2() {
	a := s.vertices[0]
	b := s.vertices[1]

	w := barycentric2(a.point, b.point)

	// Region A
	if w[1] <= 0 {
		s.count = 1
		s.vertices[0] = a
		s.vertices[0].weight = 1
		return
	}

	// Region B
	if w[0] <= 0 {
		s.count = 1
		s.vertices[0] = b
		s.vertices[0].weight = 1
		return
	}

	// Region AB
	inv := 1.0 / w[2]
	s.count = 2
	s.vertices[0] = a
	s.vertices[0].weight = inv * w[0]
	s.vertices[1] = b
	s.vertices[1].weight = inv * w[1]
}

// solve3 keeps the feature of triangle ABC closest to the origin.
// Voronoi regions: A, B, C, AB, BC, CA, interior.
func (s *simplex) solve3() {
	a := s.vertices[0]
	b := s.vertices[1]
	c := s.vertices[2]

	wAB := barycentric2(a.point, b.point)
	wBC := barycentric2(b.point, c.point)
	wCA := barycentric2(c.point, a.point)

	// Region A
	if wAB[1] <= 0 && wCA[0] <= 0 {
		s.count = 1
		s.vertices[0] = a
		s.vertices[0].weight = 1
		return
	}

	// Region B
	if wAB[0] <= 0 && wBC[1] <= 0 {
		s.count = 1
		s.vertices[0] = b
		s.vertices[0].weight = 1
		return
	}

	// Region C
	if wBC[0] <= 0 && wCA[1] <= 0 {
		s.count = 1
		s.vertices[0] = c
		s.vertices[0].weight = 1
		return
	}

	wABC := barycentric3(a.point, b.point, c.point)
	area := wABC[3]

	// Region AB
	if wAB[0] > 0 && wAB[1] > 0 && area*wABC[2] <= 0 {
		inv := 1.0 / wAB[2]
		s.count = 2
		s.vertices[0] = a
		s.vertices[0].weight = inv * wAB[0]
		s.vertices[1] = b
		s.vertices[1].weight = inv * wAB[1]
		return
	}

	// Region BC
	if wBC[0] > 0 && wBC[1] > 0 && area*wABC[0] <= 0 {
		inv := 1.0 / wBC[2]
		s.count = 2
		s.vertices[0] = b
		s.vertices[0].weight = inv * wBC[0]
		s.vertices[1] = c
		s.vertices[1].weight = inv * wBC[1]
		return
	}

	// Region CA
	if wCA[0] > 0 && wCA[1] > 0 && area*wABC[1] <= 0 {
		inv := 1.0 / wCA[2]
		s.count = 2
		s.vertices[0] = c
		s.vertices[0].weight = inv * wCA[0]
		s.vertices[1] = a
		s.vertices[1].weight = inv * wCA[1]
		return
	}

	// Interior, unless the triangle degenerates into a segment.
	if wABC[3] <= 0 {
		return
	}

	inv := 1.0 / wABC[3]
	s.count = 3
	s.vertices[0] = a
	s.vertices[0].weight = inv * wABC[0]
	s.vertices[1] = b
	s.vertices[1].weight = inv * wABC[1]
	s.vertices[2] = c
	s.vertices[2].weight = inv * wABC[2]
}

// solve4 keeps the feature of tetrahedron ABCD closest to the origin.
func (s *simplex) solve4() {
	a := s.vertices[0]
	b := s.vertices[1]
	c := s.vertices[2]
	d := s.vertices[3]

	wAB := barycentric2(a.point, b.point)
	wBC := barycentric2(b.point, c.point)
	wAC := barycentric2(a.point, c.point)
	wAD := barycentric2(a.point, d.point)
	wCD := barycentric2(c.point, d.point)
	wDB := barycentric2(d.point, b.point)

	// Region A
	if wAB[1] <= 0 && wAC[1] <= 0 && wAD[1] <= 0 {
		s.count = 1
		s.vertices[0] = a
		s.vertices[0].weight = 1
		return
	}

	// Region B
	if wAB[0] <= 0 && wDB[0] <= 0 && wBC[1] <= 0 {
		s.count = 1
		s.vertices[0] = b
		s.vertices[0].weight = 1
		return
	}

	// Region C
	if wAC[0] <= 0 && wBC[0] <= 0 && wCD[1] <= 0 {
		s.count = 1
		s.vertices[0] = c
		s.vertices[0].weight = 1
		return
	}

	// Region D
	if wAD[0] <= 0 && wCD[0] <= 0 && wDB[1] <= 0 {
		s.count = 1
		s.vertices[0] = d
		s.vertices[0].weight = 1
		return
	}

	wACB := barycentric3(a.point, c.point, b.point)
	wABD := barycentric3(a.point, b.point, d.point)
	wADC := barycentric3(a.point, d.point, c.point)
	wBCD := barycentric3(b.point, c.point, d.point)

	// Region AB
	if wABD[2] <= 0 && wACB[1] <= 0 && wAB[0] > 0 && wAB[1] > 0 {
		inv := 1.0 / wAB[2]
		s.count = 2
		s.vertices[0] = a
		s.vertices[0].weight = inv * wAB[0]
		s.vertices[1] = b
		s.vertices[1].weight = inv * wAB[1]
		return
	}

	// Region AC
	if wACB[2] <= 0 && wADC[1] <= 0 && wAC[0] > 0 && wAC[1] > 0 {
		inv := 1.0 / wAC[2]
		s.count = 2
		s.vertices[0] = a
		s.vertices[0].weight = inv * wAC[0]
		s.vertices[1] = c
		s.vertices[1].weight = inv * wAC[1]
		return
	}

	// Region AD
	if wADC[2] <= 0 && wABD[1] <= 0 && wAD[0] > 0 && wAD[1] > 0 {
		inv := 1.0 / wAD[2]
		s.count = 2
		s.vertices[0] = a
		s.vertices[0].weight = inv * wAD[0]
		s.vertices[1] = d
		s.vertices[1].weight = inv * wAD[1]
		return
	}

	// Region BC
	if wACB[0] <= 0 && wBCD[2] <= 0 && wBC[0] > 0 && wBC[1] > 0 {
		inv := 1.0 / wBC[2]
		s.count = 2
		s.vertices[0] = b
		s.vertices[0].weight = inv * wBC[0]
		s.vertices[1] = c
		s.vertices[1].weight = inv * wBC[1]
		return
	}

	// Region CD
	if wADC[0] <= 0 && wBCD[0] <= 0 && wCD[0] > 0 && wCD[1] > 0 {
		inv := 1.0 / wCD[2]
		s.count = 2
		s.vertices[0] = c
		s.vertices[0].weight = inv * wCD[0]
		s.vertices[1] = d
		s.vertices[1].weight = inv * wCD[1]
		return
	}

	// Region DB
	if wABD[0] <= 0 && wBCD[1] <= 0 && wDB[0] > 0 && wDB[1] > 0 {
		inv := 1.0 / wDB[2]
		s.count = 2
		s.vertices[0] = d
		s.vertices[0].weight = inv * wDB[0]
		s.vertices[1] = b
		s.vertices[1].weight = inv * wDB[1]
		return
	}

	wABCD := barycentric4(a.point, b.point, c.point, d.point)

	// Region ACB
	if wABCD[3] <= 0 && wACB[0] > 0 && wACB[1] > 0 && wACB[2] > 0 {
		inv := 1.0 / (wACB[0] + wACB[1] + wACB[2])
		s.count = 3
		s.vertices[0] = a
		s.vertices[0].weight = inv * wACB[0]
		s.vertices[1] = c
		s.vertices[1].weight = inv * wACB[1]
		s.vertices[2] = b
		s.vertices[2].weight = inv * wACB[2]
		return
	}

	// Region ABD
	if wABCD[2] <= 0 && wABD[0] > 0 && wABD[1] > 0 && wABD[2] > 0 {
		inv := 1.0 / (wABD[0] + wABD[1] + wABD[2])
		s.count = 3
		s.vertices[0] = a
		s.vertices[0].weight = inv * wABD[0]
		s.vertices[1] = b
		s.vertices[1].weight = inv * wABD[1]
		s.vertices[2] = d
		s.vertices[2].weight = inv * wABD[2]
		return
	}

	// Region ADC
	if wABCD[1] <= 0 && wADC[0] > 0 && wADC[1] > 0 && wADC[2] > 0 {
		inv := 1.0 / (wADC[0] + wADC[1] + wADC[2])
		s.count = 3
		s.vertices[0] = a
		s.vertices[0].weight = inv * wADC[0]
		s.vertices[1] = d
		s.vertices[1].weight = inv * wADC[1]
		s.vertices[2] = c
		s.vertices[2].weight = inv * wADC[2]
		return
	}

	// Region BCD
	if wABCD[0] <= 0 && wBCD[0] > 0 && wBCD[1] > 0 && wBCD[2] > 0 {
		inv := 1.0 / (wBCD[0] + wBCD[1] + wBCD[2])
		s.count = 3
		s.vertices[0] = b
		s.vertices[0].weight = inv * wBCD[0]
		s.vertices[1] = c
		s.vertices[1].weight = inv * wBCD[1]
		s.vertices[2] = d
		s.vertices[2].weight = inv * wBCD[2]
		return
	}

	// Interior, unless the tetrahedron degenerates into a plane.
	divisor := wABCD[0] + wABCD[1] + wABCD[2] + wABCD[3]
	if divisor <= 0 {
		return
	}

	inv := 1.0 / divisor
	s.count = 4
	s.vertices[0].weight = inv * wABCD[0]
	s.vertices[1].weight = inv * wABCD[1]
	s.vertices[2].weight = inv * wABCD[2]
	s.vertices[3].weight = inv * wABCD[3]
}
