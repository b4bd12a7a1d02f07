// Package quickhull builds convex hulls from 3D point clouds with the
// incremental quickhull algorithm on a half-edge mesh.
//
// Construction starts from an extremal tetrahedron and repeatedly absorbs
// the conflict point furthest outside the current hull, replacing every face
// visible from it with a fan of new faces stitched along the horizon. A
// final merge pass absorbs near-coplanar neighbors so the output has clean
// polygonal faces instead of triangle slivers.
package quickhull

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// Degenerate point clouds abort construction with one of these errors.
var (
	ErrTooFewPoints = errors.New("quickhull: fewer than four input points")
	ErrCoincident   = errors.New("quickhull: extremal points are coincident")
	ErrColinear     = errors.New("quickhull: input points are colinear")
	ErrCoplanar     = errors.New("quickhull: input points are coplanar")
)

const linearSlop = 0.005

// Vertex is a point of the cloud. While unabsorbed it lives on the conflict
// list of the face it is furthest outside of.
type Vertex struct {
	Position mgl64.Vec3

	conflictFace *Face
	next         *Vertex
}

// HalfEdge is one direction of an edge of the hull mesh.
type HalfEdge struct {
	Tail *Vertex
	Prev *HalfEdge
	Next *HalfEdge
	Twin *HalfEdge
	Face *Face
}

type faceState int

const (
	faceInvisible faceState = iota
	faceVisible
	faceDeleted
)

// Face is a polygonal face of the hull mesh. Faces own the conflict list of
// points still outside them.
type Face struct {
	Edge   *HalfEdge
	Center mgl64.Vec3
	Plane  shape.Plane

	state        faceState
	conflictHead *Vertex

	prev *Face
	next *Face
}

// Hull is the half-edge mesh produced by quickhull. Faces is the head of a
// doubly linked list of live faces.
type Hull struct {
	Faces     *Face
	Tolerance float64

	iterations int
}

// Build runs quickhull over the points and converts the result into a
// collision hull.
func Build(points []mgl64.Vec3) (*shape.Hull, error) {
	qh, err := New(points)
	if err != nil {
		return nil, err
	}
	vertices, rings := qh.Collect()
	return shape.NewHull(vertices, rings)
}

// New runs quickhull over the points and returns the raw half-edge mesh.
func New(points []mgl64.Vec3) (*Hull, error) {
	h := &Hull{}
	if err := h.buildInitialHull(points); err != nil {
		return nil, err
	}

	for eye := h.nextVertex(); eye != nil; eye = h.nextVertex() {
		h.addVertex(eye)
		h.iterations++
	}

	if !h.IsConsistent() {
		return nil, fmt.Errorf("quickhull: inconsistent mesh after %d iterations", h.iterations)
	}
	return h, nil
}

// tolerance derives the coplanarity tolerance from the cloud's bounding box
// extent and returns the indices of the extremal points along each axis.
func tolerance(points []mgl64.Vec3) (iMin, iMax [3]int, tol float64) {
	min := mgl64.Vec3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}
	max := min.Mul(-1)

	for i, p := range points {
		for j := 0; j < 3; j++ {
			if p[j] < min[j] {
				min[j] = p[j]
				iMin[j] = i
			}
			if p[j] > max[j] {
				max[j] = p[j]
				iMax[j] = i
			}
		}
	}

	tol = 3.0 * (math.Abs(max.X()) + math.Abs(max.Y()) + math.Abs(max.Z())) * epsilon64
	return iMin, iMax, tol
}

const epsilon64 = 2.220446049250313e-16 // 2^-52

// buildInitialHull picks four extremal, affinely independent points and
// builds the starting tetrahedron, then assigns every remaining point to the
// conflict list of the face it is furthest outside of.
func (h *Hull) buildInitialHull(points []mgl64.Vec3) error {
	if len(points) < 4 {
		return ErrTooFewPoints
	}

	iMin, iMax, tol := tolerance(points)
	h.Tolerance = tol

	// Longest segment across the axis extremes.
	i1, i2 := 0, 0
	best := 0.0
	for j := 0; j < 3; j++ {
		a := points[iMin[j]]
		b := points[iMax[j]]
		if d := b.Sub(a).Dot(b.Sub(a)); d > best {
			best = d
			i1, i2 = iMin[j], iMax[j]
		}
	}
	if best < linearSlop*linearSlop {
		return ErrCoincident
	}

	a := points[i1]
	b := points[i2]

	// Third point maximizing the triangle area.
	i3 := -1
	best = 0.0
	for i, p := range points {
		if i == i1 || i == i2 {
			continue
		}
		area := b.Sub(a).Cross(p.Sub(a))
		if d := area.Dot(area); d > best {
			best = d
			i3 = i
		}
	}
	if i3 < 0 || best < (2*linearSlop)*(2*linearSlop) {
		return ErrColinear
	}

	c := points[i3]
	plane := shape.PlaneFromPoints(a, b, c)

	// Fourth point furthest from the triangle plane.
	i4 := -1
	best = 0.0
	for i, p := range points {
		if i == i1 || i == i2 || i == i3 {
			continue
		}
		if d := math.Abs(plane.DistanceTo(p)); d > best {
			best = d
			i4 = i
		}
	}
	if i4 < 0 || best < tol {
		return ErrCoplanar
	}

	d := points[i4]

	v1 := &Vertex{Position: a}
	v2 := &Vertex{Position: b}
	v3 := &Vertex{Position: c}
	v4 := &Vertex{Position: d}

	// Winding depends on which side of the base triangle the apex fell.
	var faces [4]*Face
	if plane.DistanceTo(d) < 0 {
		faces[0] = h.addTriangle(v1, v2, v3)
		faces[1] = h.addTriangle(v4, v2, v1)
		faces[2] = h.addTriangle(v4, v3, v2)
		faces[3] = h.addTriangle(v4, v1, v3)
	} else {
		faces[0] = h.addTriangle(v1, v3, v2)
		faces[1] = h.addTriangle(v4, v1, v2)
		faces[2] = h.addTriangle(v4, v2, v3)
		faces[3] = h.addTriangle(v4, v3, v1)
	}

	if !h.IsConsistent() {
		return fmt.Errorf("quickhull: initial tetrahedron is inconsistent")
	}

	// Conflict partition. Interior points can never join the hull and are
	// dropped here.
	for i, p := range points {
		if i == i1 || i == i2 || i == i3 || i == i4 {
			continue
		}

		furthest := tol
		var conflict *Face
		for _, f := range faces {
			if d := f.Plane.DistanceTo(p); d > furthest {
				furthest = d
				conflict = f
			}
		}
		if conflict != nil {
			v := &Vertex{Position: p}
			conflict.pushConflict(v)
		}
	}

	return nil
}

// nextVertex returns the conflict vertex furthest outside the hull, or nil
// when the hull is complete.
func (h *Hull) nextVertex() *Vertex {
	best := h.Tolerance
	var eye *Vertex

	for f := h.Faces; f != nil; f = f.next {
		for v := f.conflictHead; v != nil; v = v.next {
			if d := f.Plane.DistanceTo(v.Position); d > best {
				best = d
				eye = v
			}
		}
	}
	return eye
}

// addVertex absorbs one conflict vertex: find the horizon of faces visible
// from it, fan new faces along the horizon and merge coplanar neighbors.
func (h *Hull) addVertex(eye *Vertex) {
	horizon := h.buildHorizon(eye)
	newFaces := h.addNewFaces(eye, horizon)
	h.mergeFaces(newFaces)
}

// horizonFrame is one level of the depth-first walk over visible faces,
// kept on an explicit stack.
type horizonFrame struct {
	first *HalfEdge
	edge  *HalfEdge
}

// buildHorizon walks the faces visible from the eye point and collects the
// boundary half-edges where a visible face meets an invisible one, in
// counter-clockwise connectivity order around the horizon.
func (h *Hull) buildHorizon(eye *Vertex) []*HalfEdge {
	for f := h.Faces; f != nil; f = f.next {
		f.state = faceInvisible
	}

	start := eye.conflictFace
	start.state = faceVisible

	var horizon []*HalfEdge
	stack := []horizonFrame{{first: start.Edge, edge: start.Edge}}

	for len(stack) > 0 {
		frame := &stack[len(stack)-1]
		edge := frame.edge

		var descend *HalfEdge
		adjacent := edge.Twin.Face
		if adjacent.state == faceInvisible {
			if adjacent.Plane.DistanceTo(eye.Position) > h.Tolerance {
				adjacent.state = faceVisible
				descend = edge.Twin
			} else {
				horizon = append(horizon, edge)
			}
		}

		frame.edge = edge.Next
		if frame.edge == frame.first {
			stack = stack[:len(stack)-1]
		}
		if descend != nil {
			stack = append(stack, horizonFrame{first: descend, edge: descend})
		}
	}

	return horizon
}

// addTriangle builds a stand-alone triangle face, connecting twins against
// already present edges. Used only for the initial tetrahedron.
func (h *Hull) addTriangle(v1, v2, v3 *Vertex) *Face {
	face := &Face{}

	e1 := &HalfEdge{Tail: v1, Face: face}
	e2 := &HalfEdge{Tail: v2, Face: face}
	e3 := &HalfEdge{Tail: v3, Face: face}

	e1.Prev, e1.Next = e3, e2
	e2.Prev, e2.Next = e1, e3
	e3.Prev, e3.Next = e2, e1

	link := func(e *HalfEdge, tail, head *Vertex) {
		if twin := h.findTwin(tail, head); twin != nil {
			e.Twin = twin
			twin.Twin = e
		}
	}
	link(e1, v2, v1)
	link(e2, v3, v2)
	link(e3, v1, v3)

	face.Edge = e1
	face.refit()
	h.pushFace(face)
	return face
}

// findTwin locates the existing half-edge running tail to head, if any.
func (h *Hull) findTwin(tail, head *Vertex) *HalfEdge {
	for f := h.Faces; f != nil; f = f.next {
		e := f.Edge
		for {
			if e.Tail == tail && e.Next.Tail == head {
				return e
			}
			e = e.Next
			if e == f.Edge {
				break
			}
		}
	}
	return nil
}

// addAdjoiningTriangle builds the new face over one horizon edge, fanning
// from the eye vertex. Only the side shared with the surviving hull is
// stitched here; the two fan sides are stitched by addNewFaces.
func (h *Hull) addAdjoiningTriangle(eye *Vertex, horizonEdge *HalfEdge) *HalfEdge {
	face := &Face{}

	v1 := eye
	v2 := horizonEdge.Tail
	v3 := horizonEdge.Twin.Tail

	e1 := &HalfEdge{Tail: v1, Face: face}
	e2 := &HalfEdge{Tail: v2, Face: face}
	e3 := &HalfEdge{Tail: v3, Face: face}

	e1.Prev, e1.Next = e3, e2
	e2.Prev, e2.Next = e1, e3
	e3.Prev, e3.Next = e2, e1

	// The invisible neighbor across the horizon becomes the new face's
	// neighbor; the visible side of the horizon edge dies with its face.
	e2.Twin = horizonEdge.Twin
	horizonEdge.Twin.Twin = e2
	horizonEdge.Twin = nil

	face.Edge = e1
	face.refit()
	h.pushFace(face)
	return e1
}

// addNewFaces fans one triangle per horizon edge, stitches consecutive fan
// sides together, repartitions the conflict points of the visible faces and
// unlinks the visible region.
func (h *Hull) addNewFaces(eye *Vertex, horizon []*HalfEdge) []*Face {
	newFaces := make([]*Face, 0, len(horizon))

	var begin, prev *HalfEdge
	for i, horizonEdge := range horizon {
		left := h.addAdjoiningTriangle(eye, horizonEdge)
		right := left.Prev

		if i == 0 {
			begin = left
		} else {
			left.Twin = prev
			prev.Twin = left
		}
		prev = right

		newFaces = append(newFaces, left.Face)
	}
	prev.Twin = begin
	begin.Twin = prev

	// Tear down the visible region, rehoming its conflict points.
	f := h.Faces
	for f != nil {
		if f.state != faceVisible {
			f = f.next
			continue
		}

		v := f.conflictHead
		for v != nil {
			next := v.next

			furthest := h.Tolerance
			var conflict *Face
			for _, nf := range newFaces {
				if d := nf.Plane.DistanceTo(v.Position); d > furthest {
					furthest = d
					conflict = nf
				}
			}
			if conflict != nil {
				v.next = nil
				conflict.pushConflict(v)
			}
			// Interior points are dropped.

			v = next
		}
		f.conflictHead = nil

		dead := f
		f = f.next
		h.removeFace(dead)
	}

	return newFaces
}

// mergeFace absorbs one concave or coplanar neighbor of face, if any,
// keeping the half-edge ring and conflict list intact. Reports whether a
// merge happened.
func (h *Hull) mergeFace(face *Face) bool {
	e := face.Edge
	for {
		neighbor := e.Twin.Face

		d1 := face.Plane.DistanceTo(neighbor.Center)
		d2 := neighbor.Plane.DistanceTo(face.Center)

		if d1 < -h.Tolerance && d2 < -h.Tolerance {
			// Strictly convex across this edge.
			e = e.Next
			if e == face.Edge {
				return false
			}
			continue
		}

		if neighbor == face {
			e = e.Next
			if e == face.Edge {
				return false
			}
			continue
		}

		// Absorb the neighbor.
		v := neighbor.conflictHead
		for v != nil {
			next := v.next
			v.next = nil
			face.pushConflict(v)
			v = next
		}
		neighbor.conflictHead = nil

		face.Edge = e.Prev

		for te := e.Twin; ; {
			te.Face = face
			te = te.Next
			if te == e.Twin {
				break
			}
		}

		e.Prev.Next = e.Twin.Next
		e.Next.Prev = e.Twin.Prev
		e.Twin.Prev.Next = e.Next
		e.Twin.Next.Prev = e.Prev

		h.removeFace(neighbor)
		face.refit()
		return true
	}
}

// mergeFaces repeatedly merges each new face with its neighbors until every
// remaining edge is strictly convex.
func (h *Hull) mergeFaces(newFaces []*Face) {
	for _, f := range newFaces {
		if f.state == faceDeleted {
			continue
		}
		for h.mergeFace(f) {
		}
	}
}

// IsConsistent verifies twin symmetry and a sane bound on the edge count.
func (h *Hull) IsConsistent() bool {
	count := 0
	for f := h.Faces; f != nil; f = f.next {
		if f.state == faceDeleted {
			return false
		}
		e := f.Edge
		for {
			count++
			if count >= 10000 {
				return false
			}
			if e.Twin == nil || e.Twin.Twin != e {
				return false
			}
			e = e.Next
			if e == f.Edge {
				break
			}
		}
	}
	return true
}

// Collect flattens the mesh into vertex positions and per-face index rings
// in counter-clockwise order.
func (h *Hull) Collect() ([]mgl64.Vec3, [][]int) {
	index := make(map[*Vertex]int)
	var positions []mgl64.Vec3
	var rings [][]int

	for f := h.Faces; f != nil; f = f.next {
		var ring []int
		e := f.Edge
		for {
			i, ok := index[e.Tail]
			if !ok {
				i = len(positions)
				index[e.Tail] = i
				positions = append(positions, e.Tail.Position)
			}
			ring = append(ring, i)
			e = e.Next
			if e == f.Edge {
				break
			}
		}
		rings = append(rings, ring)
	}

	return positions, rings
}

func (h *Hull) pushFace(f *Face) {
	f.prev = nil
	f.next = h.Faces
	if h.Faces != nil {
		h.Faces.prev = f
	}
	h.Faces = f
}

func (h *Hull) removeFace(f *Face) {
	if f.prev != nil {
		f.prev.next = f.next
	} else {
		h.Faces = f.next
	}
	if f.next != nil {
		f.next.prev = f.prev
	}
	f.prev = nil
	f.next = nil
	f.state = faceDeleted
}

func (f *Face) pushConflict(v *Vertex) {
	v.conflictFace = f
	v.next = f.conflictHead
	f.conflictHead = v
}

// refit recomputes the face center and plane from the current ring. Newell's
// method keeps the plane stable for merged polygonal faces.
func (f *Face) refit() {
	var center, normal mgl64.Vec3
	count := 0

	e := f.Edge
	for {
		a := e.Tail.Position
		b := e.Next.Tail.Position
		center = center.Add(a)
		normal = normal.Add(mgl64.Vec3{
			(a.Y() - b.Y()) * (a.Z() + b.Z()),
			(a.Z() - b.Z()) * (a.X() + b.X()),
			(a.X() - b.X()) * (a.Y() + b.Y()),
		})
		count++
		e = e.Next
		if e == f.Edge {
			break
		}
	}

	f.Center = center.Mul(1.0 / float64(count))
	f.Plane = shape.Plane{Normal: normal.Normalize()}
	f.Plane.Offset = f.Plane.Normal.Dot(f.Center)
}
