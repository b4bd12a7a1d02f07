// Package collide is a 3D collision detection library: a dynamic AABB tree
// broad phase, SAT and GJK narrow phase with temporal-coherence caches, and
// contact manifold generation for convex shape pairs.
package collide

import (
	"sort"

	"github.com/akmonengine/collide/manifold"
	"github.com/akmonengine/collide/shape"
)

const DEFAULT_WORKERS = 1

// aabbMargin fattens proxy AABBs so small movements do not force a tree
// update every step.
const aabbMargin = 0.1

// Proxy is one collidable shape tracked by the world.
type Proxy struct {
	Shape     shape.Shape
	Transform shape.Transform
	UserData  any

	node    int
	fatAABB shape.AABB
}

type pairKey struct {
	a, b int // tree node ids, a < b
}

func makePairKey(a, b *Proxy) pairKey {
	if b.node < a.node {
		a, b = b, a
	}
	return pairKey{a: a.node, b: b.node}
}

// Pair is a persistent candidate pair of overlapping proxies. The ConvexCache
// lives as long as the pair does and carries the narrow phase warm-start
// state between steps.
type Pair struct {
	A, B     *Proxy
	Cache    manifold.ConvexCache
	Manifold manifold.Manifold

	touching bool
}

// World owns the proxies, the broad phase tree and the persistent pair set.
// Step is not safe for concurrent use; the parallelism lives inside it.
type World struct {
	Workers int
	Events  Events

	tree    *DynamicTree
	proxies []*Proxy
	pairs   map[pairKey]*Pair
}

func NewWorld() *World {
	return &World{
		Workers: DEFAULT_WORKERS,
		Events:  NewEvents(),
		tree:    NewDynamicTree(),
		pairs:   make(map[pairKey]*Pair),
	}
}

// AddProxy registers a shape with the world and inserts its fattened AABB
// into the broad phase.
func (w *World) AddProxy(s shape.Shape, transform shape.Transform, userData any) *Proxy {
	p := &Proxy{
		Shape:     s,
		Transform: transform,
		UserData:  userData,
		fatAABB:   s.ComputeAABB(transform).Extend(aabbMargin),
	}
	p.node = w.tree.InsertNode(p.fatAABB, p)
	w.proxies = append(w.proxies, p)
	return p
}

// RemoveProxy removes a proxy and destroys every pair it participates in.
func (w *World) RemoveProxy(p *Proxy) {
	k := -1
	for i, candidate := range w.proxies {
		if candidate == p {
			k = i
			break
		}
	}
	if k == -1 {
		return
	}
	w.proxies = append(w.proxies[:k], w.proxies[k+1:]...)

	for key, pair := range w.pairs {
		if pair.A == p || pair.B == p {
			if pair.touching {
				w.Events.emitExit(pair.A, pair.B)
			}
			delete(w.pairs, key)
		}
	}

	w.tree.RemoveNode(p.node)
	p.node = NullNode
}

// MoveProxy updates a proxy's transform. The tree leaf moves only when the
// shape escapes its fattened AABB.
func (w *World) MoveProxy(p *Proxy, transform shape.Transform) {
	p.Transform = transform

	aabb := p.Shape.ComputeAABB(transform)
	if p.fatAABB.Contains(aabb) {
		return
	}
	p.fatAABB = aabb.Extend(aabbMargin)
	w.tree.UpdateNode(p.node, p.fatAABB)
}

// Step refreshes the pair set from the broad phase, runs the narrow phase in
// parallel over all pairs, and flushes contact events.
func (w *World) Step() {
	w.Workers = max(DEFAULT_WORKERS, w.Workers)

	w.updatePairs()
	pairs := w.Pairs()

	// Each pair owns its cache, so pairs are independent work items.
	task(w.Workers, pairs, func(pair *Pair) {
		manifold.Collide(&pair.Manifold,
			pair.A.Transform, pair.A.Shape,
			pair.B.Transform, pair.B.Shape,
			&pair.Cache)
	})

	for _, pair := range pairs {
		touching := pair.Manifold.Count > 0
		switch {
		case touching && !pair.touching:
			w.Events.emitEnter(pair.A, pair.B)
		case touching && pair.touching:
			w.Events.emitStay(pair.A, pair.B)
		case !touching && pair.touching:
			w.Events.emitExit(pair.A, pair.B)
		}
		pair.touching = touching
	}

	w.Events.flush()
}

// updatePairs synchronizes the pair set with the current tree overlaps:
// new overlaps get a pair with a fresh cache, stale pairs are destroyed.
func (w *World) updatePairs() {
	for key, pair := range w.pairs {
		if !pair.A.fatAABB.Overlaps(pair.B.fatAABB) {
			if pair.touching {
				w.Events.emitExit(pair.A, pair.B)
			}
			delete(w.pairs, key)
		}
	}

	for _, p := range w.proxies {
		w.tree.Query(p.fatAABB, func(node int) bool {
			other := w.tree.GetUserData(node).(*Proxy)
			if other.node <= p.node {
				// Self, or the mirrored pair already visited.
				return true
			}
			key := makePairKey(p, other)
			if _, ok := w.pairs[key]; !ok {
				w.pairs[key] = &Pair{A: p, B: other}
			}
			return true
		})
	}
}

// Pairs returns the current pair set in deterministic order. The manifolds
// are those of the last Step.
func (w *World) Pairs() []*Pair {
	pairs := make([]*Pair, 0, len(w.pairs))
	for _, pair := range w.pairs {
		pairs = append(pairs, pair)
	}
	// Map order is random; keep the narrow phase deterministic.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A.node != pairs[j].A.node {
			return pairs[i].A.node < pairs[j].A.node
		}
		return pairs[i].B.node < pairs[j].B.node
	})
	return pairs
}

// Tree exposes the broad phase for queries and validation.
func (w *World) Tree() *DynamicTree {
	return w.tree
}
