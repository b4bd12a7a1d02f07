package collide

import (
	"fmt"

	"github.com/akmonengine/collide/shape"
)

// NullNode marks the absence of a node.
const NullNode = -1

const initialNodeCapacity = 32

type treeNode struct {
	AABB     shape.AABB
	UserData any

	parent int // also the free list link while the node is unused
	child1 int
	child2 int

	// height is the distance to the deepest leaf below; -1 while unused.
	height int
}

func (n *treeNode) isLeaf() bool {
	return n.child1 == NullNode
}

// DynamicTree is a bounding volume hierarchy over axis-aligned boxes, used
// as the broad phase. Leaves are user proxies; internal nodes enclose their
// children. Nodes live in a pooled array with an intrusive free list so that
// insert/remove churn does not allocate.
//
// Structural mutation must be serialized against itself and against queries;
// concurrent read-only queries are safe.
type DynamicTree struct {
	root     int
	nodes    []treeNode
	count    int
	freeList int
}

// NewDynamicTree returns an empty tree with a small preallocated node pool.
func NewDynamicTree() *DynamicTree {
	t := &DynamicTree{
		root:  NullNode,
		nodes: make([]treeNode, initialNodeCapacity),
	}
	t.addToFreeList(0)
	return t
}

// addToFreeList links every node from the given index to the end of the pool
// into the free list.
func (t *DynamicTree) addToFreeList(node int) {
	for i := node; i < len(t.nodes)-1; i++ {
		t.nodes[i].parent = i + 1
		t.nodes[i].height = -1
	}
	t.nodes[len(t.nodes)-1].parent = NullNode
	t.nodes[len(t.nodes)-1].height = -1

	t.freeList = node
}

func (t *DynamicTree) allocateNode() int {
	if t.freeList == NullNode {
		// Pool exhausted. Double the capacity and relink the new tail.
		old := t.nodes
		t.nodes = make([]treeNode, 2*len(old))
		copy(t.nodes, old)
		t.addToFreeList(len(old))
	}

	node := t.freeList
	t.freeList = t.nodes[node].parent

	t.nodes[node] = treeNode{
		parent: NullNode,
		child1: NullNode,
		child2: NullNode,
	}
	t.count++
	return node
}

func (t *DynamicTree) freeNode(node int) {
	t.nodes[node].parent = t.freeList
	t.nodes[node].height = -1
	t.nodes[node].UserData = nil
	t.freeList = node
	t.count--
}

// InsertNode creates a leaf for the AABB and returns its id, valid until
// RemoveNode.
func (t *DynamicTree) InsertNode(aabb shape.AABB, userData any) int {
	node := t.allocateNode()
	t.nodes[node].AABB = aabb
	t.nodes[node].UserData = userData
	t.insertLeaf(node)
	return node
}

// RemoveNode removes a leaf and returns its pool slot to the free list.
func (t *DynamicTree) RemoveNode(node int) {
	t.removeLeaf(node)
	t.freeNode(node)
}

// UpdateNode moves a leaf to a new AABB. The node must be a live leaf.
func (t *DynamicTree) UpdateNode(node int, aabb shape.AABB) {
	if t.root == NullNode {
		panic("collide: UpdateNode on empty tree")
	}
	if !t.nodes[node].isLeaf() {
		panic(fmt.Sprintf("collide: UpdateNode on non-leaf node %d", node))
	}
	t.removeLeaf(node)
	t.nodes[node].AABB = aabb
	t.insertLeaf(node)
}

// GetAABB returns the AABB stored at a leaf.
func (t *DynamicTree) GetAABB(node int) shape.AABB {
	return t.nodes[node].AABB
}

// GetUserData returns the user data stored at a leaf.
func (t *DynamicTree) GetUserData(node int) any {
	return t.nodes[node].UserData
}

// findBest descends from the root with the surface area heuristic and
// returns the node the new leaf should become a sibling of.
func (t *DynamicTree) findBest(leafAABB shape.AABB) int {
	index := t.root
	for !t.nodes[index].isLeaf() {
		branchArea := t.nodes[index].AABB.SurfaceArea()
		combinedArea := leafAABB.Combine(t.nodes[index].AABB).SurfaceArea()

		// Cost of making the leaf a sibling of this node, versus the
		// inherited cost of growing this node on the way down.
		branchCost := 2 * combinedArea
		inheritanceCost := 2 * (combinedArea - branchArea)

		childCost := func(child int) float64 {
			area := leafAABB.Combine(t.nodes[child].AABB).SurfaceArea()
			if t.nodes[child].isLeaf() {
				return area
			}
			return (area - t.nodes[child].AABB.SurfaceArea()) + inheritanceCost
		}

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		cost1 := childCost(child1)
		cost2 := childCost(child2)

		if branchCost < cost1 && branchCost < cost2 {
			break
		}

		if cost1 <= cost2 {
			index = child1
		} else {
			index = child2
		}
	}
	return index
}

func (t *DynamicTree) insertLeaf(leaf int) {
	if t.root == NullNode {
		t.root = leaf
		t.nodes[leaf].parent = NullNode
		return
	}

	leafAABB := t.nodes[leaf].AABB
	sibling := t.findBest(leafAABB)
	oldParent := t.nodes[sibling].parent

	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[newParent].AABB = leafAABB.Combine(t.nodes[sibling].AABB)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != NullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	t.walkBackAndCombine(newParent)
}

func (t *DynamicTree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = NullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent

	var sibling int
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent != NullNode {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)
		t.walkBackAndCombine(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = NullNode
		t.freeNode(parent)
	}
}

// walkBackAndCombine refits ancestor AABBs and heights from a node up to
// the root.
func (t *DynamicTree) walkBackAndCombine(node int) {
	for node != NullNode {
		child1 := t.nodes[node].child1
		child2 := t.nodes[node].child2

		t.nodes[node].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[node].AABB = t.nodes[child1].AABB.Combine(t.nodes[child2].AABB)

		node = t.nodes[node].parent
	}
}

// Query calls fn for every leaf whose AABB overlaps the given AABB. The
// traversal uses an explicit stack. Returning false from fn stops the query.
func (t *DynamicTree) Query(aabb shape.AABB, fn func(node int) bool) {
	if t.root == NullNode {
		return
	}

	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node == NullNode {
			continue
		}
		if !t.nodes[node].AABB.Overlaps(aabb) {
			continue
		}

		if t.nodes[node].isLeaf() {
			if !fn(node) {
				return
			}
		} else {
			stack = append(stack, t.nodes[node].child1, t.nodes[node].child2)
		}
	}
}

// NodeCount returns the number of live nodes, leaves and branches included.
func (t *DynamicTree) NodeCount() int {
	return t.count
}

// Capacity returns the size of the node pool.
func (t *DynamicTree) Capacity() int {
	return len(t.nodes)
}

// RootAABB returns the AABB enclosing the whole tree, empty when the tree
// has no leaves.
func (t *DynamicTree) RootAABB() shape.AABB {
	if t.root == NullNode {
		return shape.EmptyAABB()
	}
	return t.nodes[t.root].AABB
}

// Height returns the height of the tree, -1 when empty.
func (t *DynamicTree) Height() int {
	if t.root == NullNode {
		return -1
	}
	return t.nodes[t.root].height
}

// Validate panics if the tree structure is inconsistent. The walk uses an
// explicit stack like Query.
func (t *DynamicTree) Validate() {
	free := 0
	for node := t.freeList; node != NullNode; node = t.nodes[node].parent {
		free++
	}
	if t.count+free != len(t.nodes) {
		panic(fmt.Sprintf("collide: %d live + %d free nodes do not account for capacity %d",
			t.count, free, len(t.nodes)))
	}

	if t.root == NullNode {
		return
	}
	if t.nodes[t.root].parent != NullNode {
		panic("collide: tree root has a parent")
	}

	stack := []int{t.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[node]
		if n.isLeaf() {
			if n.child2 != NullNode || n.height != 0 {
				panic(fmt.Sprintf("collide: malformed leaf node %d", node))
			}
			continue
		}

		if n.child1 < 0 || n.child1 >= len(t.nodes) || n.child2 < 0 || n.child2 >= len(t.nodes) {
			panic(fmt.Sprintf("collide: node %d has out of range children", node))
		}
		if t.nodes[n.child1].parent != node || t.nodes[n.child2].parent != node {
			panic(fmt.Sprintf("collide: node %d children do not link back", node))
		}

		stack = append(stack, n.child1, n.child2)
	}
}
