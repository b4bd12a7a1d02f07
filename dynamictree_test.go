package collide

import (
	"math/rand"
	"testing"

	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

func aabbAt(x, y, z, half float64) shape.AABB {
	return shape.AABB{
		Min: mgl64.Vec3{x - half, y - half, z - half},
		Max: mgl64.Vec3{x + half, y + half, z + half},
	}
}

func randomAABB(rng *rand.Rand) shape.AABB {
	return aabbAt(
		rng.Float64()*20-10,
		rng.Float64()*20-10,
		rng.Float64()*20-10,
		0.5+rng.Float64(),
	)
}

func TestDynamicTreeInsertRemove(t *testing.T) {
	tree := NewDynamicTree()
	rng := rand.New(rand.NewSource(1))

	nodes := make([]int, 0, 50)
	for i := 0; i < 50; i++ {
		nodes = append(nodes, tree.InsertNode(randomAABB(rng), i))
	}

	// A binary tree with n leaves has n-1 internal nodes.
	if got := tree.NodeCount(); got != 2*50-1 {
		t.Errorf("Expected 99 live nodes, got %v", got)
	}
	tree.Validate()

	// The root AABB is exactly the merge of every leaf.
	merged := shape.EmptyAABB()
	for _, node := range nodes {
		merged = merged.Combine(tree.GetAABB(node))
	}
	if root := tree.RootAABB(); root != merged {
		t.Errorf("Expected the root AABB %v to equal the merged leaves %v", root, merged)
	}

	for _, node := range nodes {
		tree.RemoveNode(node)
	}
	if got := tree.NodeCount(); got != 0 {
		t.Errorf("Expected an empty tree, got %v nodes", got)
	}
	if got := tree.Height(); got != -1 {
		t.Errorf("Expected height -1 for an empty tree, got %v", got)
	}
	tree.Validate()
}

func TestDynamicTreePoolGrowth(t *testing.T) {
	tree := NewDynamicTree()
	for i := 0; i < 40; i++ {
		tree.InsertNode(aabbAt(float64(i)*3, 0, 0, 1), i)
	}

	if got := tree.NodeCount(); got != 2*40-1 {
		t.Errorf("Expected 79 live nodes, got %v", got)
	}
	if tree.Capacity() < tree.NodeCount() {
		t.Errorf("Expected the pool to grow past %v, got capacity %v", tree.NodeCount(), tree.Capacity())
	}
	tree.Validate()
}

func TestDynamicTreeQuery(t *testing.T) {
	tree := NewDynamicTree()
	rng := rand.New(rand.NewSource(2))

	nodes := make([]int, 0, 100)
	for i := 0; i < 100; i++ {
		nodes = append(nodes, tree.InsertNode(randomAABB(rng), i))
	}

	for probe := 0; probe < 25; probe++ {
		query := randomAABB(rng)

		expected := map[int]bool{}
		for _, node := range nodes {
			if tree.GetAABB(node).Overlaps(query) {
				expected[node] = true
			}
		}

		got := map[int]bool{}
		tree.Query(query, func(node int) bool {
			got[node] = true
			return true
		})

		if len(got) != len(expected) {
			t.Fatalf("Probe %d: expected %v overlaps, got %v", probe, len(expected), len(got))
		}
		for node := range expected {
			if !got[node] {
				t.Errorf("Probe %d: expected node %v in the result", probe, node)
			}
		}
	}
}

func TestDynamicTreeQueryEarlyStop(t *testing.T) {
	tree := NewDynamicTree()
	for i := 0; i < 10; i++ {
		tree.InsertNode(aabbAt(0, 0, 0, 1), i)
	}

	calls := 0
	tree.Query(aabbAt(0, 0, 0, 1), func(node int) bool {
		calls++
		return false
	})

	if calls != 1 {
		t.Errorf("Expected the query to stop after the first hit, got %v calls", calls)
	}
}

func TestDynamicTreeUpdateNode(t *testing.T) {
	tree := NewDynamicTree()
	node := tree.InsertNode(aabbAt(0, 0, 0, 1), "mover")
	for i := 0; i < 5; i++ {
		tree.InsertNode(aabbAt(float64(i)*5, 5, 0, 1), i)
	}

	tree.UpdateNode(node, aabbAt(50, 0, 0, 1))
	tree.Validate()

	found := false
	tree.Query(aabbAt(50, 0, 0, 1), func(n int) bool {
		if n == node {
			found = true
		}
		return true
	})
	if !found {
		t.Error("Expected the moved leaf at its new position")
	}

	tree.Query(aabbAt(0, 0, 0, 1), func(n int) bool {
		if n == node {
			t.Error("Expected the moved leaf gone from its old position")
		}
		return true
	})
}

func TestDynamicTreeUpdateNodePanics(t *testing.T) {
	t.Run("empty tree", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Expected a panic for UpdateNode on an empty tree")
			}
		}()
		NewDynamicTree().UpdateNode(0, aabbAt(0, 0, 0, 1))
	})

	t.Run("non-leaf node", func(t *testing.T) {
		tree := NewDynamicTree()
		a := tree.InsertNode(aabbAt(0, 0, 0, 1), nil)
		b := tree.InsertNode(aabbAt(5, 0, 0, 1), nil)

		// With two leaves the third allocated slot is their parent branch.
		branch := -1
		for i := 0; i < tree.Capacity(); i++ {
			if i != a && i != b && !tree.nodes[i].isLeaf() && tree.nodes[i].height >= 0 {
				branch = i
				break
			}
		}
		if branch == -1 {
			t.Fatal("Expected an internal node after two inserts")
		}

		defer func() {
			if recover() == nil {
				t.Error("Expected a panic for UpdateNode on a branch node")
			}
		}()
		tree.UpdateNode(branch, aabbAt(0, 0, 0, 1))
	})
}
