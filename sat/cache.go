package sat

import "github.com/akmonengine/collide/shape"

// CacheState classifies what the cached feature certifies about a hull pair.
type CacheState int

const (
	// CacheEmpty means the cached feature can no longer certify either
	// separation or overlap and a full sweep is required.
	CacheEmpty CacheState = iota
	CacheSeparation
	CacheOverlap
)

// FeatureType identifies the family of the cached separating feature.
type FeatureType int

const (
	FeatureEdges FeatureType = iota // edge of hull1 against edge of hull2
	FeatureFace1                    // face of hull1
	FeatureFace2                    // face of hull2
)

// FeatureCache stores the winning separating-axis feature of the previous
// step for one persistent hull pair. Re-testing the single cached feature is
// usually enough to certify the pair's state again, skipping the O(faces +
// edges²) sweep. The cache is owned by exactly one pair and must not be
// shared between concurrent queries.
type FeatureCache struct {
	State  CacheState
	Type   FeatureType
	Index1 int
	Index2 int
}

// ReadState re-tests the cached feature against the current transforms and
// returns what it still certifies. CacheEmpty means the cached feature is no
// longer conclusive and the caller must run the full queries.
func (c *FeatureCache) ReadState(xf1 shape.Transform, hull1 *shape.Hull, xf2 shape.Transform, hull2 *shape.Hull, totalRadius float64) CacheState {
	// An empty cache still gets a feature to probe; face 0 is as good an
	// arbitrary guess as any.
	if c.State == CacheEmpty {
		c.State = CacheSeparation
		c.Type = FeatureFace1
		c.Index1 = 0
		c.Index2 = 0
	}

	switch c.Type {
	case FeatureEdges:
		return c.readEdge(xf1, hull1, xf2, hull2, totalRadius)
	case FeatureFace1:
		return c.readFace(xf1, hull1, xf2, hull2, totalRadius)
	case FeatureFace2:
		return c.readFace(xf2, hull2, xf1, hull1, totalRadius)
	default:
		return CacheEmpty
	}
}

// readFace re-tests the cached face plane of hull1 against hull2's support.
func (c *FeatureCache) readFace(xf1 shape.Transform, hull1 *shape.Hull, xf2 shape.Transform, hull2 *shape.Hull, totalRadius float64) CacheState {
	xf := shape.MulT(xf2, xf1)
	plane := xf.ApplyPlane(hull1.Planes[c.Index1])
	if Project(hull2, plane) > totalRadius {
		return CacheSeparation
	}
	return CacheOverlap
}

// readEdge re-tests the cached edge pair. If the pair no longer forms a face
// of the Minkowski difference its axis proves nothing, so the state falls
// back to CacheEmpty and a full sweep.
func (c *FeatureCache) readEdge(xf1 shape.Transform, hull1 *shape.Hull, xf2 shape.Transform, hull2 *shape.Hull, totalRadius float64) CacheState {
	i := c.Index1
	j := c.Index2

	xf := shape.MulT(xf2, xf1)
	centroid1 := xf.Apply(hull1.Centroid)

	edge1 := hull1.Edges[i]
	twin1 := hull1.Edges[i^1]

	p1 := xf.Apply(hull1.Vertices[edge1.Origin])
	q1 := xf.Apply(hull1.Vertices[twin1.Origin])
	e1 := q1.Sub(p1)

	u1 := xf.RotateDir(hull1.Planes[edge1.Face].Normal)
	v1 := xf.RotateDir(hull1.Planes[twin1.Face].Normal)

	edge2 := hull2.Edges[j]
	twin2 := hull2.Edges[j^1]

	p2 := hull2.Vertices[edge2.Origin]
	q2 := hull2.Vertices[twin2.Origin]
	e2 := q2.Sub(p2)

	u2 := hull2.Planes[edge2.Face].Normal
	v2 := hull2.Planes[twin2.Face].Normal

	if isMinkowskiFace(u1, v1, e1.Mul(-1), u2.Mul(-1), v2.Mul(-1), e2.Mul(-1)) {
		if edgeSeparation(p1, e1, p2, e2, centroid1) > totalRadius {
			return CacheSeparation
		}
		return CacheOverlap
	}

	return CacheEmpty
}
