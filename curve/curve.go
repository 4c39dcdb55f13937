// Package curve holds the discretized geodesic candidate: an ordered
// sequence of configuration-space nodes with fixed endpoints. The first and
// last node are the boundary configurations of the run and are immutable;
// every mutation entry point enforces that.
package curve

import (
	"fmt"

	"github.com/geodyn/birkhoff/utils"
)

// BoundaryViolationError reports an attempted mutation of a fixed endpoint.
// It is fatal to the call, not to the run.
type BoundaryViolationError struct {
	NodeIndex int
}

func (e BoundaryViolationError) Error() string {
	return fmt.Sprintf("curve: node %d is a fixed endpoint and cannot be moved", e.NodeIndex)
}

// Curve is an ordered node sequence x_0 ... x_N in R^d, monotone in the
// curve parameter. d is fixed for the lifetime of the curve.
type Curve struct {
	dim   int
	nodes []utils.Vector
}

// New builds the evenly spaced straight-line interpolation between the two
// endpoint configurations with nNodes nodes in total (endpoints included).
func New(a, b utils.Vector, nNodes int) (c *Curve, err error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("curve: endpoint dimensions differ, %d vs %d", a.Len(), b.Len())
	}
	if nNodes < 3 {
		return nil, fmt.Errorf("curve: need at least 3 nodes, got %d", nNodes)
	}
	c = &Curve{dim: a.Len(), nodes: make([]utils.Vector, nNodes)}
	for i := range c.nodes {
		t := float64(i) / float64(nNodes-1)
		c.nodes[i] = a.Lerp(b, t)
	}
	return
}

// FromNodes adopts an existing node sequence, for resuming a prior solution.
// The slice is copied.
func FromNodes(nodes []utils.Vector) (c *Curve, err error) {
	if len(nodes) < 3 {
		return nil, fmt.Errorf("curve: need at least 3 nodes, got %d", len(nodes))
	}
	c = &Curve{dim: nodes[0].Len(), nodes: make([]utils.Vector, len(nodes))}
	for i, n := range nodes {
		if n.Len() != c.dim {
			return nil, fmt.Errorf("curve: node %d has dimension %d, want %d", i, n.Len(), c.dim)
		}
		c.nodes[i] = n.Copy()
	}
	return
}

func (c *Curve) Dim() int      { return c.dim }
func (c *Curve) NumNodes() int { return len(c.nodes) }

// Interior is the count of mutable nodes.
func (c *Curve) Interior() int { return len(c.nodes) - 2 }

// Node returns the position of node i. The returned vector shares storage
// with the curve; callers that mutate must go through SetNode or Perturb.
func (c *Curve) Node(i int) utils.Vector { return c.nodes[i] }

// Nodes returns copies of all node positions in order.
func (c *Curve) Nodes() (out []utils.Vector) {
	out = make([]utils.Vector, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = n.Copy()
	}
	return
}

func (c *Curve) isBoundary(i int) bool { return i == 0 || i == len(c.nodes)-1 }

// SetNode replaces the position of interior node i.
func (c *Curve) SetNode(i int, x utils.Vector) error {
	if c.isBoundary(i) {
		return BoundaryViolationError{NodeIndex: i}
	}
	if x.Len() != c.dim {
		return fmt.Errorf("curve: position has dimension %d, want %d", x.Len(), c.dim)
	}
	c.nodes[i] = x.Copy()
	return nil
}

// Perturb applies a displacement to interior node i.
func (c *Curve) Perturb(i int, delta utils.Vector) error {
	if c.isBoundary(i) {
		return BoundaryViolationError{NodeIndex: i}
	}
	if delta.Len() != c.dim {
		return fmt.Errorf("curve: displacement has dimension %d, want %d", delta.Len(), c.dim)
	}
	c.nodes[i].Add(delta)
	return nil
}

// Copy is a deep copy.
func (c *Curve) Copy() (r *Curve) {
	r = &Curve{dim: c.dim, nodes: make([]utils.Vector, len(c.nodes))}
	for i, n := range c.nodes {
		r.nodes[i] = n.Copy()
	}
	return
}

// Refine inserts the midpoint of every segment, preserving the relative
// arc-length ordering of the existing nodes.
func (c *Curve) Refine() {
	var (
		refined = make([]utils.Vector, 0, 2*len(c.nodes)-1)
	)
	for i := 0; i < len(c.nodes)-1; i++ {
		refined = append(refined, c.nodes[i])
		refined = append(refined, c.nodes[i].Lerp(c.nodes[i+1], 0.5))
	}
	refined = append(refined, c.nodes[len(c.nodes)-1])
	c.nodes = refined
}

// RefineAt inserts the midpoint of segment (i, i+1).
func (c *Curve) RefineAt(i int) error {
	if i < 0 || i >= len(c.nodes)-1 {
		return fmt.Errorf("curve: no segment %d to refine", i)
	}
	mid := c.nodes[i].Lerp(c.nodes[i+1], 0.5)
	c.nodes = append(c.nodes[:i+1], append([]utils.Vector{mid}, c.nodes[i+1:]...)...)
	return nil
}

// Coarsen removes every second interior node, keeping the endpoints and the
// order of the survivors. A curve at the 3-node minimum is left alone.
func (c *Curve) Coarsen() {
	if len(c.nodes) <= 3 {
		return
	}
	var (
		kept = make([]utils.Vector, 0, len(c.nodes)/2+2)
	)
	for i, n := range c.nodes {
		if c.isBoundary(i) || i%2 == 0 {
			kept = append(kept, n)
		}
	}
	c.nodes = kept
}

// Measurer computes the discretized Maupertuis action of a curve given the
// metric samples at its nodes. Implemented by geom.Functional.
type Measurer interface {
	Length(nodes []utils.Vector, a []float64) float64
}

// FunctionalValue delegates the action computation to the geometric layer.
// a[i] is the metric coefficient at node i.
func (c *Curve) FunctionalValue(m Measurer, a []float64) float64 {
	return m.Length(c.nodes, a)
}

// Displacements returns the per-node movement between two curves of the same
// topology, summed in the Euclidean norm. Used by the global driver for its
// movement tolerance.
func (c *Curve) Displacements(prev *Curve) (total float64, err error) {
	if prev.NumNodes() != c.NumNodes() {
		return 0, fmt.Errorf("curve: node count changed, %d vs %d", prev.NumNodes(), c.NumNodes())
	}
	for i := range c.nodes {
		total += c.nodes[i].Copy().Subtract(prev.nodes[i]).Norm()
	}
	return
}
