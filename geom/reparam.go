package geom

import (
	"github.com/geodyn/birkhoff/curve"
	"github.com/geodyn/birkhoff/utils"
)

// Reparametrize redistributes the interior nodes to approximately equal
// metric arc-length spacing along the current polyline. The endpoints are
// untouched and the polyline geometry (hence its total length, up to
// quadrature tolerance) is preserved; only the node parameterization moves.
func (f *Functional) Reparametrize(c *curve.Curve, a []float64) error {
	var (
		n = c.NumNodes()
		// cumulative metric arc length at each node
		cum = make([]float64, n)
	)
	for i := 1; i < n; i++ {
		cum[i] = cum[i-1] + f.SegmentLength(c.Node(i-1), c.Node(i), a[i-1], a[i])
	}
	total := cum[n-1]
	if total == 0 {
		return nil
	}
	var (
		newNodes = make([]utils.Vector, 0, n-2)
		seg      = 0
	)
	for j := 1; j < n-1; j++ {
		target := total * float64(j) / float64(n-1)
		for seg < n-2 && cum[seg+1] < target {
			seg++
		}
		span := cum[seg+1] - cum[seg]
		t := 0.
		if span > 0 {
			t = (target - cum[seg]) / span
		}
		newNodes = append(newNodes, c.Node(seg).Lerp(c.Node(seg+1), t))
	}
	for j, x := range newNodes {
		if err := c.SetNode(j+1, x); err != nil {
			return err
		}
	}
	return nil
}
