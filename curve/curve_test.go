package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodyn/birkhoff/utils"
)

func TestCurveInitialization(t *testing.T) {
	// d=1, 5 nodes between 0 and 1 gives the uniform interpolation
	{
		a := utils.NewVector(1, []float64{0})
		b := utils.NewVector(1, []float64{1})
		c, err := New(a, b, 5)
		require.NoError(t, err)
		assert.Equal(t, 5, c.NumNodes())
		assert.Equal(t, 3, c.Interior())
		want := []float64{0, 0.25, 0.5, 0.75, 1}
		for i, w := range want {
			assert.InDelta(t, w, c.Node(i).AtVec(0), 1.e-15)
		}
	}
	// Mismatched endpoints and too few nodes are rejected
	{
		_, err := New(utils.NewVector(2), utils.NewVector(3), 5)
		assert.Error(t, err)
		_, err = New(utils.NewVector(2), utils.NewVector(2), 2)
		assert.Error(t, err)
	}
}

func TestEndpointImmutability(t *testing.T) {
	c, err := New(utils.NewVector(2), utils.NewVectorConstant(2, 1), 4)
	require.NoError(t, err)

	delta := utils.NewVectorConstant(2, 0.1)
	var bv BoundaryViolationError

	err = c.Perturb(0, delta)
	require.ErrorAs(t, err, &bv)
	assert.Equal(t, 0, bv.NodeIndex)

	err = c.SetNode(c.NumNodes()-1, delta)
	require.ErrorAs(t, err, &bv)
	assert.Equal(t, c.NumNodes()-1, bv.NodeIndex)

	// Interior nodes move
	before := c.Node(1).Copy()
	require.NoError(t, c.Perturb(1, delta))
	assert.False(t, c.Node(1).Equal(before))
}

func TestRefineCoarsen(t *testing.T) {
	a := utils.NewVector(1, []float64{0})
	b := utils.NewVector(1, []float64{1})
	c, err := New(a, b, 3)
	require.NoError(t, err)

	// Refine doubles the segments, endpoints retained
	c.Refine()
	assert.Equal(t, 5, c.NumNodes())
	assert.Equal(t, 0., c.Node(0).AtVec(0))
	assert.Equal(t, 1., c.Node(4).AtVec(0))
	// ordering stays monotone
	for i := 0; i < c.NumNodes()-1; i++ {
		assert.Less(t, c.Node(i).AtVec(0), c.Node(i+1).AtVec(0))
	}

	// RefineAt inserts a single midpoint
	require.NoError(t, c.RefineAt(0))
	assert.Equal(t, 6, c.NumNodes())
	assert.InDelta(t, 0.125, c.Node(1).AtVec(0), 1.e-15)

	// Coarsen keeps endpoints and monotone order
	c.Coarsen()
	assert.Equal(t, 0., c.Node(0).AtVec(0))
	assert.Equal(t, 1., c.Node(c.NumNodes()-1).AtVec(0))
	for i := 0; i < c.NumNodes()-1; i++ {
		assert.Less(t, c.Node(i).AtVec(0), c.Node(i+1).AtVec(0))
	}

	// Minimum topology is left untouched
	cMin, _ := New(a, b, 3)
	cMin.Coarsen()
	assert.Equal(t, 3, cMin.NumNodes())
}

func TestDisplacements(t *testing.T) {
	a := utils.NewVector(1, []float64{0})
	b := utils.NewVector(1, []float64{1})
	c1, _ := New(a, b, 3)
	c2 := c1.Copy()
	require.NoError(t, c2.Perturb(1, utils.NewVector(1, []float64{0.2})))

	total, err := c2.Displacements(c1)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, total, 1.e-15)

	c2.Refine()
	_, err = c2.Displacements(c1)
	assert.Error(t, err)
}
