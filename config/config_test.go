package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var yamlInput = []byte(`
title: "Morse dimer rearrangement"
total_energy: 4.0
endpoint_a: [-1.0, 0.0]
endpoint_b: [1.0, 0.0]
n_nodes: 11
gradient_tolerance: 1.e-6
max_iterations: 200
bfgs_memory: 8
line_search_max_shrink: 20
worker_pool_size: 3
eval_timeout_seconds: 2.5
eval_retry_count: 2
potential: harmonic
potential_params: [1.0]
global_n_nodes: 7
global_tolerance: 1.e-3
quadrature: midpoint
output_xyz: run.xyz
`)

func TestParse(t *testing.T) {
	rp := Defaults()
	require.NoError(t, rp.Parse(yamlInput))

	assert.Equal(t, "Morse dimer rearrangement", rp.Title)
	assert.Equal(t, 4.0, rp.TotalEnergy)
	assert.Equal(t, []float64{-1, 0}, rp.EndpointA)
	assert.Equal(t, 2, rp.Dim())
	assert.Equal(t, 11, rp.NNodes)
	assert.Equal(t, 1.e-6, rp.GradientTolerance)
	assert.Equal(t, 8, rp.BFGSMemory)
	assert.Equal(t, 3, rp.WorkerPoolSize)
	assert.Equal(t, 2500*time.Millisecond, rp.EvalTimeout())
	assert.Equal(t, 2, rp.EvalRetryCount)
	assert.Equal(t, "midpoint", rp.Quadrature)
	assert.Equal(t, "run.xyz", rp.OutputXYZ)

	// options absent from the file keep their defaults
	assert.Equal(t, 500, rp.MaxIterations)
	assert.Equal(t, 100, rp.MaxSweeps)
}

func TestValidate(t *testing.T) {
	base := func() *RunParameters {
		rp := Defaults()
		rp.EndpointA = []float64{0, 0}
		rp.EndpointB = []float64{1, 1}
		rp.TotalEnergy = 1
		return rp
	}
	assert.NoError(t, base().Validate())

	{ // endpoints are mandatory and must agree in dimension
		rp := base()
		rp.EndpointA = nil
		assert.Error(t, rp.Validate())

		rp = base()
		rp.EndpointB = []float64{1}
		assert.Error(t, rp.Validate())
	}
	{
		rp := base()
		rp.NNodes = 2
		assert.Error(t, rp.Validate())
	}
	{
		rp := base()
		rp.EvalRetryCount = -1
		assert.Error(t, rp.Validate())
	}
	{
		rp := base()
		rp.Quadrature = "simpson"
		assert.Error(t, rp.Validate())
	}
	{ // masses must tile the configuration vector
		rp := base()
		rp.AtomMasses = []float64{1, 2, 3}
		assert.Error(t, rp.Validate())

		rp.AtomMasses = []float64{1, 2}
		assert.NoError(t, rp.Validate())
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	rp := Defaults()
	assert.Error(t, rp.Parse([]byte("n_nodes: 1")))
	assert.Error(t, rp.Parse([]byte("{")))
}
