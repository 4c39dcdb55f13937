// Package config holds the YAML run configuration. The recognized options
// map one to one onto the knobs of the geodesic engine: the fixed total
// energy, the endpoint configurations, discretization and optimizer budgets
// and the worker-pool limits.
package config

import (
	"fmt"
	"time"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type RunParameters struct {
	Title             string    `json:"title"`
	TotalEnergy       float64   `json:"total_energy"`
	EndpointA         []float64 `json:"endpoint_a"`
	EndpointB         []float64 `json:"endpoint_b"`
	NNodes            int       `json:"n_nodes"`
	GradientTolerance float64   `json:"gradient_tolerance"`
	MaxIterations     int       `json:"max_iterations"`
	BFGSMemory        int       `json:"bfgs_memory"`
	LineSearchShrink  int       `json:"line_search_max_shrink"`
	WorkerPoolSize    int       `json:"worker_pool_size"`
	EvalTimeoutSec    float64   `json:"eval_timeout_seconds"`
	EvalRetryCount    int       `json:"eval_retry_count"`
	Potential         string    `json:"potential"`
	PotentialParams   []float64 `json:"potential_params"`
	AtomMasses        []float64 `json:"atom_masses"` // empty means unit masses
	GlobalNodes       int       `json:"global_n_nodes"`
	GlobalTolerance   float64   `json:"global_tolerance"`
	MaxSweeps         int       `json:"max_sweeps"`
	Quadrature        string    `json:"quadrature"`
	OutputXYZ         string    `json:"output_xyz"`
}

// Defaults returns a configuration with every tunable at its documented
// default; endpoints and energy are deliberately left unset because no
// sensible default exists for them.
func Defaults() *RunParameters {
	return &RunParameters{
		NNodes:            9,
		GradientTolerance: 1.e-5,
		MaxIterations:     500,
		BFGSMemory:        10,
		LineSearchShrink:  30,
		WorkerPoolSize:    4,
		EvalTimeoutSec:    30,
		EvalRetryCount:    1,
		Potential:         "free",
		GlobalNodes:       5,
		GlobalTolerance:   1.e-4,
		MaxSweeps:         100,
		Quadrature:        "trapezoid",
	}
}

func (rp *RunParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, rp); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return rp.Validate()
}

func (rp *RunParameters) Validate() error {
	switch {
	case len(rp.EndpointA) == 0 || len(rp.EndpointB) == 0:
		return fmt.Errorf("config: endpoint_a and endpoint_b are required")
	case len(rp.EndpointA) != len(rp.EndpointB):
		return fmt.Errorf("config: endpoint dimensions differ, %d vs %d",
			len(rp.EndpointA), len(rp.EndpointB))
	case rp.NNodes < 3:
		return fmt.Errorf("config: n_nodes must be at least 3, got %d", rp.NNodes)
	case rp.GradientTolerance <= 0:
		return fmt.Errorf("config: gradient_tolerance must be positive")
	case rp.MaxIterations < 1:
		return fmt.Errorf("config: max_iterations must be at least 1")
	case rp.BFGSMemory < 1:
		return fmt.Errorf("config: bfgs_memory must be at least 1")
	case rp.LineSearchShrink < 1:
		return fmt.Errorf("config: line_search_max_shrink must be at least 1")
	case rp.WorkerPoolSize < 1:
		return fmt.Errorf("config: worker_pool_size must be at least 1")
	case rp.EvalTimeoutSec <= 0:
		return fmt.Errorf("config: eval_timeout_seconds must be positive")
	case rp.EvalRetryCount < 0:
		return fmt.Errorf("config: eval_retry_count must not be negative")
	case rp.GlobalNodes < 3:
		return fmt.Errorf("config: global_n_nodes must be at least 3, got %d", rp.GlobalNodes)
	case rp.GlobalTolerance <= 0:
		return fmt.Errorf("config: global_tolerance must be positive")
	case rp.Quadrature != "trapezoid" && rp.Quadrature != "midpoint":
		return fmt.Errorf("config: unknown quadrature %q", rp.Quadrature)
	}
	if len(rp.AtomMasses) > 0 && len(rp.EndpointA)%len(rp.AtomMasses) != 0 {
		return fmt.Errorf("config: %d masses do not divide dimension %d",
			len(rp.AtomMasses), len(rp.EndpointA))
	}
	return nil
}

func (rp *RunParameters) Dim() int { return len(rp.EndpointA) }

func (rp *RunParameters) EvalTimeout() time.Duration {
	return time.Duration(rp.EvalTimeoutSec * float64(time.Second))
}

func (rp *RunParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", rp.Title)
	fmt.Printf("%8.5f\t\t= Total Energy\n", rp.TotalEnergy)
	fmt.Printf("%v\t= Endpoint A\n", rp.EndpointA)
	fmt.Printf("%v\t= Endpoint B\n", rp.EndpointB)
	fmt.Printf("[%d]\t\t\t= Local Nodes\n", rp.NNodes)
	fmt.Printf("[%d]\t\t\t= Global Nodes\n", rp.GlobalNodes)
	fmt.Printf("%8.2e\t\t= Gradient Tolerance\n", rp.GradientTolerance)
	fmt.Printf("%8.2e\t\t= Global Tolerance\n", rp.GlobalTolerance)
	fmt.Printf("[%s]\t\t\t= Potential\n", rp.Potential)
	fmt.Printf("[%d]\t\t\t= Worker Pool Size\n", rp.WorkerPoolSize)
}
