/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/geodyn/birkhoff/bfgs"
	"github.com/geodyn/birkhoff/birkhoff"
	"github.com/geodyn/birkhoff/config"
	"github.com/geodyn/birkhoff/curve"
	"github.com/geodyn/birkhoff/geom"
	"github.com/geodyn/birkhoff/metric"
	"github.com/geodyn/birkhoff/potential"
	"github.com/geodyn/birkhoff/simclient"
	"github.com/geodyn/birkhoff/trajectory"
	"github.com/geodyn/birkhoff/utils"
)

var (
	inputFile  string
	outputXYZ  string
	cpuProfile bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a geodesic computation from a YAML configuration",
	Long: `Reads the run configuration, starts the worker pool and drives the
global curve-shortening sweep to convergence, optionally writing the
resulting path as an XYZ animation.`,
	RunE: runGeodesic,
}

func init() {
	runCmd.Flags().StringVarP(&inputFile, "input", "i", "", "YAML run configuration (required)")
	runCmd.Flags().StringVarP(&outputXYZ, "output", "o", "", "XYZ animation output, overrides output_xyz")
	runCmd.Flags().BoolVar(&cpuProfile, "cpuprofile", false, "write a CPU profile to the working directory")

	runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}

func runGeodesic(cmd *cobra.Command, args []string) error {
	if cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	rp := config.Defaults()
	if err = rp.Parse(data); err != nil {
		return err
	}
	rp.Print()

	pot, err := potential.New(rp.Potential, rp.PotentialParams, rp.Dim())
	if err != nil {
		return err
	}
	var mass utils.MassMatrix
	if len(rp.AtomMasses) > 0 {
		mass = utils.NewMassMatrix(rp.AtomMasses, rp.Dim()/len(rp.AtomMasses))
	} else {
		mass = utils.NewUnitMass(rp.Dim())
	}
	fn := geom.NewFunctional(mass)
	if rp.Quadrature == "midpoint" {
		fn.Rule = geom.Midpoint
	}

	pool := simclient.NewPool(simclient.PoolConfig{
		Size:    rp.WorkerPoolSize,
		Timeout: rp.EvalTimeout(),
		Retries: rp.EvalRetryCount,
	}, logger)
	// each worker owns its own oracle instance; the surface name was
	// validated above, so the construction cannot fail here
	pool.Start(func() metric.Potential {
		p, _ := potential.New(rp.Potential, rp.PotentialParams, rp.Dim())
		return p
	})
	defer pool.Shutdown()
	src := simclient.NewClient(pool, metric.NewEvaluator(rp.TotalEnergy, pot))

	driver := birkhoff.New(birkhoff.Config{
		Tolerance:  rp.GlobalTolerance,
		MaxSweeps:  rp.MaxSweeps,
		LocalNodes: rp.NNodes,
		Local: bfgs.Config{
			GradTol:       rp.GradientTolerance,
			MaxIterations: rp.MaxIterations,
			Memory:        rp.BFGSMemory,
			MaxShrink:     rp.LineSearchShrink,
		},
	}, fn, src, logger)

	c, err := curve.New(
		utils.NewVector(rp.Dim(), rp.EndpointA),
		utils.NewVector(rp.Dim(), rp.EndpointB),
		rp.GlobalNodes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	res, err := driver.Run(ctx, c)
	if err != nil {
		return err
	}

	fmt.Printf("%s\t\t= Final State\n", res.State)
	fmt.Printf("%8.6f\t= Functional Value\n", res.FinalValue)
	fmt.Printf("[%d]\t\t\t= Sweeps\n", res.Sweeps)
	fmt.Printf("%8.2e\t= Curve Movement\n", res.Movement)

	if out := outputPath(rp); out != "" {
		if err = trajectory.WriteFile(out, c, nil); err != nil {
			return err
		}
		fmt.Printf("[%s]\t\t= Trajectory Output\n", out)
	}
	if res.State != bfgs.Converged {
		return fmt.Errorf("run ended %s: %s", res.State, res.Reason)
	}
	return nil
}

func outputPath(rp *config.RunParameters) string {
	if outputXYZ != "" {
		return outputXYZ
	}
	return rp.OutputXYZ
}
