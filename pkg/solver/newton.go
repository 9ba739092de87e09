// Package solver drives the Newton-Raphson iteration that linearises the
// circuit's nonlinear devices once per sample. A purely linear circuit
// skips the iteration loop entirely and solves once.
package solver

import (
	"math"

	"github.com/petereon/pedaler-core/pkg/circuit"
	"github.com/petereon/pedaler-core/pkg/matrix"
	"github.com/petereon/pedaler-core/pkg/perr"
)

// DefaultMaxIterations is the iteration cap used when a Config isn't
// supplied explicitly.
const DefaultMaxIterations = 50

// DefaultTolerance is the L-infinity convergence tolerance, in volts, used
// when a Config isn't supplied explicitly.
const DefaultTolerance = 1e-4

// Config bounds how hard Solve works to converge a nonlinear circuit.
type Config struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultConfig returns the library's default Newton-Raphson bounds.
func DefaultConfig() Config {
	return Config{MaxIterations: DefaultMaxIterations, Tolerance: DefaultTolerance}
}

// Solve stamps the linear devices, then - if the circuit has any nonlinear
// device - iterates: clear, re-stamp linear and nonlinear devices from the
// previous iteration's node voltages, factor, solve, and check the
// L-infinity change against the previous iterate. A purely linear circuit
// solves once and returns immediately.
//
// On convergence every nonlinear device's UpdateOperatingPoint is called so
// next sample's linearisation starts from the converged point - unlike the
// reference algorithm this is actually implemented here, not a documented
// no-op.
func Solve(c *circuit.Circuit, m *matrix.Matrix, dt float64, cfg Config) (int, error) {
	if len(c.NonlinearDevices) == 0 {
		m.Clear()
		stampLinear(c, m, dt)
		if err := m.Solve(); err != nil {
			return 0, err
		}
		return 1, nil
	}

	xPrev := make([]float64, m.Size)
	copy(xPrev, m.Solution())

	var lastDiff float64

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		m.Clear()
		stampLinear(c, m, dt)
		stampNonlinear(c, m)

		if err := m.Solve(); err != nil {
			return 0, err
		}

		maxDiff := 0.0
		x := m.Solution()
		for i := range x {
			diff := math.Abs(x[i] - xPrev[i])
			if diff > maxDiff {
				maxDiff = diff
			}
		}
		lastDiff = maxDiff

		if maxDiff < cfg.Tolerance {
			for _, nd := range c.NonlinearDevices {
				nd.UpdateOperatingPoint(m)
			}
			return iter + 1, nil
		}

		copy(xPrev, x)
	}

	return cfg.MaxIterations, &perr.ConvergenceFailureError{Iterations: cfg.MaxIterations, Residual: lastDiff}
}

func stampLinear(c *circuit.Circuit, m *matrix.Matrix, dt float64) {
	for _, d := range c.Devices {
		d.Stamp(m, dt)
	}
}

func stampNonlinear(c *circuit.Circuit, m *matrix.Matrix) {
	for _, nd := range c.NonlinearDevices {
		nd.StampNonlinear(m)
	}
}
