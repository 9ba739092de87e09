package solver

import (
	"math"
	"testing"

	"github.com/petereon/pedaler-core/pkg/circuit"
	"github.com/petereon/pedaler-core/pkg/dsl"
	"github.com/petereon/pedaler-core/pkg/matrix"
	"github.com/petereon/pedaler-core/pkg/perr"
	"github.com/stretchr/testify/require"
)

func buildDiodeClipperCircuit(t *testing.T) (*circuit.Circuit, *matrix.Matrix) {
	t.Helper()
	src := `
.input in
.output out
V1 in 0 DC 0
R1 in out 1k
D1 out 0
D2 0 out
`
	ast, err := dsl.ParseString(src)
	require.NoError(t, err)
	c, err := circuit.FromAst(ast, 48000)
	require.NoError(t, err)
	return c, matrix.New(c.MatrixSize())
}

func TestLinearCircuitSolvesInOneIteration(t *testing.T) {
	ast, err := dsl.ParseString(`
.input in
.output out
V1 in 0 DC 1.0
R1 in out 1k
R2 out 0 1k
`)
	require.NoError(t, err)
	c, err := circuit.FromAst(ast, 48000)
	require.NoError(t, err)
	m := matrix.New(c.MatrixSize())

	iterations, err := Solve(c, m, 1.0/48000.0, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 1, iterations)
	require.InDelta(t, 0.5, m.NodeVoltage(c.OutputNode), 1e-6)
}

func TestNonlinearCircuitConverges(t *testing.T) {
	c, m := buildDiodeClipperCircuit(t)
	c.InputSource.SetValue(0.5)

	iterations, err := Solve(c, m, 1.0/48000.0, DefaultConfig())
	require.NoError(t, err)
	require.Greater(t, iterations, 0)
	require.LessOrEqual(t, iterations, DefaultMaxIterations)
}

func TestConvergenceFailureReportsIterationsAndResidual(t *testing.T) {
	c, m := buildDiodeClipperCircuit(t)
	c.InputSource.SetValue(1.0)

	cfg := Config{MaxIterations: 1, Tolerance: 1e-15}
	_, err := Solve(c, m, 1.0/48000.0, cfg)
	require.Error(t, err)

	var cf *perr.ConvergenceFailureError
	require.ErrorAs(t, err, &cf)
	require.Equal(t, 1, cf.Iterations)
	require.GreaterOrEqual(t, cf.Residual, 0.0)
}

// TestConvergenceMonotonicity matches spec.md's testable property: on a
// convergent nonlinear circuit, the L-infinity difference between
// successive Newton iterates is non-increasing after the first two
// iterations (within a small slack for voltage-step limiting).
func TestConvergenceMonotonicity(t *testing.T) {
	ast, err := dsl.ParseString(`
.input in
.output out
V1 in 0 DC 0
R1 in mid 1k
D1 mid out
R2 out 0 1k
`)
	require.NoError(t, err)
	c, err := circuit.FromAst(ast, 48000)
	require.NoError(t, err)
	c.InputSource.SetValue(0.8)

	m := matrix.New(c.MatrixSize())
	dt := 1.0 / 48000.0

	xPrev := make([]float64, m.Size)
	var diffs []float64

	for iter := 0; iter < 20; iter++ {
		m.Clear()
		for _, d := range c.Devices {
			d.Stamp(m, dt)
		}
		for _, nd := range c.NonlinearDevices {
			nd.StampNonlinear(m)
		}
		require.NoError(t, m.Solve())

		x := m.Solution()
		maxDiff := 0.0
		for i := range x {
			diff := math.Abs(x[i] - xPrev[i])
			if diff > maxDiff {
				maxDiff = diff
			}
		}
		diffs = append(diffs, maxDiff)
		copy(xPrev, x)
		if maxDiff < 1e-9 {
			break
		}
	}

	require.GreaterOrEqual(t, len(diffs), 2)
	for i := 2; i < len(diffs); i++ {
		require.LessOrEqual(t, diffs[i], diffs[i-1]+1e-6)
	}
}
