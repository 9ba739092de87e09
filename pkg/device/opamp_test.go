package device

import (
	"testing"

	"github.com/petereon/pedaler-core/pkg/matrix"
	"github.com/stretchr/testify/require"
)

// TestInvertingOpAmpGain matches spec.md's end-to-end scenario: Rin=10k,
// Rf=100k, gain 1e5, r_out=75. DC input 0.1V should yield an output of
// approximately -1.0V (closed-loop gain -Rf/Rin = -10).
func TestInvertingOpAmpGain(t *testing.T) {
	// Node 1: input source. Node 2: inverting input / feedback junction.
	// Node 3: op-amp output. V+ is grounded.
	m := matrix.New(4) // 3 nodes + 1 branch for the input source
	src := NewDCVoltageSource("V1", 1, 0, 3, 0.1)
	rin := NewResistor("RIN", 1, 2, 10e3)
	rf := NewResistor("RF", 2, 3, 100e3)
	op := NewOpAmp("OP1", 3, 0, 2, OpAmpParams{Gain: 1e5, ROut: 75, RIn: 1e12})

	src.Stamp(m, 1.0/48000.0)
	rin.Stamp(m, 1.0/48000.0)
	rf.Stamp(m, 1.0/48000.0)
	op.Stamp(m, 1.0/48000.0)

	require.NoError(t, m.Solve())
	require.InDelta(t, -1.0, m.NodeVoltage(3), 0.01)
}

func TestOpAmpClampOutputDisabledByDefault(t *testing.T) {
	op := NewOpAmp("OP1", 1, 2, 3, IdealOpAmpParams())
	v := op.ClampOutput(20.0, 1.0/48000.0)
	require.Equal(t, 20.0, v)
}

func TestOpAmpClampOutputRailLimitsWhenEnabled(t *testing.T) {
	params := IdealOpAmpParams()
	params.RailLimit = true
	op := NewOpAmp("OP1", 1, 2, 3, params)
	v := op.ClampOutput(100.0, 1.0/48000.0)
	require.LessOrEqual(t, v, params.VRailPos)
}
