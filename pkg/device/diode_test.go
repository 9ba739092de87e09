package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiodeCurrentIsMonotonicallyIncreasing(t *testing.T) {
	d := NewDiode("D1", 1, 2, DefaultDiodeParams())
	nVt := d.Params.nVt()
	prev := d.current(-1.0)
	for v := -0.9; v <= 1.0; v += 0.1 {
		cur := d.current(v)
		if v < -5.0*nVt {
			// Below -5*n_Vt the current sits on the flat -Is floor.
			require.Equal(t, prev, cur)
		} else {
			require.Greater(t, cur, prev)
		}
		prev = cur
	}
}

func TestDiodeReverseBiasFloor(t *testing.T) {
	d := NewDiode("D1", 1, 2, DefaultDiodeParams())
	nVt := d.Params.nVt()
	i := d.current(-10 * nVt)
	require.InDelta(t, -d.Params.Is, i, 1e-15)
}

func TestDiodeLinearExtrapolationAboveVCrit(t *testing.T) {
	d := NewDiode("D1", 1, 2, DefaultDiodeParams())
	gAtCrit := d.conductance(d.Params.VCrit)
	gAboveCrit := d.conductance(d.Params.VCrit + 0.3)
	// Above v_crit the conductance is pinned to the value at v_crit (linear
	// extrapolation), not the exponential's continued growth.
	require.InDelta(t, gAtCrit, gAboveCrit, 1e-12)
}

func TestDiodeVoltageStepLimiting(t *testing.T) {
	d := NewDiode("D1", 1, 2, DefaultDiodeParams())
	maxStep := d.Params.VCrit
	limited := d.limitVoltageStep(0, 5.0)
	require.InDelta(t, maxStep, limited, 1e-12)

	limited = d.limitVoltageStep(0, -5.0)
	require.InDelta(t, -maxStep, limited, 1e-12)

	// A small step passes through unchanged.
	limited = d.limitVoltageStep(0.1, 0.2)
	require.InDelta(t, 0.2, limited, 1e-12)
}
