package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPotentiometerPositionClamped(t *testing.T) {
	p := NewPotentiometer("POT1", 1, 2, 3, 10000, -1.0)
	require.Equal(t, 0.001, p.Position)

	p = NewPotentiometer("POT1", 1, 2, 3, 10000, 5.0)
	require.Equal(t, 0.999, p.Position)
}

func TestPotentiometerSubResistancesSumApproximatelyTotal(t *testing.T) {
	p := NewPotentiometer("POT1", 1, 2, 3, 10000, 0.5)
	require.InDelta(t, 5000, p.r1(), 1e-9)
	require.InDelta(t, 5000, p.r2(), 1e-9)
}

func TestPotentiometerSubResistanceFloor(t *testing.T) {
	p := NewPotentiometer("POT1", 1, 2, 3, 1.0, 0.001)
	require.GreaterOrEqual(t, p.r1(), 0.1)
	require.GreaterOrEqual(t, p.r2(), 0.1)
}

func TestSwitchResistanceByState(t *testing.T) {
	sw := NewSwitch("SW1", 1, 2, true)
	require.Equal(t, SwitchClosedResistance, sw.resistance())

	sw.SetState(false)
	require.Equal(t, SwitchOpenResistance, sw.resistance())

	sw.Toggle()
	require.True(t, sw.Closed)
}
