package device

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReverbDecayClampedTo99Percent(t *testing.T) {
	params := ReverbParams{Decay: 5.0, Size: 0.5, Damping: 0.3, Mix: 0.5}
	r := NewReverb("RV1", 1, 2, 3, params, 48000)
	require.LessOrEqual(t, r.params.Decay, 0.99)
}

func TestReverbRemainsFiniteOverLongRun(t *testing.T) {
	r := NewReverb("RV1", 1, 2, 3, DefaultReverbParams(), 48000)
	for i := 0; i < 48000; i++ {
		u := math.Sin(float64(i) * 0.01)
		r.Advance(u)
		require.False(t, math.IsNaN(r.OutputVoltage()))
		require.False(t, math.IsInf(r.OutputVoltage(), 0))
	}
}

func TestReverbResetIsIdempotent(t *testing.T) {
	r := NewReverb("RV1", 1, 2, 3, DefaultReverbParams(), 48000)
	for i := 0; i < 100; i++ {
		r.Advance(float64(i) * 0.001)
	}

	r.Reset()
	first := r.OutputVoltage()
	r.Reset()
	second := r.OutputVoltage()
	require.Equal(t, first, second)
	require.Zero(t, first)
}

func TestReverbDelayLineLengthsScaleWithSize(t *testing.T) {
	small := NewReverb("RV1", 1, 2, 3, ReverbParams{Decay: 0.5, Size: 0.0, Damping: 0.3, Mix: 0.5}, 48000)
	large := NewReverb("RV2", 1, 2, 3, ReverbParams{Decay: 0.5, Size: 1.0, Damping: 0.3, Mix: 0.5}, 48000)
	for i := 0; i < numReverbLines; i++ {
		require.Less(t, small.delayLengths[i], large.delayLengths[i])
	}
}
