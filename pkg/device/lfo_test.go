package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLfoShapesStayWithinUnitRange(t *testing.T) {
	for _, shape := range []LfoShape{LfoSine, LfoTriangle, LfoSawtooth, LfoSquare} {
		lfo := NewLfo("LFO1", 2.0, shape, 48000)
		for i := 0; i < 48000; i++ {
			v := lfo.Tick()
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestLfoSquareIsBinary(t *testing.T) {
	lfo := NewLfo("LFO1", 10.0, LfoSquare, 48000)
	for i := 0; i < 48000; i++ {
		v := lfo.Tick()
		require.True(t, v == 0.0 || v == 1.0)
	}
}

func TestLfoSawtoothRamps(t *testing.T) {
	lfo := NewLfo("LFO1", 1.0, LfoSawtooth, 48000)
	prev := lfo.Tick()
	wrapped := false
	for i := 0; i < 48000; i++ {
		v := lfo.Tick()
		if v < prev {
			wrapped = true
		} else {
			require.GreaterOrEqual(t, v, prev)
		}
		prev = v
	}
	require.True(t, wrapped)
}

func TestLfoResetIsIdempotent(t *testing.T) {
	lfo := NewLfo("LFO1", 5.0, LfoTriangle, 48000)
	for i := 0; i < 1000; i++ {
		lfo.Tick()
	}
	lfo.Reset()
	first := lfo.Value()
	lfo.Reset()
	second := lfo.Value()
	require.Equal(t, first, second)
}

func TestParseLfoShapeRecognisesAliases(t *testing.T) {
	cases := map[string]LfoShape{
		"sine": LfoSine, "sin": LfoSine,
		"triangle": LfoTriangle, "tri": LfoTriangle,
		"sawtooth": LfoSawtooth, "saw": LfoSawtooth,
		"square": LfoSquare, "sq": LfoSquare,
	}
	for name, want := range cases {
		shape, ok := ParseLfoShape(name)
		require.True(t, ok)
		require.Equal(t, want, shape)
	}

	_, ok := ParseLfoShape("bogus")
	require.False(t, ok)
}
