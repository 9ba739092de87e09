package dsl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValueUnitSuffixes(t *testing.T) {
	cases := map[string]float64{
		"1p":    1e-12,
		"100n":  100e-9,
		"10u":   10e-6,
		"10µ":   10e-6,
		"1.5m":  1.5e-3,
		"10k":   10e3,
		"10K":   10e3,
		"1M":    1e6,
		"1G":    1e9,
		"1591.55": 1591.55,
		"-5":    -5,
		"1e3":   1e3,
		"1.5e-3": 1.5e-3,
	}
	for text, want := range cases {
		got, ok := ParseValue(text)
		require.True(t, ok, "expected %q to parse", text)
		require.InDelta(t, want, got, 1e-12)
	}
}

func TestParseValueRejectsGarbage(t *testing.T) {
	_, ok := ParseValue("")
	require.False(t, ok)
	_, ok = ParseValue("abc")
	require.False(t, ok)
}
