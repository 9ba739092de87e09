package dsl

import (
	"strconv"
	"strings"
)

// ParseValue parses a numeric literal with an optional single-character
// unit suffix (p, n, u/µ, m, k/K, M, G only - no "meg", "f", or "T", unlike
// some SPICE dialects). Returns false if the text isn't a valid number.
func ParseValue(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	numStr := text
	multiplier := 1.0

	last := []rune(text)
	lastCh := last[len(last)-1]
	switch lastCh {
	case 'p':
		multiplier = 1e-12
	case 'n':
		multiplier = 1e-9
	case 'u', 'µ':
		multiplier = 1e-6
	case 'm':
		multiplier = 1e-3
	case 'k', 'K':
		multiplier = 1e3
	case 'M':
		multiplier = 1e6
	case 'G':
		multiplier = 1e9
	}
	if multiplier != 1.0 {
		numStr = string(last[:len(last)-1])
	}

	v, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, false
	}
	return v * multiplier, true
}
