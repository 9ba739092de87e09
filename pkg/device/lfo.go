package device

import (
	"math"
	"strings"
)

// LfoShape is the waveform an LFO emits.
type LfoShape int

const (
	LfoSine LfoShape = iota
	LfoTriangle
	LfoSawtooth
	LfoSquare
)

// ParseLfoShape parses a waveform name, accepting both long and short forms.
// It returns LfoSine, false as the default when the string is unrecognised.
func ParseLfoShape(s string) (LfoShape, bool) {
	switch strings.ToLower(s) {
	case "sine", "sin":
		return LfoSine, true
	case "triangle", "tri":
		return LfoTriangle, true
	case "sawtooth", "saw":
		return LfoSawtooth, true
	case "square", "sq":
		return LfoSquare, true
	default:
		return LfoSine, false
	}
}

// Lfo is a low-frequency oscillator driving resistor modulation. It carries
// no electrical nodes and never participates in MNA stamping directly; the
// simulator ticks it once per sample and feeds its value into every
// resistor that references it by name.
type Lfo struct {
	name  string
	rate  float64
	shape LfoShape

	phase          float64
	phaseIncrement float64
	value          float64
}

// NewLfo builds an LFO at the given rate (Hz) and sample rate (Hz).
func NewLfo(name string, rate float64, shape LfoShape, sampleRate float64) *Lfo {
	return &Lfo{
		name:           name,
		rate:           rate,
		shape:          shape,
		phaseIncrement: rate / sampleRate,
		value:          0.5,
	}
}

// Name returns the LFO's identifier, as referenced by modulated resistors.
func (l *Lfo) Name() string { return l.name }

// Tick advances the LFO by one sample and returns the new value in [0,1].
func (l *Lfo) Tick() float64 {
	switch l.shape {
	case LfoSine:
		l.value = 0.5 + 0.5*math.Sin(2.0*math.Pi*l.phase)
	case LfoTriangle:
		if l.phase < 0.5 {
			l.value = 2.0 * l.phase
		} else {
			l.value = 2.0 * (1.0 - l.phase)
		}
	case LfoSawtooth:
		l.value = l.phase
	case LfoSquare:
		if l.phase < 0.5 {
			l.value = 0.0
		} else {
			l.value = 1.0
		}
	}

	l.phase += l.phaseIncrement
	if l.phase >= 1.0 {
		l.phase -= 1.0
	}

	return l.value
}

// Value returns the current output value without advancing the phase.
func (l *Lfo) Value() float64 { return l.value }

// Reset zeroes the LFO's phase and resets its value to the shape's rest value.
func (l *Lfo) Reset() {
	l.phase = 0.0
	switch l.shape {
	case LfoSine:
		l.value = 0.5
	default:
		l.value = 0.0
	}
}
