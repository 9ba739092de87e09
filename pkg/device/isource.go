package device

import (
	"math"

	"github.com/petereon/pedaler-core/pkg/matrix"
)

// CurrentSource is an independent current source from n1 to n2, contributing
// directly to the RHS with no branch unknown of its own.
type CurrentSource struct {
	BaseDevice
	waveform SourceWaveform

	dcValue float64
	amplitude, freq, phaseDeg float64
	i1, i2, delay, rise, fall, pWidth, period float64
	times, values []float64

	t          float64
	overridden bool
	override   float64
}

// NewDCCurrentSource builds a constant-value current source.
func NewDCCurrentSource(name string, n1, n2 int, value float64) *CurrentSource {
	return &CurrentSource{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "I", Nodes: []int{n1, n2}},
		waveform:   WaveDC,
		dcValue:    value,
	}
}

// NewSinCurrentSource builds a sinusoidal current source.
func NewSinCurrentSource(name string, n1, n2 int, offset, amplitude, freq, phaseDeg float64) *CurrentSource {
	return &CurrentSource{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "I", Nodes: []int{n1, n2}},
		waveform:   WaveSin,
		dcValue:    offset,
		amplitude:  amplitude,
		freq:       freq,
		phaseDeg:   phaseDeg,
	}
}

// NewPulseCurrentSource builds a SPICE-style PULSE current source.
func NewPulseCurrentSource(name string, n1, n2 int, i1, i2, delay, rise, fall, pWidth, period float64) *CurrentSource {
	return &CurrentSource{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "I", Nodes: []int{n1, n2}},
		waveform:   WavePulse,
		i1:         i1,
		i2:         i2,
		delay:      delay,
		rise:       rise,
		fall:       fall,
		pWidth:     pWidth,
		period:     period,
	}
}

// NewPWLCurrentSource builds a piecewise-linear current source.
func NewPWLCurrentSource(name string, n1, n2 int, times, values []float64) *CurrentSource {
	return &CurrentSource{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "I", Nodes: []int{n1, n2}},
		waveform:   WavePWL,
		times:      times,
		values:     values,
	}
}

// SetValue overrides the waveform generator with a fixed value.
func (i *CurrentSource) SetValue(value float64) {
	i.overridden = true
	i.override = value
}

func (i *CurrentSource) valueAt(t float64) float64 {
	if i.overridden {
		return i.override
	}
	switch i.waveform {
	case WaveSin:
		phaseRad := i.phaseDeg * math.Pi / 180.0
		return i.dcValue + i.amplitude*math.Sin(2.0*math.Pi*i.freq*t+phaseRad)
	case WavePulse:
		return i.getPulseCurrent(t)
	case WavePWL:
		return i.getPWLCurrent(t)
	default:
		return i.dcValue
	}
}

func (i *CurrentSource) getPulseCurrent(t float64) float64 {
	if t < i.delay {
		return i.i1
	}

	t -= i.delay
	if i.period > 0 {
		t = math.Mod(t, i.period)
	}

	if t < i.rise {
		if i.rise == 0 {
			return i.i2
		}
		return i.i1 + (i.i2-i.i1)*t/i.rise
	}

	if t < i.rise+i.pWidth {
		return i.i2
	}

	fallStart := i.rise + i.pWidth
	if t < fallStart+i.fall {
		if i.fall == 0 {
			return i.i1
		}
		return i.i2 - (i.i2-i.i1)*(t-fallStart)/i.fall
	}

	return i.i1
}

func (i *CurrentSource) getPWLCurrent(t float64) float64 {
	if len(i.times) == 0 {
		return 0
	}
	if t <= i.times[0] {
		return i.values[0]
	}

	last := len(i.times) - 1
	if t >= i.times[last] {
		return i.values[last]
	}

	for idx := 1; idx < len(i.times); idx++ {
		if t <= i.times[idx] {
			t1, t2 := i.times[idx-1], i.times[idx]
			i1, i2 := i.values[idx-1], i.values[idx]
			slope := (i2 - i1) / (t2 - t1)
			return i1 + slope*(t-t1)
		}
	}
	return i.values[last]
}

// Stamp stamps the current source directly onto the RHS and advances its
// internal waveform clock by dt.
func (i *CurrentSource) Stamp(m *matrix.Matrix, dt float64) {
	current := i.valueAt(i.t)
	m.StampCurrentSource(i.Nodes[0], i.Nodes[1], current)
	i.t += dt
}
