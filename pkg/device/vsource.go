package device

import (
	"math"

	"github.com/petereon/pedaler-core/pkg/matrix"
)

// SourceWaveform selects how a source's value varies with simulated time.
// DC is the only waveform the spec's audio-input source ever needs (its
// value is driven sample-by-sample via SetValue instead); the others exist
// so netlists can be exercised as self-contained fixtures.
type SourceWaveform int

const (
	WaveDC SourceWaveform = iota
	WaveSin
	WavePulse
	WavePWL
)

// VoltageSource is an ideal voltage source requiring a branch current
// unknown. Its instantaneous value comes either from a waveform generator
// (ticked once per Stamp call) or from SetValue, used to drive the
// designated audio-input node sample-by-sample.
type VoltageSource struct {
	BaseDevice
	branchRow int
	waveform  SourceWaveform

	// common/DC
	dcValue float64
	// SIN
	amplitude, freq, phaseDeg float64
	// PULSE
	v1, v2, delay, rise, fall, pWidth, period float64
	// PWL
	times, values []float64

	t         float64
	overridden bool
	override   float64
}

// NewDCVoltageSource builds a constant-value voltage source.
func NewDCVoltageSource(name string, nPos, nNeg, branchRow int, value float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "V", Nodes: []int{nPos, nNeg}},
		branchRow:  branchRow,
		waveform:   WaveDC,
		dcValue:    value,
	}
}

// NewSinVoltageSource builds a sinusoidal voltage source: offset + amplitude*sin(2*pi*freq*t + phase).
func NewSinVoltageSource(name string, nPos, nNeg, branchRow int, offset, amplitude, freq, phaseDeg float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "V", Nodes: []int{nPos, nNeg}},
		branchRow:  branchRow,
		waveform:   WaveSin,
		dcValue:    offset,
		amplitude:  amplitude,
		freq:       freq,
		phaseDeg:   phaseDeg,
	}
}

// NewPulseVoltageSource builds a SPICE-style PULSE(v1 v2 delay rise fall width period) source.
func NewPulseVoltageSource(name string, nPos, nNeg, branchRow int, v1, v2, delay, rise, fall, pWidth, period float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "V", Nodes: []int{nPos, nNeg}},
		branchRow:  branchRow,
		waveform:   WavePulse,
		v1:         v1,
		v2:         v2,
		delay:      delay,
		rise:       rise,
		fall:       fall,
		pWidth:     pWidth,
		period:     period,
	}
}

// NewPWLVoltageSource builds a piecewise-linear source from parallel time/value slices.
func NewPWLVoltageSource(name string, nPos, nNeg, branchRow int, times, values []float64) *VoltageSource {
	return &VoltageSource{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "V", Nodes: []int{nPos, nNeg}},
		branchRow:  branchRow,
		waveform:   WavePWL,
		times:      times,
		values:     values,
	}
}

// BranchRow returns the raw matrix row of this source's branch current.
func (v *VoltageSource) BranchRow() int { return v.branchRow }

// SetValue overrides the waveform generator with a fixed value, used to
// drive the designated audio-input node sample-by-sample. Once set, it
// takes precedence over the waveform from then on; a later SetValue only
// replaces the value.
func (v *VoltageSource) SetValue(value float64) {
	v.overridden = true
	v.override = value
}

func (v *VoltageSource) valueAt(t float64) float64 {
	if v.overridden {
		return v.override
	}
	switch v.waveform {
	case WaveSin:
		phaseRad := v.phaseDeg * math.Pi / 180.0
		return v.dcValue + v.amplitude*math.Sin(2.0*math.Pi*v.freq*t+phaseRad)
	case WavePulse:
		return v.getPulseVoltage(t)
	case WavePWL:
		return v.getPWLVoltage(t)
	default:
		return v.dcValue
	}
}

func (v *VoltageSource) getPulseVoltage(t float64) float64 {
	if t < v.delay {
		return v.v1
	}

	t -= v.delay
	if v.period > 0 {
		t = math.Mod(t, v.period)
	}

	if t < v.rise {
		if v.rise == 0 {
			return v.v2
		}
		return v.v1 + (v.v2-v.v1)*t/v.rise
	}

	if t < v.rise+v.pWidth {
		return v.v2
	}

	fallStart := v.rise + v.pWidth
	if t < fallStart+v.fall {
		if v.fall == 0 {
			return v.v1
		}
		return v.v2 - (v.v2-v.v1)*(t-fallStart)/v.fall
	}

	return v.v1
}

func (v *VoltageSource) getPWLVoltage(t float64) float64 {
	if len(v.times) == 0 {
		return 0
	}
	if t <= v.times[0] {
		return v.values[0]
	}

	last := len(v.times) - 1
	if t >= v.times[last] {
		return v.values[last]
	}

	for i := 1; i < len(v.times); i++ {
		if t <= v.times[i] {
			t1, t2 := v.times[i-1], v.times[i]
			v1, v2 := v.values[i-1], v.values[i]
			slope := (v2 - v1) / (t2 - t1)
			return v1 + slope*(t-t1)
		}
	}
	return v.values[last]
}

// Stamp stamps the ideal-voltage-source pattern on the source's branch and
// advances its internal waveform clock by dt.
func (v *VoltageSource) Stamp(m *matrix.Matrix, dt float64) {
	voltage := v.valueAt(v.t)
	m.StampVoltageSource(v.Nodes[0], v.Nodes[1], v.branchRow, voltage)
	v.t += dt
}
