package device

import (
	"math"

	"github.com/petereon/pedaler-core/pkg/matrix"
)

// OpAmpParams holds the VCCS macro-model parameters for an op-amp.
type OpAmpParams struct {
	Gain       float64 // open-loop DC gain
	ROut       float64 // output resistance
	RIn        float64 // differential input resistance
	VRailPos   float64
	VRailNeg   float64
	SlewRate   float64 // V/us, 0 = infinite
	RailLimit  bool    // enable the optional post-solve rail/slew clamp
}

// IdealOpAmpParams returns the IDEAL preset: very high but finite gain,
// chosen for numerical conditioning rather than a literal infinite gain.
func IdealOpAmpParams() OpAmpParams {
	return OpAmpParams{Gain: 1e9, ROut: 0.1, RIn: 1e12, VRailPos: 15, VRailNeg: -15, SlewRate: 0}
}

// Ua741OpAmpParams returns the UA741 preset.
func Ua741OpAmpParams() OpAmpParams {
	return OpAmpParams{Gain: 2e5, ROut: 75, RIn: 2e6, VRailPos: 15, VRailNeg: -15, SlewRate: 0.5}
}

// Tl072OpAmpParams returns the TL072 (JFET input) preset.
func Tl072OpAmpParams() OpAmpParams {
	return OpAmpParams{Gain: 2e5, ROut: 100, RIn: 1e12, VRailPos: 15, VRailNeg: -15, SlewRate: 13}
}

// OpAmp is modeled as a voltage-controlled current source rather than a
// direct VCVS: an enormous-gain VCVS stamp causes catastrophic cancellation
// in the dense LU solve, while the VCCS+R_out form gives the same DC
// closed-loop behaviour with well-conditioned matrix entries.
type OpAmp struct {
	BaseDevice
	Params OpAmpParams

	vOut float64
}

// NewOpAmp builds an op-amp with terminal order [output, non-inverting(+), inverting(-)].
func NewOpAmp(name string, out, vPos, vNeg int, params OpAmpParams) *OpAmp {
	return &OpAmp{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "OP", Nodes: []int{out, vPos, vNeg}},
		Params:     params,
	}
}

func (o *OpAmp) output() int { return o.Nodes[0] }
func (o *OpAmp) vPos() int   { return o.Nodes[1] }
func (o *OpAmp) vNeg() int   { return o.Nodes[2] }

// Output returns the output node id, used by the simulator to apply the
// optional post-solve rail/slew clamp.
func (o *OpAmp) Output() int { return o.output() }

// Stamp installs the three linear elements of the macro-model: the
// transconductance driving the output node from (V+ - V-), the output
// conductance to ground, and the input conductance across V+/V-.
func (o *OpAmp) Stamp(m *matrix.Matrix, dt float64) {
	gm := o.Params.Gain / o.Params.ROut
	gOut := 1.0 / o.Params.ROut
	gIn := 1.0 / o.Params.RIn

	m.StampVCCS(0, o.output(), o.vPos(), o.vNeg(), gm)
	m.StampConductance(o.output(), 0, gOut)
	m.StampConductance(o.vPos(), o.vNeg(), gIn)
}

// ClampOutput applies the optional rail/slew-rate clamp to a solved output
// voltage. This is never folded into the Newton loop (see the op-amp's
// Open Question resolution): it runs once per sample, after the solve, and
// only when RailLimit is enabled.
func (o *OpAmp) ClampOutput(vSolved, dt float64) float64 {
	if !o.Params.RailLimit {
		o.vOut = vSolved
		return vSolved
	}

	target := math.Min(math.Max(vSolved, o.Params.VRailNeg+0.5), o.Params.VRailPos-0.5)

	if o.Params.SlewRate > 0 {
		maxChange := o.Params.SlewRate * 1e6 * dt
		change := target - o.vOut
		if change > maxChange {
			change = maxChange
		} else if change < -maxChange {
			change = -maxChange
		}
		o.vOut += change
	} else {
		o.vOut = target
	}
	return o.vOut
}
