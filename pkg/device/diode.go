package device

import (
	"math"

	"github.com/petereon/pedaler-core/internal/consts"
	"github.com/petereon/pedaler-core/pkg/matrix"
)

// DiodeParams holds the Shockley-equation parameters for a diode model.
type DiodeParams struct {
	Is    float64 // saturation current
	N     float64 // ideality factor
	Vf    float64 // nominal forward voltage drop (informational)
	VCrit float64 // voltage above which the exponential is linearly extrapolated
}

// DefaultDiodeParams returns the SILICON preset.
func DefaultDiodeParams() DiodeParams {
	return DiodeParams{Is: 1e-14, N: 1.0, Vf: 0.7, VCrit: 0.7}
}

// GermaniumDiodeParams returns the GERMANIUM preset: lower forward voltage.
func GermaniumDiodeParams() DiodeParams {
	return DiodeParams{Is: 1e-6, N: 1.3, Vf: 0.3, VCrit: 0.5}
}

// LedDiodeParams returns an LED preset for the given color forward voltage
// (red ~1.8V, green ~2.2V, blue ~3.3V).
func LedDiodeParams(colorVf float64) DiodeParams {
	return DiodeParams{Is: 1e-20, N: 2.0, Vf: colorVf, VCrit: colorVf}
}

func (p DiodeParams) nVt() float64 {
	return p.N * consts.ThermalVoltage
}

// Diode is a two-terminal nonlinear device following the Shockley equation,
// linearised once per Newton iteration about a step-limited operating-point
// voltage.
type Diode struct {
	BaseDevice
	Params DiodeParams

	vOp float64
}

// NewDiode builds a diode between anode (n1) and cathode (n2).
func NewDiode(name string, anode, cathode int, params DiodeParams) *Diode {
	return &Diode{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "D", Nodes: []int{anode, cathode}},
		Params:     params,
	}
}

// current evaluates the Shockley current at voltage v, with linear
// extrapolation above VCrit and a reverse-bias floor below -5*n_Vt.
func (d *Diode) current(v float64) float64 {
	nVt := d.Params.nVt()

	switch {
	case v > d.Params.VCrit:
		iCrit := d.Params.Is * (math.Exp(d.Params.VCrit/nVt) - 1.0)
		gCrit := d.Params.Is / nVt * math.Exp(d.Params.VCrit/nVt)
		return iCrit + gCrit*(v-d.Params.VCrit)
	case v < -5.0*nVt:
		return -d.Params.Is
	default:
		return d.Params.Is * (math.Exp(v/nVt) - 1.0)
	}
}

// conductance evaluates dI/dV at voltage v.
func (d *Diode) conductance(v float64) float64 {
	nVt := d.Params.nVt()
	vLimited := math.Min(v, d.Params.VCrit*2.0)

	switch {
	case vLimited > d.Params.VCrit:
		return d.Params.Is / nVt * math.Exp(d.Params.VCrit/nVt)
	case vLimited < -5.0*nVt:
		return 1e-12
	default:
		return d.Params.Is / nVt * math.Exp(vLimited/nVt)
	}
}

// linearize returns (G, Ieq) such that I = G*V + Ieq around vOp.
func (d *Diode) linearize(vOp float64) (float64, float64) {
	g := d.conductance(vOp)
	i := d.current(vOp)
	ieq := i - g*vOp
	if g < 1e-12 {
		g = 1e-12
	}
	return g, ieq
}

// limitVoltageStep clamps the proposed operating-point step to at most
// max(v_crit, 0.5V), preventing the exponential from overflowing during
// early Newton iterations.
func (d *Diode) limitVoltageStep(vOld, vNew float64) float64 {
	maxStep := math.Max(d.Params.VCrit, 0.5)
	if math.Abs(vNew-vOld) > maxStep {
		if vNew > vOld {
			return vOld + maxStep
		}
		return vOld - maxStep
	}
	return vNew
}

// Stamp is a no-op for a diode: it never participates in the plain linear
// stamping pass, only in StampNonlinear.
func (d *Diode) Stamp(m *matrix.Matrix, dt float64) {}

// StampNonlinear reads the operating-point voltage from the working
// solution, limits its step, linearises, and stamps the companion
// conductance + current source.
func (d *Diode) StampNonlinear(m *matrix.Matrix) {
	anode, cathode := d.Nodes[0], d.Nodes[1]
	vRaw := m.NodeVoltage(anode) - m.NodeVoltage(cathode)
	vOp := d.limitVoltageStep(d.vOp, vRaw)

	g, ieq := d.linearize(vOp)
	m.StampConductance(anode, cathode, g)
	m.StampCurrentSource(anode, cathode, ieq)
}

// UpdateOperatingPoint commits the converged anode-cathode voltage as the
// new limiting reference for the next sample.
func (d *Diode) UpdateOperatingPoint(m *matrix.Matrix) {
	d.vOp = m.NodeVoltage(d.Nodes[0]) - m.NodeVoltage(d.Nodes[1])
}
