package device

import (
	"math"

	"github.com/petereon/pedaler-core/internal/consts"
	"github.com/petereon/pedaler-core/pkg/matrix"
)

// BjtPolarity distinguishes NPN from PNP sign conventions.
type BjtPolarity int

const (
	Npn BjtPolarity = iota
	Pnp
)

func (p BjtPolarity) sign() float64 {
	if p == Pnp {
		return -1.0
	}
	return 1.0
}

// BjtParams holds the simplified Ebers-Moll parameters for a BJT model.
// This is deliberately NOT a Gummel-Poon model: no junction capacitances,
// no temperature sweep, no base/collector/emitter series resistances.
type BjtParams struct {
	BetaF float64 // forward current gain
	BetaR float64 // reverse current gain
	IsBe  float64 // base-emitter saturation current
	IsBc  float64 // base-collector saturation current
	N     float64 // ideality factor
	Va    float64 // Early voltage; 0 means infinite (no Early effect)
}

// DefaultBjtParams returns the generic small-signal NPN/PNP preset.
func DefaultBjtParams() BjtParams {
	return BjtParams{BetaF: 100, BetaR: 1, IsBe: 1e-14, IsBc: 1e-14, N: 1, Va: 100}
}

func (p BjtParams) nVt() float64 {
	return p.N * consts.ThermalVoltage
}

// Bjt is a three-terminal nonlinear device: collector, base, emitter.
type Bjt struct {
	BaseDevice
	Polarity BjtPolarity
	Params   BjtParams

	vBeOp float64
	vBcOp float64
}

// NewBjt builds a BJT with terminal order [collector, base, emitter].
func NewBjt(name string, collector, base, emitter int, polarity BjtPolarity, params BjtParams) *Bjt {
	return &Bjt{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "Q", Nodes: []int{collector, base, emitter}},
		Polarity:   polarity,
		Params:     params,
	}
}

func (q *Bjt) collector() int { return q.Nodes[0] }
func (q *Bjt) base() int      { return q.Nodes[1] }
func (q *Bjt) emitter() int   { return q.Nodes[2] }

// junctionCurrent evaluates a diode-like junction current with linear
// extrapolation above 0.8V (the BJT's own, higher, critical voltage - not
// the same threshold as Diode's v_crit).
func junctionCurrent(is, nVt, v float64) float64 {
	const vCrit = 0.8
	if v > vCrit {
		iCrit := is * (math.Exp(vCrit/nVt) - 1.0)
		gCrit := is / nVt * math.Exp(vCrit/nVt)
		return iCrit + gCrit*(v-vCrit)
	}
	return is * (math.Exp(v/nVt) - 1.0)
}

// iBe returns the base-emitter junction current at the given v_be.
func (q *Bjt) iBe(vBe float64) float64 {
	v := vBe * q.Polarity.sign()
	return junctionCurrent(q.Params.IsBe, q.Params.nVt(), v)
}

// iBc returns the base-collector junction current at the given v_bc.
func (q *Bjt) iBc(vBc float64) float64 {
	v := vBc * q.Polarity.sign()
	return junctionCurrent(q.Params.IsBc, q.Params.nVt(), v)
}

// iC returns the collector current.
func (q *Bjt) iC(vBe, vBc float64) float64 {
	iF, iR := q.iBe(vBe), q.iBc(vBc)
	sign := q.Polarity.sign()
	return sign * (q.Params.BetaF*iF/(q.Params.BetaF+1.0) - iR*(q.Params.BetaR+1.0)/q.Params.BetaR)
}

// iB returns the base current.
func (q *Bjt) iB(vBe, vBc float64) float64 {
	iF, iR := q.iBe(vBe), q.iBc(vBc)
	sign := q.Polarity.sign()
	return sign * (iF/(q.Params.BetaF+1.0) + iR/(q.Params.BetaR+1.0))
}

// linearize returns the small-signal parameters (gm, go, gpi, gmu), all
// floored at 1e-12.
func (q *Bjt) linearize(vBe, vBc float64) (gm, go_, gpi, gmu float64) {
	nVt := q.Params.nVt()
	sign := q.Polarity.sign()

	vBeEff := vBe * sign
	gBe := 1e-12
	if vBeEff > 0 {
		gBe = math.Min(q.Params.IsBe/nVt*math.Exp(vBeEff/nVt), 1.0)
	}

	vBcEff := vBc * sign
	gBc := 1e-12
	if vBcEff > 0 {
		gBc = math.Min(q.Params.IsBc/nVt*math.Exp(vBcEff/nVt), 1.0)
	}

	gm = q.Params.BetaF * gBe / (q.Params.BetaF + 1.0)

	if q.Params.Va > 0 {
		go_ = math.Abs(q.iC(vBe, vBc)) / q.Params.Va
	} else {
		go_ = 1e-12
	}

	gpi = gBe / (q.Params.BetaF + 1.0)
	gmu = gBc / (q.Params.BetaR + 1.0)

	return math.Max(gm, 1e-12), math.Max(go_, 1e-12), math.Max(gpi, 1e-12), math.Max(gmu, 1e-12)
}

// Stamp is a no-op: a BJT only contributes via StampNonlinear.
func (q *Bjt) Stamp(m *matrix.Matrix, dt float64) {}

// StampNonlinear linearises about the current node voltages and stamps the
// small-signal equivalent plus companion current sources reproducing the
// actual Ic/Ib at the operating point. The base companion current is
// stamped against ground, not against the emitter - this asymmetry (matching
// the collector-emitter vs. base-ground placement) is deliberate: the base
// current closes through the base terminal alone in this macro-model.
func (q *Bjt) StampNonlinear(m *matrix.Matrix) {
	nC, nB, nE := q.collector(), q.base(), q.emitter()

	vC, vB, vE := m.NodeVoltage(nC), m.NodeVoltage(nB), m.NodeVoltage(nE)
	vBe := vB - vE
	vBc := vB - vC

	gm, goC, gpi, gmu := q.linearize(vBe, vBc)

	m.StampConductance(nB, nE, gpi)
	m.StampConductance(nB, nC, gmu)
	m.StampConductance(nC, nE, goC)
	m.StampVCCS(nC, nE, nB, nE, gm)

	iC := q.iC(vBe, vBc)
	iB := q.iB(vBe, vBc)

	iCEq := iC - gm*vBe - goC*(vC-vE)
	iBEq := iB - gpi*vBe - gmu*vBc

	m.StampCurrentSource(nC, nE, iCEq)
	m.StampCurrentSource(nB, 0, -iBEq)
}

// UpdateOperatingPoint records the converged v_be/v_bc. StampNonlinear does
// not read them: it linearises about the working solution's node voltages
// as they stand, with no step limiting.
func (q *Bjt) UpdateOperatingPoint(m *matrix.Matrix) {
	vC, vB, vE := m.NodeVoltage(q.collector()), m.NodeVoltage(q.base()), m.NodeVoltage(q.emitter())
	q.vBeOp = vB - vE
	q.vBcOp = vB - vC
}
