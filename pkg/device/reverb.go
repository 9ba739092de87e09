package device

import (
	"math"

	"github.com/petereon/pedaler-core/pkg/matrix"
)

const numReverbLines = 4

// reverbBaseDelayTimes are base delay times (seconds) of a prime number of
// milliseconds each, chosen to avoid metallic resonances in the FDN.
var reverbBaseDelayTimes = [numReverbLines]float64{0.029, 0.037, 0.043, 0.053}

// ReverbParams holds the FDN reverb's tunable parameters.
type ReverbParams struct {
	Decay    float64 // 0..0.99, tail length
	Size     float64 // 0..1, scales delay line lengths
	Damping  float64 // 0..1, high-frequency damping
	Mix      float64 // 0..1, dry/wet
	Predelay float64 // seconds, >= 0
}

// DefaultReverbParams returns the library's default preset.
func DefaultReverbParams() ReverbParams {
	return ReverbParams{Decay: 0.5, Size: 0.5, Damping: 0.3, Mix: 0.5, Predelay: 0}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Reverb is a 4-line Feedback Delay Network with Hadamard mixing, coupled
// into the electrical system the same way as DelayLine: an ideal voltage
// source from the output node to ground, advanced with one sample of
// feedthrough delay.
type Reverb struct {
	BaseDevice
	inputNode, outputNode, branchRow int
	params                           ReverbParams

	bufs         [numReverbLines][]float64
	writePos     [numReverbLines]int
	lpState      [numReverbLines]float64
	delayLengths [numReverbLines]int

	predelayBuf []float64
	predelayPos int

	outputVoltage float64
}

// NewReverb builds a reverb with terminal order [input, output]. Decay is
// clamped to <=0.99 to preserve stability of the damped Hadamard loop (no
// explicit stability proof is given for this clamp; it is retained as a
// conservative bound per the original design).
func NewReverb(name string, inputNode, outputNode, branchRow int, params ReverbParams, sampleRate float64) *Reverb {
	params.Decay = math.Min(clamp01(params.Decay), 0.99)
	params.Size = clamp01(params.Size)
	params.Damping = clamp01(params.Damping)
	params.Mix = clamp01(params.Mix)
	if params.Predelay < 0 {
		params.Predelay = 0
	}

	r := &Reverb{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "REVERB", Nodes: []int{inputNode, outputNode}},
		inputNode:  inputNode,
		outputNode: outputNode,
		branchRow:  branchRow,
		params:     params,
	}

	sizeScale := 0.5 + params.Size*1.5
	for i := 0; i < numReverbLines; i++ {
		length := int(reverbBaseDelayTimes[i]*sizeScale*sampleRate + 0.5)
		if length < 1 {
			length = 1
		}
		r.delayLengths[i] = length
		r.bufs[i] = make([]float64, length)
	}

	predelayLen := int(params.Predelay*sampleRate + 0.5)
	if predelayLen < 1 {
		predelayLen = 1
	}
	r.predelayBuf = make([]float64, predelayLen)

	return r
}

func (r *Reverb) InputNode() int  { return r.inputNode }
func (r *Reverb) OutputNode() int { return r.outputNode }
func (r *Reverb) BranchRow() int  { return r.branchRow }

func (r *Reverb) OutputVoltage() float64 { return r.outputVoltage }

// Stamp couples the reverb into the MNA system as an ideal, ground-
// referenced voltage source driving outputNode to OutputVoltage(); see
// DelayLine.Stamp for why inputNode is read but never electrically tied
// to outputNode.
func (r *Reverb) Stamp(m *matrix.Matrix, dt float64) {
	m.StampVoltageSource(r.outputNode, 0, r.branchRow, r.outputVoltage)
}

// hadamard4 applies the normalised 4x4 Hadamard matrix, an orthogonal
// (energy-preserving) mixer.
func hadamard4(x [numReverbLines]float64) [numReverbLines]float64 {
	a := x[0] + x[1] + x[2] + x[3]
	b := x[0] - x[1] + x[2] - x[3]
	c := x[0] + x[1] - x[2] - x[3]
	d := x[0] - x[1] - x[2] + x[3]
	return [numReverbLines]float64{a * 0.5, b * 0.5, c * 0.5, d * 0.5}
}

// Advance processes vIn through the pre-delay, four damped delay lines, and
// the Hadamard feedback matrix, storing the mixed result as the next
// sample's OutputVoltage.
func (r *Reverb) Advance(vIn float64) {
	predelayed := vIn
	if len(r.predelayBuf) > 1 {
		predelayed = r.predelayBuf[r.predelayPos]
		r.predelayBuf[r.predelayPos] = vIn
		r.predelayPos = (r.predelayPos + 1) % len(r.predelayBuf)
	}

	var delayed [numReverbLines]float64
	for i := 0; i < numReverbLines; i++ {
		delayed[i] = r.bufs[i][r.writePos[i]]
	}

	damping := r.params.Damping
	for i := 0; i < numReverbLines; i++ {
		r.lpState[i] = r.lpState[i]*damping + delayed[i]*(1.0-damping)
		delayed[i] = r.lpState[i]
	}

	feedback := hadamard4(delayed)

	decay := r.params.Decay
	for i := 0; i < numReverbLines; i++ {
		sample := predelayed + feedback[i]*decay
		r.bufs[i][r.writePos[i]] = sample
		r.writePos[i] = (r.writePos[i] + 1) % r.delayLengths[i]
	}

	wet := (delayed[0] + delayed[1] + delayed[2] + delayed[3]) * 0.25
	mix := r.params.Mix
	r.outputVoltage = vIn*(1.0-mix) + wet*mix
}

// Reset clears every delay line, the pre-delay buffer, and the damping state.
func (r *Reverb) Reset() {
	for i := 0; i < numReverbLines; i++ {
		for j := range r.bufs[i] {
			r.bufs[i][j] = 0
		}
		r.writePos[i] = 0
		r.lpState[i] = 0
	}
	for i := range r.predelayBuf {
		r.predelayBuf[i] = 0
	}
	r.predelayPos = 0
	r.outputVoltage = 0
}
