package device

import "github.com/petereon/pedaler-core/pkg/matrix"

// DelayLine is a ring-buffered digital delay, coupled into the electrical
// system as an ideal voltage source from its output node to ground (see
// DigitalEffect); the input node is read, never tied to the output. Its state advances by exactly one sample of feedthrough
// delay relative to the electrical solve: OutputVoltage reflects the result
// of processing the *previous* sample's input-node voltage.
type DelayLine struct {
	BaseDevice
	inputNode, outputNode, branchRow int

	buf      []float64
	writePos int

	mix      float64
	feedback float64

	outputVoltage float64
}

// NewDelayLine builds a delay line with length max(1, round(delaySeconds*sampleRate)),
// mix clamped to [0,1] and feedback clamped to [0,0.95] (the cap prevents runaway).
func NewDelayLine(name string, inputNode, outputNode, branchRow int, delaySeconds, sampleRate, mix, feedback float64) *DelayLine {
	length := int(delaySeconds*sampleRate + 0.5)
	if length < 1 {
		length = 1
	}
	if mix < 0 {
		mix = 0
	} else if mix > 1 {
		mix = 1
	}
	if feedback < 0 {
		feedback = 0
	} else if feedback > 0.95 {
		feedback = 0.95
	}
	return &DelayLine{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "DELAY", Nodes: []int{inputNode, outputNode}},
		inputNode:  inputNode,
		outputNode: outputNode,
		branchRow:  branchRow,
		buf:        make([]float64, length),
		mix:        mix,
		feedback:   feedback,
	}
}

func (d *DelayLine) InputNode() int  { return d.inputNode }
func (d *DelayLine) OutputNode() int { return d.outputNode }
func (d *DelayLine) BranchRow() int  { return d.branchRow }

func (d *DelayLine) OutputVoltage() float64 { return d.outputVoltage }

// Stamp couples the delay line into the MNA system as an ideal,
// ground-referenced voltage source driving outputNode to OutputVoltage().
// inputNode is read but never electrically tied to outputNode - the delay
// line's effect on the circuit is entirely through this stamp, not through
// any direct connection between the two nodes.
func (d *DelayLine) Stamp(m *matrix.Matrix, dt float64) {
	m.StampVoltageSource(d.outputNode, 0, d.branchRow, d.outputVoltage)
}

// Advance processes vIn (the post-solve input-node voltage) through the
// ring buffer and stores the mixed result as the next sample's OutputVoltage.
func (d *DelayLine) Advance(vIn float64) {
	delayed := d.buf[d.writePos]
	d.buf[d.writePos] = vIn + delayed*d.feedback
	d.writePos = (d.writePos + 1) % len(d.buf)
	d.outputVoltage = vIn*(1.0-d.mix) + delayed*d.mix
}

// Reset clears the ring buffer and write position.
func (d *DelayLine) Reset() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.writePos = 0
	d.outputVoltage = 0
}
