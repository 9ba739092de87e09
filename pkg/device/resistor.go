package device

import "github.com/petereon/pedaler-core/pkg/matrix"

const minConductanceFloor = 1e-12

// Resistor is a two-terminal linear conductance, optionally modulated by an
// LFO's current value (see Modulated).
type Resistor struct {
	BaseDevice
	Resistance float64

	modulated  bool
	lfoName    string
	depth      float64
	rangeScale float64
	effective  float64
}

// NewResistor builds a plain, unmodulated resistor.
func NewResistor(name string, n1, n2 int, resistance float64) *Resistor {
	return &Resistor{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "R", Nodes: []int{n1, n2}},
		Resistance: floorResistance(resistance),
		effective:  floorResistance(resistance),
	}
}

// NewModulatedResistor builds a resistor whose effective resistance is
// recomputed every sample from the named LFO's current value:
// effective = max(1e-12, R*(1 + depth*range*lfoValue)).
func NewModulatedResistor(name string, n1, n2 int, resistance float64, lfoName string, depth, rangeScale float64) *Resistor {
	if depth < 0 {
		depth = 0
	}
	if depth > 1 {
		depth = 1
	}
	if rangeScale < 0 {
		rangeScale = 0
	}
	r := NewResistor(name, n1, n2, resistance)
	r.modulated = true
	r.lfoName = lfoName
	r.depth = depth
	r.rangeScale = rangeScale
	return r
}

func floorResistance(r float64) float64 {
	if r < minConductanceFloor {
		return minConductanceFloor
	}
	return r
}

// IsModulated reports whether this resistor tracks an LFO.
func (r *Resistor) IsModulated() bool { return r.modulated }

// LfoName returns the name of the LFO this resistor is modulated by.
func (r *Resistor) LfoName() string { return r.lfoName }

// UpdateModulation recomputes the effective resistance from the LFO's
// current [0,1] value. Called once per sample, before stamping.
func (r *Resistor) UpdateModulation(lfoValue float64) {
	factor := 1.0 + r.depth*r.rangeScale*lfoValue
	eff := r.Resistance * factor
	if eff < minConductanceFloor {
		eff = minConductanceFloor
	}
	r.effective = eff
}

func (r *Resistor) Stamp(m *matrix.Matrix, dt float64) {
	g := 1.0 / r.effective
	m.StampConductance(r.Nodes[0], r.Nodes[1], g)
}
