package device

import "github.com/petereon/pedaler-core/pkg/matrix"

// Switch resistance when closed/open. A true short/open would risk matrix
// singularity; these finite values preserve regularity.
const (
	SwitchClosedResistance = 0.01
	SwitchOpenResistance   = 1e9
)

// Switch is modeled as a two-state conductance between its terminals.
type Switch struct {
	BaseDevice
	Closed bool
}

// NewSwitch builds a switch between n1 and n2 in the given initial state.
func NewSwitch(name string, n1, n2 int, closed bool) *Switch {
	return &Switch{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "SW", Nodes: []int{n1, n2}},
		Closed:     closed,
	}
}

func (s *Switch) resistance() float64 {
	if s.Closed {
		return SwitchClosedResistance
	}
	return SwitchOpenResistance
}

// SetState sets the switch's open/closed state.
func (s *Switch) SetState(closed bool) { s.Closed = closed }

// Toggle flips the switch's open/closed state.
func (s *Switch) Toggle() { s.Closed = !s.Closed }

func (s *Switch) Stamp(m *matrix.Matrix, dt float64) {
	m.StampConductance(s.Nodes[0], s.Nodes[1], 1.0/s.resistance())
}
