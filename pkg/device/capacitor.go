package device

import "github.com/petereon/pedaler-core/pkg/matrix"

// Capacitor is discretised by the trapezoidal rule into a companion
// conductance and a history-dependent current source:
//
//	Geq = 2C/dt
//	Ieq = Geq*v_prev + i_prev
//
// stamped as a conductance plus a current source of value -Ieq (n1 -> n2),
// matching the sign convention that the companion source removes Ieq
// amperes along the n1->n2 reference direction.
type Capacitor struct {
	BaseDevice
	Capacitance float64

	vPrev float64
	iPrev float64
}

// NewCapacitor builds a capacitor with cold-start history (v_prev=i_prev=0).
func NewCapacitor(name string, n1, n2 int, capacitance float64) *Capacitor {
	return &Capacitor{
		BaseDevice:  BaseDevice{DeviceName: name, DeviceType: "C", Nodes: []int{n1, n2}},
		Capacitance: capacitance,
	}
}

func (c *Capacitor) conductance(dt float64) float64 {
	return 2.0 * c.Capacitance / dt
}

func (c *Capacitor) Stamp(m *matrix.Matrix, dt float64) {
	geq := c.conductance(dt)
	ieq := geq*c.vPrev + c.iPrev
	m.StampConductance(c.Nodes[0], c.Nodes[1], geq)
	m.StampCurrentSource(c.Nodes[0], c.Nodes[1], -ieq)
}

// UpdateState recomputes v_prev/i_prev from the converged node voltages.
func (c *Capacitor) UpdateState(m *matrix.Matrix, dt float64) {
	vNew := m.NodeVoltage(c.Nodes[0]) - m.NodeVoltage(c.Nodes[1])
	geq := c.conductance(dt)
	iNew := geq*(vNew-c.vPrev) - c.iPrev
	c.vPrev = vNew
	c.iPrev = iNew
}

// Voltage returns the last-committed terminal voltage (for tests/diagnostics).
func (c *Capacitor) Voltage() float64 { return c.vPrev }

// Current returns the last-committed terminal current.
func (c *Capacitor) Current() float64 { return c.iPrev }
