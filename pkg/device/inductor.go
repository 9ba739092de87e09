package device

import "github.com/petereon/pedaler-core/pkg/matrix"

// Inductor is discretised by the trapezoidal rule into a companion
// resistance and a history-dependent voltage source, requiring a branch
// current unknown:
//
//	Req = 2L/dt
//	Veq = Req*i_prev + v_prev
//
// stamped as a voltage source of value -Veq on its branch, with an extra
// -Req term on the branch's own diagonal so the branch equation reads
// V[n1]-V[n2] - Req*I[br] = -Veq.
type Inductor struct {
	BaseDevice
	Inductance float64
	branchRow  int

	iPrev float64
	vPrev float64
}

// NewInductor builds an inductor with cold-start history (i_prev=v_prev=0).
// branchRow is the raw zero-based matrix row assigned to this inductor's
// branch current by pkg/circuit.
func NewInductor(name string, n1, n2, branchRow int, inductance float64) *Inductor {
	return &Inductor{
		BaseDevice: BaseDevice{DeviceName: name, DeviceType: "L", Nodes: []int{n1, n2}},
		Inductance: inductance,
		branchRow:  branchRow,
	}
}

// BranchRow returns the raw matrix row of this inductor's branch current.
func (l *Inductor) BranchRow() int { return l.branchRow }

func (l *Inductor) resistance(dt float64) float64 {
	return 2.0 * l.Inductance / dt
}

func (l *Inductor) Stamp(m *matrix.Matrix, dt float64) {
	req := l.resistance(dt)
	veq := req*l.iPrev + l.vPrev
	m.StampVoltageSource(l.Nodes[0], l.Nodes[1], l.branchRow, -veq)
	m.StampBranchConductance(l.branchRow, -req)
}

// UpdateState recomputes i_prev/v_prev from the converged branch current.
func (l *Inductor) UpdateState(m *matrix.Matrix, dt float64) {
	iNew := m.Value(l.branchRow)
	req := l.resistance(dt)
	vNew := req*(iNew-l.iPrev) - l.vPrev
	l.iPrev = iNew
	l.vPrev = vNew
}

// Current returns the last-committed branch current.
func (l *Inductor) Current() float64 { return l.iPrev }

// Voltage returns the last-committed terminal voltage.
func (l *Inductor) Voltage() float64 { return l.vPrev }
