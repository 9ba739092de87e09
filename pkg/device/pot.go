package device

import "github.com/petereon/pedaler-core/pkg/matrix"

// Potentiometer is two conductances in series sharing a wiper node:
// n1 --[R1]-- wiper --[R2]-- n2, R1 = position*total, R2 = (1-position)*total.
type Potentiometer struct {
	BaseDevice
	TotalResistance float64
	Position        float64 // clamped to [0.001, 0.999]
}

// NewPotentiometer builds a potentiometer with terminal order [n1, wiper, n2].
func NewPotentiometer(name string, n1, wiper, n2 int, totalResistance, position float64) *Potentiometer {
	if totalResistance < 1.0 {
		totalResistance = 1.0
	}
	if position < 0.001 {
		position = 0.001
	} else if position > 0.999 {
		position = 0.999
	}
	return &Potentiometer{
		BaseDevice:      BaseDevice{DeviceName: name, DeviceType: "POT", Nodes: []int{n1, wiper, n2}},
		TotalResistance: totalResistance,
		Position:        position,
	}
}

func (p *Potentiometer) r1() float64 {
	r := p.Position * p.TotalResistance
	if r < 0.1 {
		return 0.1
	}
	return r
}

func (p *Potentiometer) r2() float64 {
	r := (1.0 - p.Position) * p.TotalResistance
	if r < 0.1 {
		return 0.1
	}
	return r
}

// SetPosition updates the wiper position, clamping to [0.001, 0.999].
func (p *Potentiometer) SetPosition(position float64) {
	if position < 0.001 {
		position = 0.001
	} else if position > 0.999 {
		position = 0.999
	}
	p.Position = position
}

func (p *Potentiometer) Stamp(m *matrix.Matrix, dt float64) {
	n1, wiper, n2 := p.Nodes[0], p.Nodes[1], p.Nodes[2]
	m.StampConductance(n1, wiper, 1.0/p.r1())
	m.StampConductance(wiper, n2, 1.0/p.r2())
}
