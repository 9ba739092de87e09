// Package device implements the per-component electrical models: linear
// conductances, trapezoidal companion models for reactive elements,
// Shockley/Ebers-Moll nonlinear currents, the op-amp VCCS macro-model,
// potentiometer/switch conductances, and the digital blocks (delay line,
// FDN reverb, LFO) that couple into the MNA system as voltage sources.
//
// Node ids are 1-based with 0 reserved for ground, matching pkg/matrix's
// convention; branch rows are raw zero-based matrix rows already resolved
// by pkg/circuit.
package device

import "github.com/petereon/pedaler-core/pkg/matrix"

// Device is implemented by every circuit element that contributes entries
// to the MNA matrix. dt is passed uniformly to every device (mirroring
// original_source's stamp_linear_components(circuit, matrix, dt)) even
// though only reactive devices use it; this keeps the stamping pass a
// single uniform loop over every linear device.
type Device interface {
	Name() string
	Type() string
	Stamp(m *matrix.Matrix, dt float64)
}

// Reactive is implemented by capacitors and inductors: after a sample
// converges, their companion-model history must advance.
type Reactive interface {
	Device
	UpdateState(m *matrix.Matrix, dt float64)
}

// Nonlinear is implemented by diodes and BJTs: they are excluded from the
// plain linear stamping pass and instead linearised once per Newton
// iteration: a diode about a step-limited operating-point voltage, a BJT
// about the working solution's terminal voltages without limiting.
type Nonlinear interface {
	Device
	StampNonlinear(m *matrix.Matrix)
	// UpdateOperatingPoint records the terminal voltages read from the
	// converged solution; a diode uses them as its limiting reference for
	// the next sample.
	UpdateOperatingPoint(m *matrix.Matrix)
}

// Modulated is implemented by resistors carrying an LFO modulation link.
type Modulated interface {
	Device
	LfoName() string
	UpdateModulation(lfoValue float64)
}

// DigitalEffect is implemented by delay lines and the FDN reverb: both are
// coupled into the electrical system as an ideal voltage source on their
// own branch, driven by a value computed from the *previous* sample's
// input-node voltage (see pkg/simulator for the coupling protocol).
type DigitalEffect interface {
	Device
	InputNode() int
	OutputNode() int
	BranchRow() int
	// OutputVoltage is the value to stamp as this sample's source voltage.
	OutputVoltage() float64
	// Advance processes vIn (the post-solve input-node voltage) and stores
	// the result as the next sample's OutputVoltage.
	Advance(vIn float64)
	Reset()
}

// BaseDevice carries the fields common to every device.
type BaseDevice struct {
	DeviceName string
	DeviceType string
	Nodes      []int
}

func (d *BaseDevice) Name() string { return d.DeviceName }
func (d *BaseDevice) Type() string { return d.DeviceType }
