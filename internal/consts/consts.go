package consts

const (
	CHARGE    = 1.6021918e-19 // Elementary charge (C)
	BOLTZMANN = 1.3806226e-23 // Boltzmann constant (J/K)
	KELVIN    = 273.15        // Kelvin temperature (K)

	// AmbientTemp is the fixed junction temperature (K) assumed by every
	// nonlinear device model; thermal/temperature-sweep modeling is a
	// non-goal.
	AmbientTemp = KELVIN + 26.85 // 300 K

	// ThermalVoltage is kT/q at AmbientTemp, about 25.85 mV.
	ThermalVoltage = BOLTZMANN * AmbientTemp / CHARGE
)
