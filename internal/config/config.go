// Package config loads the simulator's YAML configuration file. Every
// field also has a CLI flag equivalent in cmd/pedaler; flags explicitly
// set on the command line override whatever the file specifies.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the settings that shape how a circuit is simulated and
// where its audio comes from, independent of which circuit file is run.
type Config struct {
	SampleRate    float64 `yaml:"sample_rate"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	Transport     string  `yaml:"transport"` // "pipe" or "device"
	LogLevel      string  `yaml:"log_level"`
}

// Default returns the configuration used when no file is given and no
// flags override it.
func Default() Config {
	return Config{
		SampleRate:    48000,
		MaxIterations: 50,
		Tolerance:     1e-4,
		Transport:     "pipe",
		LogLevel:      "info",
	}
}

// Load reads and parses a YAML config file, starting from Default() so
// any field the file omits keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
