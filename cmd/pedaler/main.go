// Command pedaler runs the circuit simulator core over a real or piped
// audio stream. It is a thin, non-core collaborator: argument parsing,
// transport selection, and process exit codes live here; the numerical
// engine lives entirely in pkg/circuit, pkg/device, pkg/matrix,
// pkg/solver, and pkg/simulator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/petereon/pedaler-core/internal/audio"
	"github.com/petereon/pedaler-core/internal/config"
	"github.com/petereon/pedaler-core/internal/plog"
	"github.com/petereon/pedaler-core/pkg/circuit"
	"github.com/petereon/pedaler-core/pkg/dsl"
	"github.com/petereon/pedaler-core/pkg/simulator"
	"github.com/petereon/pedaler-core/pkg/util"

	"github.com/charmbracelet/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("pedaler", pflag.ContinueOnError)

	configPath := flags.String("config", "", "optional YAML configuration file")
	sampleRate := flags.Float64("sample-rate", 0, "audio sample rate in Hz (default 48000, or config value)")
	maxIterations := flags.Int("max-iterations", 0, "Newton-Raphson iteration cap (default 50, or config value)")
	tolerance := flags.Float64("tolerance", 0, "Newton-Raphson L-infinity convergence tolerance in volts (default 1e-4, or config value)")
	transport := flags.String("transport", "", `audio transport: "pipe" (stdin/stdout) or "device" (default from config, else "pipe")`)
	logLevel := flags.String("log-level", "", "log level: debug, info, warn, error (default from config, else info)")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: pedaler [flags] <circuit-file>")
		return 1
	}
	circuitPath := flags.Arg(0)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "pedaler:", err)
			return 1
		}
		cfg = loaded
	}
	if *sampleRate > 0 {
		cfg.SampleRate = *sampleRate
	}
	if *maxIterations > 0 {
		cfg.MaxIterations = *maxIterations
	}
	if *tolerance > 0 {
		cfg.Tolerance = *tolerance
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := plog.New(cfg.LogLevel)

	if err := simulate(circuitPath, cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		fmt.Fprintln(os.Stderr, "pedaler:", err)
		return 1
	}
	return 0
}

func simulate(circuitPath string, cfg config.Config, logger *log.Logger) error {
	f, err := os.Open(circuitPath)
	if err != nil {
		return err
	}
	defer f.Close()

	ast, err := dsl.Parse(f)
	if err != nil {
		return err
	}

	circ, err := circuit.FromAst(ast, cfg.SampleRate)
	if err != nil {
		return err
	}
	if err := circ.Validate(); err != nil {
		return err
	}

	sim := simulator.NewWithConfig(circ, cfg.SampleRate, simulator.Config{
		MaxIterations: cfg.MaxIterations,
		Tolerance:     cfg.Tolerance,
	})

	logger.Info("circuit loaded",
		"file", circuitPath,
		"sampleRate", util.FormatFrequency(cfg.SampleRate),
		"tolerance", util.FormatValueFactor(cfg.Tolerance, "V"),
		"nodes", circ.NumNodes-1,
		"branches", circ.NumBranches)

	var stream audio.Stream
	switch cfg.Transport {
	case "device":
		stream, err = audio.OpenDeviceStream(cfg.SampleRate, audio.BlockSize)
		if err != nil {
			return err
		}
	default:
		stream = audio.NewPipeStream(os.Stdin, os.Stdout)
	}
	defer stream.Close()

	in := make([]float32, audio.BlockSize)
	out := make([]float32, audio.BlockSize)

	for {
		n, err := stream.ReadBlock(in)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		if err := sim.ProcessBlock(in[:n], out[:n]); err != nil {
			return err
		}

		if err := stream.WriteBlock(out[:n]); err != nil {
			return err
		}
	}
}
