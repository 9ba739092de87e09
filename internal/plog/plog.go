// Package plog configures the process-wide structured logger. Only
// cmd/pedaler logs; internal/audio, internal/config, pkg/matrix, pkg/device, pkg/dsl, pkg/circuit, pkg/solver, and
// pkg/simulator never do - the numerical core stays free of I/O so it can
// be driven from a test or an embedding program without surprise output.
package plog

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New builds a logger writing to stderr at the given level. levelName
// accepts "debug", "info", "warn", or "error" (case-insensitive);
// anything else falls back to "info".
func New(levelName string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "pedaler",
	})
	logger.SetLevel(parseLevel(levelName))
	return logger
}

func parseLevel(name string) log.Level {
	switch strings.ToLower(name) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
