// Package logging builds the diagnostic zap logger. The terminal belongs to
// the TUI, so entries go to a file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clive/sprint-carryover/internal/config"
)

// DefaultFile is the log file name under ~/.carryover
const DefaultFile = "carryover.log"

// Options controls where and how much is logged
type Options struct {
	Path    string // empty means ~/.carryover/carryover.log
	Verbose bool
}

// New builds a JSON file logger. Verbose switches the level to debug.
func New(opts Options) (*zap.Logger, error) {
	path := opts.Path
	if path == "" {
		p, err := config.DataPath(DefaultFile)
		if err != nil {
			return nil, fmt.Errorf("resolve log path: %w", err)
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
