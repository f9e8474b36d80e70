// Package logging builds the zap logger shared by commands, the dashboard and the API server.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	Level string // debug, info, warn, error; empty means info
	File  string // JSON log file; empty logs to stderr in console format
}

// New builds a logger. Full-screen modes should pass a File so log lines do
// not land on the terminal.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var config zap.Config
	if opts.File == "" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.TimeKey = ""
		config.DisableStacktrace = true
		config.OutputPaths = []string{"stderr"}
	} else {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{opts.File}
		config.ErrorOutputPaths = []string{opts.File}
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.DisableCaller = true

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("ilbudget"), nil
}

// DefaultFile returns the log file used by the dashboard when none is configured.
func DefaultFile(stateDir string) string {
	return filepath.Join(stateDir, "ilbudget.log")
}
