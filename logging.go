package main

import (
	"go.uber.org/zap"
)

// newLogger builds the process logger. Verbose mode switches to the
// development config so per-file skip decisions become visible.
func newLogger(verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = true
	}
	// Everything user-facing goes to stdout; diagnostics stay on stderr.
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
