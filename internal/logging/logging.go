// Package logging builds the process logger.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger's level and encoding.
type Options struct {
	// Verbose enables debug output. Otherwise only warnings and errors are
	// logged so the report stays the main thing on the terminal.
	Verbose bool
	// JSON switches from the console encoder to JSON lines.
	JSON bool
	// Writer defaults to stderr.
	Writer io.Writer
}

// New returns a zap logger built from the production encoder config.
func New(opts Options) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	level := zapcore.WarnLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	var ws zapcore.WriteSyncer
	if opts.Writer == nil {
		ws = zapcore.Lock(os.Stderr)
	} else {
		ws = zapcore.AddSync(opts.Writer)
	}

	return zap.New(zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(level)), zap.ErrorOutput(ws))
}
