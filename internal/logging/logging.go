// Package logging builds the process-wide zap logger: a development console logger on stderr, optionally teed into a
// rotating JSON log file.
package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Verbose bool
	// File, if set, receives every log entry at debug level as JSON, rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// New returns a logger configured by opts. Colour is only used when stderr is a terminal.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.DisableStacktrace = true
	if isatty.IsTerminal(os.Stderr.Fd()) {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if !opts.Verbose {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var buildOpts []zap.Option
	if opts.File != "" {
		fileCore := NewFileCore(opts)
		buildOpts = append(buildOpts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}
	logger, err := config.Build(buildOpts...)
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	return logger, nil
}

// NewFileCore returns a JSON core writing to a lumberjack-rotated opts.File.
func NewFileCore(opts Options) zapcore.Core {
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 5
	}
	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		LocalTime:  true,
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), zap.DebugLevel)
}

// Install makes logger the global zap logger and the destination of the standard library logger. The returned
// function undoes both and flushes logger.
func Install(logger *zap.Logger) func() {
	undoGlobals := zap.ReplaceGlobals(logger)
	undoStdLog := zap.RedirectStdLog(logger)
	return func() {
		_ = logger.Sync()
		undoStdLog()
		undoGlobals()
	}
}
