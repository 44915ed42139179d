// Package logging builds the process logger: a console core with optional
// ANSI color, plus an optional plain-text file sink.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	Verbose bool   // Enable debug-level output.
	NoColor bool   // Disable ANSI colors regardless of TTY detection.
	LogFile string // Optional file to append logs to.
}

// New builds the logger. The returned closer flushes and releases the file
// sink; call it when the process is done.
func New(opts Options) (*zap.SugaredLogger, func(), error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	consoleEnc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if colorEnabled(opts.NoColor) {
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEnc),
			zapcore.Lock(os.Stdout),
			level,
		),
	}

	closer := func() {}
	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}

		fileEnc := consoleEnc
		fileEnc.EncodeLevel = zapcore.CapitalLevelEncoder // never color the file
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileEnc),
			zapcore.Lock(f),
			level,
		))
		closer = func() { _ = f.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...))
	sugar := logger.Sugar()
	return sugar, func() {
		_ = logger.Sync()
		closer()
	}, nil
}

// colorEnabled resolves whether ANSI colors should be used: never when
// disabled explicitly, otherwise only on a TTY that hasn't opted out via
// NO_COLOR (https://no-color.org) or TERM=dumb.
func colorEnabled(noColor bool) bool {
	if noColor {
		return false
	}
	return isTerminal(os.Stdout) &&
		os.Getenv("NO_COLOR") == "" &&
		strings.ToLower(os.Getenv("TERM")) != "dumb"
}

// isTerminal reports whether f is attached to a TTY (character device).
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
