// Package log provides the process-wide zerolog logger. It discards
// everything until Setup, SetStd or SetOutput is called.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	pkgLogger              = zerolog.Nop()
	mu                     sync.RWMutex
	zerologTimeFieldFormat = time.RFC3339Nano
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// SetStd writes human-readable output to stdout.
func SetStd() {
	SetOutput(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

// SetOutput writes JSON lines to w.
func SetOutput(w io.Writer) {
	zerolog.TimeFieldFormat = zerologTimeFieldFormat
	l := zerolog.New(w).With().Timestamp().Logger()
	mu.Lock()
	pkgLogger = l
	mu.Unlock()
}

// SetLevel sets the global minimum level ("debug", "info", ...).
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// Setup configures level and output format in one call. Console output
// goes to stdout, JSON to stderr.
func Setup(level, format string) error {
	if err := SetLevel(level); err != nil {
		return err
	}
	switch format {
	case "", FormatConsole:
		SetStd()
	case FormatJSON:
		SetOutput(os.Stderr)
	default:
		return fmt.Errorf("log: unknown format %q", format)
	}
	return nil
}

func logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return pkgLogger
}

func Debug() *zerolog.Event { l := logger(); return l.Debug() }
func Info() *zerolog.Event  { l := logger(); return l.Info() }
func Warn() *zerolog.Event  { l := logger(); return l.Warn() }

// Fatalf logs at fatal level and exits the process.
func Fatalf(format string, v ...any) {
	l := logger()
	l.Fatal().Msgf(format, v...)
}
