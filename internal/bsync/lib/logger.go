package lib

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger      = zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	loggerMutex = &sync.RWMutex{}
)

// Logger returns the structured logger used by the engine and the commands.
func Logger() *zerolog.Logger {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()
	l := logger
	return &l
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	logger = l
}

// NewConsoleLogger builds a human-readable logger for the CLI. Debug output is
// enabled when verbose is set.
func NewConsoleLogger(output io.Writer, verbose bool) zerolog.Logger {
	if output == nil {
		output = os.Stderr
	}
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
