package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger wraps zerolog.Logger with the scamguard field helpers
type Logger struct {
	zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string
	Format     string // "console" or "json"
	TimeFormat string
	// Environment "production" forces JSON output
	Environment string
}

func (c Config) resolved() Config {
	if c.Environment == "production" {
		c.Format = "json"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = time.RFC3339
	}
	return c
}

// New creates a logger writing to stdout
func New(cfg Config) *Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger that writes to out instead of stdout
func NewWithWriter(cfg Config, out io.Writer) *Logger {
	cfg = cfg.resolved()

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = cfg.TimeFormat

	output := out
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	return &Logger{
		Logger: zerolog.New(output).
			Level(parseLevel(cfg.Level)).
			With().
			Timestamp().
			Logger(),
	}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent tags every entry with the owning component
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With().Str("component", component).Logger()}
}

// WithSender tags every entry with a message or call sender. Bodies are
// never attached to loggers.
func (l *Logger) WithSender(sender string) *Logger {
	return &Logger{Logger: l.With().Str("sender", sender).Logger()}
}

// WithRequestID tags every entry with the HTTP request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	if requestID == "" {
		return l
	}
	return &Logger{Logger: l.With().Str("request_id", requestID).Logger()}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

var global = New(Config{})

// SetGlobal replaces the process-wide logger
func SetGlobal(l *Logger) {
	global = l
}

// Global returns the process-wide logger
func Global() *Logger {
	return global
}
