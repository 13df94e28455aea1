package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Options controls how the default logger is built.
type Options struct {
	Level  string    // debug, info, warn, error
	Format string    // json or console
	Output io.Writer // defaults to os.Stdout
}

// Init initializes the default logger with JSON output at debug level.
// It ensures that the logger is initialized only once.
func Init() {
	Configure(Options{Level: "debug", Format: "json"})
}

// Configure builds the default logger from opts. Only the first call
// (including an implicit one from Init or Get) takes effect.
func Configure(opts Options) {
	once.Do(func() {
		defaultLogger = build(opts)
		defaultLogger.Debug().Msg("Logger initialized")
	})
}

// New builds an independent logger, mainly for tests and commands that want
// their own sink.
func New(opts Options) zerolog.Logger {
	return build(opts)
}

func build(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Get returns the initialized default logger.
// It calls Init() to ensure the logger is ready before returning it.
func Get() *zerolog.Logger {
	Init()
	return &defaultLogger
}

// With returns a child of the default logger carrying the given key/value pairs.
func With(keyvals ...any) zerolog.Logger {
	return Get().With().Fields(keyvals).Logger()
}

// Info logs an informational message using the default logger.
func Info(msg string, keyvals ...any) {
	Get().Info().Fields(keyvals).Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, keyvals ...any) {
	Get().Warn().Fields(keyvals).Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, keyvals ...any) {
	Get().Error().Err(err).Fields(keyvals).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, keyvals ...any) {
	Get().Debug().Fields(keyvals).Msg(msg)
}
