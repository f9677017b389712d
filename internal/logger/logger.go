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
	mu            sync.RWMutex
)

// Options controls how the process logger writes.
type Options struct {
	Level  string    // trace, debug, info, warn, error; defaults to info
	Format string    // "json" or "console"; defaults to json
	Output io.Writer // defaults to os.Stderr
}

// Init initializes the process logger. Only the first call has an effect;
// later calls are ignored so packages can call Get freely.
func Init(opts Options) {
	once.Do(func() {
		l := New(opts)
		mu.Lock()
		defaultLogger = l
		mu.Unlock()
	})
}

// New builds a standalone logger from opts without touching the process logger.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(opts.Format, "console") || strings.EqualFold(opts.Format, "text") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Get returns the process logger, initializing it with defaults if needed.
func Get() zerolog.Logger {
	Init(Options{})
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// For returns the process logger tagged with a component name.
func For(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Info logs an informational message with alternating key/value pairs.
func Info(msg string, args ...any) {
	l := Get()
	l.Info().Fields(args).Msg(msg)
}

// Warn logs a warning message with alternating key/value pairs.
func Warn(msg string, args ...any) {
	l := Get()
	l.Warn().Fields(args).Msg(msg)
}

// Error logs an error message using the process logger.
func Error(msg string, err error, args ...any) {
	l := Get()
	l.Error().Err(err).Fields(args).Msg(msg)
}

// Debug logs a debug message with alternating key/value pairs.
func Debug(msg string, args ...any) {
	l := Get()
	l.Debug().Fields(args).Msg(msg)
}
