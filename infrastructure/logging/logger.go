// Package logging wraps bolt with the field vocabulary the pipelines log
// with: run IDs, states, cycle counters, row and status counts. All
// packages log through the shared default logger configured at startup.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

var (
	mu            sync.Mutex
	defaultLogger *bolt.Logger
)

// Config controls the default logger.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn or error.
	// Unknown values fall back to info.
	Level string

	// Format selects the handler: json or console.
	Format string

	// Output receives the log stream. Defaults to stdout.
	Output io.Writer
}

// DefaultConfig is the interactive default: console output at info.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: os.Stdout}
}

// ProductionConfig emits JSON at info, for log collectors.
func ProductionConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stdout}
}

func parseLevel(s string) bolt.Level {
	switch s {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// Init configures the default logger. The first call wins; later calls
// are no-ops so library code cannot reconfigure the process logger.
func Init(config Config) {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger != nil {
		return
	}

	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	var handler bolt.Handler
	if config.Format == "json" {
		handler = bolt.NewJSONHandler(output)
	} else {
		handler = bolt.NewConsoleHandler(output)
	}
	defaultLogger = bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Get returns the default logger, applying DefaultConfig when Init was
// never called.
func Get() *bolt.Logger {
	mu.Lock()
	initialized := defaultLogger != nil
	mu.Unlock()
	if !initialized {
		Init(DefaultConfig())
	}
	return defaultLogger
}

// SetLevel adjusts the default logger's minimum level at runtime.
func SetLevel(level string) {
	Get().SetLevel(parseLevel(level))
}

// LogEvent carries a pending bolt event so Field constructors can be
// chained onto it.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps an existing bolt event.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// Add applies one field and returns the event for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg emits the event with a message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Send emits the event without a message.
func (l *LogEvent) Send() {
	l.event.Send()
}

// Trace starts a trace-level event on the default logger.
func Trace() *LogEvent { return &LogEvent{event: Get().Trace()} }

// Debug starts a debug-level event on the default logger.
func Debug() *LogEvent { return &LogEvent{event: Get().Debug()} }

// Info starts an info-level event on the default logger.
func Info() *LogEvent { return &LogEvent{event: Get().Info()} }

// Warn starts a warn-level event on the default logger.
func Warn() *LogEvent { return &LogEvent{event: Get().Warn()} }

// Error starts an error-level event on the default logger.
func Error() *LogEvent { return &LogEvent{event: Get().Error()} }
