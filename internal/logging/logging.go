// Package logging provides the leveled logger used across the
// codebase. It writes human-readable text by default and can switch to
// one-line JSON for machine consumption.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// lowerName is the JSON field spelling.
func (l Level) lowerName() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// ParseLevel converts a level name ("debug", "info", "warn"/"warning",
// "error", any case) into a Level. Unknown input returns LevelInfo and
// an error.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "Debug", "DEBUG":
		return LevelDebug, nil
	case "info", "Info", "INFO":
		return LevelInfo, nil
	case "warn", "Warn", "WARN", "warning", "Warning", "WARNING":
		return LevelWarn, nil
	case "error", "Error", "ERROR":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

var (
	mu     sync.Mutex
	level  = LevelInfo
	format = "text"
	out    io.Writer = os.Stderr
)

// SetLevel sets the minimum severity that gets written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the current minimum severity.
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// SetFormat selects "text" or "json" output.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if f == "json" {
		format = "json"
	} else {
		format = "text"
	}
}

// SetOutput redirects log output; nil restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		out = os.Stderr
	} else {
		out = w
	}
}

// Debug logs at debug level with Printf semantics.
func Debug(msg string, args ...interface{}) { logAt(LevelDebug, msg, args...) }

// Info logs at info level with Printf semantics.
func Info(msg string, args ...interface{}) { logAt(LevelInfo, msg, args...) }

// Warn logs at warn level with Printf semantics.
func Warn(msg string, args ...interface{}) { logAt(LevelWarn, msg, args...) }

// Error logs at error level with Printf semantics.
func Error(msg string, args ...interface{}) { logAt(LevelError, msg, args...) }

func logAt(l Level, msg string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	rendered := msg
	if len(args) > 0 {
		rendered = fmt.Sprintf(msg, args...)
	}
	ts := time.Now().Format(time.RFC3339)
	if format == "json" {
		entry := map[string]string{
			"ts":    ts,
			"level": l.lowerName(),
			"msg":   rendered,
		}
		b, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(out, "%s [%s] %s\n", ts, l, rendered)
			return
		}
		fmt.Fprintln(out, string(b))
		return
	}
	fmt.Fprintf(out, "%s [%s] %s\n", ts, l, rendered)
}
