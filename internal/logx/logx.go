package logx

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultLevel is used when no level, or an unknown one, is requested.
const DefaultLevel = log.WarnLevel

// New creates a leveled logger writing to w. An empty or unknown level falls
// back to DefaultLevel.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "tfvm",
		Level:  ParseLevel(level),
	})
}

// ParseLevel maps a level name such as "debug" or "WARN" to a log.Level.
func ParseLevel(level string) log.Level {
	level = strings.TrimSpace(level)
	if level == "" {
		return DefaultLevel
	}
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return DefaultLevel
	}
	return parsed
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
