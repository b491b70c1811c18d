// Package logging adapts logrus to the key/value Logger used by the core.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger forwards Debug/Info/Warn/Error calls with alternating key/value
// arguments to a logrus entry.
type Logger struct {
	entry *logrus.Entry
}

// New builds a logrus-backed logger writing to w (stderr when nil). level is
// a logrus level name; format is "text" or "json".
func New(w io.Writer, level, format string) (*Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(lvl)
	switch format {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return &Logger{entry: logrus.NewEntry(base)}, nil
}

// FromEntry wraps an existing logrus entry.
func FromEntry(entry *logrus.Entry) *Logger {
	return &Logger{entry: entry}
}

// With returns a logger carrying the extra fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(args))}
}

func (l *Logger) Debug(msg string, args ...any) { l.entry.WithFields(fields(args)).Debug(msg) }
func (l *Logger) Info(msg string, args ...any)  { l.entry.WithFields(fields(args)).Info(msg) }
func (l *Logger) Warn(msg string, args ...any)  { l.entry.WithFields(fields(args)).Warn(msg) }
func (l *Logger) Error(msg string, args ...any) { l.entry.WithFields(fields(args)).Error(msg) }

// fields pairs up args; a dangling key is kept under "!BADKEY".
func fields(args []any) logrus.Fields {
	out := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		out[key] = args[i+1]
	}
	return out
}
