// Package logger defines the logging seam used throughout the build
// pipeline. The pipeline never imports logrus directly; it talks to
// this interface so the CLI, the daemon and tests can each supply
// their own sink.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level mirrors the handful of severities the pipeline actually emits.
type Level int

// Severity levels, ordered from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is the seam every pipeline component logs through.
type Logger interface {
	Name() string
	Println(level Level, format string, args ...interface{})
	Fprintln(w io.Writer, level Level, format string, args ...interface{})
	UnformattedFprintln(w io.Writer, format string, args ...interface{})
}

// Discard is a Logger that drops everything; used as the zero-value
// fallback when no logger has been installed on a request.
type Discard struct{}

// Name implements Logger.
func (Discard) Name() string { return "discard" }

// Println implements Logger.
func (Discard) Println(Level, string, ...interface{}) {}

// Fprintln implements Logger.
func (Discard) Fprintln(io.Writer, Level, string, ...interface{}) {}

// UnformattedFprintln implements Logger.
func (Discard) UnformattedFprintln(io.Writer, string, ...interface{}) {}

// Human is the default Logger, printing to logrus at the matching level.
type Human struct {
	// Verbose mirrors "-v": debug-level lines are otherwise suppressed.
	Verbose bool
}

// Name implements Logger.
func (h *Human) Name() string { return "human" }

// Println implements Logger.
func (h *Human) Println(level Level, format string, args ...interface{}) {
	if level == LevelDebug && !h.Verbose {
		return
	}
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelDebug:
		logrus.Debug(msg)
	case LevelWarn:
		logrus.Warn(msg)
	case LevelError:
		logrus.Error(msg)
	default:
		logrus.Info(msg)
	}
}

// Fprintln implements Logger.
func (h *Human) Fprintln(w io.Writer, level Level, format string, args ...interface{}) {
	if level == LevelDebug && !h.Verbose {
		return
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// UnformattedFprintln implements Logger.
func (h *Human) UnformattedFprintln(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

// Machine is a quiet plain-text logger: Println writes only warnings
// and errors, to stderr, so a wrapping process can surface them even
// when stdout is reserved for protocol traffic.
type Machine struct{}

// Name implements Logger.
func (m *Machine) Name() string { return "machine" }

// Println implements Logger.
func (m *Machine) Println(level Level, format string, args ...interface{}) {
	if level >= LevelWarn {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// Fprintln implements Logger.
func (m *Machine) Fprintln(w io.Writer, level Level, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

// UnformattedFprintln implements Logger.
func (m *Machine) UnformattedFprintln(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}
