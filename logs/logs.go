// Package logs is a small leveled logger in the style of rclone's fs.Logf
// family: Debugf/Infof/Logf/Errorf writing through the standard library's
// log package, with a single global level rather than a full structured
// logging framework.
package logs

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// Level selects which calls are emitted.
type Level int32

const (
	// Error only.
	Error Level = iota
	// Info and above.
	Info
	// Debug and above; everything.
	Debug
)

var (
	level  int32 = int32(Info)
	output       = log.New(os.Stderr, "", log.LstdFlags)
)

// SetLevel changes the global log level.
func SetLevel(l Level) { atomic.StoreInt32(&level, int32(l)) }

func enabled(l Level) bool { return l <= Level(atomic.LoadInt32(&level)) }

func emit(tag string, subject any, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if subject != nil {
		output.Printf("%s: %v: %s", tag, subject, msg)
		return
	}
	output.Printf("%s: %s", tag, msg)
}

// Debugf logs at Debug level, naming subject (may be nil).
func Debugf(subject any, format string, args ...any) {
	if enabled(Debug) {
		emit("DEBUG", subject, format, args...)
	}
}

// Infof logs at Info level, naming subject (may be nil).
func Infof(subject any, format string, args ...any) {
	if enabled(Info) {
		emit("INFO", subject, format, args...)
	}
}

// Logf is an alias for Infof, matching the teacher's fs.Logf name.
func Logf(subject any, format string, args ...any) { Infof(subject, format, args...) }

// Errorf logs at Error level, naming subject (may be nil). Errors are
// always emitted regardless of the configured level.
func Errorf(subject any, format string, args ...any) {
	emit("ERROR", subject, format, args...)
}
