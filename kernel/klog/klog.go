// Package klog provides the leveled, line-oriented logging façade used by the
// bring-up code. Records are rendered through kfmt so logging stays safe
// before memory management exists; each record becomes one line of the form
// "LEVEL module: message".
package klog

import "helios/kernel/kfmt"

// Level describes the severity of a log record.
type Level uint8

// Supported log levels, in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

	// minLevel is the lowest severity that gets emitted. Bring-up defaults
	// to debug; the boot command line may raise it.
	minLevel = LevelDebug
)

// SetLevel drops all records below l.
func SetLevel(l Level) {
	minLevel = l
}

// LevelByName maps a boot command-line value (e.g. "warn") to a Level. The
// name arrives as raw bytes straight out of the boot information record and
// is compared in place.
func LevelByName(name []byte) (Level, bool) {
	switch {
	case nameIs(name, "debug"):
		return LevelDebug, true
	case nameIs(name, "info"):
		return LevelInfo, true
	case nameIs(name, "warn"):
		return LevelWarn, true
	case nameIs(name, "error"):
		return LevelError, true
	}
	return LevelDebug, false
}

func nameIs(name []byte, want string) bool {
	if len(name) != len(want) {
		return false
	}
	for i := range name {
		if name[i] != want[i] {
			return false
		}
	}
	return true
}

// Debugf emits a debug-level record tagged with the originating module.
func Debugf(module, format string, args ...interface{}) {
	logf(LevelDebug, module, format, args...)
}

// Infof emits an info-level record tagged with the originating module.
func Infof(module, format string, args ...interface{}) {
	logf(LevelInfo, module, format, args...)
}

// Warnf emits a warn-level record tagged with the originating module.
func Warnf(module, format string, args ...interface{}) {
	logf(LevelWarn, module, format, args...)
}

// Errorf emits an error-level record tagged with the originating module.
func Errorf(module, format string, args ...interface{}) {
	logf(LevelError, module, format, args...)
}

func logf(l Level, module, format string, args ...interface{}) {
	if l < minLevel {
		return
	}

	kfmt.Printf("%s %s: ", levelNames[l], module)
	kfmt.Printf(format, args...)
	kfmt.Printf("\n")
}
