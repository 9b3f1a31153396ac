// Package logging provides a small level-tagged wrapper around the standard
// library logger, used by every core component for the warning/error-level
// events the ingestion pipeline must surface (transient I/O failures, drop
// events, invariant violations) without introducing a cross-subsystem
// exception channel.
package logging

import (
	"log"
	"os"
)

// Logger tags every line with a component name and level.
type Logger struct {
	component string
	out       *log.Logger
}

// New returns a Logger that prefixes lines with component.
func New(component string) *Logger {
	return &Logger{
		component: component,
		out:       log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.out.Printf("INFO  ["+l.component+"] "+format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.out.Printf("WARN  ["+l.component+"] "+format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.out.Printf("ERROR ["+l.component+"] "+format, args...)
}
