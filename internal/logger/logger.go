// Package logger provides the leveled logging wrapper used across glovebox.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger wraps the standard library logger with leveled helpers so every
// package in glovebox logs through the same prefix/flag configuration.
type Logger struct {
	*log.Logger
}

// New returns a logger writing to stdout with no prefix.
func New() *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

// NewWithPrefix returns a logger writing to stdout, tagging every line with
// the given component name.
func NewWithPrefix(prefix string) *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "["+prefix+"] ", log.LstdFlags),
	}
}

// Info logs msg alongside a set of key/value fields, e.g.
// log.Info("request", "method", "GET", "status", 200).
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.Printf("[INFO] %s%s", msg, formatFields(fields))
}

// Error logs msg and the error that caused it, plus any additional
// key/value fields.
func (l *Logger) Error(msg string, err error, fields ...interface{}) {
	l.Printf("[ERROR] %s: %v%s", msg, err, formatFields(fields))
}

// Debug logs msg alongside a set of key/value fields.
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.Printf("[DEBUG] %s%s", msg, formatFields(fields))
}

// formatFields renders a flat key/value list as " key=value key2=value2",
// so log lines stay greppable instead of spilling a raw %v slice. A
// trailing key with no paired value is rendered on its own.
func formatFields(fields []interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(fields); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(fields) {
			b.WriteString(toString(fields[i]))
			b.WriteByte('=')
			b.WriteString(toString(fields[i+1]))
		} else {
			b.WriteString(toString(fields[i]))
		}
	}
	return b.String()
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
