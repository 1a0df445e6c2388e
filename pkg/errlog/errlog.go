// Package errlog implements /E (error log file) and /V (version-to-log):
// every error the pipeline raises, and every non-fatal warning (the one
// case being the HEX-ASCII overlap drop), is reported through a Logger
// that always writes to stderr and optionally tees to a file.
package errlog

import (
	"fmt"
	"io"
	"os"
)

// Logger reports errors and warnings during a pipeline run.
type Logger struct {
	file  io.WriteCloser
	quiet bool
}

// New opens path as the error log file (CLI /E); an empty path means
// stderr-only logging. quiet suppresses informational (non-error) output.
func New(path string, quiet bool) (*Logger, error) {
	l := &Logger{quiet: quiet}
	if path == "" {
		return l, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("errlog: %w", err)
	}
	l.file = f
	return l, nil
}

// Close closes the underlying file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Error reports a fatal pipeline error: always printed, regardless of
// quiet mode.
func (l *Logger) Error(err error) {
	l.write("Error: %v\n", err)
}

// Warn reports a non-fatal condition (e.g. the HEX-ASCII overlap drop).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write("Warning: "+format+"\n", args...)
}

// Info reports routine progress; suppressed when quiet is set.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	l.write(format+"\n", args...)
}

// Version writes a version string to the log (CLI /V).
func (l *Logger) Version(v string) {
	l.write("h3xy %s\n", v)
}

func (l *Logger) write(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}
