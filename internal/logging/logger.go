// Package logging sets up the loggers shared by the novelhub binaries.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

const (
	// DirName is the log directory inside the cache root. Publication
	// identifiers never start with a dot, so it cannot shadow one.
	DirName = ".logs"
	// FileName is the log file kept under DirName.
	FileName = "novelhub.log"
)

// Logger appends timestamped lines to <cache>/.logs/novelhub.log and mirrors
// them to stderr, so a failed chapter can be inspected after the run ends.
type Logger struct {
	file *os.File
	out  io.Writer
}

// New creates (or reuses) the log file under cacheDir.
func New(cacheDir string) (*Logger, error) {
	logDir := filepath.Join(cacheDir, DirName)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f, out: io.MultiWriter(os.Stderr, f)}, nil
}

// Std returns a standard logger writing to the file and stderr. An empty
// component gives an unprefixed logger.
func (l *Logger) Std(component string) *log.Logger {
	prefix := ""
	if component != "" {
		prefix = "[" + component + "] "
	}
	if l == nil || l.out == nil {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}
	return log.New(l.out, prefix, log.LstdFlags|log.Lmsgprefix)
}

// Path is the location of the log file, or "" for a nil Logger.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Open is New with a stderr-only fallback: when the log file cannot be
// created the failure is reported and logging continues on stderr.
func Open(cacheDir, component string) (*log.Logger, func()) {
	l, err := New(cacheDir)
	if err != nil {
		log.Printf("[logging] %v; logging to stderr only", err)
		return l.Std(component), func() {}
	}
	return l.Std(component), func() { _ = l.Close() }
}
