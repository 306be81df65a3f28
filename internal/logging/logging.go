package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus so callers depend on one logging surface.
type Logger struct {
	*logrus.Logger
	file io.Closer
}

// New opens dir/name.log for appending and returns a logger writing to both
// the file and stdout. Used by the run-and-exit checker, which manages the
// file size itself via TruncateIfLarge.
func New(dir, name, level string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log folder failed: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file failed: %w", err)
	}
	return &Logger{Logger: newLogrus(io.MultiWriter(file, os.Stdout), level), file: file}, nil
}

// NewRotating returns a logger whose file output rotates by size. Used by the
// long-running API server.
func NewRotating(dir, name, level string) *Logger {
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name+".log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return &Logger{Logger: newLogrus(io.MultiWriter(rotator, os.Stdout), level), file: rotator}
}

func newLogrus(out io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// Discard returns a logger that drops all output. Used in tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

// Close releases the underlying log file.
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

// TruncateIfLarge cuts path down to its last half once it exceeds maxSize,
// prepending a marker so readers know earlier lines were dropped. A missing
// file is not an error.
func TruncateIfLarge(path string, maxSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() <= maxSize {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read log for truncation failed: %w", err)
	}
	half := data[len(data)/2:]
	// Cut at the next newline so the kept portion starts on a full line.
	for i, b := range half {
		if b == '\n' {
			half = half[i+1:]
			break
		}
	}
	out := append([]byte("--- log truncated ---\n"), half...)
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("rewrite truncated log failed: %w", err)
	}
	return nil
}
