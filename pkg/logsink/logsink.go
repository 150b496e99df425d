// Package logsink provides the debug sink shared by the scheduler and
// the job facades: a single mutex-serialized writer
// so that interleaved worker log lines stay readable, matching the
// line format tomoPreprocess::logMsg writes in the original
// implementation (timestamp prefix, CRLF on stdout for terminal
// compatibility, LF in files).
package logsink

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Sink is a serialized, timestamped debug log. The zero value is not
// usable; construct with Open.
type Sink struct {
	mu     sync.Mutex
	w      *os.File
	toFile bool
	level  int
}

// Open opens the debug sink. An empty path routes output to stdout.
// level gates Debugf: messages are written only when level <= the
// sink's configured level (at 0, only Logf and level-0 Debugf lines
// are written).
func Open(path string, level int) (*Sink, error) {
	if path == "" {
		return &Sink{w: os.Stdout, toFile: false, level: level}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("logsink: open %s: %w", path, err)
	}
	return &Sink{w: f, toFile: true, level: level}, nil
}

// Close closes the underlying file. Closing a stdout sink is a no-op.
func (s *Sink) Close() error {
	if s.toFile {
		return s.w.Close()
	}
	return nil
}

// Logf always writes a line, regardless of level.
func (s *Sink) Logf(format string, args ...any) {
	s.write(format, args...)
}

// Debugf writes a line only if the sink's level is >= level.
func (s *Sink) Debugf(level int, format string, args ...any) {
	if s.level < level {
		return
	}
	s.write(format, args...)
}

func (s *Sink) write(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	stamp := time.Now().Format("2006/01/02 15:04:05.000")
	terminator := "\n"
	if !s.toFile {
		terminator = "\r\n"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %s%s", stamp, line, terminator)
}
