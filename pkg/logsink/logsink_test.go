package logsink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenEmptyPathRoutesToStdout(t *testing.T) {
	s, err := Open("", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.toFile {
		t.Fatal("empty path should not route to a file")
	}
	if s.w != os.Stdout {
		t.Fatal("empty path should write to os.Stdout")
	}
}

func TestOpenFileWritesLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debug.log")
	s, err := Open(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	s.Logf("hello %d", 1)
	s.Debugf(1, "visible %s", "line")
	s.Debugf(5, "hidden line")
	s.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "hello 1") {
		t.Errorf("missing Logf line, got: %q", content)
	}
	if !strings.Contains(content, "visible line") {
		t.Errorf("missing in-level Debugf line, got: %q", content)
	}
	if strings.Contains(content, "hidden line") {
		t.Errorf("above-level Debugf line was written, got: %q", content)
	}
	if strings.Contains(content, "\r\n") {
		t.Errorf("file sink should use LF terminators, got CRLF in: %q", content)
	}
}

func TestDebugfGatedByLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debug.log")
	s, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Debugf(1, "should not appear")
	s.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("expected no output at level 0, got: %q", data)
	}
}
