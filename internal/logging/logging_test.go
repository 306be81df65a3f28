package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTruncateIfLargeNoopBelowLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.log")
	content := "line one\nline two\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := TruncateIfLarge(path, 1<<20); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != content {
		t.Error("file below the limit must be untouched")
	}
}

func TestTruncateIfLargeKeepsLastHalf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.log")
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		sb.WriteString("a log line with some padding to make it realistic\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	original, _ := os.Stat(path)

	if err := TruncateIfLarge(path, original.Size()/4); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) >= original.Size() {
		t.Error("file must shrink")
	}
	if !strings.HasPrefix(string(data), "--- log truncated ---\n") {
		t.Error("truncation marker must be prepended")
	}
	// The kept portion starts on a line boundary.
	rest := strings.TrimPrefix(string(data), "--- log truncated ---\n")
	if !strings.HasPrefix(rest, "a log line") {
		t.Errorf("kept portion should start on a full line, got %q", rest[:20])
	}
}

func TestTruncateIfLargeMissingFile(t *testing.T) {
	if err := TruncateIfLarge(filepath.Join(t.TempDir(), "absent.log"), 1024); err != nil {
		t.Errorf("missing file is not an error: %v", err)
	}
}
