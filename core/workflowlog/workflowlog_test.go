package workflowlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesFileAndEcho(t *testing.T) {
	root := t.TempDir()
	var echo bytes.Buffer
	m, err := New("scale", root, &echo)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	m.Logger("worker.counter").Printf("stable weight=%.3f", 130.0)
	m.Close()

	b, err := os.ReadFile(filepath.Join(root, "scale", "worker.counter.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "[worker.counter] stable weight=130.000") {
		t.Fatalf("log file content mismatch: %q", b)
	}
	if !strings.Contains(echo.String(), "stable weight=130.000") {
		t.Fatalf("echo content mismatch: %q", echo.String())
	}
}

func TestNewClearsPreviousRun(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "scale", "old.log")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New("scale", root, nil); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale log should be removed, stat err=%v", err)
	}
}

func TestSanitizeWorkerName(t *testing.T) {
	tests := map[string]string{
		"":                "worker",
		"Worker.Serial":   "worker.serial",
		"  a b/c  ":       "a_b_c",
		"...":             "worker",
		"worker.catalog!": "worker.catalog",
	}
	for in, want := range tests {
		if got := sanitizeWorkerName(in); got != want {
			t.Fatalf("sanitizeWorkerName(%q): got=%q want=%q", in, got, want)
		}
	}
}
