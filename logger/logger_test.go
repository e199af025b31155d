package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerInitWritesStartLine(t *testing.T) {
	dir := t.TempDir()

	l := New()
	if err := l.Init(dir); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer l.Close()

	l.Log("hello world")
	l.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "logs", "*.log"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one log file, got %d", len(matches))
	}

	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if !strings.Contains(string(content), "service started") {
		t.Error("expected init line in log content")
	}
	if !strings.Contains(string(content), "hello world") {
		t.Error("expected logged message in log content")
	}
}

func TestLoggerRotatesPastSizeLimit(t *testing.T) {
	dir := t.TempDir()

	l := New()
	l.SetMaxSizeMB(1)
	if err := l.Init(dir); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer l.Close()

	big := strings.Repeat("x", 1024)
	for i := 0; i < 1100; i++ {
		l.Log(big)
	}

	zips, _ := filepath.Glob(filepath.Join(dir, "logs", "*.zip"))
	if len(zips) == 0 {
		t.Error("expected rotation to produce at least one zip archive")
	}
}

func TestSetMaxSizeMBIgnoresNonPositive(t *testing.T) {
	l := New()
	l.SetMaxSizeMB(0)
	l.SetMaxSizeMB(-5)
	if l.maxSizeMB != 100 {
		t.Errorf("maxSizeMB = %d, want default 100", l.maxSizeMB)
	}
}
