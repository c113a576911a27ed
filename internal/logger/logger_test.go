package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf, false)

	l.Info("Pipeline", "dropped %d", 1)
	l.Warn("Pipeline", "frame size %dx%d", 320, 240)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("INFO line written at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] [Pipeline] frame size 320x240") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLoggerSilent(t *testing.T) {
	var buf bytes.Buffer
	l := New(SILENT, &buf, false)
	l.Error("Main", "boom")
	if buf.Len() != 0 {
		t.Fatalf("SILENT logger wrote %q", buf.String())
	}
	if l.Enabled(ERROR) {
		t.Fatal("ERROR enabled at SILENT level")
	}
}

func TestLoggerColor(t *testing.T) {
	var buf bytes.Buffer
	l := New(DEBUG, &buf, true)
	l.Debug("", "hello")
	if !strings.Contains(buf.String(), "\033[36m[DEBUG]\033[0m hello") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestModuleHandle(t *testing.T) {
	var buf bytes.Buffer
	l := New(DEBUG, &buf, false)
	m := l.Module("Capture")

	m.Info("opened device %d", 0)
	if !strings.Contains(buf.String(), "[INFO] [Capture] opened device 0") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	if !m.Enabled(DEBUG) {
		t.Fatal("DEBUG should be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	testCases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"none":    SILENT,
	}
	for in, want := range testCases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
