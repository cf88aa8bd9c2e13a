package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{" WARN ", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"chatty", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{Level: "warn"})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info message written at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing: %q", buf.String())
	}
}

func TestNew_JSONComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, Options{Format: "json"}), "saver")
	l.Info("saved", "block", 7)

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if m["component"] != "saver" || m["msg"] != "saved" {
		t.Errorf("unexpected record: %v", m)
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.log")
	var buf bytes.Buffer
	l := New(&buf, Options{File: path})
	l.Info("to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := New(&bytes.Buffer{}, Options{})
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext did not return attached logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext without logger returned nil")
	}
}
