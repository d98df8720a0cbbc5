package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("source failed", "source", "rss:blog")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warning, got %q", buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if rec["msg"] != "source failed" || rec["source"] != "rss:blog" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "debug", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("scoring items", "batches", 3)
	if !strings.Contains(buf.String(), "batches=3") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("verbose", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
