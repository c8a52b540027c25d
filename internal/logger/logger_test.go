package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewProductionWritesJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false, "")

	log.Debug("hidden")
	log.Info("photo approved", "id", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "photo approved" || entry["id"] != "abc" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewDevelopmentWritesTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true, "")

	log.Debug("resolving folder", "name", "aprobadas")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "name=aprobadas") {
		t.Errorf("output = %q", out)
	}
}
