package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("debug msg", nil)
	logger.Info("info msg", nil)
	logger.Warn("warn msg", nil)
	logger.Error("error msg", nil)

	out := buf.String()
	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Errorf("below-threshold messages were emitted: %q", out)
	}
	if !strings.Contains(out, "warn msg") || !strings.Contains(out, "error msg") {
		t.Errorf("expected warn and error messages, got %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: DebugLevel, Output: &buf})

	logger.Info("search completed", map[string]interface{}{"totalFound": 3})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["message"] != "search completed" {
		t.Errorf("message = %v", entry["message"])
	}
	fields, ok := entry["fields"].(map[string]interface{})
	if !ok || fields["totalFound"] != float64(3) {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestHumanFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: DebugLevel, Output: &buf})

	logger.Info("msg", map[string]interface{}{"zeta": 1, "alpha": 2, "mid": 3})

	out := buf.String()
	ia, im, iz := strings.Index(out, "alpha="), strings.Index(out, "mid="), strings.Index(out, "zeta=")
	if ia < 0 || im < 0 || iz < 0 || !(ia < im && im < iz) {
		t.Errorf("expected sorted field order, got %q", out)
	}
}

func TestWithBindsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: DebugLevel, Output: &buf})

	child := logger.With(map[string]interface{}{"requestId": "r-1"})
	child.Info("hello", map[string]interface{}{"extra": true})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	fields := entry["fields"].(map[string]interface{})
	if fields["requestId"] != "r-1" || fields["extra"] != true {
		t.Errorf("bound fields missing: %v", fields)
	}

	// Parent must not inherit child bindings
	buf.Reset()
	logger.Info("plain", nil)
	if strings.Contains(buf.String(), "requestId") {
		t.Error("parent logger leaked child fields")
	}
}
