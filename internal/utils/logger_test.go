package utils

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", false)

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("below-threshold records logged:\n%s", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Errorf("threshold records missing:\n%s", out)
	}
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", true)

	logger.Info("parsed", "records", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if rec["msg"] != "parsed" || rec["records"] != float64(42) {
		t.Errorf("record = %v", rec)
	}
}

func TestNewLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "chatty", false)

	logger.Debug("debug line")
	logger.Info("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Errorf("debug logged at default level:\n%s", out)
	}
	if !strings.Contains(out, "info line") {
		t.Errorf("info missing at default level:\n%s", out)
	}
}

func TestNewLoggerNilWriter(t *testing.T) {
	logger := NewLogger(nil, "error", false)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
}
