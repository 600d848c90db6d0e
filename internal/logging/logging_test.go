package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := newLoggerTo(&buf, "info", "trustpayd")
	logger.Info("starting")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if line["service"] != "trustpayd" {
		t.Errorf("service = %v, want trustpayd", line["service"])
	}
	if line["msg"] != "starting" {
		t.Errorf("msg = %v, want starting", line["msg"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newLoggerTo(&buf, "warn", "")
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info line emitted at warn level: %s", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn line not emitted at warn level")
	}
}
