package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLoggerWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("trivia", "debug", &buf)
	log.WithField("endpoint", "api.php").Debug("fetched questions")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["service"] != "trivia" || line["endpoint"] != "api.php" || line["message"] != "fetched questions" {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("trivia", "warn", &buf)
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}
