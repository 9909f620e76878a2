package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLoggerCarriesService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "watcher", "info", "json")
	logger.Debug("hidden")
	logger.Info("import_job_transition", "job_id", 9)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "watcher" || entry["msg"] != "import_job_transition" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "console", "DEBUG", "text").Debug("cache_fetch_failed", "key", "imports/1")
	if !strings.Contains(buf.String(), "msg=cache_fetch_failed") || !strings.Contains(buf.String(), "key=imports/1") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}
