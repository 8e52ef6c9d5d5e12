package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONWithProfileField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "schoolchat.log")

	logger, err := New(path, "main", Options{Level: "debug"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("contacts merged")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if entry["msg"] != "contacts merged" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["profile"] != "main" {
		t.Errorf("profile = %v, want main", entry["profile"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("missing ts field")
	}
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	logger, err := New(path, "main", Options{Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("info line written at warn level: %q", data)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "x.log"), "main", Options{Level: "loud"}); err == nil {
		t.Error("New() expected error for unknown level")
	}
}
