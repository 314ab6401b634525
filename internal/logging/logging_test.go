package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"lsa/internal/config"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newWithWriter: %v", err)
	}
	log.Info("hidden")
	log.Warn("shown", zap.Int("k", 3))
	_ = log.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "shown" || entry["k"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsa.log")
	var buf bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Level: "info", Format: "console", File: path, MaxSizeMB: 1}, &buf)
	if err != nil {
		t.Fatalf("newWithWriter: %v", err)
	}
	log.Info("to file")
	_ = log.Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") || !strings.Contains(buf.String(), "to file") {
		t.Errorf("file %q console %q", data, buf.String())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud", Format: "json"}); err == nil {
		t.Errorf("bad level accepted")
	}
	if _, err := New(config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Errorf("bad format accepted")
	}
}
