package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesToFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	log, err := New(Options{Level: "debug", Format: "console", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Sugar().Infow("cache miss", "location_id", 42)
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log output in %s", path)
	}
}

func TestNewUnknownLevelFallsBack(t *testing.T) {
	log, err := New(Options{Level: "chatty"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(0) { // info
		t.Fatalf("expected info level to be enabled")
	}
}
