package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "haggle.log")

	logger, err := New("debug", file, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("poll tick failed")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "poll tick failed") {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("loud", filepath.Join(t.TempDir(), "x.log"), false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestInternalErrorsStayOffTheTerminal(t *testing.T) {
	file := filepath.Join(t.TempDir(), "haggle.log")
	for _, dev := range []bool{false, true} {
		cfg, err := fileConfig("info", file, dev)
		if err != nil {
			t.Fatalf("fileConfig: %v", err)
		}
		for _, paths := range [][]string{cfg.OutputPaths, cfg.ErrorOutputPaths} {
			if len(paths) != 1 || paths[0] != file {
				t.Fatalf("dev=%v: output paths %v, want only %s", dev, paths, file)
			}
		}
	}
}
