package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleAndFileFanout(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "msv.log")

	log, closeLog, err := New(Options{Level: "info", File: file, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("snapshot accepted", "round", 12)
	log.Debug("below level")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out := ansi.Strip(console.String())
	if !strings.Contains(out, "snapshot accepted") || !strings.Contains(out, "round=12") {
		t.Errorf("console output = %q", out)
	}
	if strings.Contains(out, "below level") {
		t.Error("debug record should be filtered at info level")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `msg="snapshot accepted"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestFileOnly(t *testing.T) {
	file := filepath.Join(t.TempDir(), "msv.log")
	log, closeLog, err := New(Options{File: file})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeLog()

	log.Warn("render already active")
	data, _ := os.ReadFile(file)
	if !strings.Contains(string(data), "level=WARN") {
		t.Errorf("log file = %q", data)
	}
}

func TestNoSinksDiscards(t *testing.T) {
	log, closeLog, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Errorf("close: %v", err)
	}
	log.Error("dropped")
}

func TestBadLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "chatty"}); err == nil {
		t.Error("New should reject an unknown level")
	}
}
