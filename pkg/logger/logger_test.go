package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown level", Config{Level: "verbose", Format: "json"}},
		{"unknown format", Config{Level: "info", Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Errorf("New(%+v) succeeded, want error", tt.cfg)
			}
		})
	}
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atcsim.log")
	log, err := New(Config{Level: "info", Format: "console", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Named("tower").WithAirport("LFPG").Info("Runway released")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"msg":"Runway released"`, `"airport":"LFPG"`, `"logger":"tower"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log file missing %s: %s", want, line)
		}
	}
}

func TestNop(t *testing.T) {
	log := NewNop()
	log.Named("x").WithAircraft("A1").Warn("ignored")
}
