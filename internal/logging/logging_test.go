package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_DefaultConfig(t *testing.T) {
	mgr, logger := NewManager(DefaultConfig())
	defer mgr.Close() //nolint:errcheck

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if got := mgr.Config(); got != DefaultConfig() {
		t.Errorf("config = %+v, want defaults", got)
	}
}

func TestManager_LevelSwap(t *testing.T) {
	mgr, logger := NewManager(Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should start enabled")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug should start disabled")
	}

	mgr.Reconfigure(Config{Level: "debug", Format: "json"})
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug should be enabled after reconfigure")
	}

	mgr.Reconfigure(Config{Level: "error", Format: "json"})
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled at level error")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Error("error should stay enabled")
	}
}

func TestManager_FormatSwap(t *testing.T) {
	mgr, _ := NewManager(Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck

	mgr.Reconfigure(Config{Level: "info", Format: "text"})
	if got := mgr.Config().Format; got != "text" {
		t.Errorf("format = %s, want text after reconfigure", got)
	}
}

func TestManager_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "cartridge.log")

	mgr, logger := NewManager(Config{
		Level:    "info",
		Format:   "json",
		FilePath: logFile,
	})

	logger.Info("hello from the catalog")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from the catalog") {
		t.Errorf("log file missing the record: %q", data)
	}
}

func TestManager_ReconfigureAddsFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "late.log")

	mgr, logger := NewManager(Config{Level: "info", Format: "json"})
	mgr.Reconfigure(Config{Level: "info", Format: "json", FilePath: logFile})

	logger.Info("after the swap")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "after the swap") {
		t.Errorf("log file missing the record: %q", data)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(DefaultConfig())
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestConfig_FileSettingsChanged(t *testing.T) {
	base := Config{Level: "info", Format: "json", FilePath: "/tmp/a.log", FileMaxSizeMB: 10}

	tests := []struct {
		name string
		next Config
		want bool
	}{
		{"identical", base, false},
		{"level only", Config{Level: "debug", Format: "json", FilePath: "/tmp/a.log", FileMaxSizeMB: 10}, false},
		{"format", Config{Level: "info", Format: "text", FilePath: "/tmp/a.log", FileMaxSizeMB: 10}, true},
		{"path", Config{Level: "info", Format: "json", FilePath: "/tmp/b.log", FileMaxSizeMB: 10}, true},
		{"rotation size", Config{Level: "info", Format: "json", FilePath: "/tmp/a.log", FileMaxSizeMB: 20}, true},
	}
	for _, tt := range tests {
		if got := tt.next.fileSettingsChanged(base); got != tt.want {
			t.Errorf("%s: fileSettingsChanged = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "fatal", "DEBUG"} {
		if ValidLevel(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}

func TestValidFormat(t *testing.T) {
	if !ValidFormat("text") || !ValidFormat("json") {
		t.Error("text and json should be valid")
	}
	if ValidFormat("xml") || ValidFormat("") {
		t.Error("xml and empty should be invalid")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in  string
		out slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.out {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.out)
		}
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{Level: "info", Format: "json"}
	if s := cfg.String(); s != "level=info format=json" {
		t.Errorf("unexpected string: %s", s)
	}

	cfg.FilePath = "/var/log/cartridge.log"
	cfg.FileMaxSizeMB = 50
	cfg.FileMaxFiles = 5
	cfg.FileMaxAgeDays = 7
	expected := "level=info format=json file=/var/log/cartridge.log max_size=50MB max_files=5 max_age=7d"
	if s := cfg.String(); s != expected {
		t.Errorf("got %q, want %q", s, expected)
	}
}
