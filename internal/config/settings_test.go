package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{SettingsPath: filepath.Join(t.TempDir(), "config.json")}
}

func TestLoadSettingsWritesDefaults(t *testing.T) {
	cfg := testConfig(t)
	s, err := LoadSettings(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if !s.Enabled() {
		t.Error("enabled default = false, want true")
	}
	if s.PollInterval() != 45*time.Second {
		t.Errorf("poll interval = %v, want 45s", s.PollInterval())
	}

	raw, err := os.ReadFile(cfg.SettingsPath)
	if err != nil {
		t.Fatalf("defaults not written to disk: %v", err)
	}
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("settings file is not valid JSON: %v", err)
	}
	if _, ok := stored["show_map"]; !ok {
		t.Error("defaults file missing show_map")
	}
}

func TestSetPersists(t *testing.T) {
	cfg := testConfig(t)
	s, err := LoadSettings(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if err := s.Set("show_map", false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	reloaded, err := LoadSettings(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.GetBool("show_map", true) {
		t.Error("show_map = true after persisted Set(false)")
	}
	if reloaded.Enabled() {
		t.Error("enabled = true after persisted SetEnabled(false)")
	}
}

func TestCorruptSettingsFallBackToDefaults(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.SettingsPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSettings failed on corrupt file: %v", err)
	}
	if !s.Enabled() {
		t.Error("corrupt file should fall back to defaults")
	}
}

func TestFlagsSnapshot(t *testing.T) {
	cfg := testConfig(t)
	s, err := LoadSettings(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if err := s.Set("show_kda", false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("show_fpl", false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	flags := s.Flags()
	if flags.ShowKDA || flags.ShowFPL {
		t.Errorf("flags = %+v, want kda and fpl off", flags)
	}
	if !flags.ShowMap || !flags.ShowScore || !flags.ShowCurrentElo {
		t.Errorf("flags = %+v, want remaining toggles on", flags)
	}
}

func TestPollIntervalFromFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.SettingsPath, []byte(`{"poll_interval": 10}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.PollInterval() != 10*time.Second {
		t.Errorf("poll interval = %v, want 10s", s.PollInterval())
	}
}
