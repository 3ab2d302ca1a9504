package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"faceit-presence/internal/constants"
	"faceit-presence/internal/presence"

	"github.com/rs/zerolog"
)

// Settings is the user-editable display configuration, persisted as JSON.
// Reads take the lock; every Set writes the file back.
type Settings struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
	logger zerolog.Logger
}

func defaultSettings() map[string]any {
	return map[string]any{
		"poll_interval": int(constants.DefaultPollInterval / time.Second),
		"enabled":       true,

		"show_map":     true,
		"show_score":   true,
		"show_elo":     true, // ELO at stake per match
		"show_avg_elo": true,
		"show_kda":     true,

		"show_current_elo": true,
		"show_country":     true,
		"show_region_rank": true,
		"show_today_elo":   true,
		"show_fpl":         true,
	}
}

func LoadSettings(cfg *Config, logger zerolog.Logger) (*Settings, error) {
	s := &Settings{
		path:   cfg.SettingsPath,
		values: defaultSettings(),
		logger: logger,
	}

	raw, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var stored map[string]any
		if err := json.Unmarshal(raw, &stored); err != nil {
			logger.Warn().Err(err).Str("path", s.path).Msg("settings file unreadable, using defaults")
			break
		}
		for k, v := range stored {
			s.values[k] = v
		}
	case os.IsNotExist(err):
		if err := s.save(); err != nil {
			logger.Warn().Err(err).Str("path", s.path).Msg("failed to write default settings")
		}
	default:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	logger.Info().Str("path", s.path).Msg("settings loaded")
	return s, nil
}

// save writes the current values to disk. Caller must hold the lock.
func (s *Settings) save() error {
	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// GetBool returns a boolean setting, falling back when the key is missing
// or holds something that is not a bool.
func (s *Settings) GetBool(key string, fallback bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return fallback
}

// Set stores a value and persists the settings file.
func (s *Settings) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	if err := s.save(); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to persist setting")
		return err
	}
	return nil
}

func (s *Settings) Enabled() bool {
	return s.GetBool("enabled", true)
}

func (s *Settings) SetEnabled(enabled bool) error {
	return s.Set("enabled", enabled)
}

// PollInterval returns the monitor cadence. JSON numbers decode as float64.
func (s *Settings) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch v := s.values["poll_interval"].(type) {
	case float64:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return constants.DefaultPollInterval
}

// Flags snapshots the visibility toggles for one poll cycle.
func (s *Settings) Flags() presence.Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()

	get := func(key string) bool {
		if v, ok := s.values[key].(bool); ok {
			return v
		}
		return true
	}

	return presence.Flags{
		ShowMap:        get("show_map"),
		ShowScore:      get("show_score"),
		ShowElo:        get("show_elo"),
		ShowAvgElo:     get("show_avg_elo"),
		ShowKDA:        get("show_kda"),
		ShowCurrentElo: get("show_current_elo"),
		ShowCountry:    get("show_country"),
		ShowRegionRank: get("show_region_rank"),
		ShowTodayElo:   get("show_today_elo"),
		ShowFPL:        get("show_fpl"),
	}
}
