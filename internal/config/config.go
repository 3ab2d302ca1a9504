package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Embedded fallbacks so a packaged binary works without a .env file.
// The nickname always has to come from the user.
const (
	embeddedAPIKey       = "d059caf3-bf65-44ee-8391-133a1c49f76b"
	embeddedDiscordAppID = "1459995747989848238"
)

const (
	defaultAPIBase      = "https://open.faceit.com/data/v4"
	defaultLiveFeedBase = "https://api.faceitanalyser.com"
	defaultHistoryBase  = "https://api.faceit.com/match-history/v4"
)

type Config struct {
	FaceitAPIKey   string
	FaceitNickname string
	DiscordAppID   string

	// Upstream hosts, overridable for local testing.
	FaceitAPIBase  string
	LiveFeedBase   string
	HistoryAPIBase string

	SettingsPath string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		FaceitAPIKey:   getEnv("FACEIT_API_KEY", embeddedAPIKey),
		FaceitNickname: getEnv("FACEIT_NICKNAME", ""),
		DiscordAppID:   getEnv("DISCORD_APP_ID", embeddedDiscordAppID),
		FaceitAPIBase:  getEnv("FACEIT_API_BASE", defaultAPIBase),
		LiveFeedBase:   getEnv("LIVE_FEED_BASE", defaultLiveFeedBase),
		HistoryAPIBase: getEnv("HISTORY_API_BASE", defaultHistoryBase),
		SettingsPath:   getEnv("SETTINGS_PATH", "config.json"),
	}

	if cfg.FaceitNickname == "" {
		return nil, fmt.Errorf("FACEIT_NICKNAME is required")
	}
	if cfg.FaceitAPIKey == "" {
		return nil, fmt.Errorf("FACEIT_API_KEY is required")
	}

	logger.Info().
		Str("nickname", cfg.FaceitNickname).
		Str("settings_path", cfg.SettingsPath).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
