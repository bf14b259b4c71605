package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// AppConfig is the environment-driven process configuration.
type AppConfig struct {
	BotToken    string
	BotUsername string
	APIBaseURL  string

	RedisURL    string
	DatabaseURL string

	WebAddr string

	MessageOverrideDir string

	PollTimeoutSec int
}

// Load reads the configuration from the environment. BotToken, BotUsername,
// and RedisURL are required; DatabaseURL enables the optional match archive.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		APIBaseURL:     "https://api.telegram.org",
		WebAddr:        ":8088",
		PollTimeoutSec: 30,
	}

	cfg.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	cfg.BotUsername = strings.TrimSpace(os.Getenv("BOT_USERNAME"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessageOverrideDir = strings.TrimSpace(os.Getenv("MESSAGE_OVERRIDE_DIR"))

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_API_BASE")); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("WEB_ADDR")); v != "" {
		cfg.WebAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("POLL_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollTimeoutSec = n
		}
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}
	if cfg.BotUsername == "" {
		return nil, errors.New("BOT_USERNAME is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}
