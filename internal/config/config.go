package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string

	OptinBaseURL string
	GameHost     string

	RedisURL    string
	DatabaseURL string

	GatewayWSURL  string
	GatewayAPIKey string

	StoryConfigDir string

	RequestTimeoutSec int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":8080",
		RequestTimeoutSec: 10,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.OptinBaseURL = strings.TrimSpace(os.Getenv("OPTIN_BASE_URL"))
	cfg.GameHost = strings.TrimSpace(os.Getenv("GAME_HOST"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.GatewayWSURL = strings.TrimSpace(os.Getenv("GATEWAY_WS_URL"))
	cfg.GatewayAPIKey = strings.TrimSpace(os.Getenv("GATEWAY_API_KEY"))

	cfg.StoryConfigDir = strings.TrimSpace(os.Getenv("STORY_CONFIG_DIR"))

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSec = n
		}
	}

	if cfg.OptinBaseURL == "" {
		return nil, errors.New("OPTIN_BASE_URL is required")
	}
	if cfg.GameHost == "" {
		return nil, errors.New("GAME_HOST is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}
