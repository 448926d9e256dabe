package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBPath   string `envconfig:"DB_PATH" default:"./data/journey.db"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error

	// PushBotToken enables the Telegram push channel. Empty disables
	// push delivery; in-app channels still work.
	PushBotToken string `envconfig:"PUSH_BOT_TOKEN"`

	DefaultTZ    string        `envconfig:"DEFAULT_TZ" default:"UTC"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"60s"`

	ChatDebounce   time.Duration `envconfig:"CHAT_DEBOUNCE" default:"20s"`
	ChatCooldown   time.Duration `envconfig:"CHAT_COOLDOWN" default:"1m"`
	ChatStaleAfter time.Duration `envconfig:"CHAT_STALE_AFTER" default:"5m"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
