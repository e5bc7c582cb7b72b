// Package config loads runtime configuration from environment variables.
package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`

	DBPath           string `envconfig:"DB_PATH" default:"./data/medicine.db"`
	AllowedUsersPath string `envconfig:"ALLOWED_USERS_PATH" default:"./config/allowed_users.txt"`

	// TimezonesPath points at a YAML catalog; empty means the built-in one.
	TimezonesPath string `envconfig:"TIMEZONES_PATH" default:""`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// PollTimeoutSec is the long-poll timeout passed to Telegram.
	PollTimeoutSec int `envconfig:"POLL_TIMEOUT_SEC" default:"30"`
}

func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
