package config

import "time"

// NotifierConfig parameterizes the pkg/notifier.Transport stack: the Slack
// delivery transport plus its Redis-backed cross-pod idempotency guard.
type NotifierConfig struct {
	Enabled bool `yaml:"enabled"`

	Slack SlackConfig `yaml:"slack"`

	RedisAddr     string        `yaml:"redis_addr,omitempty"`
	IdempotentTTL time.Duration `yaml:"idempotent_ttl"`
}

// SlackConfig holds Slack notification transport settings.
type SlackConfig struct {
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// DefaultNotifierConfig returns the built-in notifier defaults.
func DefaultNotifierConfig() *NotifierConfig {
	return &NotifierConfig{
		Enabled: false,
		Slack: SlackConfig{
			TokenEnv: "SLACK_BOT_TOKEN",
		},
		RedisAddr:     "localhost:6379",
		IdempotentTTL: 10 * time.Minute,
	}
}
