package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration comprehensively with clear error
// messages: struct-tag validation (required fields, ranges, enums) followed
// by cross-field checks a struct tag can't express.
type Validator struct {
	cfg *Config
	v   *validator.Validate
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg, v: validator.New()}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error).
func (val *Validator) ValidateAll() error {
	if err := val.validateScheduler(); err != nil {
		return fmt.Errorf("scheduler validation failed: %w", err)
	}
	if err := val.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := val.validateStruct("artifact", val.cfg.Artifact); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}
	if err := val.validateObjectStorage(); err != nil {
		return fmt.Errorf("object storage validation failed: %w", err)
	}
	if err := val.validateStruct("llm", val.cfg.LLM); err != nil {
		return fmt.Errorf("LLM validation failed: %w", err)
	}
	if err := val.validateNotifier(); err != nil {
		return fmt.Errorf("notifier validation failed: %w", err)
	}
	return nil
}

func (val *Validator) validateStruct(component string, target any) error {
	if err := val.v.Struct(target); err != nil {
		return NewValidationError(component, "", err)
	}
	return nil
}

func (val *Validator) validateScheduler() error {
	s := val.cfg.Scheduler
	if s == nil {
		return fmt.Errorf("scheduler configuration is nil")
	}
	if len(s.Stages) == 0 {
		return fmt.Errorf("at least one stage must be configured")
	}

	for stage, sc := range s.Stages {
		if err := val.v.Struct(sc); err != nil {
			return NewValidationError("scheduler", string(stage), err)
		}
		if sc.PollIntervalJitter >= sc.PollInterval {
			return NewValidationError("scheduler", string(stage),
				fmt.Errorf("poll_interval_jitter (%v) must be less than poll_interval (%v)", sc.PollIntervalJitter, sc.PollInterval))
		}
		if sc.HeartbeatInterval >= sc.ReclaimInterval {
			return NewValidationError("scheduler", string(stage),
				fmt.Errorf("heartbeat_interval (%v) must be less than reclaim_interval (%v) to prevent false orphan detection", sc.HeartbeatInterval, sc.ReclaimInterval))
		}
	}

	return nil
}

func (val *Validator) validateDatabase() error {
	d := val.cfg.Database
	if d == nil {
		return fmt.Errorf("database configuration is nil")
	}
	if err := val.v.Struct(d); err != nil {
		return NewValidationError("database", "", err)
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return NewValidationError("database", "max_idle_conns",
			fmt.Errorf("max_idle_conns (%d) must not exceed max_open_conns (%d)", d.MaxIdleConns, d.MaxOpenConns))
	}
	return nil
}

func (val *Validator) validateObjectStorage() error {
	o := val.cfg.ObjectStorage
	if o == nil {
		return fmt.Errorf("object storage configuration is nil")
	}
	if err := val.v.Struct(o); err != nil {
		return NewValidationError("object_storage", "", err)
	}
	if o.Provider == "s3" && o.Bucket == "" {
		return NewValidationError("object_storage", "bucket",
			fmt.Errorf("bucket is required when provider is s3"))
	}
	return nil
}

func (val *Validator) validateNotifier() error {
	n := val.cfg.Notifier
	if n == nil {
		return fmt.Errorf("notifier configuration is nil")
	}
	if !n.Enabled {
		return nil
	}
	if n.Slack.TokenEnv == "" {
		return NewValidationError("notifier", "slack.token_env",
			fmt.Errorf("token_env is required when notifier is enabled"))
	}
	if n.Slack.Channel == "" {
		return NewValidationError("notifier", "slack.channel",
			fmt.Errorf("channel is required when notifier is enabled"))
	}
	if n.RedisAddr == "" {
		return NewValidationError("notifier", "redis_addr",
			fmt.Errorf("redis_addr is required when notifier is enabled"))
	}
	return nil
}
