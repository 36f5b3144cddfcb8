package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/config"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

func validConfig() *config.Config {
	return &config.Config{
		Scheduler:     config.DefaultSchedulerConfig(),
		Database:      config.DefaultDatabaseConfig(),
		Artifact:      config.DefaultArtifactConfig(),
		ObjectStorage: config.DefaultObjectStorageConfig(),
		LLM:           config.DefaultLLMConfig(),
		Notifier:      config.DefaultNotifierConfig(),
	}
}

func setDBPassword(cfg *config.Config) *config.Config {
	cfg.Database.Password = "secret"
	return cfg
}

func TestValidator_ValidateAll_DefaultsPass(t *testing.T) {
	cfg := setDBPassword(validConfig())
	require.NoError(t, config.NewValidator(cfg).ValidateAll())
}

func TestValidator_ValidateAll_JitterMustBeLessThanPollInterval(t *testing.T) {
	cfg := setDBPassword(validConfig())
	stage := cfg.Scheduler.Stages[lifecycle.StageRaw]
	stage.PollIntervalJitter = stage.PollInterval
	cfg.Scheduler.Stages[lifecycle.StageRaw] = stage

	err := config.NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval_jitter")
}

func TestValidator_ValidateAll_HeartbeatMustBeLessThanReclaim(t *testing.T) {
	cfg := setDBPassword(validConfig())
	stage := cfg.Scheduler.Stages[lifecycle.StageRaw]
	stage.HeartbeatInterval = stage.ReclaimInterval + time.Second
	cfg.Scheduler.Stages[lifecycle.StageRaw] = stage

	err := config.NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heartbeat_interval")
}

func TestValidator_ValidateAll_MaxIdleConnsExceedsMaxOpen(t *testing.T) {
	cfg := setDBPassword(validConfig())
	cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1

	err := config.NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestValidator_ValidateAll_S3ProviderRequiresBucket(t *testing.T) {
	cfg := setDBPassword(validConfig())
	cfg.ObjectStorage.Provider = "s3"

	err := config.NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestValidator_ValidateAll_NotifierEnabledRequiresSlackChannel(t *testing.T) {
	cfg := setDBPassword(validConfig())
	cfg.Notifier.Enabled = true

	err := config.NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel")
}
