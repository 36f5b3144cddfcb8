package config

import (
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

// StageConfig parameterizes one stage's runner.Config: worker count, poll
// cadence, lease and heartbeat durations, and how often expired leases are
// reclaimed.
type StageConfig struct {
	WorkerCount        int           `yaml:"worker_count" validate:"required,min=1,max=50"`
	PollInterval       time.Duration `yaml:"poll_interval" validate:"required"`
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`
	ErrorBackoff       time.Duration `yaml:"error_backoff" validate:"required"`
	LeaseSeconds       int           `yaml:"lease_seconds" validate:"required,min=1"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval" validate:"required"`
	ReclaimInterval    time.Duration `yaml:"reclaim_interval" validate:"required"`
}

// SchedulerConfig is the top-level worker-pool configuration: a pod
// identity plus one StageConfig per pipeline stage.
type SchedulerConfig struct {
	// PodID identifies this process in worker IDs ("<pod_id>-<stage>-worker-<n>")
	// and in ReclaimOwnedByWorker calls at startup.
	PodID string `yaml:"pod_id"`

	Stages map[lifecycle.Stage]StageConfig `yaml:"stages"`
}

// DefaultSchedulerConfig returns the built-in scheduler defaults, identical
// across all four stages.
func DefaultSchedulerConfig() *SchedulerConfig {
	stage := StageConfig{
		WorkerCount:        3,
		PollInterval:       1 * time.Second,
		PollIntervalJitter: 250 * time.Millisecond,
		ErrorBackoff:       5 * time.Second,
		LeaseSeconds:       60,
		HeartbeatInterval:  15 * time.Second,
		ReclaimInterval:    30 * time.Second,
	}

	return &SchedulerConfig{
		Stages: map[lifecycle.Stage]StageConfig{
			lifecycle.StageRaw:        stage,
			lifecycle.StageNormalized: stage,
			lifecycle.StageLLMOutput:  stage,
			lifecycle.StageExports:    stage,
		},
	}
}

// ForStage returns the StageConfig for stage, falling back to the built-in
// default when the YAML didn't override it.
func (s *SchedulerConfig) ForStage(stage lifecycle.Stage) StageConfig {
	if cfg, ok := s.Stages[stage]; ok {
		return cfg
	}
	return DefaultSchedulerConfig().Stages[stage]
}
