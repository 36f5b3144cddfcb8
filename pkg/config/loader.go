package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// PipelineYAMLConfig represents the complete pipeline.yaml file structure.
type PipelineYAMLConfig struct {
	Scheduler     *SchedulerConfig     `yaml:"scheduler"`
	Database      *DatabaseConfig      `yaml:"database"`
	Artifact      *ArtifactConfig      `yaml:"artifact"`
	ObjectStorage *ObjectStorageConfig `yaml:"object_storage"`
	LLM           *LLMConfig           `yaml:"llm"`
	Notifier      *NotifierConfig      `yaml:"notifier"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Load pipeline.yaml from configDir
//  2. Expand ${VAR} environment variables
//  3. Parse YAML into structs
//  4. Apply built-in defaults: non-scheduler sections are merged onto their
//     defaults field by field; a scheduler stage that is missing or has a
//     zero worker_count is replaced whole by its default StageConfig
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"pod_id", cfg.Scheduler.PodID,
		"object_storage_provider", cfg.ObjectStorage.Provider,
		"llm_provider", cfg.LLM.Provider,
		"notifier_enabled", cfg.Notifier.Enabled)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadPipelineYAML()
	if err != nil {
		return nil, NewLoadError("pipeline.yaml", err)
	}

	scheduler := DefaultSchedulerConfig()
	if yamlCfg.Scheduler != nil {
		scheduler.PodID = yamlCfg.Scheduler.PodID
		if yamlCfg.Scheduler.Stages != nil {
			scheduler.Stages = yamlCfg.Scheduler.Stages
		}
	}
	applySchedulerDefaults(scheduler)

	database := DefaultDatabaseConfig()
	if yamlCfg.Database != nil {
		if err := mergo.Merge(database, yamlCfg.Database, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge database config: %w", err)
		}
	}

	artifact := DefaultArtifactConfig()
	if yamlCfg.Artifact != nil {
		if err := mergo.Merge(artifact, yamlCfg.Artifact, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge artifact config: %w", err)
		}
	}

	objectStorage := DefaultObjectStorageConfig()
	if yamlCfg.ObjectStorage != nil {
		if err := mergo.Merge(objectStorage, yamlCfg.ObjectStorage, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge object storage config: %w", err)
		}
	}

	llm := DefaultLLMConfig()
	if yamlCfg.LLM != nil {
		if err := mergo.Merge(llm, yamlCfg.LLM, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge LLM config: %w", err)
		}
	}

	notifier := DefaultNotifierConfig()
	if yamlCfg.Notifier != nil {
		if err := mergo.Merge(notifier, yamlCfg.Notifier, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge notifier config: %w", err)
		}
	}

	return &Config{
		configDir:     configDir,
		Scheduler:     scheduler,
		Database:      database,
		Artifact:      artifact,
		ObjectStorage: objectStorage,
		LLM:           llm,
		Notifier:      notifier,
	}, nil
}

// applySchedulerDefaults fills in any stage the YAML left unlisted (or
// listed with a zero worker_count) with the built-in StageConfig.
func applySchedulerDefaults(s *SchedulerConfig) {
	defaults := DefaultSchedulerConfig()
	if s.Stages == nil {
		s.Stages = defaults.Stages
		return
	}
	for stage, stageDefault := range defaults.Stages {
		cfg, ok := s.Stages[stage]
		if !ok || cfg.WorkerCount == 0 {
			s.Stages[stage] = stageDefault
		}
	}
}

func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using ${VAR}/$VAR syntax. Missing
	// variables expand to empty string; validation catches required fields
	// left empty.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadPipelineYAML() (*PipelineYAMLConfig, error) {
	var cfg PipelineYAMLConfig
	if err := l.loadYAML("pipeline.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
