package config

// Config is the umbrella configuration object returned by Initialize() and
// threaded through cmd/pipeline/main.go to construct every collaborator.
type Config struct {
	configDir string

	Scheduler     *SchedulerConfig
	Database      *DatabaseConfig
	Artifact      *ArtifactConfig
	ObjectStorage *ObjectStorageConfig
	LLM           *LLMConfig
	Notifier      *NotifierConfig
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}
