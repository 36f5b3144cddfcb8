package config

import "github.com/artzaitsev/submission-scheduler/pkg/artifact"

// ArtifactConfig controls the active contract version and how the
// artifact.Repository reacts to a stored schema_version mismatch.
type ArtifactConfig struct {
	ActiveContractVersion string `yaml:"active_contract_version" validate:"required"`
	CompatPolicy          string `yaml:"compat_policy" validate:"required,oneof=strict compatible"`
}

// DefaultArtifactConfig returns the built-in artifact defaults.
func DefaultArtifactConfig() *ArtifactConfig {
	return &ArtifactConfig{
		ActiveContractVersion: artifact.DefaultContractVersion,
		CompatPolicy:          string(artifact.DefaultCompatPolicy),
	}
}
