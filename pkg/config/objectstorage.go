package config

// ObjectStorageConfig selects and parameterizes the pkg/objectstorage.Client
// implementation the pipeline's artifact repository persists through.
type ObjectStorageConfig struct {
	// Provider is "s3" for an S3-compatible bucket or "memory" for the
	// in-process MemStore (local dev / tests without a bucket).
	Provider string `yaml:"provider" validate:"required,oneof=s3 memory"`

	Bucket      string `yaml:"bucket,omitempty"`
	Region      string `yaml:"region,omitempty"`
	EndpointURL string `yaml:"endpoint_url,omitempty"` // non-empty for MinIO-style endpoints
}

// DefaultObjectStorageConfig returns the built-in object storage defaults.
func DefaultObjectStorageConfig() *ObjectStorageConfig {
	return &ObjectStorageConfig{
		Provider: "memory",
	}
}
