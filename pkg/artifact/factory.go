package artifact

import "os"

// Default contract version and compatibility policy, overridable via the
// ARTIFACT_CONTRACT_VERSION and ARTIFACT_COMPAT_POLICY environment
// variables (spec.md §4.4).
const (
	DefaultContractVersion = "v1"
	DefaultCompatPolicy    = PolicyStrict
)

// NewRepositoryFromEnv builds a Repository reading the active contract
// version and compat policy from the environment, falling back to the v1
// strict defaults. Callers that already have explicit config values should
// call NewRepository directly instead.
func NewRepositoryFromEnv(storage StorageClient) (*Repository, error) {
	version := os.Getenv("ARTIFACT_CONTRACT_VERSION")
	if version == "" {
		version = DefaultContractVersion
	}

	policy := CompatPolicy(os.Getenv("ARTIFACT_COMPAT_POLICY"))
	if policy == "" {
		policy = DefaultCompatPolicy
	}

	return NewRepository(storage, version, policy)
}
