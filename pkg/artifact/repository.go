package artifact

import (
	"context"
	"fmt"
	"strings"
)

// CompatPolicy governs how Repository reacts to a schema_version mismatch
// between the artifact contract it was built for and the artifact it
// actually loaded or is about to save.
type CompatPolicy string

const (
	// PolicyStrict accepts only an exact schema_version match.
	PolicyStrict CompatPolicy = "strict"
	// PolicyCompatible additionally accepts any schema_version sharing the
	// same family prefix (the segment before ":"), e.g. "normalized:v1"
	// accepts "normalized:v2".
	PolicyCompatible CompatPolicy = "compatible"
)

// SchemaVersionByContract maps an artifact contract version to the expected
// schema_version per artifact kind (spec.md §4.4).
var SchemaVersionByContract = map[string]map[string]string{
	"v1": {
		"normalized": NormalizedSchemaVersion,
		"exports":    ExportSchemaVersion,
	},
}

// StorageClient is the minimal object-storage contract the artifact
// repository depends on. pkg/objectstorage provides implementations.
type StorageClient interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	PutBytes(ctx context.Context, key string, payload []byte) (string, error)
}

// Repository is a version-aware façade over a StorageClient: it encodes and
// decodes artifacts and enforces the active contract's schema-version
// policy on every load and save.
type Repository struct {
	storage              StorageClient
	activeContractVersion string
	compatPolicy          CompatPolicy
}

// NewRepository constructs a Repository for the given contract version and
// compatibility policy. Use NewRepositoryFromEnv to build one from
// environment variables instead.
func NewRepository(storage StorageClient, contractVersion string, policy CompatPolicy) (*Repository, error) {
	if _, ok := SchemaVersionByContract[contractVersion]; !ok {
		return nil, fmt.Errorf("artifact: unsupported contract version: %s", contractVersion)
	}
	if policy != PolicyStrict && policy != PolicyCompatible {
		return nil, fmt.Errorf("artifact: unsupported compat policy: %s", policy)
	}
	return &Repository{
		storage:               storage,
		activeContractVersion: contractVersion,
		compatPolicy:          policy,
	}, nil
}

// LoadNormalized fetches and decodes the NormalizedArtifact referenced by
// artifactRef, validating its schema_version against the active contract.
func (r *Repository) LoadNormalized(ctx context.Context, artifactRef string) (NormalizedArtifact, error) {
	payload, err := r.storage.GetBytes(ctx, storageKeyFromRef(artifactRef))
	if err != nil {
		return NormalizedArtifact{}, fmt.Errorf("artifact: load normalized: %w", err)
	}
	a, err := DecodeNormalized(payload)
	if err != nil {
		return NormalizedArtifact{}, err
	}
	if err := r.validateSchema("normalized", a.SchemaVersion); err != nil {
		return NormalizedArtifact{}, err
	}
	return a, nil
}

// SaveNormalized encodes and stores a NormalizedArtifact, keyed by
// submission id, returning the storage key used. Validation happens before
// the write so an artifact with a mismatched schema_version is never
// persisted.
func (r *Repository) SaveNormalized(ctx context.Context, submissionID string, a NormalizedArtifact) (string, error) {
	if err := r.validateSchema("normalized", a.SchemaVersion); err != nil {
		return "", err
	}
	payload, err := EncodeNormalized(a)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("normalized/%s.json", submissionID)
	if _, err := r.storage.PutBytes(ctx, key, payload); err != nil {
		return "", fmt.Errorf("artifact: save normalized: %w", err)
	}
	return key, nil
}

// SaveExportRows encodes and stores a CSV export, keyed by export id,
// returning the storage key used. Every row's schema_version is validated
// before any write.
func (r *Repository) SaveExportRows(ctx context.Context, exportID string, rows []ExportRowArtifact) (string, error) {
	for _, row := range rows {
		if err := r.validateSchema("exports", row.SchemaVersion); err != nil {
			return "", err
		}
	}
	payload, err := EncodeExportRows(rows)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("exports/%s.csv", exportID)
	if _, err := r.storage.PutBytes(ctx, key, payload); err != nil {
		return "", fmt.Errorf("artifact: save export rows: %w", err)
	}
	return key, nil
}

func (r *Repository) validateSchema(artifactKind, actual string) error {
	expected := SchemaVersionByContract[r.activeContractVersion][artifactKind]
	if actual == expected {
		return nil
	}

	if r.compatPolicy == PolicyCompatible {
		expectedFamily, _, _ := strings.Cut(expected, ":")
		actualFamily, _, _ := strings.Cut(actual, ":")
		if expectedFamily == actualFamily {
			return nil
		}
	}

	return fmt.Errorf("artifact: schema mismatch for %s: expected %s, got %s", artifactKind, expected, actual)
}

// storageKeyFromRef strips a "scheme://bucket/" prefix from an artifact ref,
// leaving a bare storage key. Refs may be produced by adapters that prefer
// to address artifacts by URI (e.g. "s3://bucket/normalized/x.json"); the
// repository itself always deals in bare keys.
func storageKeyFromRef(ref string) string {
	if idx := strings.Index(ref, "://"); idx >= 0 {
		rest := ref[idx+3:]
		if _, key, ok := strings.Cut(rest, "/"); ok {
			return key
		}
		return rest
	}
	return ref
}
