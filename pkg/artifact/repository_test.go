package artifact

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage is a minimal in-memory StorageClient stand-in, local to this
// test file; pkg/objectstorage provides the real implementations.
type fakeStorage struct {
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) GetBytes(_ context.Context, key string) ([]byte, error) {
	payload, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return payload, nil
}

func (f *fakeStorage) PutBytes(_ context.Context, key string, payload []byte) (string, error) {
	f.objects[key] = payload
	return key, nil
}

func TestRepository_SaveAndLoadNormalized_RoundTrip(t *testing.T) {
	storage := newFakeStorage()
	repo, err := NewRepository(storage, "v1", PolicyStrict)
	require.NoError(t, err)

	a := NewNormalizedArtifact("sub_1", "asg_1", SourceTelegramWebhook, "content", nil)

	key, err := repo.SaveNormalized(context.Background(), "sub_1", a)
	require.NoError(t, err)
	assert.Equal(t, "normalized/sub_1.json", key)

	loaded, err := repo.LoadNormalized(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, a, loaded)
}

func TestRepository_LoadNormalized_StripsSchemeFromRef(t *testing.T) {
	storage := newFakeStorage()
	repo, err := NewRepository(storage, "v1", PolicyStrict)
	require.NoError(t, err)

	a := NewNormalizedArtifact("sub_1", "asg_1", SourceAPIUpload, "content", nil)
	_, err = repo.SaveNormalized(context.Background(), "sub_1", a)
	require.NoError(t, err)

	loaded, err := repo.LoadNormalized(context.Background(), "s3://bucket/normalized/sub_1.json")
	require.NoError(t, err)
	assert.Equal(t, a, loaded)
}

func TestRepository_StrictPolicy_RejectsMismatchedSchemaVersion(t *testing.T) {
	storage := newFakeStorage()
	repo, err := NewRepository(storage, "v1", PolicyStrict)
	require.NoError(t, err)

	a := NewNormalizedArtifact("sub_1", "asg_1", SourceAPIUpload, "content", nil)
	a.SchemaVersion = "normalized:v2"

	_, err = repo.SaveNormalized(context.Background(), "sub_1", a)
	assert.Error(t, err)
}

func TestRepository_CompatiblePolicy_AcceptsSameFamilyDifferentVersion(t *testing.T) {
	storage := newFakeStorage()
	repo, err := NewRepository(storage, "v1", PolicyCompatible)
	require.NoError(t, err)

	a := NewNormalizedArtifact("sub_1", "asg_1", SourceAPIUpload, "content", nil)
	a.SchemaVersion = "normalized:v2"

	_, err = repo.SaveNormalized(context.Background(), "sub_1", a)
	assert.NoError(t, err)
}

func TestRepository_CompatiblePolicy_RejectsDifferentFamily(t *testing.T) {
	storage := newFakeStorage()
	repo, err := NewRepository(storage, "v1", PolicyCompatible)
	require.NoError(t, err)

	a := NewNormalizedArtifact("sub_1", "asg_1", SourceAPIUpload, "content", nil)
	a.SchemaVersion = "exports:v1"

	_, err = repo.SaveNormalized(context.Background(), "sub_1", a)
	assert.Error(t, err)
}

func TestRepository_SaveExportRows_ValidatesEveryRow(t *testing.T) {
	storage := newFakeStorage()
	repo, err := NewRepository(storage, "v1", PolicyStrict)
	require.NoError(t, err)

	rows := []ExportRowArtifact{
		{SchemaVersion: ExportSchemaVersion},
		{SchemaVersion: "exports:v9"},
	}

	_, err = repo.SaveExportRows(context.Background(), "exp_1", rows)
	assert.Error(t, err)
}

func TestNewRepository_RejectsUnknownContractVersion(t *testing.T) {
	_, err := NewRepository(newFakeStorage(), "v99", PolicyStrict)
	assert.Error(t, err)
}

func TestNewRepository_RejectsUnknownPolicy(t *testing.T) {
	_, err := NewRepository(newFakeStorage(), "v1", CompatPolicy("bogus"))
	assert.Error(t, err)
}
