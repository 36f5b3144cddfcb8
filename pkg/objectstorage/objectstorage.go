// Package objectstorage provides the narrow Client boundary the core
// depends on for artifact bytes (spec.md §6): put_bytes(key, payload) → ref
// and get_bytes(key) → bytes, with keys restricted to the raw/, normalized/,
// exports/, and eval/ prefixes. pkg/artifact.Repository is the only
// consumer; this package owns allowlist enforcement so neither
// implementation (memory, S3) has to repeat it.
package objectstorage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrObjectNotFound is returned by GetBytes when no object exists at key.
var ErrObjectNotFound = errors.New("objectstorage: object not found")

// allowedPrefixes are the only key prefixes a caller may address (spec.md
// §6); anything else is rejected with a ValidationError before any
// implementation is touched.
var allowedPrefixes = []string{"raw/", "normalized/", "exports/", "eval/"}

// Client is the object-storage boundary pkg/artifact.Repository depends on.
// It satisfies artifact.StorageClient.
type Client interface {
	PutBytes(ctx context.Context, key string, payload []byte) (string, error)
	GetBytes(ctx context.Context, key string) ([]byte, error)
}

// ValidationError reports a key outside the allowed prefix set. Surfaced to
// the caller unchanged; never retried.
type ValidationError struct {
	Op  string
	Key string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("objectstorage: invalid key for %s: %q does not start with raw/, normalized/, exports/, or eval/", e.Op, e.Key)
}

// CheckKey validates key against the allowed prefix set, returning a
// *ValidationError if it doesn't qualify. Every Client implementation calls
// this before touching its backing store.
func CheckKey(op, key string) error {
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return &ValidationError{Op: op, Key: key}
}
