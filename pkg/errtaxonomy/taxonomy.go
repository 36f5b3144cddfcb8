// Package errtaxonomy defines the canonical error vocabulary shared by
// every pipeline stage: the closed set of error codes, which of them are
// recoverable vs. terminal, and the per-stage allowlist that normalizes any
// code outside a stage's vocabulary to internal_error at the persistence
// boundary (spec.md §4.2).
package errtaxonomy

import "github.com/artzaitsev/submission-scheduler/pkg/lifecycle"

// Code is one of the canonical error codes persisted to last_error_code.
type Code string

// Canonical error codes.
const (
	CodeValidationError        Code = "validation_error"
	CodeUnsupportedFormat      Code = "unsupported_format"
	CodeTelegramUpdateInvalid  Code = "telegram_update_invalid"
	CodeTelegramFileFetchFail  Code = "telegram_file_fetch_failed"
	CodeArtifactMissing        Code = "artifact_missing"
	CodeLLMProviderUnavailable Code = "llm_provider_unavailable"
	CodeSchemaValidationFailed Code = "schema_validation_failed"
	CodeDeliveryTransportFail  Code = "delivery_transport_failed"
	CodeInternalError          Code = "internal_error"
)

// CanonicalCodes lists every code in the closed vocabulary (invariant I7).
var CanonicalCodes = []Code{
	CodeValidationError,
	CodeUnsupportedFormat,
	CodeTelegramUpdateInvalid,
	CodeTelegramFileFetchFail,
	CodeArtifactMissing,
	CodeLLMProviderUnavailable,
	CodeSchemaValidationFailed,
	CodeDeliveryTransportFail,
	CodeInternalError,
}

// Classification is the retry disposition of a canonical error code.
type Classification string

const (
	Recoverable Classification = "recoverable"
	Terminal    Classification = "terminal"
)

// recoverableCodes are eligible for the stage's retry budget; everything
// else routes straight to the stage's failed_<stage> state.
var recoverableCodes = map[Code]bool{
	CodeTelegramFileFetchFail:  true,
	CodeArtifactMissing:        true,
	CodeLLMProviderUnavailable: true,
	CodeDeliveryTransportFail:  true,
	CodeInternalError:          true,
}

// stageAllowlist restricts which canonical codes a given stage may emit.
// A code outside the stage's allowlist (or outside the canonical set
// entirely) is normalized to internal_error by ResolveStageError.
var stageAllowlist = map[lifecycle.Stage]map[Code]bool{
	lifecycle.StageRaw: set(
		CodeTelegramUpdateInvalid,
		CodeTelegramFileFetchFail,
		CodeValidationError,
		CodeInternalError,
	),
	lifecycle.StageNormalized: set(
		CodeUnsupportedFormat,
		CodeArtifactMissing,
		CodeSchemaValidationFailed,
		CodeValidationError,
		CodeInternalError,
	),
	lifecycle.StageLLMOutput: set(
		CodeArtifactMissing,
		CodeLLMProviderUnavailable,
		CodeSchemaValidationFailed,
		CodeValidationError,
		CodeInternalError,
	),
	lifecycle.StageExports: set(
		CodeArtifactMissing,
		CodeDeliveryTransportFail,
		CodeSchemaValidationFailed,
		CodeValidationError,
		CodeInternalError,
	),
}

func set(codes ...Code) map[Code]bool {
	m := make(map[Code]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

// IsCanonical reports whether code belongs to the closed vocabulary.
func IsCanonical(code Code) bool {
	for _, c := range CanonicalCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Classify returns the retry classification for a canonical code. Codes
// outside recoverableCodes are terminal, including any code that is not
// itself canonical (callers should resolve through ResolveStageError first).
func Classify(code Code) Classification {
	if recoverableCodes[code] {
		return Recoverable
	}
	return Terminal
}

// ResolveStageError normalizes code against stage's allowlist. A code that
// is not in the stage's allowlist, or is not itself a canonical code, is
// replaced with internal_error so persistence always carries a stable,
// canonical value (spec.md §4.2).
func ResolveStageError(stage lifecycle.Stage, code Code) Code {
	allowed, ok := stageAllowlist[stage]
	if !ok {
		return CodeInternalError
	}
	if allowed[code] && IsCanonical(code) {
		return code
	}
	return CodeInternalError
}
