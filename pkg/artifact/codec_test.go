package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNormalized_RoundTrip(t *testing.T) {
	original := NewNormalizedArtifact(
		"sub_01J8Z3K9QZXN1VXHG5K2E3F4YT",
		"asg_01J8Z3K9QZXN1VXHG5K2E3F4YU",
		SourceAPIUpload,
		"# Candidate Submission\n\nSome content.",
		map[string]interface{}{"source_format": "pdf", "page_count": float64(3)},
	)

	payload, err := EncodeNormalized(original)
	require.NoError(t, err)

	decoded, err := DecodeNormalized(payload)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
}

func TestEncodeExportRows_HeaderMatchesFieldOrder(t *testing.T) {
	rows := []ExportRowArtifact{
		{
			CandidateIdentifier:  "cand_01",
			AssignmentIdentifier: "asg_01",
			Score1To10:           8,
			CriteriaSummary:      "solid",
			Strengths:            "clear tests",
			Issues:               "none",
			Recommendations:      "ship it",
			ChainVersion:         "v1",
			Model:                "claude",
			SpecVersion:          "v1",
			ResponseLanguage:     "en",
			SchemaVersion:        ExportSchemaVersion,
		},
	}

	payload, err := EncodeExportRows(rows)
	require.NoError(t, err)

	lines := splitLines(string(payload))
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "candidate_identifier,assignment_identifier,score_1_10,criteria_summary,strengths,issues,recommendations,chain_version,model,spec_version,response_language,schema_version", lines[0])
}

func TestEncodeExportRows_EmptyYieldsEmptyPayload(t *testing.T) {
	payload, err := EncodeExportRows(nil)
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, trimCR(s[start:i]))
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
