package artifact

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
)

// EncodeNormalized serializes a NormalizedArtifact to its canonical JSON
// wire form.
func EncodeNormalized(a NormalizedArtifact) ([]byte, error) {
	return json.Marshal(a)
}

// DecodeNormalized parses a NormalizedArtifact from its JSON wire form.
func DecodeNormalized(payload []byte) (NormalizedArtifact, error) {
	var a NormalizedArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return NormalizedArtifact{}, fmt.Errorf("artifact: decode normalized: %w", err)
	}
	return a, nil
}

// EncodeExportRows renders rows as CSV with a header derived from the row
// schema's field order (spec.md §4.4). An empty slice yields an empty
// payload with no header, matching spec.md §8's boundary behavior that
// export rows are only produced for qualifying submissions.
func EncodeExportRows(rows []ExportRowArtifact) ([]byte, error) {
	if len(rows) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportFieldOrder); err != nil {
		return nil, fmt.Errorf("artifact: write export header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.CandidateIdentifier,
			row.AssignmentIdentifier,
			strconv.Itoa(row.Score1To10),
			row.CriteriaSummary,
			row.Strengths,
			row.Issues,
			row.Recommendations,
			row.ChainVersion,
			row.Model,
			row.SpecVersion,
			row.ResponseLanguage,
			row.SchemaVersion,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("artifact: write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("artifact: flush export rows: %w", err)
	}
	return buf.Bytes(), nil
}
