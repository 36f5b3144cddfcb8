package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

func TestCreateExportHandler_IncludesOnlyFullyEvaluatedSubmissions(t *testing.T) {
	s, _ := newTestServer()
	candidateID, assignmentID := seedCandidateAndAssignment(t, s)

	req := multipartSubmissionRequest(t, candidateID, assignmentID, "file-eval", []byte("content"))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	require.NoError(t, s.repo.PersistEvaluation(context.Background(), work.EvaluationRecord{
		SubmissionID: created.SubmissionID,
		Score1To10:   8,
		CriteriaScores: map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{"id": "correctness", "score": 9},
			},
		},
		OrganizerFeedback: map[string]interface{}{
			"strengths": []interface{}{"clear structure"},
		},
		ReproducibilitySubset: work.ReproducibilitySubset{
			ChainVersion:     "v1",
			SpecVersion:      "v1",
			Model:            "claude",
			ResponseLanguage: "en",
		},
	}))

	exportReq := httptest.NewRequest(http.MethodPost, "/api/v1/exports", nil)
	exportRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(exportRec, exportReq)
	require.Equal(t, http.StatusOK, exportRec.Code)

	var resp ExportResultsResponse
	require.NoError(t, json.Unmarshal(exportRec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.RowsCount)
	assert.NotEmpty(t, resp.ExportID)
	assert.NotEmpty(t, resp.ExportRef)
	assert.Equal(t, "/api/v1/exports/"+resp.ExportID+"/download", resp.DownloadURL)

	downloadReq := httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil)
	downloadRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(downloadRec, downloadReq)
	require.Equal(t, http.StatusOK, downloadRec.Code)
	assert.Equal(t, "text/csv", downloadRec.Header().Get("Content-Type"))
	assert.Contains(t, downloadRec.Body.String(), candidateID)
}

func TestDownloadExportHandler_UnknownExportIDReturns404(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/exp_does_not_exist/download", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateExportHandler_NoSubmissionsYieldsZeroRows(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExportResultsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.RowsCount)
}
