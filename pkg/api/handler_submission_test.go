package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

func seedCandidateAndAssignment(t *testing.T, s *Server) (string, string) {
	t.Helper()
	candidate, err := s.repo.CreateCandidate(context.Background(), "Ada", "Lovelace")
	require.NoError(t, err)
	assignment, err := s.repo.CreateAssignment(context.Background(), "Reverse a list", "", true)
	require.NoError(t, err)
	return candidate.CandidatePublicID, assignment.AssignmentPublicID
}

func multipartSubmissionRequest(t *testing.T, candidateID, assignmentID, sourceExternalID string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("candidate_public_id", candidateID))
	require.NoError(t, w.WriteField("assignment_public_id", assignmentID))
	require.NoError(t, w.WriteField("source_external_id", sourceExternalID))

	part, err := w.CreateFormFile("file", "submission.md")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateSubmissionHandler_UploadsRawPayload(t *testing.T) {
	s, _ := newTestServer()
	candidateID, assignmentID := seedCandidateAndAssignment(t, s)

	req := multipartSubmissionRequest(t, candidateID, assignmentID, "file-1", []byte("# My submission"))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Created)
	assert.Equal(t, lifecycle.StateUploaded, resp.Status)

	ref, err := s.repo.GetArtifactRef(context.Background(), resp.SubmissionID, lifecycle.StageRaw)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
}

func TestCreateSubmissionHandler_IdempotentOnSourceExternalID(t *testing.T) {
	s, _ := newTestServer()
	candidateID, assignmentID := seedCandidateAndAssignment(t, s)

	first := multipartSubmissionRequest(t, candidateID, assignmentID, "file-dup", []byte("first"))
	firstRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(firstRec, first)
	require.Equal(t, http.StatusCreated, firstRec.Code)

	second := multipartSubmissionRequest(t, candidateID, assignmentID, "file-dup", []byte("second"))
	secondRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(secondRec, second)
	require.Equal(t, http.StatusOK, secondRec.Code)

	var firstResp, secondResp SubmissionResponse
	require.NoError(t, json.Unmarshal(firstRec.Body.Bytes(), &firstResp))
	require.NoError(t, json.Unmarshal(secondRec.Body.Bytes(), &secondResp))
	assert.Equal(t, firstResp.SubmissionID, secondResp.SubmissionID)
	assert.False(t, secondResp.Created)
}

func TestGetSubmissionHandler_NotFound(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions/sub_does_not_exist", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSubmissionsHandler_FiltersByCandidate(t *testing.T) {
	s, _ := newTestServer()
	candidateID, assignmentID := seedCandidateAndAssignment(t, s)

	req := multipartSubmissionRequest(t, candidateID, assignmentID, "file-list", []byte("content"))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/submissions?candidate_public_id="+candidateID, nil)
	listRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var createResp SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &createResp))

	var listResp ListSubmissionsResponse
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Items, 1)
	assert.Equal(t, createResp.SubmissionID, listResp.Items[0].Core.PublicID)
}
