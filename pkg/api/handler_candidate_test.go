package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestCreateCandidateHandler_PlainCreate(t *testing.T) {
	s, _ := newTestServer()

	rec := postJSON(t, s, "/api/v1/candidates", CreateCandidateRequest{FirstName: "Ada", LastName: "Lovelace"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CandidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CandidatePublicID)
	assert.Equal(t, "Ada", resp.FirstName)
}

func TestCreateCandidateHandler_SourceUpsertIsIdempotent(t *testing.T) {
	s, _ := newTestServer()
	req := CreateCandidateRequest{
		FirstName:        "Grace",
		LastName:         "Hopper",
		SourceType:       "telegram",
		SourceExternalID: "user-42",
	}

	first := postJSON(t, s, "/api/v1/candidates", req)
	require.Equal(t, http.StatusCreated, first.Code)
	var firstResp CandidateResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))

	second := postJSON(t, s, "/api/v1/candidates", req)
	require.Equal(t, http.StatusCreated, second.Code)
	var secondResp CandidateResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))

	assert.Equal(t, firstResp.CandidatePublicID, secondResp.CandidatePublicID)
}

func TestCreateCandidateHandler_MissingFirstName(t *testing.T) {
	s, _ := newTestServer()

	rec := postJSON(t, s, "/api/v1/candidates", map[string]string{"last_name": "Hopper"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
