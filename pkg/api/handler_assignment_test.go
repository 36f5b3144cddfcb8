package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssignmentHandler(t *testing.T) {
	s, _ := newTestServer()

	rec := postJSON(t, s, "/api/v1/assignments", CreateAssignmentRequest{
		Title:       "Reverse a linked list",
		Description: "Implement in-place reversal",
		IsActive:    true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AssignmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AssignmentPublicID)
	assert.True(t, resp.IsActive)
}

func TestListAssignmentsHandler_FiltersActiveOnly(t *testing.T) {
	s, _ := newTestServer()

	postJSON(t, s, "/api/v1/assignments", CreateAssignmentRequest{Title: "Active one", IsActive: true})
	postJSON(t, s, "/api/v1/assignments", CreateAssignmentRequest{Title: "Retired one", IsActive: false})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assignments?active_only=true", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListAssignmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Active one", resp.Items[0].Title)
}
