package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

func TestTelegramWebhookHandler_CreatesIntakeInTelegramUpdateReceived(t *testing.T) {
	s, _ := newTestServer()
	candidateID, assignmentID := seedCandidateAndAssignment(t, s)

	rec := postJSON(t, s, "/api/v1/webhooks/telegram", TelegramWebhookRequest{
		UpdateID:            "update-1",
		CandidatePublicID:   candidateID,
		AssignmentPublicID:  assignmentID,
		FileID:              "file-abc",
		FileName:            "solution.py",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Created)
	assert.Equal(t, lifecycle.StateTelegramUpdateReceived, resp.Status)
}

func TestTelegramWebhookHandler_IdempotentOnUpdateID(t *testing.T) {
	s, _ := newTestServer()
	candidateID, assignmentID := seedCandidateAndAssignment(t, s)

	req := TelegramWebhookRequest{
		UpdateID:            "update-dup",
		CandidatePublicID:   candidateID,
		AssignmentPublicID:  assignmentID,
		FileID:              "file-abc",
	}

	first := postJSON(t, s, "/api/v1/webhooks/telegram", req)
	require.Equal(t, http.StatusCreated, first.Code)
	second := postJSON(t, s, "/api/v1/webhooks/telegram", req)
	require.Equal(t, http.StatusOK, second.Code)

	var firstResp, secondResp SubmissionResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
	assert.Equal(t, firstResp.SubmissionID, secondResp.SubmissionID)
	assert.False(t, secondResp.Created)
}
