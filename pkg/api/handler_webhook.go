package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artzaitsev/submission-scheduler/pkg/artifact"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

// telegramWebhookHandler handles POST /webhooks/telegram. It persists the
// update idempotently on (source_type, update_id); the raw-stage runner
// fetches the actual file bytes from pkg/telegram.Source using the stored
// file_id once it claims the submission.
func (s *Server) telegramWebhookHandler(c *gin.Context) {
	var req TelegramWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "submission.bin"
	}

	result, err := s.repo.CreateSubmissionWithSource(
		c.Request.Context(),
		req.CandidatePublicID,
		req.AssignmentPublicID,
		string(artifact.SourceTelegramWebhook),
		req.UpdateID,
		lifecycle.StateTelegramUpdateReceived,
		map[string]interface{}{
			"update_id":  req.UpdateID,
			"file_id":    req.FileID,
			"file_name":  fileName,
			"entrypoint": "telegram_webhook",
		},
		"",
	)
	if err != nil {
		abortWithRepoError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, SubmissionResponse{
		SubmissionID: result.SubmissionID,
		Status:       result.Status,
		Created:      result.Created,
	})
}
