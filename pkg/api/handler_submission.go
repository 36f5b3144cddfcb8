package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artzaitsev/submission-scheduler/pkg/artifact"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// createSubmissionHandler handles POST /submissions: a direct file upload
// that starts a submission already past the Telegram-only ingest stage,
// since the raw payload is already present in the request body.
func (s *Server) createSubmissionHandler(c *gin.Context) {
	var req CreateSubmissionRequest
	if err := c.ShouldBind(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortBadRequest(c, "file is required: "+err.Error())
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	result, err := s.repo.CreateSubmissionWithSource(
		c.Request.Context(),
		req.CandidatePublicID,
		req.AssignmentPublicID,
		string(artifact.SourceAPIUpload),
		req.SourceExternalID,
		lifecycle.StateUploaded,
		map[string]interface{}{"entrypoint": "api"},
		"",
	)
	if err != nil {
		abortWithRepoError(c, err)
		return
	}

	if result.Created {
		key := fmt.Sprintf("raw/%s/%s", result.SubmissionID, fileHeader.Filename)
		rawRef, err := s.storage.PutBytes(c.Request.Context(), key, payload)
		if err != nil {
			abortWithRepoError(c, err)
			return
		}
		if err := s.repo.LinkArtifact(c.Request.Context(), result.SubmissionID, lifecycle.StageRaw, rawRef, s.cfg.Artifact.ActiveContractVersion); err != nil {
			abortWithRepoError(c, err)
			return
		}
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

// getSubmissionHandler handles GET /submissions/:id.
func (s *Server) getSubmissionHandler(c *gin.Context) {
	snap, err := s.repo.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, submissionDetailFromSnapshot(snap))
}

// listSubmissionsHandler handles GET /submissions.
func (s *Server) listSubmissionsHandler(c *gin.Context) {
	query, err := parseListQuery(c)
	if err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	items, err := s.repo.ListSubmissions(c.Request.Context(), query)
	if err != nil {
		abortWithRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListSubmissionsResponse{Items: items})
}

// parseListQuery builds a work.ListQuery from GET /submissions' query
// parameters, starting from work.DefaultListQuery so an unfiltered request
// still gets the core field group, created_at-desc ordering, and a
// limit-100 page.
func parseListQuery(c *gin.Context) (work.ListQuery, error) {
	q := work.DefaultListQuery()

	for _, status := range c.QueryArray("status") {
		q.Statuses = append(q.Statuses, lifecycle.State(status))
	}

	q.CandidatePublicID = c.Query("candidate_public_id")
	q.AssignmentPublicID = c.Query("assignment_public_id")
	q.SourceType = c.Query("source_type")

	if includes := c.QueryArray("include"); len(includes) > 0 {
		q.Include = nil
		for _, group := range includes {
			q.Include = append(q.Include, work.SubmissionFieldGroup(group))
		}
	}

	if sortBy := c.Query("sort_by"); sortBy != "" {
		q.SortBy = work.SortBy(sortBy)
	}
	if sortOrder := c.Query("sort_order"); sortOrder != "" {
		q.SortOrder = work.SortOrder(sortOrder)
	}

	if limit := c.Query("limit"); limit != "" {
		if _, err := fmt.Sscanf(limit, "%d", &q.Limit); err != nil {
			return q, fmt.Errorf("invalid limit: %w", err)
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if _, err := fmt.Sscanf(offset, "%d", &q.Offset); err != nil {
			return q, fmt.Errorf("invalid offset: %w", err)
		}
	}

	return q, nil
}
