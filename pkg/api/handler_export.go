package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artzaitsev/submission-scheduler/pkg/artifact"
	"github.com/artzaitsev/submission-scheduler/pkg/ids"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/objectstorage"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// createExportHandler handles POST /exports: runs the filtered
// list_submissions query for one page (limit/offset, limit 100 when
// unset), builds the CSV
// export rows from the evaluated submissions, and persists them through
// the artifact repository.
func (s *Server) createExportHandler(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	query := work.ListQuery{
		CandidatePublicID:  req.CandidatePublicID,
		AssignmentPublicID: req.AssignmentPublicID,
		SourceType:         req.SourceType,
		Include: []work.SubmissionFieldGroup{
			work.FieldGroupCore,
			work.FieldGroupCandidate,
			work.FieldGroupAssignment,
			work.FieldGroupEvaluation,
		},
		SortBy:    work.SortByCreatedAt,
		SortOrder: work.SortDesc,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	for _, status := range req.Statuses {
		query.Statuses = append(query.Statuses, lifecycle.State(status))
	}
	if req.SortBy != "" {
		query.SortBy = work.SortBy(req.SortBy)
	}
	if req.SortOrder != "" {
		query.SortOrder = work.SortOrder(req.SortOrder)
	}
	if query.Limit == 0 {
		query.Limit = 100
	}

	items, err := s.repo.ListSubmissions(c.Request.Context(), query)
	if err != nil {
		abortWithRepoError(c, err)
		return
	}

	rows := artifact.BuildExportRows(items)

	exportID := ids.NewExportID()
	exportRef, err := s.artifacts.SaveExportRows(c.Request.Context(), exportID, rows)
	if err != nil {
		abortWithRepoError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExportResultsResponse{
		ExportID:    exportID,
		RowsCount:   len(rows),
		DownloadURL: "/api/v1/exports/" + exportID + "/download",
		ExportRef:   exportRef,
	})
}

// downloadExportHandler handles GET /exports/:id/download: streams back the
// CSV payload createExportHandler wrote via SaveExportRows.
func (s *Server) downloadExportHandler(c *gin.Context) {
	exportID := c.Param("id")
	key := fmt.Sprintf("exports/%s.csv", exportID)

	payload, err := s.storage.GetBytes(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, objectstorage.ErrObjectNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "export not found"})
			return
		}
		abortWithRepoError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportID+".csv"))
	c.Data(http.StatusOK, "text/csv", payload)
}
