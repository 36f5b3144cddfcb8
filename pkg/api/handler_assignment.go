package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// createAssignmentHandler handles POST /assignments.
func (s *Server) createAssignmentHandler(c *gin.Context) {
	var req CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	assignment, err := s.repo.CreateAssignment(c.Request.Context(), req.Title, req.Description, req.IsActive)
	if err != nil {
		abortWithRepoError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignmentResponseFrom(assignment))
}

// listAssignmentsHandler handles GET /assignments?active_only=true.
func (s *Server) listAssignmentsHandler(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))

	items, err := s.repo.ListAssignments(c.Request.Context(), activeOnly)
	if err != nil {
		abortWithRepoError(c, err)
		return
	}

	resp := ListAssignmentsResponse{Items: make([]AssignmentResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, assignmentResponseFrom(item))
	}
	c.JSON(http.StatusOK, resp)
}

func assignmentResponseFrom(a work.AssignmentSnapshot) AssignmentResponse {
	return AssignmentResponse{
		AssignmentPublicID: a.AssignmentPublicID,
		Title:               a.Title,
		Description:         a.Description,
		IsActive:            a.IsActive,
	}
}
