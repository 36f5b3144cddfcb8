package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// createCandidateHandler handles POST /candidates. When source_type and
// source_external_id are both given, the candidate is upserted idempotently
// on that source pair; otherwise a new candidate is always created.
func (s *Server) createCandidateHandler(c *gin.Context) {
	var req CreateCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err.Error())
		return
	}

	var publicID, firstName, lastName string

	if req.SourceType != "" && req.SourceExternalID != "" {
		candidate, err := s.repo.GetOrCreateCandidateBySource(c.Request.Context(), req.SourceType, req.SourceExternalID, req.FirstName, req.LastName, map[string]interface{}{"entrypoint": "api"})
		if err != nil {
			abortWithRepoError(c, err)
			return
		}
		publicID, firstName, lastName = candidate.CandidatePublicID, candidate.FirstName, candidate.LastName
	} else {
		candidate, err := s.repo.CreateCandidate(c.Request.Context(), req.FirstName, req.LastName)
		if err != nil {
			abortWithRepoError(c, err)
			return
		}
		publicID, firstName, lastName = candidate.CandidatePublicID, candidate.FirstName, candidate.LastName
	}

	c.JSON(http.StatusCreated, CandidateResponse{
		CandidatePublicID: publicID,
		FirstName:         firstName,
		LastName:          lastName,
	})
}
