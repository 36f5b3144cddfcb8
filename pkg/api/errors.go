package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// errorResponse is the JSON body shape for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// abortWithRepoError maps a work.Repository error to an HTTP status and
// writes the JSON error response, aborting the gin context.
func abortWithRepoError(c *gin.Context, err error) {
	var invariantErr *work.InvariantError
	if errors.As(err, &invariantErr) {
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: invariantErr.Error()})
		return
	}

	var validationErr *work.ValidationError
	if errors.As(err, &validationErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
		return
	}

	if errors.Is(err, work.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "resource not found"})
		return
	}

	slog.Error("unexpected repository error", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func abortBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
