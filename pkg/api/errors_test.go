package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

func TestAbortWithRepoError_MapsKnownErrorTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invariant", work.NewInvariantError("op", "bad transition"), http.StatusConflict},
		{"validation", work.NewValidationError("op", "bad field"), http.StatusBadRequest},
		{"not found", fmt.Errorf("lookup: %w", work.ErrNotFound), http.StatusNotFound},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			abortWithRepoError(c, tc.err)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}
