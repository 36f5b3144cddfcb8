// Package api provides the HTTP API for the submission pipeline: candidate
// and assignment management, submission ingress (direct upload and Telegram
// webhook), submission lookup/listing, and export triggering (spec.md §4.3,
// §5).
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/artzaitsev/submission-scheduler/pkg/artifact"
	"github.com/artzaitsev/submission-scheduler/pkg/config"
	"github.com/artzaitsev/submission-scheduler/pkg/database"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/objectstorage"
	"github.com/artzaitsev/submission-scheduler/pkg/runner"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg       *config.Config
	db        *sqlx.DB
	repo      work.Repository
	artifacts *artifact.Repository
	storage   objectstorage.Client

	mu      sync.RWMutex
	runners map[lifecycle.Stage]*runner.Runner
}

// NewServer creates a new API server wired to the submission pipeline's
// repository, artifact façade, and object storage client.
func NewServer(cfg *config.Config, db *sqlx.DB, repo work.Repository, artifacts *artifact.Repository, storage objectstorage.Client) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(securityHeaders())

	s := &Server{
		engine:    engine,
		cfg:       cfg,
		db:        db,
		repo:      repo,
		artifacts: artifacts,
		storage:   storage,
	}
	s.setupRoutes()
	return s
}

// Engine exposes the underlying gin.Engine, for test infrastructure that
// wants to drive requests via httptest without a live listener.
func (s *Server) Engine() *gin.Engine { return s.engine }

// RegisterRunners attaches the stage runners whose liveness GET /health
// should report. Called once at startup, after the runners are built but
// before (or after) they are started.
func (s *Server) RegisterRunners(runners map[lifecycle.Stage]*runner.Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners = runners
}

func (s *Server) setupRoutes() {
	// Multipart parsing keeps up to 16 MB of an upload in memory and spills
	// the rest to temporary files; this does not cap the request body size.
	s.engine.MaxMultipartMemory = 16 << 20

	s.engine.GET("/health", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/candidates", s.createCandidateHandler)

	v1.POST("/assignments", s.createAssignmentHandler)
	v1.GET("/assignments", s.listAssignmentsHandler)

	v1.POST("/submissions", s.createSubmissionHandler)
	v1.GET("/submissions/:id", s.getSubmissionHandler)
	v1.GET("/submissions", s.listSubmissionsHandler)

	v1.POST("/webhooks/telegram", s.telegramWebhookHandler)

	v1.POST("/exports", s.createExportHandler)
	v1.GET("/exports/:id/download", s.downloadExportHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.db.DB)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Database: dbHealth.Status,
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Database: dbHealth.Status,
		Runners:  s.runnerHealth(),
	})
}

func (s *Server) runnerHealth() map[string]runner.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runners) == 0 {
		return nil
	}
	out := make(map[string]runner.Health, len(s.runners))
	for stage, r := range s.runners {
		out[string(stage)] = r.Health()
	}
	return out
}
