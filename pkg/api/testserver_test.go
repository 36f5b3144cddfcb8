package api

import (
	"github.com/gin-gonic/gin"

	"github.com/artzaitsev/submission-scheduler/pkg/artifact"
	"github.com/artzaitsev/submission-scheduler/pkg/config"
	"github.com/artzaitsev/submission-scheduler/pkg/objectstorage"
	"github.com/artzaitsev/submission-scheduler/pkg/work/memstore"
)

// newTestServer builds a Server wired to in-memory infrastructure, for
// handler tests that don't need a live database (everything but the health
// endpoint).
func newTestServer() (*Server, *memstore.Store) {
	gin.SetMode(gin.TestMode)

	repo := memstore.New()
	storage := objectstorage.NewMemStore()
	artifacts, err := artifact.NewRepository(storage, artifact.DefaultContractVersion, artifact.DefaultCompatPolicy)
	if err != nil {
		panic(err)
	}

	cfg := &config.Config{
		Artifact: config.DefaultArtifactConfig(),
	}

	engine := gin.New()
	engine.Use(securityHeaders())

	s := &Server{
		engine:    engine,
		cfg:       cfg,
		repo:      repo,
		artifacts: artifacts,
		storage:   storage,
	}
	s.setupRoutes()
	return s, repo
}
