// Package api exposes the intake HTTP surface: job submission and inspection,
// profile management, the event stream, and health probes.
package api

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voxpipe/voxpipe/pkg/config"
	"github.com/voxpipe/voxpipe/pkg/database"
	"github.com/voxpipe/voxpipe/pkg/events"
	"github.com/voxpipe/voxpipe/pkg/llm"
	"github.com/voxpipe/voxpipe/pkg/profile"
	"github.com/voxpipe/voxpipe/pkg/services"
)

// CompletionClient performs one LLM chat completion; used by the profile
// dry-run endpoint.
type CompletionClient interface {
	Complete(ctx context.Context, provider llm.Provider, params llm.CompletionParams) (string, llm.Usage, error)
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	paths    *config.Paths
	db       *database.Client
	jobs     *services.JobService
	stages   *services.StageService
	profiles *profile.Loader
	bus      *events.Bus
	llm      CompletionClient

	uploadDir string
	apiKey    string
	limiter   *clientLimiter
	streams   *streamLimiter
}

// NewServer creates the API server. bus may be nil (streaming disabled).
func NewServer(
	paths *config.Paths,
	db *database.Client,
	jobs *services.JobService,
	stages *services.StageService,
	profiles *profile.Loader,
	bus *events.Bus,
	completions CompletionClient,
) (*Server, error) {
	uploadDir := filepath.Join(paths.InboundDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}

	return &Server{
		paths:     paths,
		db:        db,
		jobs:      jobs,
		stages:    stages,
		profiles:  profiles,
		bus:       bus,
		llm:       completions,
		uploadDir: uploadDir,
		apiKey:    os.Getenv("PIPELINE_API_KEY"),
		limiter:   newClientLimiter(1, 5),
		streams:   newStreamLimiter(maxStreamSubscribers),
	}, nil
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), securityHeaders())

	r.GET("/health", s.healthHandler)
	r.GET("/ready", s.readyHandler)

	r.POST("/jobs", s.limiter.middleware(), s.createJobHandler)
	r.GET("/jobs", s.listJobsHandler)
	r.GET("/jobs/:id", s.getJobHandler)
	r.GET("/jobs/:id/outputs", s.listJobOutputsHandler)
	r.DELETE("/jobs/:id", s.deleteJobHandler)

	r.GET("/profiles", s.listProfilesHandler)
	r.GET("/profiles/:id", s.getProfileHandler)
	r.GET("/profiles/:id/prompts/:stage_index", s.getPromptHandler)

	admin := r.Group("/", s.requireAPIKey())
	admin.POST("/profiles", s.createProfileHandler)
	admin.DELETE("/profiles/:id", s.deleteProfileHandler)
	admin.PUT("/profiles/:id/prompts/:stage_index", s.updatePromptHandler)
	admin.POST("/profiles/:id/dry-run", s.dryRunHandler)

	r.GET("/logs/stream", s.streamHandler)

	return r
}

// shortTimeout bounds quick DB-backed handlers.
func shortTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}
