package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/voxpipe/voxpipe/pkg/database"
	"github.com/voxpipe/voxpipe/pkg/llm"
)

// healthHandler handles GET /health: process liveness plus database
// connectivity.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := shortTimeout(c.Request.Context())
	defer cancel()

	dbHealth, err := database.Health(ctx, s.db.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": dbHealth,
			"error":    err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealth,
	})
}

// readyHandler handles GET /ready: readiness requires the ASR credential
// plus at least one configured LLM provider.
func (s *Server) readyHandler(c *gin.Context) {
	asrConfigured := os.Getenv("GROQ_API_KEY") != ""
	llmConfigured := llm.AnyProviderConfigured()

	status := http.StatusOK
	ready := asrConfigured && llmConfigured
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ready":          ready,
		"asr_configured": asrConfigured,
		"llm_providers":  llm.ConfiguredProviders(),
	})
}
