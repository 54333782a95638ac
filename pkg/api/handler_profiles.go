package api

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voxpipe/voxpipe/pkg/llm"
	"github.com/voxpipe/voxpipe/pkg/profile"
)

// profileIDPattern constrains profile ids: lowercase alphanumerics plus
// underscore and hyphen, 1-64 chars, leading alphanumeric.
var profileIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// dryRunSampleLimit bounds the sample text accepted by the dry-run endpoint.
const dryRunSampleLimit = 5000

// listProfilesHandler handles GET /profiles.
func (s *Server) listProfilesHandler(c *gin.Context) {
	all := s.profiles.All()
	list := make([]*profile.Profile, 0, len(all))
	for _, p := range all {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}

// getProfileHandler handles GET /profiles/:id.
func (s *Server) getProfileHandler(c *gin.Context) {
	p, ok := s.profiles.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// createProfileRequest is the POST /profiles body.
type createProfileRequest struct {
	ID              string                      `json:"id"`
	Name            string                      `json:"name"`
	Description     string                      `json:"description"`
	SkipDiarization bool                        `json:"skip_diarization"`
	Priority        int                         `json:"priority"`
	Routing         *profile.RoutingConfig      `json:"routing,omitempty"`
	Notifications   *profile.NotificationConfig `json:"notifications,omitempty"`
	Stages          []createStageRequest        `json:"stages"`
}

type createStageRequest struct {
	Name             string  `json:"name"`
	PromptContent    string  `json:"prompt_content"`
	Model            string  `json:"model"`
	Provider         string  `json:"provider"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	RequiresPrevious bool    `json:"requires_previous"`
	SaveIntermediate bool    `json:"save_intermediate"`
	FilenameSuffix   string  `json:"filename_suffix"`
}

// createProfileHandler handles POST /profiles.
func (s *Server) createProfileHandler(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if !profileIDPattern.MatchString(req.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id: must match [a-z0-9][a-z0-9_-]{0,63}"})
		return
	}
	if len(req.Stages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one stage is required"})
		return
	}
	for i, stage := range req.Stages {
		if stage.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stage name is required"})
			return
		}
		if stage.PromptContent == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt_content is required for stage " + strconv.Itoa(i)})
			return
		}
	}

	spec := profile.CreateSpec{
		ID:              req.ID,
		Name:            req.Name,
		Description:     req.Description,
		SkipDiarization: req.SkipDiarization,
		Priority:        req.Priority,
		Routing:         req.Routing,
		Notifications:   req.Notifications,
	}
	for _, stage := range req.Stages {
		spec.Stages = append(spec.Stages, profile.CreateStage{
			Name:             stage.Name,
			PromptContent:    stage.PromptContent,
			Model:            stage.Model,
			Provider:         stage.Provider,
			Temperature:      stage.Temperature,
			MaxTokens:        stage.MaxTokens,
			RequiresPrevious: stage.RequiresPrevious,
			SaveIntermediate: stage.SaveIntermediate,
			FilenameSuffix:   stage.FilenameSuffix,
		})
	}

	p, err := s.profiles.CreateProfile(spec)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// deleteProfileHandler handles DELETE /profiles/:id.
func (s *Server) deleteProfileHandler(c *gin.Context) {
	if err := s.profiles.DeleteProfile(c.Param("id")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// stageFromParams resolves the :id/:stage_index pair, writing the error
// response itself on failure.
func (s *Server) stageFromParams(c *gin.Context) (*profile.Profile, int, bool) {
	p, ok := s.profiles.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return nil, 0, false
	}
	idx, err := strconv.Atoi(c.Param("stage_index"))
	if err != nil || idx < 0 || idx >= len(p.Stages) {
		c.JSON(http.StatusNotFound, gin.H{"error": "stage index out of range"})
		return nil, 0, false
	}
	return p, idx, true
}

// getPromptHandler handles GET /profiles/:id/prompts/:stage_index.
func (s *Server) getPromptHandler(c *gin.Context) {
	p, idx, ok := s.stageFromParams(c)
	if !ok {
		return
	}
	stage := p.Stages[idx]
	c.JSON(http.StatusOK, gin.H{
		"profile_id":  p.ID,
		"stage_index": idx,
		"stage_name":  stage.Name,
		"prompt":      stage.PromptTemplate,
	})
}

// updatePromptHandler handles PUT /profiles/:id/prompts/:stage_index.
func (s *Server) updatePromptHandler(c *gin.Context) {
	p, idx, ok := s.stageFromParams(c)
	if !ok {
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if err := s.profiles.UpdateStagePrompt(p.ID, idx, req.Prompt); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// dryRunHandler handles POST /profiles/:id/dry-run: runs one stage against
// supplied sample text without creating a job.
func (s *Server) dryRunHandler(c *gin.Context) {
	p, ok := s.profiles.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	var req struct {
		StageIndex int    `json:"stage_index"`
		SampleText string `json:"sample_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.SampleText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sample_text is required"})
		return
	}
	if req.StageIndex < 0 || req.StageIndex >= len(p.Stages) {
		c.JSON(http.StatusNotFound, gin.H{"error": "stage index out of range"})
		return
	}
	sample := req.SampleText
	truncated := false
	if len(sample) > dryRunSampleLimit {
		sample = sample[:dryRunSampleLimit]
		truncated = true
	}

	stage := p.Stages[req.StageIndex]
	provider, err := llm.ResolveProvider(stage.Model, stage.Provider)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	prompt := stage.PromptTemplate
	prompt = replacePlaceholders(prompt, sample)

	out, usage, err := s.llm.Complete(c.Request.Context(), provider, llm.CompletionParams{
		Model:         stage.Model,
		SystemMessage: stage.SystemMessage,
		Prompt:        prompt,
		Temperature:   stage.Temperature,
		MaxTokens:     stage.MaxTokens,
		Timeout:       stage.Timeout(),
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stage":         stage.Name,
		"model":         stage.Model,
		"output":        out,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
		"cost_estimate": llm.EstimateCost(stage.Model, usage.InputTokens, usage.OutputTokens),
		"truncated":     truncated,
	})
}

func replacePlaceholders(template, sample string) string {
	out := strings.ReplaceAll(template, "{transcript}", sample)
	return strings.ReplaceAll(out, "{cleaned_transcript}", sample)
}
