package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpipe/voxpipe/pkg/config"
	"github.com/voxpipe/voxpipe/pkg/events"
	"github.com/voxpipe/voxpipe/pkg/llm"
	"github.com/voxpipe/voxpipe/pkg/profile"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(context.Context, llm.Provider, llm.CompletionParams) (string, llm.Usage, error) {
	if f.err != nil {
		return "", llm.Usage{}, f.err
	}
	return f.reply, llm.Usage{InputTokens: 10, OutputTokens: 5}, nil
}

// newTestServer builds a Server without a database; handlers that need one
// are not exercised here.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	paths := &config.Paths{
		ConfigDir:     filepath.Join(root, "config"),
		ProcessingDir: filepath.Join(root, "processing"),
		OutputDir:     filepath.Join(root, "output"),
		InboundDir:    filepath.Join(root, "inbound"),
	}
	require.NoError(t, paths.EnsureDirs())

	profiles, err := profile.NewLoader(paths.ConfigDir)
	require.NoError(t, err)

	uploadDir := filepath.Join(paths.InboundDir, "uploads")
	require.NoError(t, os.MkdirAll(uploadDir, 0o755))

	return &Server{
		paths:     paths,
		profiles:  profiles,
		bus:       events.NewBus(),
		llm:       &fakeLLM{reply: "dry run output"},
		uploadDir: uploadDir,
		limiter:   newClientLimiter(100, 100),
		streams:   newStreamLimiter(maxStreamSubscribers),
	}
}

func doRequest(s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func doJSON(s *Server, method, path string, payload any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	return doRequest(s, method, path, bytes.NewBuffer(data), "application/json")
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateJob_RequiresProfileID(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, nil, "file", "audio.mp3", "data")

	w := doRequest(s, http.MethodPost, "/jobs", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "profile_id")
}

func TestCreateJob_UnknownProfile(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{"profile_id": "nope"}, "file", "audio.mp3", "data")

	w := doRequest(s, http.MethodPost, "/jobs", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown profile")
}

func TestCreateJob_RejectsUnsupportedExtension(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{"profile_id": "meeting"}, "file", "notes.txt", "not audio")

	w := doRequest(s, http.MethodPost, "/jobs", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported file type")
}

func TestProfileCRUD(t *testing.T) {
	s := newTestServer(t)

	create := createProfileRequest{
		ID:   "research_calls",
		Name: "Research Calls",
		Stages: []createStageRequest{
			{Name: "summary", PromptContent: "Summarize: {transcript}"},
		},
	}
	w := doJSON(s, http.MethodPost, "/profiles", create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(s, http.MethodGet, "/profiles/research_calls", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got profile.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Research Calls", got.Name)
	require.Len(t, got.Stages, 1)

	w = doRequest(s, http.MethodGet, "/profiles", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "research_calls")
	assert.Contains(t, w.Body.String(), "meeting") // built-ins listed too

	w = doRequest(s, http.MethodDelete, "/profiles/research_calls", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodGet, "/profiles/research_calls", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProfile_InvalidID(t *testing.T) {
	s := newTestServer(t)

	for _, id := range []string{"", "-leading", "UPPER", "has space", strings.Repeat("a", 65)} {
		w := doJSON(s, http.MethodPost, "/profiles", createProfileRequest{
			ID:     id,
			Stages: []createStageRequest{{Name: "x", PromptContent: "y"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, "id %q", id)
	}
}

func TestCreateProfile_ConflictsWithBuiltin(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/profiles", createProfileRequest{
		ID:     "meeting",
		Stages: []createStageRequest{{Name: "x", PromptContent: "y"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPromptGetAndUpdate(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/profiles", createProfileRequest{
		ID:     "calls",
		Stages: []createStageRequest{{Name: "summary", PromptContent: "v1: {transcript}"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(s, http.MethodGet, "/profiles/calls/prompts/0", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "v1: {transcript}")

	w = doJSON(s, http.MethodPut, "/profiles/calls/prompts/0", gin.H{"prompt": "v2: {transcript}"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodGet, "/profiles/calls/prompts/0", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "v2: {transcript}")

	w = doRequest(s, http.MethodGet, "/profiles/calls/prompts/5", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDryRun(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "test-key")
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/profiles/meeting/dry-run", gin.H{
		"stage_index": 0,
		"sample_text": "SPEAKER_00: hello everyone",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dry run output", resp["output"])
	assert.Equal(t, false, resp["truncated"])
}

func TestDryRun_TruncatesSample(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "test-key")
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/profiles/meeting/dry-run", gin.H{
		"stage_index": 0,
		"sample_text": strings.Repeat("x", dryRunSampleLimit+100),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["truncated"])
}

func TestRequireAPIKey(t *testing.T) {
	s := newTestServer(t)
	s.apiKey = "secret"

	w := doJSON(s, http.MethodPost, "/profiles", createProfileRequest{
		ID:     "locked",
		Stages: []createStageRequest{{Name: "x", PromptContent: "y"}},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	data, _ := json.Marshal(createProfileRequest{
		ID:     "locked",
		Stages: []createStageRequest{{Name: "x", PromptContent: "y"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/profiles", bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// read routes stay open
	w = doRequest(s, http.MethodGet, "/profiles", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStreamLimiter(t *testing.T) {
	l := newStreamLimiter(2)

	r1, ok := l.acquire()
	require.True(t, ok)
	_, ok = l.acquire()
	require.True(t, ok)
	_, ok = l.acquire()
	assert.False(t, ok, "third subscriber must be rejected")

	r1()
	_, ok = l.acquire()
	assert.True(t, ok, "released slot is reusable")
}

func TestClientLimiter(t *testing.T) {
	l := newClientLimiter(1, 2)

	lim := l.get("10.0.0.1")
	assert.True(t, lim.Allow())
	assert.True(t, lim.Allow())
	assert.False(t, lim.Allow(), "burst exhausted")

	// distinct clients have independent budgets
	assert.True(t, l.get("10.0.0.2").Allow())
}

func TestScanOutputs(t *testing.T) {
	s := newTestServer(t)

	transcripts := filepath.Join(s.paths.OutputDir, "transcripts")
	docs := filepath.Join(s.paths.OutputDir, "docs", "alice")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(transcripts, "team_meeting_summary.md"), []byte("# notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "team_meeting_summary.html"), []byte("<html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(transcripts, "other_recording.md"), []byte("x"), 0o644))

	got := s.scanOutputs("/inbound/team_meeting.mp3")
	require.Len(t, got, 2)
	kinds := map[string]string{}
	for _, f := range got {
		kinds[f.Type] = f.Stage
	}
	assert.Equal(t, "summary", kinds["markdown"])
	assert.Equal(t, "summary", kinds["html"])
}
