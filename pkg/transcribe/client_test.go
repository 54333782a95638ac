package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudioFixture(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestTranscribe_Success(t *testing.T) {
	audio := writeAudioFixture(t, "meeting.mp3", 1024)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "whisper-large-v3-turbo", r.FormValue("model"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "meeting.mp3", header.Filename)

		_, _ = w.Write([]byte(`{
			"text": " Hello world. ",
			"language": "en",
			"segments": [
				{"id": 0, "start": 0.0, "end": 2.5, "text": " Hello "},
				{"id": 1, "start": 2.5, "end": 5.0, "text": "world."}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient("groq-key", "whisper-large-v3-turbo", srv.URL, 5*time.Second)
	result, err := client.Transcribe(context.Background(), audio)
	require.NoError(t, err)

	assert.Equal(t, "Hello world.", result.Text)
	assert.Equal(t, "en", result.Language)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, "Hello", result.Segments[0].Text)
	// duration derived from max segment end
	assert.InDelta(t, 5.0, result.Duration, 1e-9)
}

func TestTranscribe_RetriesOn429ThenSucceeds(t *testing.T) {
	audio := writeAudioFixture(t, "a.wav", 128)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"text": "ok", "segments": [{"id":0,"start":0,"end":1,"text":"ok"}]}`))
	}))
	defer srv.Close()

	client := NewClient("k", "whisper-large-v3-turbo", srv.URL, 5*time.Second)
	result, err := client.Transcribe(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTranscribe_RateLimitExhaustsFullSchedule(t *testing.T) {
	audio := writeAudioFixture(t, "a.wav", 128)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("k", "whisper-large-v3-turbo", srv.URL, 5*time.Second)
	_, err := client.Transcribe(context.Background(), audio)
	require.Error(t, err)

	// one request after each of the three scheduled delays
	assert.Equal(t, int32(4), calls.Load())
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestTranscribe_PermanentErrorNoRetry(t *testing.T) {
	audio := writeAudioFixture(t, "a.ogg", 128)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "unsupported"}`))
	}))
	defer srv.Close()

	client := NewClient("k", "whisper-large-v3-turbo", srv.URL, 5*time.Second)
	_, err := client.Transcribe(context.Background(), audio)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTranscribe_MissingFile(t *testing.T) {
	client := NewClient("k", "whisper-large-v3-turbo", "http://localhost:0", time.Second)
	_, err := client.Transcribe(context.Background(), "/nonexistent/audio.mp3")
	assert.Error(t, err)
}

func TestParseTranscription_TextOnly(t *testing.T) {
	result := parseTranscription(map[string]any{
		"text":     "just text",
		"duration": 12.5,
	})
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "just text", result.Segments[0].Text)
	assert.InDelta(t, 12.5, result.Segments[0].End, 1e-9)
	assert.InDelta(t, 12.5, result.Duration, 1e-9)
	assert.Equal(t, "unknown", result.Language)
}

func TestNeedsCompression(t *testing.T) {
	// exactly at the limit uploads without compression
	assert.False(t, needsCompression(MaxFileSizeBytes, ".mp3"))
	// one byte over triggers compression
	assert.True(t, needsCompression(MaxFileSizeBytes+1, ".mp3"))
	// unsupported container always compresses
	assert.True(t, needsCompression(100, ".mkv"))
	assert.False(t, needsCompression(100, ".MP3"))
}

func TestParseTranscription_Empty(t *testing.T) {
	result := parseTranscription(map[string]any{})
	assert.Empty(t, result.Text)
	assert.Empty(t, result.Segments)
	assert.Zero(t, result.Duration)
}
