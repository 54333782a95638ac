package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Retry policy, matching the LLM client's taxonomy: 429 uses the fixed
// schedule, 5xx/timeout/connection-reset use 2^attempt up to 3 attempts,
// other 4xx are permanent.
const maxRetries5xx = 3

var backoffDelays429 = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// supportedFormats is the set of extensions the remote endpoint accepts
// directly; anything else (or anything oversize) goes through compression.
var supportedFormats = map[string]bool{
	".mp3": true, ".mp4": true, ".mpeg": true, ".mpga": true,
	".m4a": true, ".wav": true, ".webm": true, ".ogg": true, ".flac": true,
}

// APIError is a non-2xx response from the ASR endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("asr api error: status %d: %s", e.StatusCode, e.Body)
}

// Client transcribes audio files through a remote whisper endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a transcription client. timeout bounds each HTTP call
// end to end; compression runs outside it.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Transcribe validates the file, compresses it if it exceeds the upload
// limit, uploads it, and returns the parsed transcription.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("audio file not accessible: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is not a file: %s", audioPath)
	}

	uploadPath := audioPath
	if needsCompression(info.Size(), filepath.Ext(audioPath)) {
		compressed, err := CompressAudio(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		defer os.Remove(compressed)
		uploadPath = compressed
	}

	// The classifier bounds the loop: one attempt follows every scheduled
	// delay, so 429 gets four requests and 5xx/timeout get three.
	for attempt := 1; ; attempt++ {
		resp, err := c.upload(ctx, uploadPath)
		if err == nil {
			return parseTranscription(resp), nil
		}

		delay, retry := retryDelay(err, attempt)
		if !retry {
			if attempt == 1 {
				return nil, err
			}
			return nil, fmt.Errorf("transcription failed after %d attempts: %w", attempt, err)
		}
		slog.Warn("ASR call failed, retrying",
			"file", filepath.Base(uploadPath), "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// needsCompression reports whether a file must be transcoded before upload:
// anything strictly over the limit, or in a format the endpoint rejects.
// A file exactly at the limit uploads as-is.
func needsCompression(size int64, ext string) bool {
	return size > MaxFileSizeBytes || !supportedFormats[strings.ToLower(ext)]
}

// upload performs one multipart POST to /audio/transcriptions.
func (c *Client) upload(ctx context.Context, audioPath string) (map[string]any, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	_ = mw.WriteField("model", c.model)
	_ = mw.WriteField("response_format", "verbose_json")
	if err := mw.Close(); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body := string(data)
		if len(body) > 500 {
			body = body[:500]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return parsed, nil
}

func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			if attempt <= len(backoffDelays429) {
				return backoffDelays429[attempt-1], true
			}
			return 0, false
		case apiErr.StatusCode >= 500:
			if attempt < maxRetries5xx {
				return time.Duration(1<<attempt) * time.Second, true
			}
			return 0, false
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		if attempt < maxRetries5xx {
			return time.Duration(1<<attempt) * time.Second, true
		}
		return 0, false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if attempt < maxRetries5xx {
			return time.Duration(1<<attempt) * time.Second, true
		}
	}
	return 0, false
}

// parseTranscription normalizes the raw response: trimmed text, ordered
// segments, duration derived from the max segment end when absent.
func parseTranscription(raw map[string]any) *Transcription {
	text := strings.TrimSpace(str(raw["text"]))

	var segments []Segment
	if rawSegs, ok := raw["segments"].([]any); ok {
		for idx, rs := range rawSegs {
			seg, ok := rs.(map[string]any)
			if !ok {
				continue
			}
			id := idx
			if v, ok := seg["id"].(float64); ok {
				id = int(v)
			}
			segments = append(segments, Segment{
				ID:    id,
				Start: num(seg["start"]),
				End:   num(seg["end"]),
				Text:  strings.TrimSpace(str(seg["text"])),
			})
		}
	}

	// No segments but non-empty text: synthesize a single segment.
	if len(segments) == 0 && text != "" {
		segments = []Segment{{ID: 0, Start: 0, End: num(raw["duration"]), Text: text}}
	}

	duration := 0.0
	for _, seg := range segments {
		if seg.End > duration {
			duration = seg.End
		}
	}

	language := str(raw["language"])
	if language == "" {
		language = "unknown"
	}

	return &Transcription{
		Text:     text,
		Segments: segments,
		Language: language,
		Duration: duration,
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}
