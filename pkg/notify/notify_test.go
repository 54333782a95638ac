package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpipe/voxpipe/pkg/profile"
)

func TestDispatch_NilConfigIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	n.Dispatch(context.Background(), Completion{JobName: "x"}, nil)
}

func TestDispatch_Ntfy(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.Store(map[string]string{
			"path":  r.URL.Path,
			"title": r.Header.Get("Title"),
			"body":  string(body),
		})
	}))
	defer srv.Close()

	n := NewNotifier(nil)
	n.Dispatch(context.Background(), Completion{
		JobName:   "lecture.mp3",
		ProfileID: "business",
		TotalCost: 0.0421,
	}, &profile.NotificationConfig{NtfyTopic: "kate-notes", NtfyURL: srv.URL})

	m, ok := got.Load().(map[string]string)
	require.True(t, ok, "ntfy endpoint was not called")
	assert.Equal(t, "/kate-notes", m["path"])
	assert.Equal(t, "Transcription: lecture.mp3", m["title"])
	assert.Contains(t, m["body"], "$0.0421")
}

func TestDispatch_Discord(t *testing.T) {
	var payload atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		payload.Store(body)
	}))
	defer srv.Close()

	n := NewNotifier(nil)
	n.Dispatch(context.Background(), Completion{
		JobName:   "talk.wav",
		ProfileID: "meeting",
		Documents: []string{"/out/docs/talk.docx"},
	}, &profile.NotificationConfig{DiscordWebhook: srv.URL})

	body, ok := payload.Load().(map[string]any)
	require.True(t, ok, "discord webhook was not called")
	assert.Contains(t, body["content"], "talk.wav")
	embeds, ok := body["embeds"].([]any)
	require.True(t, ok)
	require.Len(t, embeds, 1)
	desc := embeds[0].(map[string]any)["description"].(string)
	assert.Contains(t, desc, "Profile: meeting")
	assert.Contains(t, desc, "talk.docx")
}

func TestDispatch_Pushover(t *testing.T) {
	var form atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form.Store(r.PostForm.Encode())
	}))
	defer srv.Close()

	n := NewNotifier(nil)
	n.pushoverURL = srv.URL
	n.Dispatch(context.Background(), Completion{JobName: "note.m4a"}, &profile.NotificationConfig{
		PushoverUser:  "user-key",
		PushoverToken: "app-token",
	})

	encoded, ok := form.Load().(string)
	require.True(t, ok, "pushover endpoint was not called")
	assert.Contains(t, encoded, "token=app-token")
	assert.Contains(t, encoded, "user=user-key")
}

func TestDispatch_ChannelFailureDoesNotPanic(t *testing.T) {
	n := NewNotifier(nil)
	// unreachable webhook; dispatch must swallow the error
	n.Dispatch(context.Background(), Completion{JobName: "x"}, &profile.NotificationConfig{
		DiscordWebhook: "http://127.0.0.1:1/webhook",
	})
}

func writeSized(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestSelectAttachments_UnderCapKeepsAll(t *testing.T) {
	dir := t.TempDir()
	a := writeSized(t, dir, "a.docx", 100)
	b := writeSized(t, dir, "b.docx", 200)

	selected := selectAttachments([]string{a, b})
	assert.ElementsMatch(t, []string{a, b}, selected)
}

func TestSelectAttachments_OverCapPrefersPriorityDocs(t *testing.T) {
	dir := t.TempDir()
	big := writeSized(t, dir, "full_transcript.docx", maxAttachmentBytes)
	sheet := writeSized(t, dir, "lecture_cheatsheet.docx", 512)
	analysis := writeSized(t, dir, "lecture_analysis.docx", 1024)

	selected := selectAttachments([]string{big, sheet, analysis})
	assert.ElementsMatch(t, []string{sheet, analysis}, selected)
}

func TestSelectAttachments_OverCapFallsBackToSmallest(t *testing.T) {
	dir := t.TempDir()
	big := writeSized(t, dir, "one.docx", maxAttachmentBytes)
	mid := writeSized(t, dir, "two.docx", 2048)
	small := writeSized(t, dir, "three.docx", 64)

	selected := selectAttachments([]string{big, mid, small})
	assert.ElementsMatch(t, []string{small, mid}, selected)
}

func TestEmailSender_NotConfigured(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_USER", "")
	t.Setenv("SMTP_PASSWORD", "")
	s := NewEmailSenderFromEnv()
	assert.False(t, s.IsConfigured())
	assert.Error(t, s.SendCompleted("a@b.c", "", "x", nil))
}

func TestBuildMessage(t *testing.T) {
	dir := t.TempDir()
	doc := writeSized(t, dir, "notes.docx", 10)

	msg, err := buildMessage("pipe@example.com", "kate@example.com", "cohort@example.com",
		"Processed: lecture", "body text", []string{doc})
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "To: kate@example.com")
	assert.Contains(t, s, "Cc: cohort@example.com")
	assert.Contains(t, s, "multipart/mixed")
	assert.Contains(t, s, `filename="notes.docx"`)
	assert.Contains(t, s, "body text")
}
