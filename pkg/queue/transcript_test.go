package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxpipe/voxpipe/pkg/diarize"
	"github.com/voxpipe/voxpipe/pkg/transcribe"
)

func TestBuildRawTranscript(t *testing.T) {
	segments := []transcribe.Segment{
		{ID: 0, Start: 0, End: 2.5, Text: " hello "},
		{ID: 1, Start: 65, End: 70, Text: "one minute in"},
		{ID: 2, Start: 3700, End: 3705, Text: "over an hour"},
		{ID: 3, Start: 3710, End: 3712, Text: "   "},
	}

	got := buildRawTranscript(segments)
	want := "[00:00:00] hello\n[00:01:05] one minute in\n[01:01:40] over an hour"
	assert.Equal(t, want, got)
}

func TestBuildRawTranscript_Empty(t *testing.T) {
	assert.Equal(t, "", buildRawTranscript(nil))
}

func TestBuildSpeakerTranscript(t *testing.T) {
	segments := []diarize.MergedSegment{
		{Start: 0, End: 2, Text: "hello there", Speaker: "SPEAKER_00"},
		{Start: 2, End: 4, Text: "how are you", Speaker: "SPEAKER_00"},
		{Start: 4, End: 6, Text: "fine thanks", Speaker: "SPEAKER_01"},
	}

	got := buildSpeakerTranscript(segments)
	want := "**SPEAKER_00:**\nhello there how are you\n\n**SPEAKER_01:**\nfine thanks"
	assert.Equal(t, want, got)
}

func TestBuildSpeakerTranscript_SkipsEmptySegments(t *testing.T) {
	segments := []diarize.MergedSegment{
		{Text: "  ", Speaker: "SPEAKER_00"},
		{Text: "actual words", Speaker: "SPEAKER_01"},
	}

	got := buildSpeakerTranscript(segments)
	assert.Equal(t, "**SPEAKER_01:**\nactual words", got)
}

func TestSubstitutePrompt(t *testing.T) {
	prompt := substitutePrompt("Format this:\n{transcript}", "raw text", nil)
	assert.Equal(t, "Format this:\nraw text", prompt)
}

func TestSubstitutePrompt_CleanedTranscriptPrefersCleanStage(t *testing.T) {
	previous := map[string]string{"clean": "cleaned version"}
	prompt := substitutePrompt("Summarize {cleaned_transcript}", "current input", previous)
	assert.Equal(t, "Summarize cleaned version", prompt)
}

func TestSubstitutePrompt_CleanedTranscriptFallsBackToCurrent(t *testing.T) {
	prompt := substitutePrompt("Summarize {cleaned_transcript}", "current input", map[string]string{})
	assert.Equal(t, "Summarize current input", prompt)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00", formatTimestamp(0))
	assert.Equal(t, "00:00:59", formatTimestamp(59.9))
	assert.Equal(t, "00:01:05", formatTimestamp(65))
	assert.Equal(t, "02:00:01", formatTimestamp(7201))
}
