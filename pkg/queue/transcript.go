package queue

import (
	"fmt"
	"strings"

	"github.com/voxpipe/voxpipe/pkg/diarize"
	"github.com/voxpipe/voxpipe/pkg/transcribe"
)

// buildRawTranscript renders ASR segments as timestamped lines:
//
//	[00:01:23] some text
func buildRawTranscript(segments []transcribe.Segment) string {
	var lines []string
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", formatTimestamp(seg.Start), text))
	}
	return strings.Join(lines, "\n")
}

// buildSpeakerTranscript renders merged segments grouped by speaker:
//
//	**SPEAKER_00:**
//	hello there how are you
//
//	**SPEAKER_01:**
//	fine thanks
func buildSpeakerTranscript(segments []diarize.MergedSegment) string {
	var lines []string
	currentSpeaker := ""
	var currentText []string

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Speaker != currentSpeaker {
			if len(currentText) > 0 {
				lines = append(lines, strings.Join(currentText, " "), "")
			}
			lines = append(lines, fmt.Sprintf("**%s:**", seg.Speaker))
			currentSpeaker = seg.Speaker
			currentText = nil
		}
		currentText = append(currentText, text)
	}
	if len(currentText) > 0 {
		lines = append(lines, strings.Join(currentText, " "))
	}
	return strings.Join(lines, "\n")
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// substitutePrompt fills a stage's prompt template. {transcript} is replaced
// with the current pipeline input; {cleaned_transcript} takes the output of
// a prior stage named "clean" when one ran, else the current input. Literal
// replacement only; no other placeholders are interpreted.
func substitutePrompt(template, current string, previous map[string]string) string {
	prompt := strings.ReplaceAll(template, "{transcript}", current)
	if strings.Contains(template, "{cleaned_transcript}") {
		cleaned := current
		if v, ok := previous["clean"]; ok {
			cleaned = v
		}
		prompt = strings.ReplaceAll(prompt, "{cleaned_transcript}", cleaned)
	}
	return prompt
}
