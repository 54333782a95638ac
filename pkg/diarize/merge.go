// Package diarize provides speaker diarization and the merge of diarization
// output with transcription segments.
package diarize

import (
	"sort"

	"github.com/voxpipe/voxpipe/pkg/transcribe"
)

// minOverlapRatio is the share of a transcript segment a speaker must cover
// to claim it.
const minOverlapRatio = 0.5

// DefaultSpeaker is the label used when diarization produced nothing.
const DefaultSpeaker = "SPEAKER_00"

// UnknownSpeaker is assigned when no speaker meets the overlap threshold.
const UnknownSpeaker = "UNKNOWN"

// SpeakerSegment is one diarization interval.
type SpeakerSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// MergedSegment is a transcript segment with a speaker label.
type MergedSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// overlap returns the duration of the intersection of two intervals, or 0.
func overlap(start1, end1, start2, end2 float64) float64 {
	start := max(start1, start2)
	end := min(end1, end2)
	if end <= start {
		return 0
	}
	return end - start
}

// bestSpeaker finds the speaker whose total overlap with the segment is
// highest and covers at least minOverlapRatio of it. Overlaps from multiple
// diarization intervals of the same speaker are summed.
func bestSpeaker(seg transcribe.Segment, speakers []SpeakerSegment) string {
	duration := seg.End - seg.Start
	if duration <= 0 {
		return ""
	}

	overlaps := make(map[string]float64)
	for _, sp := range speakers {
		if o := overlap(seg.Start, seg.End, sp.Start, sp.End); o > 0 {
			overlaps[sp.Speaker] += o
		}
	}
	if len(overlaps) == 0 {
		return ""
	}

	best := ""
	bestOverlap := 0.0
	for speaker, o := range overlaps {
		if o > bestOverlap || (o == bestOverlap && (best == "" || speaker < best)) {
			best = speaker
			bestOverlap = o
		}
	}

	if bestOverlap/duration >= minOverlapRatio {
		return best
	}
	return ""
}

// collapseConsecutive merges adjacent segments with the same speaker,
// extending the end time and space-joining the texts.
func collapseConsecutive(segments []MergedSegment) []MergedSegment {
	if len(segments) == 0 {
		return nil
	}

	merged := make([]MergedSegment, 0, len(segments))
	current := segments[0]
	for _, seg := range segments[1:] {
		if seg.Speaker == current.Speaker {
			current.End = seg.End
			switch {
			case current.Text != "" && seg.Text != "":
				current.Text = current.Text + " " + seg.Text
			default:
				current.Text = current.Text + seg.Text
			}
			continue
		}
		merged = append(merged, current)
		current = seg
	}
	return append(merged, current)
}

// Merge assigns a speaker to each transcript segment and collapses
// consecutive same-speaker runs.
//
// Edge cases: empty transcript input yields nil; empty diarization assigns
// every segment to DefaultSpeaker; a zero-duration transcript segment is
// labeled UnknownSpeaker.
func Merge(transcript []transcribe.Segment, speakers []SpeakerSegment) []MergedSegment {
	if len(transcript) == 0 {
		return nil
	}

	if len(speakers) == 0 {
		out := make([]MergedSegment, len(transcript))
		for i, seg := range transcript {
			out[i] = MergedSegment{Start: seg.Start, End: seg.End, Text: seg.Text, Speaker: DefaultSpeaker}
		}
		return out
	}

	sortedTranscript := make([]transcribe.Segment, len(transcript))
	copy(sortedTranscript, transcript)
	sort.Slice(sortedTranscript, func(i, j int) bool {
		return sortedTranscript[i].Start < sortedTranscript[j].Start
	})

	sortedSpeakers := make([]SpeakerSegment, len(speakers))
	copy(sortedSpeakers, speakers)
	sort.Slice(sortedSpeakers, func(i, j int) bool {
		return sortedSpeakers[i].Start < sortedSpeakers[j].Start
	})

	assigned := make([]MergedSegment, 0, len(sortedTranscript))
	for _, seg := range sortedTranscript {
		speaker := bestSpeaker(seg, sortedSpeakers)
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		assigned = append(assigned, MergedSegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: speaker,
		})
	}

	return collapseConsecutive(assigned)
}

// SingleSpeaker builds the substitute diarization used when the model is
// unavailable: one segment spanning the whole audio.
func SingleSpeaker(duration float64) []SpeakerSegment {
	return []SpeakerSegment{{Speaker: DefaultSpeaker, Start: 0, End: duration}}
}
