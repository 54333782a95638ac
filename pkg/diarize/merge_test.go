package diarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpipe/voxpipe/pkg/transcribe"
)

func TestOverlap(t *testing.T) {
	assert.InDelta(t, 5.0, overlap(0, 10, 5, 15), 1e-9)
	assert.Zero(t, overlap(0, 5, 5, 10))
	assert.Zero(t, overlap(0, 5, 10, 20))
	assert.InDelta(t, 2.0, overlap(3, 5, 0, 10), 1e-9)
}

func TestMerge_TwoSpeakers(t *testing.T) {
	transcript := []transcribe.Segment{
		{ID: 0, Start: 0.0, End: 5.0, Text: "Hello everyone"},
		{ID: 1, Start: 6.0, End: 10.0, Text: "Nice to meet you"},
	}
	speakers := []SpeakerSegment{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 5.5},
		{Speaker: "SPEAKER_01", Start: 6.0, End: 10.0},
	}

	merged := Merge(transcript, speakers)
	require.Len(t, merged, 2)
	assert.Equal(t, "SPEAKER_00", merged[0].Speaker)
	assert.Equal(t, "Hello everyone", merged[0].Text)
	assert.Equal(t, "SPEAKER_01", merged[1].Speaker)
	assert.Equal(t, "Nice to meet you", merged[1].Text)
}

func TestMerge_EmptyTranscript(t *testing.T) {
	merged := Merge(nil, []SpeakerSegment{{Speaker: "SPEAKER_00", Start: 0, End: 10}})
	assert.Empty(t, merged)
}

func TestMerge_EmptyDiarizationAssignsDefaultSpeaker(t *testing.T) {
	transcript := []transcribe.Segment{
		{ID: 0, Start: 0.0, End: 2.0, Text: "one"},
		{ID: 1, Start: 2.5, End: 4.0, Text: "two"},
	}

	merged := Merge(transcript, nil)
	// consecutive same-speaker segments collapse into one
	require.Len(t, merged, 1)
	assert.Equal(t, DefaultSpeaker, merged[0].Speaker)
	assert.Equal(t, "one two", merged[0].Text)
	assert.InDelta(t, 0.0, merged[0].Start, 1e-9)
	assert.InDelta(t, 4.0, merged[0].End, 1e-9)
}

func TestMerge_BelowThresholdIsUnknown(t *testing.T) {
	transcript := []transcribe.Segment{
		{ID: 0, Start: 0.0, End: 10.0, Text: "mostly silence"},
	}
	// Speaker covers only 30% of the segment.
	speakers := []SpeakerSegment{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 3.0},
	}

	merged := Merge(transcript, speakers)
	require.Len(t, merged, 1)
	assert.Equal(t, UnknownSpeaker, merged[0].Speaker)
}

func TestMerge_ZeroDurationSegmentIsUnknown(t *testing.T) {
	transcript := []transcribe.Segment{
		{ID: 0, Start: 5.0, End: 5.0, Text: "blip"},
	}
	speakers := []SpeakerSegment{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 10.0},
	}

	merged := Merge(transcript, speakers)
	require.Len(t, merged, 1)
	assert.Equal(t, UnknownSpeaker, merged[0].Speaker)
}

func TestMerge_SumsOverlapsFromSameSpeaker(t *testing.T) {
	transcript := []transcribe.Segment{
		{ID: 0, Start: 0.0, End: 10.0, Text: "long segment"},
	}
	// Two intervals of 3s each from the same speaker sum to 60%.
	speakers := []SpeakerSegment{
		{Speaker: "SPEAKER_01", Start: 0.0, End: 3.0},
		{Speaker: "SPEAKER_01", Start: 6.0, End: 9.0},
		{Speaker: "SPEAKER_00", Start: 3.0, End: 6.0},
	}

	merged := Merge(transcript, speakers)
	require.Len(t, merged, 1)
	assert.Equal(t, "SPEAKER_01", merged[0].Speaker)
}

func TestMerge_CollapsesConsecutiveSameSpeaker(t *testing.T) {
	transcript := []transcribe.Segment{
		{ID: 0, Start: 0.0, End: 2.0, Text: "first"},
		{ID: 1, Start: 2.0, End: 4.0, Text: "second"},
		{ID: 2, Start: 4.0, End: 6.0, Text: "third"},
	}
	speakers := []SpeakerSegment{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 4.0},
		{Speaker: "SPEAKER_01", Start: 4.0, End: 6.0},
	}

	merged := Merge(transcript, speakers)
	require.Len(t, merged, 2)
	assert.Equal(t, "SPEAKER_00", merged[0].Speaker)
	assert.Equal(t, "first second", merged[0].Text)
	assert.InDelta(t, 4.0, merged[0].End, 1e-9)
	assert.Equal(t, "SPEAKER_01", merged[1].Speaker)
	assert.Equal(t, "third", merged[1].Text)
}

func TestMerge_UnsortedInputIsSorted(t *testing.T) {
	transcript := []transcribe.Segment{
		{ID: 1, Start: 5.0, End: 10.0, Text: "later"},
		{ID: 0, Start: 0.0, End: 5.0, Text: "earlier"},
	}
	speakers := []SpeakerSegment{
		{Speaker: "SPEAKER_01", Start: 5.0, End: 10.0},
		{Speaker: "SPEAKER_00", Start: 0.0, End: 5.0},
	}

	merged := Merge(transcript, speakers)
	require.Len(t, merged, 2)
	assert.Equal(t, "earlier", merged[0].Text)
	assert.Equal(t, "SPEAKER_00", merged[0].Speaker)
	assert.Equal(t, "later", merged[1].Text)
}

func TestSingleSpeaker(t *testing.T) {
	segs := SingleSpeaker(120.5)
	require.Len(t, segs, 1)
	assert.Equal(t, DefaultSpeaker, segs[0].Speaker)
	assert.Zero(t, segs[0].Start)
	assert.InDelta(t, 120.5, segs[0].End, 1e-9)
}

func TestNormalizeSpeakerLabel(t *testing.T) {
	assert.Equal(t, "SPEAKER_00", normalizeSpeakerLabel("SPEAKER_00"))
	assert.Equal(t, "SPEAKER_07", normalizeSpeakerLabel("SPEAKER_7"))
	assert.Equal(t, "SPEAKER_00", normalizeSpeakerLabel("A"))
	assert.Equal(t, "SPEAKER_01", normalizeSpeakerLabel("b"))
	assert.Equal(t, "SPEAKER_00", normalizeSpeakerLabel("narrator"))
}

func TestParseRunnerOutput(t *testing.T) {
	out := []byte(`[
		{"speaker": "B", "start": 5.0, "end": 8.0},
		{"speaker": "SPEAKER_0", "start": 0.0, "end": 5.0}
	]`)
	segs, err := parseRunnerOutput(out)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	// sorted by start, labels normalized
	assert.Equal(t, "SPEAKER_00", segs[0].Speaker)
	assert.Equal(t, "SPEAKER_01", segs[1].Speaker)

	_, err = parseRunnerOutput([]byte("not json"))
	require.Error(t, err)
	var dErr *Error
	assert.ErrorAs(t, err, &dErr)
}
