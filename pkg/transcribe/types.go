// Package transcribe provides the remote whisper transcription client,
// including upload-size validation and ffmpeg-based compression.
package transcribe

// Segment is one timestamped piece of the transcript.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the durable ASR artifact persisted for resume.
type Transcription struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
}
