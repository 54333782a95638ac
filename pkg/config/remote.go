package config

import (
	"os"
	"time"
)

// ASRConfig holds remote transcription settings.
type ASRConfig struct {
	// APIKey authenticates against the Groq whisper endpoint (GROQ_API_KEY).
	APIKey string

	// Model is the whisper model identifier.
	Model string

	// BaseURL is the transcription endpoint base.
	BaseURL string

	// Timeout bounds the HTTP call only; upload validation and compression
	// run outside it.
	Timeout time.Duration
}

// LoadASRConfig reads ASR settings from the environment.
func LoadASRConfig() *ASRConfig {
	return &ASRConfig{
		APIKey:  os.Getenv("GROQ_API_KEY"),
		Model:   getEnv("GROQ_WHISPER_MODEL", "whisper-large-v3-turbo"),
		BaseURL: getEnv("GROQ_API_URL", "https://api.groq.com/openai/v1"),
		Timeout: 300 * time.Second,
	}
}

// DiarizationConfig holds local speaker-diarization settings. The model runs
// out of process; the runner command is expected to print JSON segments.
type DiarizationConfig struct {
	// HFToken grants access to the gated diarization model (HUGGINGFACE_TOKEN).
	HFToken string

	// Command is the diarization runner executable.
	Command string

	// Timeout bounds a single inference run.
	Timeout time.Duration
}

// LoadDiarizationConfig reads diarization settings from the environment.
func LoadDiarizationConfig() *DiarizationConfig {
	return &DiarizationConfig{
		HFToken: os.Getenv("HUGGINGFACE_TOKEN"),
		Command: getEnv("DIARIZER_CMD", "voxpipe-diarize"),
		Timeout: 20 * time.Minute,
	}
}
