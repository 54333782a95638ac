// Package config loads and holds process-wide configuration: working
// directories, queue tuning, ASR settings, and provider credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is the umbrella configuration object returned by Load and passed to
// the worker, the HTTP server, and the folder watcher.
type Config struct {
	configDir string

	// Paths holds the directory layout for inputs, working zones, and outputs.
	Paths *Paths

	// Queue and worker configuration.
	Queue *QueueConfig

	// ASR holds remote transcription settings.
	ASR *ASRConfig

	// Diarization holds local diarization settings.
	Diarization *DiarizationConfig

	// Retention controls cleanup of old jobs and processed sources.
	Retention *RetentionConfig
}

// Paths is the on-disk layout. The processing dir contains the three working
// zones plus per-job resume artifacts; the output dir contains final files.
type Paths struct {
	ConfigDir     string // profile definitions + prompt bodies
	ProcessingDir string
	OutputDir     string
	InboundDir    string // watched inbound folders (one subdir per mapped folder)
}

// QuarantineDir is where source files are moved on first processing attempt.
func (p *Paths) QuarantineDir() string { return filepath.Join(p.ProcessingDir, "quarantine") }

// ArchiveDir is the destination for sources of completed jobs.
func (p *Paths) ArchiveDir() string { return filepath.Join(p.ProcessingDir, "archive") }

// ErrorDir is the destination for sources of failed jobs.
func (p *Paths) ErrorDir() string { return filepath.Join(p.ProcessingDir, "errors") }

// JobDataDir is the per-job directory holding resume artifacts.
func (p *Paths) JobDataDir(jobID string) string {
	return filepath.Join(p.ProcessingDir, "job_data", jobID)
}

// EnsureDirs creates the working zones if they do not exist.
func (p *Paths) EnsureDirs() error {
	dirs := []string{
		p.ProcessingDir,
		p.QuarantineDir(),
		p.ArchiveDir(),
		p.ErrorDir(),
		filepath.Join(p.ProcessingDir, "job_data"),
		p.OutputDir,
		filepath.Join(p.OutputDir, "transcripts"),
		filepath.Join(p.OutputDir, "docs"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}

// Load builds the configuration from the environment. configDir is where
// profile definitions and prompt files live.
func Load(configDir string) (*Config, error) {
	paths := &Paths{
		ConfigDir:     configDir,
		ProcessingDir: getEnv("PROCESSING_DIR", "./data/processing"),
		OutputDir:     getEnv("OUTPUT_DIR", "./data/output"),
		InboundDir:    getEnv("INBOUND_DIR", "./data/inbound"),
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	return &Config{
		configDir:   configDir,
		Paths:       paths,
		Queue:       DefaultQueueConfig(),
		ASR:         LoadASRConfig(),
		Diarization: LoadDiarizationConfig(),
		Retention:   LoadRetentionConfig(),
	}, nil
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
