// Package queue provides the job runner: a polling worker that claims queued
// jobs, drives them through the transcription pipeline, and recovers orphans.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/ent/job"
)

// Well-known stage identifiers used by the default pipeline. Profile
// pipelines use the stage names declared in the profile instead.
const (
	StageTranscription = "transcription"
	StageDiarization   = "diarization"
	StageFormatting    = "formatting"
	StageOutput        = "output"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no queued jobs were found.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrJobCancelled indicates the job was cancelled while processing; the
	// runner halts at the next stage boundary.
	ErrJobCancelled = errors.New("job cancelled")

	// ErrFileMissing indicates the source media file is gone from both the
	// quarantine zone and its original path.
	ErrFileMissing = errors.New("source file missing")
)

// JobExecutor processes one claimed job to termination.
//
// The executor owns the entire pipeline internally: stage ordering, resume
// from cached artifacts, output generation, notifications, and archival. It
// writes stage rows progressively during execution. The worker only handles
// claiming, heartbeat, terminal status, and the terminal event.
type JobExecutor interface {
	Execute(ctx context.Context, j *ent.Job) *ExecutionResult
}

// ExecutionResult is just the terminal state; all intermediate state was
// already persisted by the executor during processing.
type ExecutionResult struct {
	Status job.Status // complete, failed, cancelled
	Error  error
}

// WorkerHealth contains health information for the worker.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	QueueDepth    int       `json:"queue_depth"`
	LastActivity  time.Time `json:"last_activity"`
}
