package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/ent/job"
	"github.com/voxpipe/voxpipe/ent/stageresult"
	"github.com/voxpipe/voxpipe/pkg/config"
	"github.com/voxpipe/voxpipe/pkg/diarize"
	"github.com/voxpipe/voxpipe/pkg/events"
	"github.com/voxpipe/voxpipe/pkg/llm"
	"github.com/voxpipe/voxpipe/pkg/notify"
	"github.com/voxpipe/voxpipe/pkg/output"
	"github.com/voxpipe/voxpipe/pkg/profile"
	"github.com/voxpipe/voxpipe/pkg/services"
	"github.com/voxpipe/voxpipe/pkg/transcribe"
)

// Transcriber converts a media file into a transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*transcribe.Transcription, error)
}

// SpeakerDiarizer produces speaker segments for a media file.
type SpeakerDiarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]diarize.SpeakerSegment, error)
}

// CompletionClient performs one LLM chat completion.
type CompletionClient interface {
	Complete(ctx context.Context, provider llm.Provider, params llm.CompletionParams) (string, llm.Usage, error)
}

// JobStore is the subset of the job service the executor needs.
type JobStore interface {
	GetJob(ctx context.Context, jobID string, withStages bool) (*ent.Job, error)
}

// StageStore is the subset of the stage service the executor needs.
type StageStore interface {
	GetStage(ctx context.Context, jobID, stageID string) (*ent.StageResult, error)
	UpsertStage(ctx context.Context, jobID, stageID string, update services.StageUpdate) (*ent.StageResult, error)
}

// PipelineExecutor drives a claimed job through the transcription pipeline:
// ASR, then either the profile's LLM stage chain or the default
// diarize/merge/format path, then output generation, notifications, and
// archival. Every stage follows the same idempotent contract: a COMPLETE
// stage row with a readable artifact short-circuits re-execution.
type PipelineExecutor struct {
	paths     *config.Paths
	jobs      JobStore
	stages    StageStore
	profiles  *profile.Loader
	asr       Transcriber
	diarizer  SpeakerDiarizer
	llm       CompletionClient
	writer    *output.Writer
	notifier  *notify.Notifier
	publisher *events.Publisher
}

// NewPipelineExecutor wires the executor. diarizer may be nil (diarization
// disabled, single-speaker fallback); publisher may be nil (streaming
// disabled).
func NewPipelineExecutor(
	paths *config.Paths,
	jobs JobStore,
	stages StageStore,
	profiles *profile.Loader,
	asr Transcriber,
	diarizer SpeakerDiarizer,
	completions CompletionClient,
	writer *output.Writer,
	notifier *notify.Notifier,
	publisher *events.Publisher,
) *PipelineExecutor {
	return &PipelineExecutor{
		paths:     paths,
		jobs:      jobs,
		stages:    stages,
		profiles:  profiles,
		asr:       asr,
		diarizer:  diarizer,
		llm:       completions,
		writer:    writer,
		notifier:  notifier,
		publisher: publisher,
	}
}

// stageOutput is one pipeline product destined for the output writer.
type stageOutput struct {
	stage   string
	suffix  string
	content string
}

// Execute runs the whole pipeline for one job and returns its terminal
// state. Failure moves the source file to the error directory; success
// archives it after output verification.
func (e *PipelineExecutor) Execute(ctx context.Context, j *ent.Job) *ExecutionResult {
	err := e.run(ctx, j)
	if err == nil {
		return &ExecutionResult{Status: job.StatusComplete}
	}
	if errors.Is(err, ErrJobCancelled) {
		slog.Info("Job cancelled, halting at stage boundary", "job_id", j.ID)
		return &ExecutionResult{Status: job.StatusCancelled, Error: err}
	}

	e.moveSourceToErrorDir(j)
	return &ExecutionResult{Status: job.StatusFailed, Error: err}
}

func (e *PipelineExecutor) run(ctx context.Context, j *ent.Job) error {
	sourcePath, err := e.locateSource(j)
	if err != nil {
		return err
	}

	transcription, err := e.transcriptionStage(ctx, j, sourcePath)
	if err != nil {
		return err
	}
	if err := e.checkCancelled(ctx, j.ID); err != nil {
		return err
	}

	var (
		outputs  []stageOutput
		speakers []string
		noteType string
		prof     *profile.Profile
	)

	p, found := e.profiles.Get(j.ProfileID)
	if found && !p.Builtin && len(p.Stages) > 0 {
		prof = p
		outputs, err = e.runProfilePipeline(ctx, j, p, transcription)
	} else {
		noteType = j.ProfileID
		if !found {
			noteType = "meeting"
		}
		prof = p
		outputs, speakers, err = e.runDefaultPipeline(ctx, j, noteType, sourcePath, transcription)
	}
	if err != nil {
		return err
	}
	if err := e.checkCancelled(ctx, j.ID); err != nil {
		return err
	}

	files, err := e.outputStage(ctx, j, prof, noteType, sourcePath, transcription, outputs, speakers)
	if err != nil {
		return err
	}

	e.sendNotifications(ctx, j, prof, sourcePath, files)
	e.archiveSource(sourcePath, files)
	return nil
}

// locateSource finds the media file: the quarantine copy from a prior
// attempt wins, otherwise the original path is moved into quarantine so a
// crash mid-pipeline preserves it.
func (e *PipelineExecutor) locateSource(j *ent.Job) (string, error) {
	quarantined := filepath.Join(e.paths.QuarantineDir(), filepath.Base(j.SourcePath))
	if _, err := os.Stat(quarantined); err == nil {
		return quarantined, nil
	}
	if _, err := os.Stat(j.SourcePath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileMissing, j.SourcePath)
	}
	if err := os.Rename(j.SourcePath, quarantined); err != nil {
		slog.Warn("Failed to quarantine source, processing in place",
			"job_id", j.ID, "path", j.SourcePath, "error", err)
		return j.SourcePath, nil
	}
	return quarantined, nil
}

// transcriptionStage runs ASR with full resume: a COMPLETE stage row whose
// artifact is still readable is loaded instead of re-transcribing.
func (e *PipelineExecutor) transcriptionStage(ctx context.Context, j *ent.Job, sourcePath string) (*transcribe.Transcription, error) {
	if cached := e.cachedArtifact(ctx, j.ID, StageTranscription); cached != nil {
		var t transcribe.Transcription
		if err := json.Unmarshal(cached, &t); err == nil {
			slog.Info("Resuming from cached transcription", "job_id", j.ID)
			return &t, nil
		}
		slog.Warn("Cached transcription unreadable, re-running", "job_id", j.ID)
	}

	if err := e.recordStage(ctx, j, StageTranscription, services.StageUpdate{
		Status: stageresult.StatusRunning,
	}); err != nil {
		return nil, err
	}

	t, err := e.asr.Transcribe(ctx, sourcePath)
	if err != nil {
		e.failStage(ctx, j, StageTranscription, err)
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	artifactPath, err := e.writeJobData(j.ID, "transcription.json", mustJSON(t))
	if err != nil {
		e.failStage(ctx, j, StageTranscription, err)
		return nil, err
	}
	if err := e.recordStage(ctx, j, StageTranscription, services.StageUpdate{
		Status:     stageresult.StatusComplete,
		OutputPath: artifactPath,
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// runProfilePipeline executes the profile's LLM stages in order. The running
// input for stage N is the output of stage N-1; stage 0 starts from the raw
// timestamped transcript. A failed stage fails the job; the next run resumes
// from that same stage.
func (e *PipelineExecutor) runProfilePipeline(ctx context.Context, j *ent.Job, p *profile.Profile, t *transcribe.Transcription) ([]stageOutput, error) {
	current := buildRawTranscript(t.Segments)
	previous := make(map[string]string)
	var outputs []stageOutput

	for i := range p.Stages {
		stage := &p.Stages[i]
		if err := e.checkCancelled(ctx, j.ID); err != nil {
			return nil, err
		}

		if cached := e.cachedArtifact(ctx, j.ID, stage.Name); cached != nil {
			slog.Info("Resuming: stage already complete", "job_id", j.ID, "stage", stage.Name)
			current = string(cached)
			previous[stage.Name] = current
			if stage.SaveIntermediate {
				outputs = append(outputs, stageOutput{stage.Name, stage.FilenameSuffix, current})
			}
			continue
		}

		out, err := e.runLLMStage(ctx, j, stage, current, previous)
		if err != nil {
			return nil, err
		}

		current = out
		previous[stage.Name] = out
		if stage.SaveIntermediate {
			outputs = append(outputs, stageOutput{stage.Name, stage.FilenameSuffix, out})
		}
	}
	return outputs, nil
}

// runLLMStage executes one LLM stage: provider resolution, prompt assembly,
// completion, cost accounting, artifact persistence.
func (e *PipelineExecutor) runLLMStage(ctx context.Context, j *ent.Job, stage *profile.Stage, current string, previous map[string]string) (string, error) {
	if err := e.recordStage(ctx, j, stage.Name, services.StageUpdate{
		Status:    stageresult.StatusRunning,
		ModelUsed: stage.Model,
	}); err != nil {
		return "", err
	}

	provider, err := llm.ResolveProvider(stage.Model, stage.Provider)
	if err != nil {
		e.failStage(ctx, j, stage.Name, err)
		return "", fmt.Errorf("stage %s: %w", stage.Name, err)
	}

	prompt := substitutePrompt(stage.PromptTemplate, current, previous)

	out, usage, err := e.llm.Complete(ctx, provider, llm.CompletionParams{
		Model:         stage.Model,
		SystemMessage: stage.SystemMessage,
		Prompt:        prompt,
		Temperature:   stage.Temperature,
		MaxTokens:     stage.MaxTokens,
		Timeout:       stage.Timeout(),
	})
	if err != nil {
		e.failStage(ctx, j, stage.Name, err)
		return "", fmt.Errorf("stage %s failed: %w", stage.Name, err)
	}

	cost := llm.EstimateCost(stage.Model, usage.InputTokens, usage.OutputTokens)

	artifactPath, err := e.writeJobData(j.ID, "stage_"+stage.Name+".txt", []byte(out))
	if err != nil {
		e.failStage(ctx, j, stage.Name, err)
		return "", err
	}

	if err := e.recordStage(ctx, j, stage.Name, services.StageUpdate{
		Status:       stageresult.StatusComplete,
		ModelUsed:    stage.Model,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostEstimate: cost,
		OutputPath:   artifactPath,
	}); err != nil {
		return "", err
	}

	slog.Info("Stage complete",
		"job_id", j.ID, "stage", stage.Name, "chars", len(out), "cost", cost)
	return out, nil
}

// runDefaultPipeline is the note-type path: diarize (non-fatal), merge into
// a speaker-labeled transcript, then one formatting call with the note
// type's built-in prompt. A formatting failure falls back to the unformatted
// speaker transcript rather than failing the job.
func (e *PipelineExecutor) runDefaultPipeline(ctx context.Context, j *ent.Job, noteType, sourcePath string, t *transcribe.Transcription) ([]stageOutput, []string, error) {
	p, ok := e.profiles.Get(noteType)
	if !ok {
		p, _ = e.profiles.Get("meeting")
		noteType = "meeting"
	}

	speakerSegs := e.diarizationStage(ctx, j, p, sourcePath, t.Duration)
	merged := diarize.Merge(t.Segments, speakerSegs)
	speakerTranscript := buildSpeakerTranscript(merged)

	speakerSet := make(map[string]bool)
	var speakers []string
	for _, seg := range merged {
		if !speakerSet[seg.Speaker] {
			speakerSet[seg.Speaker] = true
			speakers = append(speakers, seg.Speaker)
		}
	}

	if err := e.checkCancelled(ctx, j.ID); err != nil {
		return nil, nil, err
	}

	formatted := e.formattingStage(ctx, j, p, speakerTranscript)
	return []stageOutput{{StageFormatting, "", formatted}}, speakers, nil
}

// diarizationStage runs speaker diarization with resume. Any failure is
// non-fatal: the whole recording is attributed to a single speaker.
func (e *PipelineExecutor) diarizationStage(ctx context.Context, j *ent.Job, p *profile.Profile, sourcePath string, duration float64) []diarize.SpeakerSegment {
	if p != nil && p.SkipDiarization {
		return diarize.SingleSpeaker(duration)
	}
	if e.diarizer == nil {
		return diarize.SingleSpeaker(duration)
	}

	if cached := e.cachedArtifact(ctx, j.ID, StageDiarization); cached != nil {
		var segs []diarize.SpeakerSegment
		if err := json.Unmarshal(cached, &segs); err == nil {
			slog.Info("Resuming from cached diarization", "job_id", j.ID)
			return segs
		}
	}

	if err := e.recordStage(ctx, j, StageDiarization, services.StageUpdate{
		Status: stageresult.StatusRunning,
	}); err != nil {
		return diarize.SingleSpeaker(duration)
	}

	segs, err := e.diarizer.Diarize(ctx, sourcePath)
	if err != nil {
		slog.Warn("Diarization failed, assuming single speaker", "job_id", j.ID, "error", err)
		e.failStage(ctx, j, StageDiarization, err)
		return diarize.SingleSpeaker(duration)
	}

	update := services.StageUpdate{Status: stageresult.StatusComplete}
	if artifactPath, err := e.writeJobData(j.ID, "diarization.json", mustJSON(segs)); err == nil {
		update.OutputPath = artifactPath
	}
	if err := e.recordStage(ctx, j, StageDiarization, update); err != nil {
		slog.Warn("Failed to record diarization stage", "job_id", j.ID, "error", err)
	}
	return segs
}

// formattingStage runs the single built-in formatting call. Resume applies;
// failure degrades to the raw speaker transcript.
func (e *PipelineExecutor) formattingStage(ctx context.Context, j *ent.Job, p *profile.Profile, speakerTranscript string) string {
	if cached := e.cachedArtifact(ctx, j.ID, StageFormatting); cached != nil {
		slog.Info("Resuming from cached formatting", "job_id", j.ID)
		return string(cached)
	}
	if p == nil || len(p.Stages) == 0 {
		return speakerTranscript
	}

	stage := &p.Stages[0]
	if err := e.recordStage(ctx, j, StageFormatting, services.StageUpdate{
		Status:    stageresult.StatusRunning,
		ModelUsed: stage.Model,
	}); err != nil {
		return speakerTranscript
	}

	provider, err := llm.ResolveProvider(stage.Model, stage.Provider)
	if err != nil {
		slog.Error("Formatting skipped, no provider", "job_id", j.ID, "error", err)
		e.failStage(ctx, j, StageFormatting, err)
		return speakerTranscript
	}

	prompt := substitutePrompt(stage.PromptTemplate, speakerTranscript, nil)
	out, usage, err := e.llm.Complete(ctx, provider, llm.CompletionParams{
		Model:         stage.Model,
		SystemMessage: stage.SystemMessage,
		Prompt:        prompt,
		Temperature:   stage.Temperature,
		MaxTokens:     stage.MaxTokens,
		Timeout:       stage.Timeout(),
	})
	if err != nil {
		slog.Error("Formatting failed, keeping raw transcript", "job_id", j.ID, "error", err)
		e.failStage(ctx, j, StageFormatting, err)
		return speakerTranscript
	}

	cost := llm.EstimateCost(stage.Model, usage.InputTokens, usage.OutputTokens)
	update := services.StageUpdate{
		Status:       stageresult.StatusComplete,
		ModelUsed:    stage.Model,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostEstimate: cost,
	}
	if artifactPath, err := e.writeJobData(j.ID, "stage_formatting.txt", []byte(out)); err == nil {
		update.OutputPath = artifactPath
	}
	if err := e.recordStage(ctx, j, StageFormatting, update); err != nil {
		slog.Warn("Failed to record formatting stage", "job_id", j.ID, "error", err)
	}
	return out
}

// outputStage writes every saved stage product through the output writer and
// records the output stage row.
func (e *PipelineExecutor) outputStage(ctx context.Context, j *ent.Job, p *profile.Profile, noteType, sourcePath string, t *transcribe.Transcription, outputs []stageOutput, speakers []string) ([]output.File, error) {
	if err := e.recordStage(ctx, j, StageOutput, services.StageUpdate{
		Status: stageresult.StatusRunning,
	}); err != nil {
		return nil, err
	}

	docsDir := ""
	if p != nil && p.Routing != nil && p.Routing.Subfolder != "" {
		dir, err := e.writer.DocsDir(p.Routing.Subfolder)
		if err != nil {
			slog.Warn("Failed to create docs subdirectory, using default",
				"subfolder", p.Routing.Subfolder, "error", err)
		} else {
			docsDir = dir
		}
	}

	base := sourceStem(sourcePath)
	var files []output.File
	for _, so := range outputs {
		meta := output.Metadata{
			Title:    output.DeriveTitle(base, so.suffix),
			Profile:  j.ProfileID,
			Stage:    so.stage,
			Duration: formatTimestamp(t.Duration),
			Speakers: speakers,
		}
		if noteType != "" {
			meta.Type = noteType
			meta.Title = output.NoteTitle(sourcePath, noteType)
		}
		written, err := e.writer.WriteStage(so.content, base, so.suffix, meta, true, docsDir)
		if err != nil {
			e.failStage(ctx, j, StageOutput, err)
			return nil, fmt.Errorf("output stage failed: %w", err)
		}
		files = append(files, written...)
	}

	if err := e.recordStage(ctx, j, StageOutput, services.StageUpdate{
		Status: stageresult.StatusComplete,
	}); err != nil {
		return nil, err
	}
	return files, nil
}

// sendNotifications fans out the completion best-effort.
func (e *PipelineExecutor) sendNotifications(ctx context.Context, j *ent.Job, p *profile.Profile, sourcePath string, files []output.File) {
	if e.notifier == nil || p == nil || p.Notifications == nil {
		return
	}

	final, err := e.jobs.GetJob(ctx, j.ID, false)
	totalCost := 0.0
	if err == nil {
		totalCost = final.CostEstimate
	}

	docs := make([]string, 0, len(files))
	for _, f := range files {
		if f.Kind != "markdown" {
			docs = append(docs, f.Path)
		}
	}
	if len(docs) == 0 {
		for _, f := range files {
			docs = append(docs, f.Path)
		}
	}

	e.notifier.Dispatch(ctx, notify.Completion{
		JobName:   output.DeriveTitle(sourceStem(sourcePath), ""),
		ProfileID: j.ProfileID,
		Documents: docs,
		TotalCost: totalCost,
	}, p.Notifications)
}

// archiveSource moves the quarantined source to the archive, but only after
// verifying at least one output file actually landed on disk.
func (e *PipelineExecutor) archiveSource(sourcePath string, files []output.File) {
	verified := false
	for _, f := range files {
		if _, err := os.Stat(f.Path); err == nil {
			verified = true
			break
		}
	}
	if !verified {
		slog.Warn("No output files verified on disk, keeping source in place", "source", sourcePath)
		return
	}

	dest := filepath.Join(e.paths.ArchiveDir(), filepath.Base(sourcePath))
	if err := os.Rename(sourcePath, dest); err != nil {
		slog.Error("Failed to archive source", "source", sourcePath, "error", err)
		return
	}
	slog.Info("Archived source", "file", filepath.Base(sourcePath))
}

// moveSourceToErrorDir preserves a failed job's input for inspection.
func (e *PipelineExecutor) moveSourceToErrorDir(j *ent.Job) {
	for _, candidate := range []string{
		filepath.Join(e.paths.QuarantineDir(), filepath.Base(j.SourcePath)),
		j.SourcePath,
	} {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		dest := filepath.Join(e.paths.ErrorDir(), filepath.Base(candidate))
		if err := os.Rename(candidate, dest); err != nil {
			slog.Error("Failed to move source to error dir", "source", candidate, "error", err)
		}
		return
	}
}

// checkCancelled polls the job's status; DELETE /jobs marks the row
// CANCELLED and the runner stops at the next boundary.
func (e *PipelineExecutor) checkCancelled(ctx context.Context, jobID string) error {
	current, err := e.jobs.GetJob(ctx, jobID, false)
	if err != nil {
		slog.Warn("Failed to poll job status", "job_id", jobID, "error", err)
		return nil
	}
	if current.Status == job.StatusCancelled {
		return ErrJobCancelled
	}
	return nil
}

// cachedArtifact returns the stage's artifact bytes when the stage row is
// COMPLETE and the artifact is readable; nil otherwise.
func (e *PipelineExecutor) cachedArtifact(ctx context.Context, jobID, stageID string) []byte {
	cached, err := e.stages.GetStage(ctx, jobID, stageID)
	if err != nil || cached.Status != stageresult.StatusComplete || cached.OutputPath == nil {
		return nil
	}
	data, err := os.ReadFile(*cached.OutputPath)
	if err != nil {
		slog.Warn("Stage marked complete but artifact unreadable, re-running",
			"job_id", jobID, "stage", stageID, "path", *cached.OutputPath)
		return nil
	}
	return data
}

// recordStage upserts the stage row and publishes the transition. The event
// carries the job's accumulated cost, not the single stage's, so subscribers
// see a monotone value.
func (e *PipelineExecutor) recordStage(ctx context.Context, j *ent.Job, stageID string, update services.StageUpdate) error {
	if _, err := e.stages.UpsertStage(ctx, j.ID, stageID, update); err != nil {
		return fmt.Errorf("failed to record stage %s: %w", stageID, err)
	}
	if e.publisher != nil {
		e.publisher.Publish(ctx, events.JobUpdate{
			JobID:        j.ID,
			Status:       job.StatusProcessing.String(),
			CurrentStage: stageID,
			CostEstimate: e.jobCost(ctx, j.ID),
			StageDetail:  string(update.Status),
		})
	}
	return nil
}

// jobCost reads the job's accumulated cost estimate for event payloads; the
// upsert recomputes it before this runs.
func (e *PipelineExecutor) jobCost(ctx context.Context, jobID string) float64 {
	current, err := e.jobs.GetJob(ctx, jobID, false)
	if err != nil {
		return 0
	}
	return current.CostEstimate
}

// failStage records a stage failure; the caller decides whether the job
// continues.
func (e *PipelineExecutor) failStage(ctx context.Context, j *ent.Job, stageID string, cause error) {
	if _, err := e.stages.UpsertStage(ctx, j.ID, stageID, services.StageUpdate{
		Status: stageresult.StatusFailed,
		Error:  cause.Error(),
	}); err != nil {
		slog.Error("Failed to record stage failure", "job_id", j.ID, "stage", stageID, "error", err)
	}
	if e.publisher != nil {
		e.publisher.Publish(ctx, events.JobUpdate{
			JobID:        j.ID,
			Status:       job.StatusProcessing.String(),
			CurrentStage: stageID,
			Error:        cause.Error(),
			CostEstimate: e.jobCost(ctx, j.ID),
			StageDetail:  string(stageresult.StatusFailed),
		})
	}
}

// writeJobData persists a resume artifact under the per-job data directory.
func (e *PipelineExecutor) writeJobData(jobID, name string, data []byte) (string, error) {
	dir := e.paths.JobDataDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job data dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

func sourceStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// All pipeline artifact types are plain structs; this cannot fail.
		panic(err)
	}
	return data
}
