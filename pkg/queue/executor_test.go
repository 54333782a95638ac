package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/ent/job"
	"github.com/voxpipe/voxpipe/ent/stageresult"
	"github.com/voxpipe/voxpipe/pkg/config"
	"github.com/voxpipe/voxpipe/pkg/diarize"
	"github.com/voxpipe/voxpipe/pkg/events"
	"github.com/voxpipe/voxpipe/pkg/llm"
	"github.com/voxpipe/voxpipe/pkg/output"
	"github.com/voxpipe/voxpipe/pkg/profile"
	"github.com/voxpipe/voxpipe/pkg/services"
	"github.com/voxpipe/voxpipe/pkg/transcribe"
)

// --- fakes ---

type fakeJobStore struct {
	mu     sync.Mutex
	status job.Status
	cost   float64
}

func (f *fakeJobStore) GetJob(_ context.Context, jobID string, _ bool) (*ent.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &ent.Job{ID: jobID, Status: f.status, CostEstimate: f.cost}, nil
}

func (f *fakeJobStore) setStatus(s job.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

type fakeStageStore struct {
	mu   sync.Mutex
	rows map[string]*ent.StageResult
}

func newFakeStageStore() *fakeStageStore {
	return &fakeStageStore{rows: make(map[string]*ent.StageResult)}
}

func (f *fakeStageStore) GetStage(_ context.Context, jobID, stageID string) (*ent.StageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[stageID]; ok {
		return r, nil
	}
	return nil, services.ErrNotFound
}

func (f *fakeStageStore) UpsertStage(_ context.Context, jobID, stageID string, update services.StageUpdate) (*ent.StageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &ent.StageResult{
		JobID:        jobID,
		StageID:      stageID,
		Status:       update.Status,
		InputTokens:  update.InputTokens,
		OutputTokens: update.OutputTokens,
		CostEstimate: update.CostEstimate,
	}
	if update.OutputPath != "" {
		p := update.OutputPath
		r.OutputPath = &p
	}
	if update.Error != "" {
		e := update.Error
		r.Error = &e
	}
	f.rows[stageID] = r
	return r, nil
}

func (f *fakeStageStore) get(stageID string) *ent.StageResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[stageID]
}

func (f *fakeStageStore) seedComplete(stageID, artifactPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[stageID] = &ent.StageResult{
		StageID:    stageID,
		Status:     stageresult.StatusComplete,
		OutputPath: &artifactPath,
	}
}

type fakeTranscriber struct {
	calls int
	t     *transcribe.Transcription
	err   error
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (*transcribe.Transcription, error) {
	f.calls++
	return f.t, f.err
}

type fakeDiarizer struct {
	segs []diarize.SpeakerSegment
	err  error
}

func (f *fakeDiarizer) Diarize(context.Context, string) ([]diarize.SpeakerSegment, error) {
	return f.segs, f.err
}

type fakeLLM struct {
	mu      sync.Mutex
	calls   []llm.CompletionParams
	reply   string
	err     error
	onCall  func(n int)
}

func (f *fakeLLM) Complete(_ context.Context, _ llm.Provider, params llm.CompletionParams) (string, llm.Usage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	n := len(f.calls)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(n)
	}
	if f.err != nil {
		return "", llm.Usage{}, f.err
	}
	return f.reply, llm.Usage{InputTokens: 100, OutputTokens: 50}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// --- harness ---

type harness struct {
	paths    *config.Paths
	jobs     *fakeJobStore
	stages   *fakeStageStore
	asr      *fakeTranscriber
	diarizer *fakeDiarizer
	llm      *fakeLLM
	exec     *PipelineExecutor
}

func testTranscription() *transcribe.Transcription {
	return &transcribe.Transcription{
		Text: "hello world goodbye",
		Segments: []transcribe.Segment{
			{ID: 0, Start: 0, End: 2, Text: "hello world"},
			{ID: 1, Start: 2, End: 4, Text: "goodbye"},
		},
		Language: "en",
		Duration: 4,
	}
}

func newHarness(t *testing.T, profileYAML, promptFile, promptBody string) *harness {
	t.Helper()
	t.Setenv("DEEPSEEK_API_KEY", "test-key")

	root := t.TempDir()
	paths := &config.Paths{
		ConfigDir:     filepath.Join(root, "config"),
		ProcessingDir: filepath.Join(root, "processing"),
		OutputDir:     filepath.Join(root, "output"),
		InboundDir:    filepath.Join(root, "inbound"),
	}
	require.NoError(t, paths.EnsureDirs())

	if profileYAML != "" {
		writeTestFile(t, filepath.Join(paths.ConfigDir, "profiles", "lecture_notes.yaml"), profileYAML)
	}
	if promptFile != "" {
		writeTestFile(t, filepath.Join(paths.ConfigDir, "prompts", promptFile), promptBody)
	}

	profiles, err := profile.NewLoader(paths.ConfigDir)
	require.NoError(t, err)

	writer, err := output.NewWriter(paths.OutputDir)
	require.NoError(t, err)

	h := &harness{
		paths:    paths,
		jobs:     &fakeJobStore{status: job.StatusProcessing},
		stages:   newFakeStageStore(),
		asr:      &fakeTranscriber{t: testTranscription()},
		diarizer: &fakeDiarizer{segs: []diarize.SpeakerSegment{{Speaker: "SPEAKER_00", Start: 0, End: 4}}},
		llm:      &fakeLLM{reply: "formatted output"},
	}
	h.exec = NewPipelineExecutor(paths, h.jobs, h.stages, profiles, h.asr, h.diarizer, h.llm, writer, nil, nil)
	return h
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (h *harness) newJob(t *testing.T, profileID string) *ent.Job {
	t.Helper()
	src := filepath.Join(h.paths.InboundDir, "20240115_093000_team_meeting.mp3")
	writeTestFile(t, src, "fake audio bytes")
	return &ent.Job{
		ID:         "job-1",
		ProfileID:  profileID,
		SourcePath: src,
		Status:     job.StatusProcessing,
		Priority:   5,
	}
}

const testProfileYAML = `
name: Lecture Notes
stages:
  - name: clean
    prompt_file: lecture_notes/clean.md
    save_intermediate: false
  - name: summary
    prompt_file: lecture_notes/summary.md
    filename_suffix: _summary
`

// --- tests ---

func TestExecute_ProfilePipeline(t *testing.T) {
	h := newHarness(t, testProfileYAML, "lecture_notes/clean.md", "Clean: {transcript}")
	writeTestFile(t, filepath.Join(h.paths.ConfigDir, "prompts", "lecture_notes", "summary.md"),
		"Summarize: {cleaned_transcript}")
	j := h.newJob(t, "lecture_notes")

	result := h.exec.Execute(context.Background(), j)

	require.NotNil(t, result)
	assert.Equal(t, job.StatusComplete, result.Status)
	assert.Equal(t, 2, h.llm.callCount())

	// stage 0 gets the raw timestamped transcript
	assert.Contains(t, h.llm.calls[0].Prompt, "[00:00:00] hello world")
	// stage 1 references {cleaned_transcript}, resolved to the clean output
	assert.Equal(t, "Summarize: formatted output", h.llm.calls[1].Prompt)

	for _, stageID := range []string{StageTranscription, "clean", "summary", StageOutput} {
		row := h.stages.get(stageID)
		require.NotNil(t, row, stageID)
		assert.Equal(t, stageresult.StatusComplete, row.Status, stageID)
	}

	// resume artifacts on disk
	jobData := h.paths.JobDataDir(j.ID)
	assert.FileExists(t, filepath.Join(jobData, "transcription.json"))
	assert.FileExists(t, filepath.Join(jobData, "stage_clean.txt"))
	assert.FileExists(t, filepath.Join(jobData, "stage_summary.txt"))

	// only save_intermediate stages produce output files
	entries, err := os.ReadDir(filepath.Join(h.paths.OutputDir, "transcripts"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "_summary")

	// source archived after output verification
	assert.FileExists(t, filepath.Join(h.paths.ArchiveDir(), "20240115_093000_team_meeting.mp3"))
	assert.NoFileExists(t, filepath.Join(h.paths.QuarantineDir(), "20240115_093000_team_meeting.mp3"))
}

func TestExecute_ResumeSkipsCompletedStages(t *testing.T) {
	h := newHarness(t, testProfileYAML, "lecture_notes/clean.md", "Clean: {transcript}")
	writeTestFile(t, filepath.Join(h.paths.ConfigDir, "prompts", "lecture_notes", "summary.md"),
		"Summarize: {transcript}")
	j := h.newJob(t, "lecture_notes")

	// Seed completed transcription and clean stages with readable artifacts.
	jobData := h.paths.JobDataDir(j.ID)
	transcriptArtifact := filepath.Join(jobData, "transcription.json")
	writeTestFile(t, transcriptArtifact, `{"text":"cached","segments":[{"id":0,"start":0,"end":1,"text":"cached"}],"language":"en","duration":1}`)
	h.stages.seedComplete(StageTranscription, transcriptArtifact)

	cleanArtifact := filepath.Join(jobData, "stage_clean.txt")
	writeTestFile(t, cleanArtifact, "previously cleaned")
	h.stages.seedComplete("clean", cleanArtifact)

	result := h.exec.Execute(context.Background(), j)

	require.NotNil(t, result)
	assert.Equal(t, job.StatusComplete, result.Status)
	assert.Equal(t, 0, h.asr.calls, "cached transcription must not re-run ASR")
	require.Equal(t, 1, h.llm.callCount(), "only the summary stage should run")
	assert.Equal(t, "Summarize: previously cleaned", h.llm.calls[0].Prompt)
}

func TestExecute_StageFailureFailsJobAndMovesSource(t *testing.T) {
	h := newHarness(t, testProfileYAML, "lecture_notes/clean.md", "Clean: {transcript}")
	writeTestFile(t, filepath.Join(h.paths.ConfigDir, "prompts", "lecture_notes", "summary.md"),
		"Summarize: {transcript}")
	h.llm.err = errors.New("model overloaded")
	j := h.newJob(t, "lecture_notes")

	result := h.exec.Execute(context.Background(), j)

	require.NotNil(t, result)
	assert.Equal(t, job.StatusFailed, result.Status)
	assert.ErrorContains(t, result.Error, "model overloaded")

	row := h.stages.get("clean")
	require.NotNil(t, row)
	assert.Equal(t, stageresult.StatusFailed, row.Status)

	// source preserved in the error directory for inspection
	assert.FileExists(t, filepath.Join(h.paths.ErrorDir(), "20240115_093000_team_meeting.mp3"))
}

func TestExecute_MissingSourceFails(t *testing.T) {
	h := newHarness(t, "", "", "")
	j := &ent.Job{ID: "job-gone", ProfileID: "meeting", SourcePath: "/nonexistent/file.mp3"}

	result := h.exec.Execute(context.Background(), j)

	require.NotNil(t, result)
	assert.Equal(t, job.StatusFailed, result.Status)
	assert.ErrorIs(t, result.Error, ErrFileMissing)
}

func TestExecute_DefaultPipeline(t *testing.T) {
	h := newHarness(t, "", "", "")
	h.diarizer.segs = []diarize.SpeakerSegment{
		{Speaker: "SPEAKER_00", Start: 0, End: 2},
		{Speaker: "SPEAKER_01", Start: 2, End: 4},
	}
	j := h.newJob(t, "meeting")

	result := h.exec.Execute(context.Background(), j)

	require.NotNil(t, result)
	assert.Equal(t, job.StatusComplete, result.Status)
	require.Equal(t, 1, h.llm.callCount())
	// built-in meeting prompt receives the speaker-labeled transcript
	assert.Contains(t, h.llm.calls[0].Prompt, "**SPEAKER_00:**")
	assert.Contains(t, h.llm.calls[0].Prompt, "**SPEAKER_01:**")

	for _, stageID := range []string{StageTranscription, StageDiarization, StageFormatting, StageOutput} {
		row := h.stages.get(stageID)
		require.NotNil(t, row, stageID)
		assert.Equal(t, stageresult.StatusComplete, row.Status, stageID)
	}
}

func TestExecute_DiarizationFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, "", "", "")
	h.diarizer.err = errors.New("runner not installed")
	j := h.newJob(t, "meeting")

	result := h.exec.Execute(context.Background(), j)

	require.NotNil(t, result)
	assert.Equal(t, job.StatusComplete, result.Status)

	row := h.stages.get(StageDiarization)
	require.NotNil(t, row)
	assert.Equal(t, stageresult.StatusFailed, row.Status)

	// everything lands on the single-speaker fallback
	assert.Contains(t, h.llm.calls[0].Prompt, "**SPEAKER_00:**")
	assert.NotContains(t, h.llm.calls[0].Prompt, "**SPEAKER_01:**")
}

func TestExecute_FormattingFailureKeepsRawTranscript(t *testing.T) {
	h := newHarness(t, "", "", "")
	h.llm.err = errors.New("provider down")
	j := h.newJob(t, "meeting")

	result := h.exec.Execute(context.Background(), j)

	require.NotNil(t, result)
	assert.Equal(t, job.StatusComplete, result.Status, "formatting failure must not fail the job")

	row := h.stages.get(StageFormatting)
	require.NotNil(t, row)
	assert.Equal(t, stageresult.StatusFailed, row.Status)

	// the unformatted speaker transcript still gets written
	entries, err := os.ReadDir(filepath.Join(h.paths.OutputDir, "transcripts"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(h.paths.OutputDir, "transcripts", entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "**SPEAKER_00:**")
}

func TestExecute_StageEventsCarryAccumulatedJobCost(t *testing.T) {
	h := newHarness(t, testProfileYAML, "lecture_notes/clean.md", "Clean: {transcript}")
	writeTestFile(t, filepath.Join(h.paths.ConfigDir, "prompts", "lecture_notes", "summary.md"),
		"Summarize: {transcript}")
	h.jobs.cost = 0.0125

	bus := events.NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	h.exec.publisher = events.NewPublisher(bus, nil)

	j := h.newJob(t, "lecture_notes")
	result := h.exec.Execute(context.Background(), j)
	require.Equal(t, job.StatusComplete, result.Status)

	var updates []events.JobUpdate
drain:
	for {
		select {
		case u := <-ch:
			updates = append(updates, u)
		default:
			break drain
		}
	}
	require.NotEmpty(t, updates)

	// Every transition reports the job's running total, RUNNING events
	// included, so subscribers never see the estimate reset per stage.
	for _, u := range updates {
		assert.InDelta(t, 0.0125, u.CostEstimate, 1e-9,
			"stage %s (%s)", u.CurrentStage, u.StageDetail)
	}
}

func TestExecute_CancellationHaltsAtStageBoundary(t *testing.T) {
	h := newHarness(t, testProfileYAML, "lecture_notes/clean.md", "Clean: {transcript}")
	writeTestFile(t, filepath.Join(h.paths.ConfigDir, "prompts", "lecture_notes", "summary.md"),
		"Summarize: {transcript}")
	j := h.newJob(t, "lecture_notes")

	// Cancel from inside the first LLM call; the runner must stop before the
	// second stage.
	h.llm.onCall = func(n int) {
		if n == 1 {
			h.jobs.setStatus(job.StatusCancelled)
		}
	}

	result := h.exec.Execute(context.Background(), j)

	require.NotNil(t, result)
	assert.Equal(t, job.StatusCancelled, result.Status)
	assert.Equal(t, 1, h.llm.callCount())
	// a cancelled job's source stays in quarantine, not the error dir
	assert.FileExists(t, filepath.Join(h.paths.QuarantineDir(), "20240115_093000_team_meeting.mp3"))
}
