package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/ent/job"
)

// JobService manages job lifecycle outside the runner: intake, lookup,
// cancellation, and deletion.
type JobService struct {
	client *ent.Client
}

// NewJobService creates a new JobService.
func NewJobService(client *ent.Client) *JobService {
	if client == nil {
		panic("NewJobService: client must not be nil")
	}
	return &JobService{client: client}
}

// EnqueueInput is the domain-level data needed to create a job.
type EnqueueInput struct {
	JobID      string // optional; generated when empty
	ProfileID  string
	SourcePath string
	Priority   int // 1-10, 1 highest; 0 means default
}

// Enqueue inserts a new QUEUED job. An id collision yields ErrAlreadyExists.
func (s *JobService) Enqueue(ctx context.Context, input EnqueueInput) (*ent.Job, error) {
	if input.ProfileID == "" {
		return nil, NewValidationError("profile_id", "required")
	}
	if input.SourcePath == "" {
		return nil, NewValidationError("source_path", "required")
	}

	jobID := input.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}
	priority := input.Priority
	if priority < 1 || priority > 10 {
		priority = 5
	}

	j, err := s.client.Job.Create().
		SetID(jobID).
		SetProfileID(input.ProfileID).
		SetSourcePath(input.SourcePath).
		SetPriority(priority).
		SetStatus(job.StatusQueued).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, fmt.Errorf("%w: job %s", ErrAlreadyExists, jobID)
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return j, nil
}

// GetJob retrieves a job by id, optionally with its stage results.
func (s *JobService) GetJob(ctx context.Context, jobID string, withStages bool) (*ent.Job, error) {
	query := s.client.Job.Query().Where(job.IDEQ(jobID))
	if withStages {
		query = query.WithStageResults()
	}

	j, err := query.Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// HasActiveJobForSource reports whether a QUEUED or PROCESSING job already
// references the given source path. The folder watcher uses this so a restart
// does not submit the same inbound file twice.
func (s *JobService) HasActiveJobForSource(ctx context.Context, sourcePath string) (bool, error) {
	count, err := s.client.Job.Query().
		Where(
			job.SourcePathEQ(sourcePath),
			job.StatusIn(job.StatusQueued, job.StatusProcessing),
		).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check active jobs for source: %w", err)
	}
	return count > 0, nil
}

// PurgeTerminalJobsBefore deletes terminal jobs whose completed_at is older
// than the cutoff and returns their ids so the caller can remove the
// per-job data directories. Stage rows go with each job via the FK cascade.
func (s *JobService) PurgeTerminalJobsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	old, err := s.client.Job.Query().
		Where(
			job.StatusIn(job.StatusComplete, job.StatusFailed, job.StatusCancelled),
			job.CompletedAtNotNil(),
			job.CompletedAtLT(cutoff),
		).
		Select(job.FieldID).
		Strings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query old terminal jobs: %w", err)
	}
	if len(old) == 0 {
		return nil, nil
	}

	if _, err := s.client.Job.Delete().
		Where(job.IDIn(old...)).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to delete old terminal jobs: %w", err)
	}
	return old, nil
}

// JobFilters narrows and paginates ListJobs.
type JobFilters struct {
	Status    string
	ProfileID string
	Limit     int
	Offset    int
}

// JobListResult is a page of jobs plus the unpaginated total.
type JobListResult struct {
	Jobs       []*ent.Job
	TotalCount int
	Limit      int
	Offset     int
}

// ListJobs lists jobs with filtering and pagination, newest first.
func (s *JobService) ListJobs(ctx context.Context, filters JobFilters) (*JobListResult, error) {
	query := s.client.Job.Query()

	if filters.Status != "" {
		status := job.Status(filters.Status)
		if err := job.StatusValidator(status); err != nil {
			return nil, NewValidationError("status", "unknown status "+filters.Status)
		}
		query = query.Where(job.StatusEQ(status))
	}
	if filters.ProfileID != "" {
		query = query.Where(job.ProfileIDEQ(filters.ProfileID))
	}

	totalCount, err := query.Clone().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	jobs, err := query.
		Limit(limit).
		Offset(offset).
		Order(ent.Desc(job.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return &JobListResult{
		Jobs:       jobs,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// CancelJob marks an active job CANCELLED. The runner observes the status
// at the next stage boundary and halts. Terminal jobs yield
// ErrNotCancellable.
func (s *JobService) CancelJob(ctx context.Context, jobID string) (*ent.Job, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := s.client.Job.Update().
		Where(
			job.IDEQ(jobID),
			job.StatusIn(job.StatusQueued, job.StatusProcessing),
		).
		SetStatus(job.StatusCancelled).
		SetCompletedAt(time.Now()).
		Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel job: %w", err)
	}
	if count == 0 {
		if _, err := s.GetJob(writeCtx, jobID, false); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrNotCancellable, jobID)
	}
	return s.GetJob(writeCtx, jobID, false)
}

// DeleteJob removes a terminal job and its stage rows. An active job is
// cancelled instead of deleted; the returned flag reports which happened.
func (s *JobService) DeleteJob(ctx context.Context, jobID string) (cancelled bool, err error) {
	j, err := s.GetJob(ctx, jobID, false)
	if err != nil {
		return false, err
	}

	if j.Status == job.StatusQueued || j.Status == job.StatusProcessing {
		if _, err := s.CancelJob(ctx, jobID); err != nil {
			return false, err
		}
		return true, nil
	}

	// Stage rows go with the job via the FK cascade.
	if err := s.client.Job.DeleteOneID(jobID).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	return false, nil
}

// FinalizeJob performs the terminal transition. A job already terminal is
// rejected with ErrAlreadyFinalized; terminal states are never overwritten.
func (s *JobService) FinalizeJob(ctx context.Context, jobID string, status job.Status, errMsg string) error {
	if status != job.StatusComplete && status != job.StatusFailed && status != job.StatusCancelled {
		return NewValidationError("status", "not a terminal status: "+string(status))
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := s.client.Job.Update().
		Where(
			job.IDEQ(jobID),
			job.StatusIn(job.StatusQueued, job.StatusProcessing),
		).
		SetStatus(status).
		SetCompletedAt(time.Now())
	if errMsg != "" {
		update = update.SetError(errMsg)
	}

	count, err := update.Save(writeCtx)
	if err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}
	if count == 0 {
		if _, err := s.GetJob(writeCtx, jobID, false); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrAlreadyFinalized, jobID)
	}
	return nil
}
