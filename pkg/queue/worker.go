package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"entgo.io/ent/dialect/sql"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/ent/job"
	"github.com/voxpipe/voxpipe/pkg/config"
	"github.com/voxpipe/voxpipe/pkg/events"
	"github.com/voxpipe/voxpipe/pkg/services"
)

// WorkerStatus represents the current state of the worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is the single queue worker: it polls for queued jobs, claims them
// one at a time, and runs each to termination before claiming the next.
type Worker struct {
	id        string
	client    *ent.Client
	config    *config.QueueConfig
	executor  JobExecutor
	jobs      *services.JobService
	publisher *events.Publisher
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// Health tracking
	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker creates the queue worker. publisher may be nil (event streaming
// disabled).
func NewWorker(id string, client *ent.Client, cfg *config.QueueConfig, executor JobExecutor, jobs *services.JobService, publisher *events.Publisher) *Worker {
	return &Worker{
		id:           id,
		client:       client,
		config:       cfg,
		executor:     executor,
		jobs:         jobs,
		publisher:    publisher,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the polling loop and the orphan scan in goroutines.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(2)
	go w.run(ctx)
	go w.runOrphanScan(ctx)
}

// Stop signals the worker to stop and waits for the current job to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health(ctx context.Context) WorkerHealth {
	depth, err := w.client.Job.Query().
		Where(job.StatusEQ(job.StatusQueued)).
		Count(ctx)
	if err != nil {
		slog.Error("Failed to query queue depth", "error", err)
		depth = -1
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		QueueDepth:    depth,
		LastActivity:  w.lastActivity,
	}
}

// CurrentJobID returns the id of the job being processed, or empty.
func (w *Worker) CurrentJobID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentJobID
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing job", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the next job and processes it to termination.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	claimed, err := w.claimNext(ctx)
	if err != nil {
		return err
	}

	log := slog.With("job_id", claimed.ID, "worker_id", w.id)
	log.Info("Job claimed", "profile_id", claimed.ProfileID, "priority", claimed.Priority)

	w.publishStatus(ctx, claimed.ID, job.StatusProcessing, "", 0)

	w.setStatus(WorkerStatusWorking, claimed.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	jobCtx, cancelJob := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancelJob()

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	go w.runHeartbeat(heartbeatCtx, claimed.ID)

	result := w.executor.Execute(jobCtx, claimed)
	cancelHeartbeat()

	// Nil-guard: synthesize a safe result if the executor returned nil.
	if result == nil {
		switch {
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			result = &ExecutionResult{
				Status: job.StatusFailed,
				Error:  fmt.Errorf("job timed out after %v", w.config.JobTimeout),
			}
		default:
			result = &ExecutionResult{
				Status: job.StatusFailed,
				Error:  fmt.Errorf("executor returned nil result"),
			}
		}
	}

	// Terminal status update uses a background context: the job context may
	// already be cancelled.
	errMsg := ""
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	if err := w.jobs.FinalizeJob(context.Background(), claimed.ID, result.Status, errMsg); err != nil {
		if errors.Is(err, services.ErrAlreadyFinalized) {
			// Cancelled through the API while we were processing.
			log.Info("Job finalized elsewhere, keeping existing terminal state")
		} else {
			log.Error("Failed to finalize job", "error", err)
			return err
		}
	}

	// Publish the terminal event with the accumulated cost.
	final, err := w.jobs.GetJob(context.Background(), claimed.ID, false)
	if err == nil {
		w.publishStatus(context.Background(), final.ID, final.Status, errMsg, final.CostEstimate)
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("Job processing complete", "status", result.Status)
	return nil
}

// claimNext atomically claims the next queued job using FOR UPDATE SKIP
// LOCKED, ordered by (priority asc, created_at asc).
func (w *Worker) claimNext(ctx context.Context) (*ent.Job, error) {
	tx, err := w.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	next, err := tx.Job.Query().
		Where(job.StatusEQ(job.StatusQueued)).
		Order(ent.Asc(job.FieldPriority), ent.Asc(job.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("failed to query queued jobs: %w", err)
	}

	next, err = next.Update().
		SetStatus(job.StatusProcessing).
		SetWorkerID(w.id).
		SetLastHeartbeatAt(time.Now()).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return next, nil
}

// runHeartbeat periodically refreshes last_heartbeat_at for orphan detection.
func (w *Worker) runHeartbeat(ctx context.Context, jobID string) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.client.Job.UpdateOneID(jobID).
				SetLastHeartbeatAt(time.Now()).
				Exec(ctx); err != nil {
				slog.Warn("Heartbeat update failed", "job_id", jobID, "error", err)
			}
		}
	}
}

// publishStatus emits a job status event. Best-effort: publishing never
// affects job processing.
func (w *Worker) publishStatus(ctx context.Context, jobID string, status job.Status, errMsg string, cost float64) {
	if w.publisher == nil {
		return
	}
	w.publisher.Publish(ctx, events.JobUpdate{
		JobID:        jobID,
		Status:       status.String(),
		Error:        errMsg,
		CostEstimate: cost,
	})
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	// Range: [base - jitter, base + jitter]
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
