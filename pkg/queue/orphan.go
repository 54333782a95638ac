package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/ent/job"
)

// RequeueStartupOrphans moves every PROCESSING job back to QUEUED. Called
// once during startup, before the worker begins processing: with a single
// worker, any processing row at boot belongs to a previous run that crashed.
// Stage rows are left intact so the job resumes from its last completed
// stage instead of starting over.
func RequeueStartupOrphans(ctx context.Context, client *ent.Client) (int, error) {
	count, err := client.Job.Update().
		Where(job.StatusEQ(job.StatusProcessing)).
		SetStatus(job.StatusQueued).
		ClearWorkerID().
		ClearLastHeartbeatAt().
		Save(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue startup orphans: %w", err)
	}
	if count > 0 {
		slog.Warn("Requeued orphaned jobs from previous run", "count", count)
	}
	return count, nil
}

// runOrphanScan periodically requeues processing jobs with stale heartbeats.
// Idempotent; safe to run alongside the polling loop.
func (w *Worker) runOrphanScan(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.requeueStaleJobs(ctx); err != nil {
				slog.Error("Orphan scan failed", "error", err)
			}
		}
	}
}

// requeueStaleJobs finds processing jobs whose heartbeat is older than the
// orphan threshold and puts them back in the queue. The job this worker is
// actively heartbeating is excluded by the threshold itself.
func (w *Worker) requeueStaleJobs(ctx context.Context) error {
	threshold := time.Now().Add(-w.config.OrphanThreshold)

	orphans, err := w.client.Job.Query().
		Where(
			job.StatusEQ(job.StatusProcessing),
			job.LastHeartbeatAtNotNil(),
			job.LastHeartbeatAtLT(threshold),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query orphaned jobs: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("Detected orphaned jobs", "count", len(orphans))

	for _, orphan := range orphans {
		lastHeartbeat := "unknown"
		if orphan.LastHeartbeatAt != nil {
			lastHeartbeat = orphan.LastHeartbeatAt.Format(time.RFC3339)
		}
		err := orphan.Update().
			SetStatus(job.StatusQueued).
			ClearWorkerID().
			ClearLastHeartbeatAt().
			Exec(ctx)
		if err != nil {
			slog.Error("Failed to requeue orphaned job", "job_id", orphan.ID, "error", err)
			continue
		}
		slog.Warn("Orphaned job requeued", "job_id", orphan.ID, "last_heartbeat", lastHeartbeat)
	}
	return nil
}
