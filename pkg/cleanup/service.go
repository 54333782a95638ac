// Package cleanup provides data retention: old terminal jobs, their resume
// artifacts, and processed source files are removed on a schedule.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/voxpipe/voxpipe/pkg/config"
	"github.com/voxpipe/voxpipe/pkg/services"
)

// Service periodically enforces retention policies:
//   - Deletes terminal jobs (and their stage rows) past the job retention
//     window, together with their per-job resume artifact directories
//   - Prunes archived and errored source files past the source retention
//     window
//
// All operations are idempotent.
type Service struct {
	config *config.RetentionConfig
	paths  *config.Paths
	jobs   *services.JobService

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, paths *config.Paths, jobs *services.JobService) *Service {
	return &Service{
		config: cfg,
		paths:  paths,
		jobs:   jobs,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"job_retention_days", s.config.JobRetentionDays,
		"source_retention_days", s.config.SourceRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeOldJobs(ctx)
	s.pruneZone(s.paths.ArchiveDir())
	s.pruneZone(s.paths.ErrorDir())
}

// purgeOldJobs deletes terminal jobs past retention and removes their resume
// artifact directories.
func (s *Service) purgeOldJobs(_ context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.JobRetentionDays)

	ids, err := s.jobs.PurgeTerminalJobsBefore(context.Background(), cutoff)
	if err != nil {
		slog.Error("Retention: job purge failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	for _, id := range ids {
		dir := s.paths.JobDataDir(id)
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("Retention: failed to remove job data dir", "job_id", id, "error", err)
		}
	}
	slog.Info("Retention: purged old terminal jobs", "count", len(ids))
}

// pruneZone removes files in a source zone older than the source retention
// window.
func (s *Service) pruneZone(dir string) {
	cutoff := time.Now().AddDate(0, 0, -s.config.SourceRetentionDays)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Retention: failed to read zone", "dir", dir, "error", err)
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Retention: failed to remove old source", "file", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Retention: pruned old source files", "dir", dir, "count", removed)
	}
}
