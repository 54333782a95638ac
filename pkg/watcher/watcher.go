// Package watcher submits jobs for media files dropped into watched inbound
// folders. Each first-level subdirectory of the inbound root maps to a
// profile through the registry's folder map; files landing there are waited
// on until their size stops changing, then enqueued.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/pkg/profile"
	"github.com/voxpipe/voxpipe/pkg/services"
)

const (
	// settleDelay is how long a file must go without events before it is
	// considered fully written.
	settleDelay = 3 * time.Second

	// sweepInterval is how often pending files are checked for stability.
	sweepInterval = time.Second
)

// mediaExtensions is the allow-list of file types the watcher submits.
// Matches the upload allow-list at the HTTP boundary.
var mediaExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true,
	".ogg": true, ".aac": true, ".wma": true,
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".flv": true,
}

// FolderResolver maps an inbound folder name to a profile id and exposes the
// profile so its priority propagates to submitted jobs.
type FolderResolver interface {
	ProfileForFolder(folder string) (string, bool)
	Get(id string) (*profile.Profile, bool)
}

// JobSubmitter is the slice of the job service the watcher needs.
type JobSubmitter interface {
	Enqueue(ctx context.Context, input services.EnqueueInput) (*ent.Job, error)
	HasActiveJobForSource(ctx context.Context, sourcePath string) (bool, error)
}

// pendingFile tracks a file waiting to stop growing.
type pendingFile struct {
	lastEvent time.Time
	lastSize  int64
}

// Watcher turns inbound folder drops into queued jobs.
type Watcher struct {
	inboundDir string
	profiles   FolderResolver
	jobs       JobSubmitter
	fsw        *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingFile

	done chan struct{}
}

// New creates the folder watcher rooted at inboundDir.
func New(inboundDir string, profiles FolderResolver, jobs JobSubmitter) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		inboundDir: inboundDir,
		profiles:   profiles,
		jobs:       jobs,
		fsw:        fsw,
		pending:    make(map[string]*pendingFile),
		done:       make(chan struct{}),
	}, nil
}

// Start registers watches on the inbound root and its folders, queues any
// files already present, and begins processing events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.inboundDir, 0o755); err != nil {
		return err
	}
	if err := w.fsw.Add(w.inboundDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(w.inboundDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || w.skipDir(entry.Name()) {
			continue
		}
		dir := filepath.Join(w.inboundDir, entry.Name())
		if err := w.fsw.Add(dir); err != nil {
			slog.Warn("Failed to watch inbound folder", "dir", dir, "error", err)
			continue
		}
		w.scanExisting(dir)
	}

	go w.run(ctx)
	slog.Info("Folder watcher started", "inbound_dir", w.inboundDir)
	return nil
}

// Stop closes the underlying watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	_ = w.fsw.Close()
	<-w.done
}

// skipDir filters folders that are not inbound drop targets. The HTTP upload
// staging directory lives under the inbound root and must not be re-ingested.
func (w *Watcher) skipDir(name string) bool {
	return name == "uploads" || strings.HasPrefix(name, ".")
}

// scanExisting queues files already present in a folder at startup.
func (w *Watcher) scanExisting(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("Failed to scan inbound folder", "dir", dir, "error", err)
		return
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !mediaExtensions[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		w.mu.Lock()
		w.pending[path] = &pendingFile{lastEvent: now, lastSize: size}
		w.mu.Unlock()
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("Folder watcher error", "error", err)
		case <-ticker.C:
			w.flushSettled(ctx)
		}
	}
}

// handleEvent records write activity on media files and adds watches for new
// folders created under the inbound root.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if filepath.Dir(event.Name) == w.inboundDir && !w.skipDir(filepath.Base(event.Name)) {
			if err := w.fsw.Add(event.Name); err != nil {
				slog.Warn("Failed to watch new inbound folder", "dir", event.Name, "error", err)
			}
		}
		return
	}

	if !mediaExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[event.Name]
	if !ok {
		p = &pendingFile{}
		w.pending[event.Name] = p
	}
	p.lastEvent = time.Now()
	p.lastSize = info.Size()
}

// flushSettled submits every pending file that has been quiet for the settle
// delay and whose size has stopped changing.
func (w *Watcher) flushSettled(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for path, p := range w.pending {
		if now.Sub(p.lastEvent) < settleDelay {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != p.lastSize {
			p.lastSize = info.Size()
			p.lastEvent = now
			continue
		}
		ready = append(ready, path)
		delete(w.pending, path)
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.submit(ctx, path)
	}
}

// submit resolves the file's folder to a profile and enqueues a job.
func (w *Watcher) submit(ctx context.Context, path string) {
	folder := filepath.Base(filepath.Dir(path))
	profileID, ok := w.profiles.ProfileForFolder(folder)
	if !ok {
		slog.Warn("No profile mapped for inbound folder, skipping file",
			"folder", folder, "file", filepath.Base(path))
		return
	}

	active, err := w.jobs.HasActiveJobForSource(ctx, path)
	if err != nil {
		slog.Error("Failed to check for existing job", "file", path, "error", err)
		return
	}
	if active {
		slog.Info("File already queued, skipping", "file", filepath.Base(path))
		return
	}

	priority := 0
	if p, ok := w.profiles.Get(profileID); ok {
		priority = p.Priority
	}

	j, err := w.jobs.Enqueue(ctx, services.EnqueueInput{
		ProfileID:  profileID,
		SourcePath: path,
		Priority:   priority,
	})
	if err != nil {
		slog.Error("Failed to enqueue inbound file", "file", path, "error", err)
		return
	}
	slog.Info("Inbound file queued",
		"job_id", j.ID, "profile_id", profileID, "file", filepath.Base(path))
}
