package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpipe/voxpipe/ent"
	"github.com/voxpipe/voxpipe/pkg/profile"
	"github.com/voxpipe/voxpipe/pkg/services"
)

type fakeResolver struct {
	folders  map[string]string
	profiles map[string]*profile.Profile
}

func (f *fakeResolver) ProfileForFolder(folder string) (string, bool) {
	id, ok := f.folders[folder]
	return id, ok
}

func (f *fakeResolver) Get(id string) (*profile.Profile, bool) {
	p, ok := f.profiles[id]
	return p, ok
}

type fakeSubmitter struct {
	enqueued []services.EnqueueInput
	active   map[string]bool
}

func (f *fakeSubmitter) Enqueue(_ context.Context, input services.EnqueueInput) (*ent.Job, error) {
	f.enqueued = append(f.enqueued, input)
	return &ent.Job{ID: "job-1"}, nil
}

func (f *fakeSubmitter) HasActiveJobForSource(_ context.Context, sourcePath string) (bool, error) {
	return f.active[sourcePath], nil
}

func newTestWatcher(t *testing.T, resolver *fakeResolver, jobs *fakeSubmitter) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(dir, resolver, jobs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })
	return w, dir
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))
}

func TestFlushSettledSubmitsStableFile(t *testing.T) {
	resolver := &fakeResolver{
		folders: map[string]string{"lectures": "business_lecture"},
		profiles: map[string]*profile.Profile{
			"business_lecture": {ID: "business_lecture", Priority: 3},
		},
	}
	jobs := &fakeSubmitter{}
	w, dir := newTestWatcher(t, resolver, jobs)

	path := filepath.Join(dir, "lectures", "talk.mp3")
	writeFile(t, path)
	info, err := os.Stat(path)
	require.NoError(t, err)

	w.pending[path] = &pendingFile{
		lastEvent: time.Now().Add(-2 * settleDelay),
		lastSize:  info.Size(),
	}
	w.flushSettled(context.Background())

	require.Len(t, jobs.enqueued, 1)
	assert.Equal(t, "business_lecture", jobs.enqueued[0].ProfileID)
	assert.Equal(t, path, jobs.enqueued[0].SourcePath)
	assert.Equal(t, 3, jobs.enqueued[0].Priority)
	assert.Empty(t, w.pending)
}

func TestFlushSettledWaitsForGrowingFile(t *testing.T) {
	resolver := &fakeResolver{folders: map[string]string{"lectures": "lecture"}}
	jobs := &fakeSubmitter{}
	w, dir := newTestWatcher(t, resolver, jobs)

	path := filepath.Join(dir, "lectures", "talk.mp3")
	writeFile(t, path)

	// Recorded size differs from the on-disk size: the file is still growing.
	w.pending[path] = &pendingFile{
		lastEvent: time.Now().Add(-2 * settleDelay),
		lastSize:  1,
	}
	w.flushSettled(context.Background())

	assert.Empty(t, jobs.enqueued)
	assert.Contains(t, w.pending, path)
}

func TestFlushSettledDropsVanishedFile(t *testing.T) {
	resolver := &fakeResolver{}
	jobs := &fakeSubmitter{}
	w, dir := newTestWatcher(t, resolver, jobs)

	path := filepath.Join(dir, "lectures", "gone.mp3")
	w.pending[path] = &pendingFile{lastEvent: time.Now().Add(-2 * settleDelay)}
	w.flushSettled(context.Background())

	assert.Empty(t, jobs.enqueued)
	assert.Empty(t, w.pending)
}

func TestSubmitSkipsUnmappedFolder(t *testing.T) {
	resolver := &fakeResolver{folders: map[string]string{}}
	jobs := &fakeSubmitter{}
	w, dir := newTestWatcher(t, resolver, jobs)

	path := filepath.Join(dir, "random", "clip.mp3")
	writeFile(t, path)
	w.submit(context.Background(), path)

	assert.Empty(t, jobs.enqueued)
}

func TestSubmitSkipsAlreadyQueuedSource(t *testing.T) {
	resolver := &fakeResolver{folders: map[string]string{"meetings": "meeting"}}
	w, dir := newTestWatcher(t, resolver, nil)

	path := filepath.Join(dir, "meetings", "standup.mp3")
	writeFile(t, path)

	jobs := &fakeSubmitter{active: map[string]bool{path: true}}
	w.jobs = jobs
	w.submit(context.Background(), path)

	assert.Empty(t, jobs.enqueued)
}

func TestScanExistingPicksUpMediaOnly(t *testing.T) {
	resolver := &fakeResolver{}
	jobs := &fakeSubmitter{}
	w, dir := newTestWatcher(t, resolver, jobs)

	folder := filepath.Join(dir, "meetings")
	writeFile(t, filepath.Join(folder, "standup.mp3"))
	writeFile(t, filepath.Join(folder, "notes.txt"))

	w.scanExisting(folder)

	assert.Len(t, w.pending, 1)
	assert.Contains(t, w.pending, filepath.Join(folder, "standup.mp3"))
}

func TestSkipDir(t *testing.T) {
	w := &Watcher{}
	assert.True(t, w.skipDir("uploads"))
	assert.True(t, w.skipDir(".stfolder"))
	assert.False(t, w.skipDir("meetings"))
}
