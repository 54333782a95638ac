package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpipe/voxpipe/pkg/config"
)

func TestPruneZoneRemovesOnlyOldFiles(t *testing.T) {
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "old.mp3")
	freshFile := filepath.Join(dir, "fresh.mp3")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0o644))

	stale := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	s := &Service{config: &config.RetentionConfig{SourceRetentionDays: 30}}
	s.pruneZone(dir)

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, freshFile)
}

func TestPruneZoneSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "keep")
	require.NoError(t, os.Mkdir(sub, 0o755))

	stale := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(sub, stale, stale))

	s := &Service{config: &config.RetentionConfig{SourceRetentionDays: 30}}
	s.pruneZone(dir)

	assert.DirExists(t, sub)
}

func TestPruneZoneMissingDirIsNoop(t *testing.T) {
	s := &Service{config: &config.RetentionConfig{SourceRetentionDays: 30}}
	s.pruneZone(filepath.Join(t.TempDir(), "does-not-exist"))
}
