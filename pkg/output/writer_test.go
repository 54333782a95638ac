package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	for _, sub := range []string{"transcripts", "docs"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	userDir, err := w.DocsDir("keira")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "docs", "keira"), userDir)
	_, err = os.Stat(userDir)
	require.NoError(t, err)
}

func TestWriteStage_MarkdownWithHeaderBlock(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	files, err := w.WriteStage("## Notes\nbody", "20240115_143022_team sync!", "_clean", Metadata{
		Stage:    "clean",
		Profile:  "business",
		Duration: "00:42:10",
	}, false, "")
	require.NoError(t, err)
	require.Len(t, files, 1)

	assert.Equal(t, "markdown", files[0].Kind)
	assert.Equal(t, filepath.Join(dir, "transcripts", "20240115_143022_team_sync_clean.md"), files[0].Path)

	data, err := os.ReadFile(files[0].Path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "---\n"))
	assert.Contains(t, content, "stage: clean")
	assert.Contains(t, content, "profile: business")
	assert.Contains(t, content, "duration: 00:42:10")
	assert.True(t, strings.HasSuffix(content, "## Notes\nbody"))
}

func TestWriteStage_RenderFailureIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	// Point the rendered document at an unwritable directory; the markdown
	// must still land.
	files, err := w.WriteStage("text", "lecture", "_analysis", Metadata{Stage: "analyze"}, true,
		filepath.Join(dir, "missing", "docs"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "markdown", files[0].Kind)
}

func TestWriteStage_HTMLFallbackWithoutPandoc(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	// force the fallback path regardless of the host
	w.pandocChecked = true
	w.pandocAvailable = false

	files, err := w.WriteStage("body & text", "talk", "", Metadata{Stage: "format", Title: "Talk"}, true, "")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "html", files[1].Kind)

	data, err := os.ReadFile(files[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "body &amp; text")
	assert.Contains(t, string(data), "<title>Talk</title>")
}

func TestDeriveFilename(t *testing.T) {
	assert.Equal(t, "My_Lecture_clean.md", deriveFilename("My Lecture?", "_clean", ".md"))
	assert.Equal(t, "My_Lecture.md", deriveFilename("My Lecture", "", ".md"))
	assert.Equal(t, "a_b_qa.docx", deriveFilename("a b", "qa", ".docx"))
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Team Sync", DeriveTitle("20240115_143022_team_sync", ""))
	assert.Equal(t, "Strategy Lecture (Cheat Sheet)", DeriveTitle("strategy-lecture", "_cheat_sheet"))
	assert.Equal(t, "Intro", DeriveTitle("2024-01-15-14-30-22-intro", ""))
}

func TestNoteTitle(t *testing.T) {
	assert.Equal(t, "Meeting: Team Sync", NoteTitle("team_sync.mp3", "meeting"))
	// no duplicate prefix when the name already mentions the type
	assert.Equal(t, "Weekly Meeting Notes", NoteTitle("weekly_meeting_notes.wav", "meeting"))
}
