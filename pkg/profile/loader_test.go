package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := NewLoader(dir)
	require.NoError(t, err)
	return l, dir
}

func TestLoader_BuiltinsAlwaysAvailable(t *testing.T) {
	l, _ := newTestLoader(t)

	for _, id := range BuiltinIDs {
		p, ok := l.Get(id)
		require.True(t, ok, id)
		assert.True(t, p.Builtin)
		require.Len(t, p.Stages, 1)
		assert.Equal(t, "format", p.Stages[0].Name)
		assert.Contains(t, p.Stages[0].PromptTemplate, "{transcript}")
	}
}

func TestLoader_IDIsFilenameStemNotDisplayName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "profiles", "social_work.yaml"), `
name: Social Work Lecture
description: Multi-stage lecture processing
skip_diarization: true
stages:
  - name: clean
    prompt_file: social_work/clean.md
    model: deepseek-chat
`)
	writeFile(t, filepath.Join(dir, "prompts", "social_work", "clean.md"), "Clean this:\n{transcript}")

	l, err := NewLoader(dir)
	require.NoError(t, err)

	p, ok := l.Get("social_work")
	require.True(t, ok)
	assert.Equal(t, "Social Work Lecture", p.Name)
	assert.True(t, p.SkipDiarization)
	require.Len(t, p.Stages, 1)
	assert.Equal(t, "Clean this:\n{transcript}", p.Stages[0].PromptTemplate)

	_, ok = l.Get("Social Work Lecture")
	assert.False(t, ok, "display name must not resolve")
}

func TestLoader_StageDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "profiles", "minimal.yaml"), `
name: Minimal
stages:
  - name: format
`)
	l, err := NewLoader(dir)
	require.NoError(t, err)

	p, ok := l.Get("minimal")
	require.True(t, ok)
	require.Len(t, p.Stages, 1)
	stage := p.Stages[0]
	assert.Equal(t, "deepseek-chat", stage.Model)
	assert.InDelta(t, 0.3, stage.Temperature, 1e-9)
	assert.Equal(t, 4096, stage.MaxTokens)
	assert.Equal(t, 120, stage.TimeoutSeconds)
	assert.True(t, stage.SaveIntermediate)
	assert.Equal(t, 5, p.Priority)
}

func TestLoader_ExplicitZeroTemperatureKept(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "profiles", "strict.yaml"), `
name: Strict
stages:
  - name: verify
    temperature: 0.0
    save_intermediate: false
`)
	l, err := NewLoader(dir)
	require.NoError(t, err)

	p, _ := l.Get("strict")
	require.Len(t, p.Stages, 1)
	assert.Zero(t, p.Stages[0].Temperature)
	assert.False(t, p.Stages[0].SaveIntermediate)
}

func TestLoader_RoutingAcceptsBothKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "profiles", "a.yaml"), `
name: A
routing:
  share_folder: lectures
  subfolder: kate
stages: []
`)
	writeFile(t, filepath.Join(dir, "profiles", "b.yaml"), `
name: B
syncthing:
  folder: docs
stages: []
`)
	l, err := NewLoader(dir)
	require.NoError(t, err)

	a, _ := l.Get("a")
	require.NotNil(t, a.Routing)
	assert.Equal(t, "lectures", a.Routing.FolderID())
	assert.Equal(t, "kate", a.Routing.Subfolder)

	b, _ := l.Get("b")
	require.NotNil(t, b.Routing)
	assert.Equal(t, "docs", b.Routing.FolderID())
}

func TestLoader_ReloadDropsDeletedProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles", "temp.yaml")
	writeFile(t, path, "name: Temp\nstages: []\n")

	l, err := NewLoader(dir)
	require.NoError(t, err)
	_, ok := l.Get("temp")
	require.True(t, ok)

	require.NoError(t, os.Remove(path))
	require.NoError(t, l.Reload())
	_, ok = l.Get("temp")
	assert.False(t, ok)
}

func TestLoader_MissingPromptFileYieldsErrorMarker(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "profiles", "broken.yaml"), `
name: Broken
stages:
  - name: clean
    prompt_file: broken/missing.md
`)
	l, err := NewLoader(dir)
	require.NoError(t, err)

	p, ok := l.Get("broken")
	require.True(t, ok, "profile loads even with missing prompt")
	assert.Contains(t, p.Stages[0].PromptTemplate, "ERROR:")
}

func TestLoader_FolderMapCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "profiles", "folder_map.yaml"), `
folder_map:
  Kate: social_work
`)
	l, err := NewLoader(dir)
	require.NoError(t, err)

	id, ok := l.ProfileForFolder("kate")
	require.True(t, ok)
	assert.Equal(t, "social_work", id)
	id, ok = l.ProfileForFolder("KATE")
	require.True(t, ok)
	assert.Equal(t, "social_work", id)
}

func TestLoader_SetFolderMappingPersists(t *testing.T) {
	l, dir := newTestLoader(t)

	require.NoError(t, l.SetFolderMapping("Keira", "business"))

	// A fresh loader over the same directory sees the mapping.
	l2, err := NewLoader(dir)
	require.NoError(t, err)
	id, ok := l2.ProfileForFolder("keira")
	require.True(t, ok)
	assert.Equal(t, "business", id)

	require.NoError(t, l.RemoveFolderMapping("KEIRA"))
	_, ok = l.ProfileForFolder("keira")
	assert.False(t, ok)
}

func TestCreateProfile_LookupSucceedsImmediately(t *testing.T) {
	l, dir := newTestLoader(t)

	p, err := l.CreateProfile(CreateSpec{
		ID:          "business",
		Name:        "Business Lecture",
		Description: "strategy lectures",
		Stages: []CreateStage{
			{Name: "Clean Transcript", PromptContent: "Clean:\n{transcript}", SaveIntermediate: true, FilenameSuffix: "_clean"},
			{Name: "analyze", PromptContent: "Analyze:\n{transcript}", SaveIntermediate: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "business", p.ID)
	require.Len(t, p.Stages, 2)
	assert.Equal(t, "Clean:\n{transcript}", p.Stages[0].PromptTemplate)

	// auto-generated prompt path includes stage index and slug
	assert.Equal(t, "business/stage_1_clean_transcript.md", p.Stages[0].PromptFile)
	_, err = os.Stat(filepath.Join(dir, "prompts", "business", "stage_1_clean_transcript.md"))
	require.NoError(t, err)

	got, ok := l.Get("business")
	require.True(t, ok)
	assert.Equal(t, "Business Lecture", got.Name)
}

func TestCreateProfile_ConflictOnExistingID(t *testing.T) {
	l, _ := newTestLoader(t)

	_, err := l.CreateProfile(CreateSpec{ID: "meeting", Name: "Clash"})
	assert.ErrorIs(t, err, ErrProfileExists)
}

func TestCreateProfile_RejectsTraversalPromptPath(t *testing.T) {
	l, dir := newTestLoader(t)

	_, err := l.CreateProfile(CreateSpec{
		ID:   "evil",
		Name: "Evil",
		Stages: []CreateStage{
			{Name: "escape", PromptFile: "../outside.md", PromptContent: "x"},
		},
	})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "outside.md"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = l.CreateProfile(CreateSpec{
		ID:   "evil2",
		Name: "Evil",
		Stages: []CreateStage{
			{Name: "abs", PromptFile: "/etc/passwd", PromptContent: "x"},
		},
	})
	assert.Error(t, err)
}

func TestDeleteProfile(t *testing.T) {
	l, dir := newTestLoader(t)

	_, err := l.CreateProfile(CreateSpec{
		ID:   "shortlived",
		Name: "Short",
		Stages: []CreateStage{
			{Name: "format", PromptContent: "{transcript}"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, l.DeleteProfile("shortlived"))
	_, ok := l.Get("shortlived")
	assert.False(t, ok)
	_, statErr := os.Stat(filepath.Join(dir, "prompts", "shortlived"))
	assert.True(t, os.IsNotExist(statErr))

	assert.ErrorIs(t, l.DeleteProfile("shortlived"), ErrProfileNotFound)
	assert.Error(t, l.DeleteProfile("meeting"), "built-ins are not deletable")
}

func TestUpdateStagePrompt(t *testing.T) {
	l, _ := newTestLoader(t)

	_, err := l.CreateProfile(CreateSpec{
		ID:   "editable",
		Name: "Editable",
		Stages: []CreateStage{
			{Name: "format", PromptContent: "v1 {transcript}"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, l.UpdateStagePrompt("editable", 0, "v2 {transcript}"))
	p, _ := l.Get("editable")
	assert.Equal(t, "v2 {transcript}", p.Stages[0].PromptTemplate)

	assert.ErrorIs(t, l.UpdateStagePrompt("editable", 5, "x"), ErrProfileNotFound)
	assert.ErrorIs(t, l.UpdateStagePrompt("nope", 0, "x"), ErrProfileNotFound)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "clean_transcript", slugify("Clean Transcript"))
	assert.Equal(t, "qa_verify", slugify("QA / Verify!"))
}
