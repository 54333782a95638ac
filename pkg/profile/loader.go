package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const folderMapFile = "folder_map.yaml"

// ErrProfileExists is returned by CreateProfile on an id collision.
var ErrProfileExists = errors.New("profile already exists")

// ErrProfileNotFound is returned by lookups and DeleteProfile.
var ErrProfileNotFound = errors.New("profile not found")

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Loader owns the profile set. Definitions live in <configDir>/profiles as
// YAML files (the filename stem is the profile id), prompt bodies in
// <configDir>/prompts. The standard note types are served as built-ins
// whenever no definition file shadows them.
type Loader struct {
	profilesDir string
	promptsDir  string

	mu        sync.RWMutex
	profiles  map[string]*Profile
	folderMap map[string]string
}

// NewLoader creates the loader and performs the initial load. A missing
// profiles directory is not an error; only built-ins are served.
func NewLoader(configDir string) (*Loader, error) {
	l := &Loader{
		profilesDir: filepath.Join(configDir, "profiles"),
		promptsDir:  filepath.Join(configDir, "prompts"),
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads everything from disk and swaps the in-memory set
// atomically. The set is rebuilt from scratch so deletions propagate.
func (l *Loader) Reload() error {
	profiles := make(map[string]*Profile)
	folderMap := l.readFolderMap()

	entries, err := os.ReadDir(l.profilesDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read profiles directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") || name == folderMapFile {
			continue
		}
		id := strings.TrimSuffix(name, ".yaml")
		p, err := l.loadProfile(id, filepath.Join(l.profilesDir, name))
		if err != nil {
			slog.Error("Failed to load profile", "file", name, "error", err)
			continue
		}
		profiles[id] = p
	}

	for _, id := range BuiltinIDs {
		if _, ok := profiles[id]; !ok {
			profiles[id] = builtinProfile(id)
		}
	}

	l.mu.Lock()
	l.profiles = profiles
	l.folderMap = folderMap
	l.mu.Unlock()

	slog.Info("Profiles loaded", "count", len(profiles), "folder_mappings", len(folderMap))
	return nil
}

type stageFile struct {
	Name             string   `yaml:"name"`
	PromptFile       string   `yaml:"prompt_file"`
	SystemMessage    string   `yaml:"system_message"`
	Model            string   `yaml:"model"`
	Provider         string   `yaml:"provider"`
	Temperature      *float64 `yaml:"temperature"`
	MaxTokens        *int     `yaml:"max_tokens"`
	Timeout          *int     `yaml:"timeout"`
	RequiresPrevious bool     `yaml:"requires_previous"`
	SaveIntermediate *bool    `yaml:"save_intermediate"`
	FilenameSuffix   string   `yaml:"filename_suffix"`
}

type profileFile struct {
	Name            string              `yaml:"name"`
	Description     string              `yaml:"description"`
	SkipDiarization bool                `yaml:"skip_diarization"`
	Priority        *int                `yaml:"priority"`
	Stages          []stageFile         `yaml:"stages"`
	Routing         *RoutingConfig      `yaml:"routing"`
	Syncthing       *RoutingConfig      `yaml:"syncthing"`
	Notifications   *NotificationConfig `yaml:"notifications"`
}

func (l *Loader) loadProfile(id, path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("invalid profile yaml: %w", err)
	}
	if pf.Name == "" {
		pf.Name = id
	}

	priority := 5
	if pf.Priority != nil && *pf.Priority >= 1 && *pf.Priority <= 10 {
		priority = *pf.Priority
	}

	routing := pf.Routing
	if routing == nil {
		routing = pf.Syncthing
	}

	p := &Profile{
		ID:              id,
		Name:            pf.Name,
		Description:     pf.Description,
		SkipDiarization: pf.SkipDiarization,
		Priority:        priority,
		Routing:         routing,
		Notifications:   pf.Notifications,
	}

	for _, sf := range pf.Stages {
		stage := Stage{
			Name:             sf.Name,
			PromptFile:       sf.PromptFile,
			SystemMessage:    sf.SystemMessage,
			Model:            sf.Model,
			Provider:         sf.Provider,
			Temperature:      0.3,
			MaxTokens:        4096,
			TimeoutSeconds:   120,
			RequiresPrevious: sf.RequiresPrevious,
			SaveIntermediate: true,
			FilenameSuffix:   sf.FilenameSuffix,
		}
		if stage.Model == "" {
			stage.Model = "deepseek-chat"
		}
		if sf.Temperature != nil {
			stage.Temperature = *sf.Temperature
		}
		if sf.MaxTokens != nil {
			stage.MaxTokens = *sf.MaxTokens
		}
		if sf.Timeout != nil {
			stage.TimeoutSeconds = *sf.Timeout
		}
		if sf.SaveIntermediate != nil {
			stage.SaveIntermediate = *sf.SaveIntermediate
		}
		stage.PromptTemplate = l.readPromptTemplate(stage.PromptFile)
		p.Stages = append(p.Stages, stage)
	}

	return p, nil
}

// readPromptTemplate loads a stage's prompt body. A missing or unreadable
// file yields an inline error marker rather than failing the whole profile,
// so the problem surfaces in the stage output instead of hiding the profile.
func (l *Loader) readPromptTemplate(promptFile string) string {
	if promptFile == "" {
		return ""
	}
	path, err := l.promptPath(promptFile)
	if err != nil {
		slog.Error("Invalid prompt file path", "prompt_file", promptFile, "error", err)
		return "ERROR: invalid prompt path: " + promptFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read prompt file", "prompt_file", promptFile, "error", err)
		return "ERROR: could not load prompt from " + promptFile
	}
	return string(data)
}

// promptPath resolves a prompt file reference under the prompts root,
// rejecting absolute paths and upward traversal.
func (l *Loader) promptPath(promptFile string) (string, error) {
	if filepath.IsAbs(promptFile) {
		return "", fmt.Errorf("prompt path must be relative: %s", promptFile)
	}
	clean := filepath.Clean(promptFile)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("prompt path escapes prompts root: %s", promptFile)
	}
	return filepath.Join(l.promptsDir, clean), nil
}

// Get returns the profile by id.
func (l *Loader) Get(id string) (*Profile, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.profiles[id]
	return p, ok
}

// All returns a snapshot of the profile set keyed by id.
func (l *Loader) All() map[string]*Profile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*Profile, len(l.profiles))
	for id, p := range l.profiles {
		out[id] = p
	}
	return out
}

// ProfileForFolder resolves an inbound folder name to a profile id,
// case-insensitively.
func (l *Loader) ProfileForFolder(folder string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.folderMap[strings.ToLower(folder)]
	return id, ok
}

// FolderMap returns a snapshot of the folder mapping.
func (l *Loader) FolderMap() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.folderMap))
	for k, v := range l.folderMap {
		out[k] = v
	}
	return out
}

// SetFolderMapping adds or replaces a folder mapping and persists the map.
func (l *Loader) SetFolderMapping(folder, profileID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.folderMap == nil {
		l.folderMap = make(map[string]string)
	}
	l.folderMap[strings.ToLower(folder)] = profileID
	return l.writeFolderMapLocked()
}

// RemoveFolderMapping deletes a folder mapping and persists the map.
func (l *Loader) RemoveFolderMapping(folder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.folderMap, strings.ToLower(folder))
	return l.writeFolderMapLocked()
}

type folderMapDoc struct {
	FolderMap map[string]string `yaml:"folder_map"`
}

func (l *Loader) readFolderMap() map[string]string {
	data, err := os.ReadFile(filepath.Join(l.profilesDir, folderMapFile))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read folder map", "error", err)
		}
		return map[string]string{}
	}

	var doc folderMapDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Error("Invalid folder map yaml", "error", err)
		return map[string]string{}
	}

	out := make(map[string]string, len(doc.FolderMap))
	for folder, id := range doc.FolderMap {
		out[strings.ToLower(folder)] = id
	}
	return out
}

func (l *Loader) writeFolderMapLocked() error {
	data, err := yaml.Marshal(folderMapDoc{FolderMap: l.folderMap})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.profilesDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.profilesDir, folderMapFile), data, 0o644)
}

// CreateStage is one stage in a profile creation request.
type CreateStage struct {
	Name             string
	PromptFile       string
	PromptContent    string
	Model            string
	Provider         string
	Temperature      float64
	MaxTokens        int
	RequiresPrevious bool
	SaveIntermediate bool
	FilenameSuffix   string
}

// CreateSpec describes a profile to be written to disk.
type CreateSpec struct {
	ID              string
	Name            string
	Description     string
	SkipDiarization bool
	Priority        int
	Routing         *RoutingConfig
	Notifications   *NotificationConfig
	Stages          []CreateStage
}

// CreateProfile writes the definition and its prompt files, reloads, and
// returns the new profile. On any write failure every partially written file
// is removed before the error is returned.
func (l *Loader) CreateProfile(spec CreateSpec) (*Profile, error) {
	if _, exists := l.Get(spec.ID); exists {
		return nil, fmt.Errorf("%w: %s", ErrProfileExists, spec.ID)
	}

	stages := make([]stageFile, 0, len(spec.Stages))
	promptPaths := make([]string, 0, len(spec.Stages))
	for i, cs := range spec.Stages {
		promptFile := cs.PromptFile
		if promptFile == "" {
			promptFile = fmt.Sprintf("%s/stage_%d_%s.md", spec.ID, i+1, slugify(cs.Name))
		}
		path, err := l.promptPath(promptFile)
		if err != nil {
			return nil, err
		}
		promptPaths = append(promptPaths, path)

		model := cs.Model
		if model == "" {
			model = "deepseek-chat"
		}
		temperature := cs.Temperature
		maxTokens := cs.MaxTokens
		if maxTokens == 0 {
			maxTokens = 4096
		}
		timeout := 120
		saveIntermediate := cs.SaveIntermediate
		stages = append(stages, stageFile{
			Name:             cs.Name,
			PromptFile:       promptFile,
			Model:            model,
			Provider:         cs.Provider,
			Temperature:      &temperature,
			MaxTokens:        &maxTokens,
			Timeout:          &timeout,
			RequiresPrevious: cs.RequiresPrevious,
			SaveIntermediate: &saveIntermediate,
			FilenameSuffix:   cs.FilenameSuffix,
		})
	}

	priority := spec.Priority
	if priority < 1 || priority > 10 {
		priority = 5
	}
	doc := profileFile{
		Name:            spec.Name,
		Description:     spec.Description,
		SkipDiarization: spec.SkipDiarization,
		Priority:        &priority,
		Stages:          stages,
		Routing:         spec.Routing,
		Notifications:   spec.Notifications,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(l.profilesDir, 0o755); err != nil {
		return nil, err
	}
	yamlPath := filepath.Join(l.profilesDir, spec.ID+".yaml")

	var written []string
	rollback := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
	}

	if err := os.WriteFile(yamlPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write profile definition: %w", err)
	}
	written = append(written, yamlPath)

	for i, cs := range spec.Stages {
		path := promptPaths[i]
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			rollback()
			return nil, fmt.Errorf("failed to create prompt directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(cs.PromptContent), 0o644); err != nil {
			rollback()
			return nil, fmt.Errorf("failed to write prompt file: %w", err)
		}
		written = append(written, path)
	}

	if err := l.Reload(); err != nil {
		rollback()
		return nil, err
	}

	p, ok := l.Get(spec.ID)
	if !ok {
		rollback()
		return nil, fmt.Errorf("profile %s created but failed to load", spec.ID)
	}
	return p, nil
}

// UpdateStagePrompt rewrites a stage's prompt body on disk and reloads.
func (l *Loader) UpdateStagePrompt(profileID string, stageIndex int, prompt string) error {
	p, ok := l.Get(profileID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}
	if stageIndex < 0 || stageIndex >= len(p.Stages) {
		return fmt.Errorf("%w: %s stage %d", ErrProfileNotFound, profileID, stageIndex)
	}
	stage := p.Stages[stageIndex]
	if stage.PromptFile == "" {
		return fmt.Errorf("stage %s of %s has no prompt file", stage.Name, profileID)
	}

	path, err := l.promptPath(stage.PromptFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(prompt), 0o644); err != nil {
		return fmt.Errorf("failed to write prompt file: %w", err)
	}
	return l.Reload()
}

// DeleteProfile removes the definition file and the profile's prompt
// directory, then reloads. Built-ins cannot be deleted.
func (l *Loader) DeleteProfile(id string) error {
	p, ok := l.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if p.Builtin {
		return fmt.Errorf("cannot delete built-in profile %s", id)
	}

	if err := os.Remove(filepath.Join(l.profilesDir, id+".yaml")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove profile definition: %w", err)
	}
	promptDir := filepath.Join(l.promptsDir, id)
	if info, err := os.Stat(promptDir); err == nil && info.IsDir() {
		if err := os.RemoveAll(promptDir); err != nil {
			return fmt.Errorf("failed to remove prompt directory: %w", err)
		}
	}
	return l.Reload()
}

// slugify produces a filename-safe id fragment from a stage name.
func slugify(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "_"), "_")
}
