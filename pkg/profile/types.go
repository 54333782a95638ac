// Package profile loads pipeline definitions from a directory of YAML files
// plus a parallel tree of prompt bodies, and maps inbound folders to
// profiles.
package profile

import "time"

// Stage is one step in a profile's pipeline.
type Stage struct {
	Name             string  `yaml:"name" json:"name"`
	PromptFile       string  `yaml:"prompt_file" json:"prompt_file"`
	SystemMessage    string  `yaml:"system_message" json:"system_message"`
	Model            string  `yaml:"model" json:"model"`
	Provider         string  `yaml:"provider" json:"provider,omitempty"`
	Temperature      float64 `yaml:"temperature" json:"temperature"`
	MaxTokens        int     `yaml:"max_tokens" json:"max_tokens"`
	TimeoutSeconds   int     `yaml:"timeout" json:"timeout"`
	RequiresPrevious bool    `yaml:"requires_previous" json:"requires_previous"`
	SaveIntermediate bool    `yaml:"save_intermediate" json:"save_intermediate"`
	FilenameSuffix   string  `yaml:"filename_suffix" json:"filename_suffix"`

	// PromptTemplate is the resolved prompt body, loaded from PromptFile.
	PromptTemplate string `yaml:"-" json:"-"`
}

// Timeout returns the stage's LLM call timeout.
func (s *Stage) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RoutingConfig is a profile's output destination hint. Both share_folder
// and folder are accepted on disk; share_folder is canonical.
type RoutingConfig struct {
	ShareFolder string `yaml:"share_folder" json:"share_folder,omitempty"`
	Folder      string `yaml:"folder" json:"-"`
	Subfolder   string `yaml:"subfolder" json:"subfolder,omitempty"`
}

// FolderID returns the destination folder, preferring the canonical key.
func (r *RoutingConfig) FolderID() string {
	if r.ShareFolder != "" {
		return r.ShareFolder
	}
	return r.Folder
}

// NotificationConfig holds per-profile notification channel settings. All
// fields optional; empty channels are skipped.
type NotificationConfig struct {
	EmailTo        string `yaml:"email_to" json:"email_to,omitempty"`
	EmailCC        string `yaml:"email_cc" json:"email_cc,omitempty"`
	NtfyTopic      string `yaml:"ntfy_topic" json:"ntfy_topic,omitempty"`
	NtfyURL        string `yaml:"ntfy_url" json:"ntfy_url,omitempty"`
	DiscordWebhook string `yaml:"discord_webhook" json:"discord_webhook,omitempty"`
	PushoverUser   string `yaml:"pushover_user" json:"pushover_user,omitempty"`
	PushoverToken  string `yaml:"pushover_token" json:"pushover_token,omitempty"`
}

// Profile is one pipeline definition. Instances are read-only once loaded; a
// reload replaces the whole set rather than mutating profiles in use.
type Profile struct {
	// ID is the stable filename stem of the definition, not the display name.
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	SkipDiarization bool                `json:"skip_diarization"`
	Priority        int                 `json:"priority"`
	Stages          []Stage             `json:"stages"`
	Routing         *RoutingConfig      `json:"routing,omitempty"`
	Notifications   *NotificationConfig `json:"notifications,omitempty"`

	// Builtin marks the standard note types that exist without a definition
	// file on disk.
	Builtin bool `json:"builtin"`
}

// StageNames returns the ordered stage names.
func (p *Profile) StageNames() []string {
	names := make([]string, len(p.Stages))
	for i := range p.Stages {
		names[i] = p.Stages[i].Name
	}
	return names
}
