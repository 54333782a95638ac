package profile

import "strings"

// Built-in single-stage prompts for the standard note types. The default
// pipeline runs these as one "format" stage over the speaker transcript.
const (
	meetingPrompt = `
Format this meeting transcript with the following sections:
- Attendees: List of people present
- Date/Time: If mentioned
- Discussion Summary: Bullet points of key topics discussed
- Decisions Made: Numbered list of decisions
- Action Items: Numbered list with assignees and due dates if mentioned
- Next Steps: Any follow-up meetings or actions

Raw transcript:
{transcript}
`

	supervisionPrompt = `
Format this clinical supervision transcript with:
- Participants: Supervisor and supervisee names if mentioned
- Cases Discussed: List with brief context (anonymized)
- Interventions/Techniques: Methods discussed
- Learning Points: Key clinical insights
- Goals/Action Items: Professional development goals
- Risk Considerations: Any risk-related discussions

Raw transcript:
{transcript}
`

	clientPrompt = `
Format this therapy session transcript with:
- Session Type: Individual/Couple/Family if clear
- Presenting Issues: Client concerns (anonymized)
- Interventions Used: Therapeutic techniques applied
- Client Progress: Changes since last session
- Risk Assessment: Any safety concerns
- Homework/Tasks: Assigned between sessions
- Plan for Next Session

Raw transcript:
{transcript}
`

	lecturePrompt = `
Format this lecture transcript with:
- Title/Topic: Main subject
- Lecturer: Name if mentioned
- Sections: Major topics with timestamps if available
- Key Concepts: Important definitions/explanations
- Summary: Brief overview
- Questions/Discussion Points

Raw transcript:
{transcript}
`

	braindumpPrompt = `
Format this voice note/braindump with:
- To-Do Items: Actionable tasks extracted
- Ideas: Creative thoughts or concepts
- Mind Map: Generate in Mermaid format showing connections between ideas
- Categories: Group related thoughts

Raw transcript:
{transcript}
`
)

const defaultSystemMessage = "You are a helpful assistant that formats transcripts " +
	"into well-structured markdown documents. " +
	"Be thorough but concise. Use proper markdown formatting."

// BuiltinIDs lists the standard note types served without a definition file.
var BuiltinIDs = []string{"meeting", "supervision", "client", "lecture", "braindump"}

var builtinPrompts = map[string]string{
	"meeting":     meetingPrompt,
	"supervision": supervisionPrompt,
	"client":      clientPrompt,
	"lecture":     lecturePrompt,
	"braindump":   braindumpPrompt,
}

// IsBuiltin reports whether id names a standard note type.
func IsBuiltin(id string) bool {
	_, ok := builtinPrompts[id]
	return ok
}

func builtinProfile(id string) *Profile {
	prompt, ok := builtinPrompts[id]
	if !ok {
		return nil
	}
	return &Profile{
		ID:          id,
		Name:        strings.ToUpper(id[:1]) + id[1:],
		Description: "Standard " + id + " transcription",
		Priority:    5,
		Builtin:     true,
		Stages: []Stage{{
			Name:             "format",
			SystemMessage:    defaultSystemMessage,
			Model:            "deepseek-chat",
			Temperature:      0.3,
			MaxTokens:        4096,
			TimeoutSeconds:   120,
			SaveIntermediate: true,
			PromptTemplate:   prompt,
		}},
	}
}
