// Package models defines session state structures for Blueprint conversations.
package models

import "time"

// Role identifies the author of a conversation message.
type Role string

// Message role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SuggestionKind identifies a side-channel suggestion request.
type SuggestionKind string

// Suggestion kind constants.
const (
	SuggestionIdeas    SuggestionKind = "ideas"
	SuggestionExamples SuggestionKind = "examples"
	SuggestionWhatIf   SuggestionKind = "whatif"
)

// IsValidSuggestionKind checks if the given suggestion kind is supported.
func IsValidSuggestionKind(k SuggestionKind) bool {
	switch k {
	case SuggestionIdeas, SuggestionExamples, SuggestionWhatIf:
		return true
	default:
		return false
	}
}

// MessageMetadata carries stage/step tags used for relevance filtering.
type MessageMetadata struct {
	Stage Stage   `json:"stage,omitempty"`
	Step  StepKey `json:"step,omitempty"`
	Kind  string  `json:"kind,omitempty"` // e.g. "clarify", "confirm", "summary", "suggestion:ideas"
}

// Message is a single entry in the append-only conversation history.
type Message struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	Pinned    bool             `json:"pinned,omitempty"` // exempt from history trimming
}

// Confidence is the parser's self-reported reliability of an extraction.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ContentKind selects the structured shape a parse targets.
type ContentKind string

// Content kind constants.
const (
	ContentPhases     ContentKind = "phases"
	ContentActivities ContentKind = "activities"
	ContentResources  ContentKind = "resources"
	ContentMilestones ContentKind = "milestones"
	ContentRubric     ContentKind = "rubric-criteria"
	ContentImpact     ContentKind = "impact-data"
)

// ContentItem is one structured record extracted from free text. Phases use
// Name/Detail/Activities; flat kinds use Name and optionally Detail.
type ContentItem struct {
	Name        string   `json:"name"`
	Detail      string   `json:"detail,omitempty"`
	Activities  []string `json:"activities,omitempty"`
	Placeholder bool     `json:"placeholder,omitempty"` // padded item the user should edit
}

// ParsedContent is the total result of a parse. Items is never empty.
type ParsedContent struct {
	Items      []ContentItem `json:"items"`
	Confidence Confidence    `json:"confidence"`
	Format     string        `json:"format"` // detected format identifier, e.g. "phase-with-bullets"
}

// CapturedField is a confirmed, durable answer for one step. Text always
// holds the cleaned user text; Content is set for structured steps.
type CapturedField struct {
	Step       StepKey        `json:"step"`
	Text       string         `json:"text"`
	Content    *ParsedContent `json:"content,omitempty"`
	CapturedAt time.Time      `json:"captured_at"`
}

// PendingValue is the unconfirmed candidate for the current step.
type PendingValue struct {
	Text      string         `json:"text"`
	Content   *ParsedContent `json:"content,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SessionDocument is the persisted aggregate for one design session. It is
// mutated exclusively through the flow engine and saved after every mutation.
type SessionDocument struct {
	SessionID  string                    `json:"session_id"`
	Handoff    WizardHandoff             `json:"handoff"`
	Stage      Stage                     `json:"stage"`
	Step       StepKey                   `json:"step"`
	SubPhase   SubPhase                  `json:"sub_phase"`
	Captured   map[StepKey]CapturedField `json:"captured"`
	Pending    *PendingValue             `json:"pending,omitempty"`
	TurnCount  int                       `json:"turn_count"` // rejected turns on the current step
	RefineSeed string                    `json:"refine_seed,omitempty"`
	// EditReturnStage is set while a previously confirmed step is re-entered
	// via goBack; confirming returns to that stage's clarify summary.
	EditReturnStage Stage             `json:"edit_return_stage,omitempty"`
	Suggestions     map[string]string `json:"suggestions,omitempty"` // "step|kind" -> message ID, dedup log
	History         []Message         `json:"history"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// SuggestionDedupeKey builds the idempotency key for a suggestion request.
func SuggestionDedupeKey(step StepKey, kind SuggestionKind) string {
	return string(step) + "|" + string(kind)
}
