// Package flow provides the bounded conversation context used to construct
// LLM requests without unbounded prompt growth.
package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alcove-ed/blueprint/internal/models"
	"github.com/alcove-ed/blueprint/internal/themes"
	"github.com/openai/openai-go"
)

// Context window defaults.
const (
	// DefaultMaxHistory bounds retained history; pinned messages are exempt.
	DefaultMaxHistory = 50
	// DefaultRecentWindow is the number of trailing messages always included
	// for continuity.
	DefaultRecentWindow = 10
)

// ContextSummary is the derived signal included alongside recent messages.
type ContextSummary struct {
	KeyDecisions []string `json:"key_decisions,omitempty"` // confirmed step values
	Preferences  []string `json:"preferences,omitempty"`   // detected teaching preferences
	Themes       []string `json:"themes,omitempty"`        // recurring keywords
}

// RelevantContext is the bounded view handed to prompt construction.
type RelevantContext struct {
	Recent  []models.Message `json:"recent"`
	Related []models.Message `json:"related,omitempty"` // metadata matches outside the recent window
	Summary ContextSummary   `json:"summary"`
}

// ContextStats reports window sizes for debugging/telemetry display.
type ContextStats struct {
	TotalMessages    int `json:"total_messages"`
	PinnedMessages   int `json:"pinned_messages"`
	PreferenceCount  int `json:"preference_count"`
	ThemeCount       int `json:"theme_count"`
	CapturedFields   int `json:"captured_fields"`
	MaxHistory       int `json:"max_history"`
	RecentWindowSize int `json:"recent_window_size"`
}

// ContextManager maintains the bounded rolling window over a session's
// message history. It holds a read-derived view and never mutates captured
// data; the engine owns all writes to the session document.
type ContextManager struct {
	maxHistory   int
	recentWindow int
	themeOpts    themes.Options
}

// NewContextManager creates a ContextManager with the given bounds. Zero
// values fall back to defaults.
func NewContextManager(maxHistory, recentWindow int) *ContextManager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}
	return &ContextManager{
		maxHistory:   maxHistory,
		recentWindow: recentWindow,
		themeOpts:    themes.DefaultOptions(),
	}
}

// Append adds a message to the session history and enforces the retention
// bound. The oldest unpinned messages are trimmed first; pinned messages
// (e.g. the initial subject/grade/duration context) are never trimmed.
func (cm *ContextManager) Append(doc *models.SessionDocument, msg models.Message) {
	doc.History = append(doc.History, msg)
	if len(doc.History) <= cm.maxHistory {
		return
	}

	excess := len(doc.History) - cm.maxHistory
	trimmed := make([]models.Message, 0, cm.maxHistory)
	for _, m := range doc.History {
		if excess > 0 && !m.Pinned {
			excess--
			continue
		}
		trimmed = append(trimmed, m)
	}
	slog.Debug("ContextManager.Append: trimmed history", "sessionID", doc.SessionID, "retained", len(trimmed), "max", cm.maxHistory)
	doc.History = trimmed
}

// RelevantContext returns the bounded context for the given action and stage:
// the last N messages unconditionally, earlier messages whose metadata
// matches, and the derived summary. It degrades to empty summary fields when
// no signal is present.
func (cm *ContextManager) RelevantContext(doc *models.SessionDocument, action string, stage models.Stage) RelevantContext {
	history := doc.History
	cut := len(history) - cm.recentWindow
	if cut < 0 {
		cut = 0
	}
	recent := history[cut:]

	var related []models.Message
	for _, m := range history[:cut] {
		if m.Pinned {
			related = append(related, m)
			continue
		}
		if m.Metadata == nil {
			continue
		}
		if (stage != "" && m.Metadata.Stage == stage) || (action != "" && m.Metadata.Kind == action) {
			related = append(related, m)
		}
	}

	return RelevantContext{
		Recent:  append([]models.Message{}, recent...),
		Related: related,
		Summary: cm.summarize(doc),
	}
}

// summarize derives key decisions from confirmed fields and scans
// user-authored messages for preferences and recurring themes.
func (cm *ContextManager) summarize(doc *models.SessionDocument) ContextSummary {
	var decisions []string
	for _, step := range models.StepOrder {
		if f, ok := doc.Captured[step]; ok {
			decisions = append(decisions, fmt.Sprintf("%s: %s", models.StepTitle(step), f.Text))
		}
	}

	var userContents []string
	for _, m := range doc.History {
		if m.Role == models.RoleUser {
			userContents = append(userContents, m.Content)
		}
	}
	sig := themes.Extract(userContents, cm.themeOpts)

	return ContextSummary{
		KeyDecisions: decisions,
		Preferences:  sig.Preferences,
		Themes:       sig.Themes,
	}
}

// BuildMessages converts the relevant context into the OpenAI message array:
// system prompt, pinned session facts, derived summary, then recent turns.
func (cm *ContextManager) BuildMessages(doc *models.SessionDocument, systemPrompt, action string) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}

	rc := cm.RelevantContext(doc, action, doc.Stage)

	if summary := formatSummary(rc.Summary); summary != "" {
		messages = append(messages, openai.SystemMessage(summary))
	}

	for _, m := range rc.Related {
		if m.Pinned {
			messages = append(messages, openai.SystemMessage(m.Content))
		}
	}

	for _, m := range rc.Recent {
		switch m.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		}
	}
	return messages
}

// FormattedContext renders the current context as human-readable text for
// debugging display.
func (cm *ContextManager) FormattedContext(doc *models.SessionDocument) string {
	rc := cm.RelevantContext(doc, "", doc.Stage)
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s — stage %s, step %s, phase %s\n", doc.SessionID, doc.Stage, doc.Step, doc.SubPhase)
	if s := formatSummary(rc.Summary); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Recent messages (%d):\n", len(rc.Recent))
	for _, m := range rc.Recent {
		fmt.Fprintf(&b, "  [%s] %s\n", m.Role, m.Content)
	}
	return b.String()
}

// Stats returns context window statistics.
func (cm *ContextManager) Stats(doc *models.SessionDocument) ContextStats {
	pinned := 0
	for _, m := range doc.History {
		if m.Pinned {
			pinned++
		}
	}
	summary := cm.summarize(doc)
	return ContextStats{
		TotalMessages:    len(doc.History),
		PinnedMessages:   pinned,
		PreferenceCount:  len(summary.Preferences),
		ThemeCount:       len(summary.Themes),
		CapturedFields:   len(doc.Captured),
		MaxHistory:       cm.maxHistory,
		RecentWindowSize: cm.recentWindow,
	}
}

func formatSummary(s ContextSummary) string {
	var parts []string
	if len(s.KeyDecisions) > 0 {
		parts = append(parts, "KEY DECISIONS:\n"+strings.Join(s.KeyDecisions, "\n"))
	}
	if len(s.Preferences) > 0 {
		parts = append(parts, "DETECTED PREFERENCES: "+strings.Join(s.Preferences, ", "))
	}
	if len(s.Themes) > 0 {
		parts = append(parts, "RECURRING THEMES: "+strings.Join(s.Themes, ", "))
	}
	return strings.Join(parts, "\n")
}
