package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alcove-ed/blueprint/internal/models"
)

// RequestSuggestions generates on-demand help for the current step: ideas,
// examples, or what-if prompts. Repeating the same request for the same step
// and kind replays the earlier reply instead of generating again, so a
// double-tapped button cannot produce near-duplicate suggestion messages.
func (e *Engine) RequestSuggestions(ctx context.Context, sessionID string, kind models.SuggestionKind) (*OperationResult, error) {
	if !models.IsValidSuggestionKind(kind) {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidSuggestionKind, kind)
	}
	doc, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if doc.SubPhase != models.SubPhaseStepEntry && doc.SubPhase != models.SubPhaseStepConfirm {
		return nil, fmt.Errorf("%w: suggestions in %s", models.ErrInvalidTransition, doc.SubPhase)
	}

	dedupeKey := models.SuggestionDedupeKey(doc.Step, kind)
	if msgID, seen := doc.Suggestions[dedupeKey]; seen {
		if prior := findMessage(doc.History, msgID); prior != nil {
			slog.Debug("Engine.RequestSuggestions: replaying earlier suggestions", "sessionID", sessionID, "step", doc.Step, "kind", kind)
			res := e.result(doc, prior.Content)
			res.Deduplicated = true
			return res, nil
		}
		// The earlier message was trimmed from history; fall through and
		// generate a fresh set under the same key.
	}

	reply := e.generateReply(ctx, doc, string(kind), suggestionInstruction(kind, doc), suggestionTemplate(kind, doc.Step, doc.Handoff))

	msg := models.Message{
		Role:     models.RoleAssistant,
		Content:  reply,
		Metadata: &models.MessageMetadata{Stage: doc.Stage, Step: doc.Step, Kind: string(kind)},
	}
	e.appendMessage(doc, msg)
	if doc.Suggestions == nil {
		doc.Suggestions = make(map[string]string)
	}
	doc.Suggestions[dedupeKey] = doc.History[len(doc.History)-1].ID

	if err := e.stateManager.SaveSession(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	slog.Info("Engine.RequestSuggestions: suggestions generated", "sessionID", sessionID, "step", doc.Step, "kind", kind)
	return e.result(doc, reply), nil
}

// RequestIdeas is a convenience wrapper for the ideas suggestion kind.
func (e *Engine) RequestIdeas(ctx context.Context, sessionID string) (*OperationResult, error) {
	return e.RequestSuggestions(ctx, sessionID, models.SuggestionIdeas)
}

// RequestExamples is a convenience wrapper for the examples suggestion kind.
func (e *Engine) RequestExamples(ctx context.Context, sessionID string) (*OperationResult, error) {
	return e.RequestSuggestions(ctx, sessionID, models.SuggestionExamples)
}

// RequestWhatIf is a convenience wrapper for the what-if suggestion kind.
func (e *Engine) RequestWhatIf(ctx context.Context, sessionID string) (*OperationResult, error) {
	return e.RequestSuggestions(ctx, sessionID, models.SuggestionWhatIf)
}

func suggestionInstruction(kind models.SuggestionKind, doc *models.SessionDocument) string {
	title := models.StepTitle(doc.Step)
	var sb strings.Builder
	switch kind {
	case models.SuggestionIdeas:
		fmt.Fprintf(&sb, "Offer three concrete %s ideas tailored to a %s %s class", title, doc.Handoff.GradeLevel, doc.Handoff.Subject)
	case models.SuggestionExamples:
		fmt.Fprintf(&sb, "Give three real-world examples of a strong %s from other %s projects", title, doc.Handoff.Subject)
	case models.SuggestionWhatIf:
		fmt.Fprintf(&sb, "Pose three provocative what-if twists for the teacher's %s", title)
	}
	if doc.RefineSeed != "" {
		fmt.Fprintf(&sb, ", building on their earlier attempt: %q", doc.RefineSeed)
	}
	sb.WriteString(". Number them 1-3 and keep each to one sentence.")
	return sb.String()
}

func findMessage(history []models.Message, id string) *models.Message {
	for i := range history {
		if history[i].ID == id {
			return &history[i]
		}
	}
	return nil
}
