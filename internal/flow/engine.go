// Package flow provides the conversation state machine for design sessions.
//
// The Engine is the sole authority for what stage/step/sub-phase a session is
// in and the single place transitions are applied. Captured fields are
// written only by Confirm, giving one auditable write path. Transitions never
// perform blocking I/O against the LLM in a way that can fail them: when
// generation errors or times out, deterministic template text substitutes and
// the transition still commits.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alcove-ed/blueprint/internal/genai"
	"github.com/alcove-ed/blueprint/internal/models"
	"github.com/alcove-ed/blueprint/internal/parser"
	"github.com/alcove-ed/blueprint/internal/validator"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
)

// DefaultSystemPrompt guides the coach persona when no prompt file is
// configured.
const DefaultSystemPrompt = "You are a warm, practical coach helping a teacher design a project-based-learning curriculum. Build on what the teacher offers rather than rejecting it. Keep replies short and concrete, and always end with a clear next move."

// stepContentKinds maps structured steps to their parse target. Ideation
// steps capture cleaned text and are absent from this map.
var stepContentKinds = map[models.StepKey]models.ContentKind{
	models.StepPhases:     models.ContentPhases,
	models.StepActivities: models.ContentActivities,
	models.StepResources:  models.ContentResources,
	models.StepMilestones: models.ContentMilestones,
	models.StepRubric:     models.ContentRubric,
	models.StepImpactPlan: models.ContentImpact,
}

// OperationResult is the outcome of a transition operation, returned to the
// UI layer for rendering.
type OperationResult struct {
	SessionID       string               `json:"session_id"`
	Stage           models.Stage         `json:"stage"`
	Step            models.StepKey       `json:"step"`
	SubPhase        models.SubPhase      `json:"sub_phase"`
	Decision        validator.Decision   `json:"decision,omitempty"`
	Reply           string               `json:"reply"`
	RecoveryOptions []string             `json:"recovery_options,omitempty"`
	Pending         *models.PendingValue `json:"pending,omitempty"`
	Deduplicated    bool                 `json:"deduplicated,omitempty"` // suggestion request matched an earlier one
}

// Engine orchestrates the nine-step design conversation.
type Engine struct {
	stateManager StateManager
	genaiClient  genai.ClientInterface
	contextMgr   *ContextManager
	validator    *validator.Validator
	parseCfg     parser.Config
	systemPrompt string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSystemPrompt overrides the coach system prompt.
func WithSystemPrompt(p string) EngineOption {
	return func(e *Engine) { e.systemPrompt = p }
}

// WithValidatorConfig overrides the acceptance policy.
func WithValidatorConfig(cfg validator.Config) EngineOption {
	return func(e *Engine) { e.validator = validator.New(cfg) }
}

// WithParserConfig overrides the parsing configuration.
func WithParserConfig(cfg parser.Config) EngineOption {
	return func(e *Engine) { e.parseCfg = cfg }
}

// WithContextManager overrides the context window bounds.
func WithContextManager(cm *ContextManager) EngineOption {
	return func(e *Engine) { e.contextMgr = cm }
}

// NewEngine creates an Engine with dependencies. genaiClient may be nil, in
// which case all replies come from deterministic templates.
func NewEngine(stateManager StateManager, genaiClient genai.ClientInterface, opts ...EngineOption) *Engine {
	slog.Debug("Engine.NewEngine: creating engine", "hasGenAI", genaiClient != nil)
	e := &Engine{
		stateManager: stateManager,
		genaiClient:  genaiClient,
		contextMgr:   NewContextManager(0, 0),
		validator:    validator.New(validator.DefaultConfig()),
		parseCfg:     parser.DefaultConfig(),
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession creates a new session from a validated wizard handoff. The
// handoff is validated at this construction boundary; missing required fields
// fail loudly rather than silently defaulting.
func (e *Engine) StartSession(ctx context.Context, handoff models.WizardHandoff) (*OperationResult, error) {
	if err := handoff.Validate(); err != nil {
		slog.Warn("Engine.StartSession: handoff validation failed", "error", err)
		return nil, err
	}

	now := time.Now()
	doc := &models.SessionDocument{
		SessionID: uuid.NewString(),
		Handoff:   handoff,
		Stage:     models.StageIdeation,
		Step:      models.StepBigIdea,
		SubPhase:  models.SubPhaseStepEntry,
		Captured:  make(map[models.StepKey]models.CapturedField),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Pin the handoff facts so the subject chosen here still influences the
	// final step after any amount of trimming.
	e.appendMessage(doc, models.Message{
		Role:    models.RoleSystem,
		Content: pinnedContextTemplate(handoff),
		Pinned:  true,
	})

	welcome := e.generateReply(ctx, doc, "welcome", "Greet the teacher and ask for their Big Idea.", welcomeTemplate(handoff))
	e.appendAssistant(doc, welcome, "welcome")

	if err := e.stateManager.SaveSession(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save new session: %w", err)
	}
	slog.Info("Engine.StartSession: session created", "sessionID", doc.SessionID, "subject", handoff.Subject)
	return e.result(doc, welcome), nil
}

// Submit handles a user utterance for the current step. Valid only in
// step_entry or step_confirm. On reject the session stays in step_entry with
// a bounded clarification; on accept the parsed candidate becomes the pending
// value and the session moves to step_confirm.
func (e *Engine) Submit(ctx context.Context, sessionID, text string) (*OperationResult, error) {
	doc, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if doc.SubPhase != models.SubPhaseStepEntry && doc.SubPhase != models.SubPhaseStepConfirm {
		return nil, fmt.Errorf("%w: submit in %s", models.ErrInvalidTransition, doc.SubPhase)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, models.ErrEmptyUtterance
	}
	if len(trimmed) > models.MaxUtteranceLength {
		return nil, models.ErrUtteranceTooLong
	}

	e.appendMessage(doc, models.Message{
		Role:     models.RoleUser,
		Content:  trimmed,
		Metadata: &models.MessageMetadata{Stage: doc.Stage, Step: doc.Step},
	})

	eval := e.validator.Evaluate(doc.Step, trimmed, doc.TurnCount)
	slog.Debug("Engine.Submit: evaluated", "sessionID", sessionID, "step", doc.Step, "decision", eval.Decision, "turnCount", doc.TurnCount)

	if eval.Decision == validator.DecisionRejectClarify {
		doc.TurnCount++
		doc.SubPhase = models.SubPhaseStepEntry
		// A pending value only exists in step_confirm; a rejected resubmission
		// discards the one awaiting confirmation.
		doc.Pending = nil
		reply := clarifyTemplate(doc.Step, eval.RecoveryOptions)
		e.appendAssistant(doc, reply, "clarify")
		if err := e.stateManager.SaveSession(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		res := e.result(doc, reply)
		res.Decision = eval.Decision
		res.RecoveryOptions = eval.RecoveryOptions
		return res, nil
	}

	pending := &models.PendingValue{Text: trimmed, CreatedAt: time.Now()}
	if kind, ok := stepContentKinds[doc.Step]; ok {
		parsed := parser.Parse(kind, trimmed, e.parseCfg)
		pending.Content = &parsed
	}
	doc.Pending = pending
	doc.SubPhase = models.SubPhaseStepConfirm

	prompt := fmt.Sprintf("The teacher proposed this %s: %q. Restate it positively and ask whether to keep or refine it.", models.StepTitle(doc.Step), trimmed)
	if eval.Decision == validator.DecisionAcceptRefine {
		prompt = fmt.Sprintf("The teacher offered a rough %s: %q. Restate it as a stronger version, then ask whether to keep or refine it.", models.StepTitle(doc.Step), trimmed)
	}
	reply := e.generateReply(ctx, doc, "confirm", prompt, confirmTemplate(doc.Step, trimmed))
	e.appendAssistant(doc, reply, "confirm")

	if err := e.stateManager.SaveSession(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	res := e.result(doc, reply)
	res.Decision = eval.Decision
	res.Pending = doc.Pending
	return res, nil
}

// Confirm commits the pending value into the captured fields and advances the
// step pointer, the stage pointer, or the terminal state. Valid only in
// step_confirm.
func (e *Engine) Confirm(ctx context.Context, sessionID string) (*OperationResult, error) {
	doc, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if doc.SubPhase != models.SubPhaseStepConfirm || doc.Pending == nil {
		return nil, fmt.Errorf("%w: confirm in %s", models.ErrInvalidTransition, doc.SubPhase)
	}

	// The single write path for captured data.
	doc.Captured[doc.Step] = models.CapturedField{
		Step:       doc.Step,
		Text:       doc.Pending.Text,
		Content:    doc.Pending.Content,
		CapturedAt: time.Now(),
	}
	doc.Pending = nil
	doc.TurnCount = 0
	doc.RefineSeed = ""
	slog.Info("Engine.Confirm: field captured", "sessionID", sessionID, "step", doc.Step)

	var reply string
	switch {
	case doc.EditReturnStage != "":
		// Returning from a goBack edit: restore the clarify summary of the
		// stage the teacher came from, leaving every other field untouched.
		stage := doc.EditReturnStage
		doc.EditReturnStage = ""
		doc.Stage = stage
		steps := models.StepsForStage(stage)
		doc.Step = steps[len(steps)-1]
		doc.SubPhase = models.SubPhaseStageClarify
		reply = e.generateReply(ctx, doc, "summary", stageSummaryPrompt(stage), stageSummaryTemplate(stage, doc.Captured))
		e.appendAssistant(doc, reply, "summary")

	case models.IsLastStepOfStage(doc.Step):
		doc.SubPhase = models.SubPhaseStageClarify
		reply = e.generateReply(ctx, doc, "summary", stageSummaryPrompt(doc.Stage), stageSummaryTemplate(doc.Stage, doc.Captured))
		e.appendAssistant(doc, reply, "summary")

	default:
		next, _ := models.NextStep(doc.Step)
		doc.Step = next
		doc.SubPhase = models.SubPhaseStepEntry
		reply = e.generateReply(ctx, doc, "entry",
			fmt.Sprintf("Introduce the %s step and ask for the teacher's first take.", models.StepTitle(next)),
			entryTemplate(next, doc.Handoff))
		e.appendAssistant(doc, reply, "entry")
	}

	if err := e.stateManager.SaveSession(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	// Persist the blueprint document alongside the session; in-memory state
	// stays authoritative if this fails.
	if err := e.stateManager.SaveBlueprint(ctx, doc.SessionID, doc.Captured); err != nil {
		slog.Warn("Engine.Confirm: blueprint save failed, session state remains authoritative", "error", err, "sessionID", sessionID)
	}
	return e.result(doc, reply), nil
}

// Refine discards the pending value and returns to step_entry with the prior
// text retained as a seed. Valid only in step_confirm.
func (e *Engine) Refine(ctx context.Context, sessionID string) (*OperationResult, error) {
	doc, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if doc.SubPhase != models.SubPhaseStepConfirm || doc.Pending == nil {
		return nil, fmt.Errorf("%w: refine in %s", models.ErrInvalidTransition, doc.SubPhase)
	}

	doc.RefineSeed = doc.Pending.Text
	doc.Pending = nil
	doc.SubPhase = models.SubPhaseStepEntry

	reply := e.generateReply(ctx, doc, "refine",
		fmt.Sprintf("The teacher wants to rework their %s (previous attempt: %q). Invite a revision that builds on it.", models.StepTitle(doc.Step), doc.RefineSeed),
		refineTemplate(doc.Step, doc.RefineSeed))
	e.appendAssistant(doc, reply, "refine")

	if err := e.stateManager.SaveSession(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return e.result(doc, reply), nil
}

// Proceed advances from a stage_clarify summary to the next stage, or to the
// complete state after the final stage.
func (e *Engine) Proceed(ctx context.Context, sessionID string) (*OperationResult, error) {
	doc, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if doc.SubPhase != models.SubPhaseStageClarify {
		return nil, fmt.Errorf("%w: proceed in %s", models.ErrInvalidTransition, doc.SubPhase)
	}

	var reply string
	if next, ok := models.NextStage(doc.Stage); ok {
		doc.Stage = next
		doc.Step = models.StepsForStage(next)[0]
		doc.SubPhase = models.SubPhaseStepEntry
		reply = e.generateReply(ctx, doc, "entry",
			fmt.Sprintf("Open the %s stage and introduce the %s step.", next, models.StepTitle(doc.Step)),
			entryTemplate(doc.Step, doc.Handoff))
		e.appendAssistant(doc, reply, "entry")
		slog.Info("Engine.Proceed: stage advanced", "sessionID", sessionID, "stage", next)
	} else {
		doc.Stage = models.StageComplete
		doc.SubPhase = models.SubPhaseComplete
		reply = e.generateReply(ctx, doc, "complete",
			"Congratulate the teacher on completing all nine steps of their blueprint.",
			completionTemplate(doc.Handoff))
		e.appendAssistant(doc, reply, "complete")
		slog.Info("Engine.Proceed: session complete", "sessionID", sessionID)
	}

	if err := e.stateManager.SaveSession(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if err := e.stateManager.SaveBlueprint(ctx, doc.SessionID, doc.Captured); err != nil {
		slog.Warn("Engine.Proceed: blueprint save failed", "error", err, "sessionID", sessionID)
	}
	return e.result(doc, reply), nil
}

// GoBackTo re-enters a previously confirmed step in edit mode, preserving all
// other captured fields. Only permitted from stage_clarify.
func (e *Engine) GoBackTo(ctx context.Context, sessionID string, step models.StepKey) (*OperationResult, error) {
	doc, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if doc.SubPhase != models.SubPhaseStageClarify {
		return nil, fmt.Errorf("%w: goBack in %s", models.ErrInvalidTransition, doc.SubPhase)
	}
	if !models.IsValidStep(step) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStep, step)
	}
	prior, ok := doc.Captured[step]
	if !ok {
		return nil, fmt.Errorf("%w: goBack to unconfirmed step %s", models.ErrInvalidTransition, step)
	}

	doc.EditReturnStage = doc.Stage
	doc.Stage = models.StageOf(step)
	doc.Step = step
	doc.SubPhase = models.SubPhaseStepEntry
	doc.RefineSeed = prior.Text
	doc.TurnCount = 0

	reply := e.generateReply(ctx, doc, "refine",
		fmt.Sprintf("The teacher wants to revisit their %s (currently %q). Invite an updated version.", models.StepTitle(step), prior.Text),
		refineTemplate(step, prior.Text))
	e.appendAssistant(doc, reply, "refine")

	if err := e.stateManager.SaveSession(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	slog.Info("Engine.GoBackTo: step re-entered", "sessionID", sessionID, "step", step)
	return e.result(doc, reply), nil
}

// GetState returns a read-only snapshot of the session document.
func (e *Engine) GetState(ctx context.Context, sessionID string) (*models.SessionDocument, error) {
	return e.loadSession(ctx, sessionID)
}

// GetFormattedContext renders the session's bounded context for debugging.
func (e *Engine) GetFormattedContext(ctx context.Context, sessionID string) (string, error) {
	doc, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return e.contextMgr.FormattedContext(doc), nil
}

// GetContextStats returns context window statistics for telemetry display.
func (e *Engine) GetContextStats(ctx context.Context, sessionID string) (*ContextStats, error) {
	doc, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stats := e.contextMgr.Stats(doc)
	return &stats, nil
}

// loadSession fetches the session or returns ErrSessionNotFound.
func (e *Engine) loadSession(ctx context.Context, sessionID string) (*models.SessionDocument, error) {
	doc, err := e.stateManager.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	if doc.Captured == nil {
		doc.Captured = make(map[models.StepKey]models.CapturedField)
	}
	return doc, nil
}

// generateReply requests text from the LLM with bounded context; on any
// failure the deterministic fallback substitutes so the transition still
// completes. The state machine itself never fails on upstream errors.
func (e *Engine) generateReply(ctx context.Context, doc *models.SessionDocument, action, instruction, fallback string) string {
	if e.genaiClient == nil {
		return fallback
	}
	messages := e.contextMgr.BuildMessages(doc, e.systemPrompt, action)
	messages = append(messages, openai.SystemMessage(instruction))
	reply, err := e.genaiClient.GenerateWithMessages(ctx, messages)
	if err != nil || strings.TrimSpace(reply) == "" {
		slog.Warn("Engine.generateReply: falling back to template", "error", err, "sessionID", doc.SessionID, "action", action)
		return fallback
	}
	return reply
}

func (e *Engine) appendMessage(doc *models.SessionDocument, msg models.Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	e.contextMgr.Append(doc, msg)
}

func (e *Engine) appendAssistant(doc *models.SessionDocument, content, kind string) {
	e.appendMessage(doc, models.Message{
		Role:     models.RoleAssistant,
		Content:  content,
		Metadata: &models.MessageMetadata{Stage: doc.Stage, Step: doc.Step, Kind: kind},
	})
}

func (e *Engine) result(doc *models.SessionDocument, reply string) *OperationResult {
	return &OperationResult{
		SessionID: doc.SessionID,
		Stage:     doc.Stage,
		Step:      doc.Step,
		SubPhase:  doc.SubPhase,
		Reply:     reply,
	}
}

func stageSummaryPrompt(stage models.Stage) string {
	return fmt.Sprintf("Summarize everything captured in the %s stage and ask whether to proceed or go back and edit a field.", stage)
}
