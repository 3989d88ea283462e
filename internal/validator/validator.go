// Package validator classifies user utterances for the current design step.
//
// It encodes the "progress over perfection" policy: inputs are accepted or
// built upon whenever possible, clarification is bounded, and open-ended
// re-asks are forbidden because they caused conversational loops in the
// predecessor design. The validator is pure classification with no I/O and
// cannot fail.
package validator

import (
	"log/slog"
	"strings"

	"github.com/alcove-ed/blueprint/internal/models"
)

// Decision is the classification of a user utterance.
type Decision string

// Decision constants, in descending order of acceptance.
const (
	DecisionAccept        Decision = "accept"
	DecisionAcceptRefine  Decision = "accept-with-refinement"
	DecisionRejectClarify Decision = "reject-request-clarification"
)

// Evaluation is the validator's verdict plus recovery material for rejects.
type Evaluation struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
	// RecoveryOptions holds 2-3 multiple-choice style prompts returned on
	// reject. Never an open-ended "please clarify".
	RecoveryOptions []string `json:"recovery_options,omitempty"`
}

// Config holds the tunable policy knobs. The turn threshold and blacklist are
// product decisions, not an interface contract.
type Config struct {
	// ForcedAcceptTurns is the turn count at which any non-empty input is
	// accepted regardless of quality, preventing infinite rejection loops.
	ForcedAcceptTurns int
	// Blacklist is the set of non-answers that never satisfy rule 1.
	Blacklist map[string]bool
	// MinLength maps steps to their minimum character threshold for outright
	// acceptance. Steps not listed use DefaultMinLength.
	MinLength map[models.StepKey]int
	// DefaultMinLength applies when a step has no specific threshold.
	DefaultMinLength int
}

// DefaultConfig returns the default acceptance policy.
func DefaultConfig() Config {
	return Config{
		ForcedAcceptTurns: 3,
		Blacklist: map[string]bool{
			"?":            true,
			"??":           true,
			"idk":          true,
			"i don't know": true,
			"dunno":        true,
			"help":         true,
			"no":           true,
			"ok":           true,
			"yes":          true,
		},
		MinLength: map[models.StepKey]int{
			// Conceptual steps need enough substance to anchor the project.
			models.StepBigIdea:           10,
			models.StepEssentialQuestion: 12,
			models.StepChallenge:         12,
			// Structured steps tend to arrive as lists; shorter is fine.
			models.StepPhases:     8,
			models.StepActivities: 8,
			models.StepResources:  5,
			models.StepMilestones: 8,
			models.StepRubric:     8,
			models.StepImpactPlan: 10,
		},
		DefaultMinLength: 8,
	}
}

// Validator evaluates utterances against the configured policy.
type Validator struct {
	cfg Config
}

// New creates a Validator with the given configuration.
func New(cfg Config) *Validator {
	if cfg.ForcedAcceptTurns <= 0 {
		cfg.ForcedAcceptTurns = 3
	}
	if cfg.DefaultMinLength <= 0 {
		cfg.DefaultMinLength = 8
	}
	return &Validator{cfg: cfg}
}

// Evaluate classifies an utterance for the given step. turnCount is the
// number of turns already spent on this step (0 for the first attempt).
func (v *Validator) Evaluate(step models.StepKey, utterance string, turnCount int) Evaluation {
	trimmed := strings.TrimSpace(utterance)
	normalized := strings.ToLower(trimmed)

	// Rule 1: substantial, non-blacklisted input is accepted as-is.
	if len(trimmed) >= v.minLength(step) && !v.cfg.Blacklist[normalized] {
		if step == models.StepBigIdea && readsAsTask(normalized) {
			// A Big Idea phrased as a concrete task is workable but should be
			// lifted to a concept, so accept with refinement instead.
			slog.Debug("validator.Evaluate: big idea reads as task", "step", step)
			return Evaluation{
				Decision: DecisionAcceptRefine,
				Reason:   "input reads as an activity; will be reframed as a concept",
			}
		}
		return Evaluation{Decision: DecisionAccept, Reason: "meets step threshold"}
	}

	// Rule 2: anything with two meaningful words can be built upon.
	if meaningfulWordCount(normalized) >= 2 && !v.cfg.Blacklist[normalized] {
		return Evaluation{
			Decision: DecisionAcceptRefine,
			Reason:   "short but workable; will restate and build on it",
		}
	}

	// Rule 3: forced acceptance after the configured number of turns.
	// Progress over perfection: better a rough captured value than a loop.
	if turnCount >= v.cfg.ForcedAcceptTurns-1 && trimmed != "" {
		slog.Debug("validator.Evaluate: forced accept", "step", step, "turnCount", turnCount)
		return Evaluation{Decision: DecisionAccept, Reason: "forced accept after repeated attempts"}
	}

	// Rule 4: reject with concrete multiple-choice recovery prompts.
	return Evaluation{
		Decision:        DecisionRejectClarify,
		Reason:          "input too thin to build on",
		RecoveryOptions: recoveryOptions(step),
	}
}

func (v *Validator) minLength(step models.StepKey) int {
	if n, ok := v.cfg.MinLength[step]; ok {
		return n
	}
	return v.cfg.DefaultMinLength
}

// meaningfulWordCount counts words longer than two characters that are not
// filler.
func meaningfulWordCount(s string) int {
	filler := map[string]bool{"the": true, "and": true, "but": true, "for": true, "umm": true, "uhh": true}
	count := 0
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,!?\"'")
		if len(w) > 2 && !filler[w] {
			count++
		}
	}
	return count
}

// taskVerbs are leading verbs that signal a concrete activity rather than a
// conceptual theme.
var taskVerbs = []string{"make ", "build ", "create ", "do ", "write ", "draw ", "visit ", "watch ", "read "}

func readsAsTask(s string) bool {
	for _, v := range taskVerbs {
		if strings.HasPrefix(s, v) {
			return true
		}
	}
	return false
}

// recoveryOptions returns 2-3 concrete choices for a rejected input. Options
// are phrased so the user can answer by picking one, never "please clarify".
func recoveryOptions(step models.StepKey) []string {
	switch models.StageOf(step) {
	case models.StageIdeation:
		return []string{
			"Pick a theme close to your subject (e.g. \"How systems shape communities\")",
			"Start from something your students care about and we'll shape it together",
			"See three example " + models.StepTitle(step) + "s for your subject",
		}
	case models.StageJourney:
		return []string{
			"List two or three rough steps and we'll flesh them out",
			"Use a standard structure (Research, Create, Share) as a starting point",
		}
	default:
		return []string{
			"Describe what finished work students will show",
			"Start from a standard template and adjust it",
		}
	}
}
