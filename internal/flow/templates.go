// Package flow provides deterministic template text used when the LLM relay
// is unavailable or times out. Transitions always complete with this text, so
// the conversation never deadlocks on the network.
package flow

import (
	"fmt"
	"strings"

	"github.com/alcove-ed/blueprint/internal/models"
)

// welcomeTemplate greets a new session using the wizard handoff facts.
func welcomeTemplate(h models.WizardHandoff) string {
	return fmt.Sprintf(
		"Welcome! We'll design a %s project for your %s class over %s, in three stages: Ideation, Learning Journey, and Deliverables. First up is your Big Idea — the broad concept anchoring the whole project. What theme do you want your students to explore?",
		h.Subject, h.GradeLevel, h.Duration)
}

// entryTemplate prompts for the first input of a step.
func entryTemplate(step models.StepKey, h models.WizardHandoff) string {
	switch step {
	case models.StepBigIdea:
		return fmt.Sprintf("What broad concept should anchor this %s project? Think themes, not tasks — e.g. \"Systems shape communities\".", h.Subject)
	case models.StepEssentialQuestion:
		return "Great. Now turn that idea into an Essential Question — open-ended, debatable, something students can chew on all project long."
	case models.StepChallenge:
		return fmt.Sprintf("What authentic challenge will your %s students take on? Something with a real audience or outcome works best.", h.GradeLevel)
	case models.StepPhases:
		return fmt.Sprintf("Let's map the journey. Over %s, what phases will the project move through? A rough list is fine — we'll shape it together.", h.Duration)
	case models.StepActivities:
		return "What activities will students do in those phases? List whatever comes to mind."
	case models.StepResources:
		return "What resources will students need — materials, people, places, tools?"
	case models.StepMilestones:
		return "What milestones will mark progress? Think checkpoints where students show work."
	case models.StepRubric:
		return "How will you assess the work? List the criteria that matter most."
	case models.StepImpactPlan:
		return "Last step: how will student work reach an authentic audience and make an impact?"
	default:
		return fmt.Sprintf("Let's work on %s. What are you thinking?", models.StepTitle(step))
	}
}

// confirmTemplate restates a pending value and asks to keep or refine it.
func confirmTemplate(step models.StepKey, pendingText string) string {
	return fmt.Sprintf("Here's your %s: \"%s\". Want to keep it, or refine it further?",
		models.StepTitle(step), pendingText)
}

// refineTemplate re-opens a step with the prior text retained as a seed.
func refineTemplate(step models.StepKey, seed string) string {
	return fmt.Sprintf("No problem — let's rework your %s. Starting from \"%s\", what would you change?",
		models.StepTitle(step), seed)
}

// clarifyTemplate presents multiple-choice recovery options. Options are
// always concrete; an open-ended "please clarify" is never produced.
func clarifyTemplate(step models.StepKey, options []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Let's get your %s moving. Pick whichever fits:\n", models.StepTitle(step))
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	return strings.TrimRight(b.String(), "\n")
}

// stageSummaryTemplate lists everything captured in a stage and offers
// proceed-or-edit.
func stageSummaryTemplate(stage models.Stage, captured map[models.StepKey]models.CapturedField) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's your %s stage so far:\n", stageTitle(stage))
	for _, step := range models.StepsForStage(stage) {
		if f, ok := captured[step]; ok {
			fmt.Fprintf(&b, "- %s: %s\n", models.StepTitle(step), f.Text)
		}
	}
	b.WriteString("Ready to proceed, or would you like to go back and edit any field?")
	return b.String()
}

// completionTemplate closes out a finished blueprint.
func completionTemplate(h models.WizardHandoff) string {
	return fmt.Sprintf("Your %s project blueprint is complete — all nine steps captured for your %s class. You can review or export it any time.",
		h.Subject, h.GradeLevel)
}

// suggestionTemplate produces canned suggestion sets per kind and step,
// parameterized by the handoff so offline fallbacks still feel grounded.
func suggestionTemplate(kind models.SuggestionKind, step models.StepKey, h models.WizardHandoff) string {
	title := models.StepTitle(step)
	switch kind {
	case models.SuggestionIdeas:
		return fmt.Sprintf("Some %s ideas for %s:\n1. Connect %s to a local community issue\n2. Frame it around how %s shapes everyday life\n3. Start from a question your %s students keep asking",
			title, h.Subject, h.Subject, h.Subject, h.GradeLevel)
	case models.SuggestionExamples:
		return fmt.Sprintf("Example %ss other %s teachers have used:\n1. \"How does change happen in systems?\"\n2. \"What does our community need from us?\"\n3. \"Where does %s show up where we least expect it?\"",
			title, h.Subject, h.Subject)
	case models.SuggestionWhatIf:
		return fmt.Sprintf("What if for your %s:\n1. What if students chose the audience themselves?\n2. What if the project ran entirely in %s?\n3. What if the final product had to outlive the %s timeline?",
			title, valueOr(h.Location, "your classroom"), h.Duration)
	default:
		return fmt.Sprintf("Here are some directions for your %s.", title)
	}
}

func stageTitle(stage models.Stage) string {
	s := strings.ToLower(string(stage))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// pinnedContextTemplate renders the wizard handoff as the pinned session
// facts message.
func pinnedContextTemplate(h models.WizardHandoff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SESSION CONTEXT: subject=%s, grade=%s, duration=%s", h.Subject, h.GradeLevel, h.Duration)
	if h.Location != "" {
		fmt.Fprintf(&b, ", location=%s", h.Location)
	}
	if len(h.Materials) > 0 {
		fmt.Fprintf(&b, ", materials=%s", strings.Join(h.Materials, "/"))
	}
	return b.String()
}
