// Package models defines journey taxonomy types to avoid circular imports.
package models

// Stage represents a top-level phase of the curriculum-design journey.
type Stage string

// SubPhase represents the fine-grained state within a step.
type SubPhase string

// StepKey identifies one of the nine ordered design steps.
type StepKey string

// Stage constants, in journey order.
const (
	StageOnboarding   Stage = "ONBOARDING"
	StageIdeation     Stage = "IDEATION"
	StageJourney      Stage = "JOURNEY"
	StageDeliverables Stage = "DELIVERABLES"
	StageComplete     Stage = "COMPLETE"
)

// Sub-phase constants for the conversation state machine.
const (
	SubPhaseStepEntry    SubPhase = "step_entry"    // awaiting first user input for the step
	SubPhaseStepConfirm  SubPhase = "step_confirm"  // awaiting accept/refine on a pending value
	SubPhaseStageClarify SubPhase = "stage_clarify" // full-stage summary, proceed or go back
	SubPhaseComplete     SubPhase = "complete"      // all stages confirmed
)

// Step key constants. Keys are stable strings used for captured fields.
const (
	StepBigIdea           StepKey = "ideation.bigIdea"
	StepEssentialQuestion StepKey = "ideation.essentialQuestion"
	StepChallenge         StepKey = "ideation.challenge"
	StepPhases            StepKey = "journey.phases"
	StepActivities        StepKey = "journey.activities"
	StepResources         StepKey = "journey.resources"
	StepMilestones        StepKey = "deliverables.milestones"
	StepRubric            StepKey = "deliverables.rubric"
	StepImpactPlan        StepKey = "deliverables.impactPlan"
)

// StepOrder lists all nine steps in journey order.
var StepOrder = []StepKey{
	StepBigIdea,
	StepEssentialQuestion,
	StepChallenge,
	StepPhases,
	StepActivities,
	StepResources,
	StepMilestones,
	StepRubric,
	StepImpactPlan,
}

// stageOrder lists the working stages in order (bookkeeping stages excluded).
var stageOrder = []Stage{StageIdeation, StageJourney, StageDeliverables}

var stepStages = map[StepKey]Stage{
	StepBigIdea:           StageIdeation,
	StepEssentialQuestion: StageIdeation,
	StepChallenge:         StageIdeation,
	StepPhases:            StageJourney,
	StepActivities:        StageJourney,
	StepResources:         StageJourney,
	StepMilestones:        StageDeliverables,
	StepRubric:            StageDeliverables,
	StepImpactPlan:        StageDeliverables,
}

// IsValidStep reports whether the given step key is one of the nine steps.
func IsValidStep(s StepKey) bool {
	_, ok := stepStages[s]
	return ok
}

// StageOf returns the stage a step belongs to, or empty for unknown steps.
func StageOf(s StepKey) Stage {
	return stepStages[s]
}

// StepIndex returns the ordinal position of a step in the journey (0-based),
// or -1 for unknown steps.
func StepIndex(s StepKey) int {
	for i, k := range StepOrder {
		if k == s {
			return i
		}
	}
	return -1
}

// StepsForStage returns the ordered steps belonging to a stage.
func StepsForStage(st Stage) []StepKey {
	var steps []StepKey
	for _, k := range StepOrder {
		if stepStages[k] == st {
			steps = append(steps, k)
		}
	}
	return steps
}

// NextStep returns the step following s, or false if s is the last step.
func NextStep(s StepKey) (StepKey, bool) {
	i := StepIndex(s)
	if i < 0 || i+1 >= len(StepOrder) {
		return "", false
	}
	return StepOrder[i+1], true
}

// NextStage returns the stage following st, or false if st is the last
// working stage.
func NextStage(st Stage) (Stage, bool) {
	for i, s := range stageOrder {
		if s == st {
			if i+1 < len(stageOrder) {
				return stageOrder[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// IsLastStepOfStage reports whether s is the final step of its stage.
func IsLastStepOfStage(s StepKey) bool {
	steps := StepsForStage(stepStages[s])
	return len(steps) > 0 && steps[len(steps)-1] == s
}

// StepTitle returns a short human-readable title for a step, used in
// clarification prompts and stage summaries.
func StepTitle(s StepKey) string {
	switch s {
	case StepBigIdea:
		return "Big Idea"
	case StepEssentialQuestion:
		return "Essential Question"
	case StepChallenge:
		return "Challenge"
	case StepPhases:
		return "Project Phases"
	case StepActivities:
		return "Activities"
	case StepResources:
		return "Resources"
	case StepMilestones:
		return "Milestones"
	case StepRubric:
		return "Rubric"
	case StepImpactPlan:
		return "Impact Plan"
	default:
		return string(s)
	}
}
