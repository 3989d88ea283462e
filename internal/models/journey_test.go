package models

import "testing"

func TestStepOrderCoversAllStages(t *testing.T) {
	if len(StepOrder) != 9 {
		t.Fatalf("expected 9 steps, got %d", len(StepOrder))
	}

	counts := map[Stage]int{}
	for _, step := range StepOrder {
		counts[StageOf(step)]++
	}
	for _, stage := range []Stage{StageIdeation, StageJourney, StageDeliverables} {
		if counts[stage] != 3 {
			t.Errorf("stage %s: expected 3 steps, got %d", stage, counts[stage])
		}
	}
}

func TestStepOrderIsMonotonic(t *testing.T) {
	// Steps of a later stage must never precede steps of an earlier one.
	stageRank := map[Stage]int{StageIdeation: 0, StageJourney: 1, StageDeliverables: 2}
	prev := -1
	for _, step := range StepOrder {
		rank := stageRank[StageOf(step)]
		if rank < prev {
			t.Fatalf("step %s out of stage order", step)
		}
		prev = rank
	}
}

func TestNextStep(t *testing.T) {
	next, ok := NextStep(StepBigIdea)
	if !ok || next != StepEssentialQuestion {
		t.Errorf("expected essentialQuestion after bigIdea, got %s (%v)", next, ok)
	}

	next, ok = NextStep(StepChallenge)
	if !ok || next != StepPhases {
		t.Errorf("expected stage boundary crossing to phases, got %s (%v)", next, ok)
	}

	if _, ok := NextStep(StepImpactPlan); ok {
		t.Error("impactPlan is the last step, NextStep must report false")
	}

	if _, ok := NextStep("bogus"); ok {
		t.Error("unknown step must report false")
	}
}

func TestNextStage(t *testing.T) {
	next, ok := NextStage(StageIdeation)
	if !ok || next != StageJourney {
		t.Errorf("expected journey after ideation, got %s (%v)", next, ok)
	}
	if _, ok := NextStage(StageDeliverables); ok {
		t.Error("deliverables is the last working stage")
	}
}

func TestIsLastStepOfStage(t *testing.T) {
	lasts := map[StepKey]bool{
		StepChallenge:  true,
		StepResources:  true,
		StepImpactPlan: true,
	}
	for _, step := range StepOrder {
		if IsLastStepOfStage(step) != lasts[step] {
			t.Errorf("IsLastStepOfStage(%s) = %v, want %v", step, !lasts[step], lasts[step])
		}
	}
}

func TestStepsForStage(t *testing.T) {
	steps := StepsForStage(StageJourney)
	want := []StepKey{StepPhases, StepActivities, StepResources}
	if len(steps) != len(want) {
		t.Fatalf("expected %d journey steps, got %d", len(want), len(steps))
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("journey step %d: got %s, want %s", i, steps[i], want[i])
		}
	}
}
