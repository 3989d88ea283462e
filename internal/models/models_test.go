package models

import (
	"errors"
	"testing"
)

func TestWizardHandoffValidate(t *testing.T) {
	valid := WizardHandoff{Subject: "History", GradeLevel: "7th grade", Duration: "4 weeks"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid handoff rejected: %v", err)
	}

	cases := []struct {
		name    string
		handoff WizardHandoff
	}{
		{"missing subject", WizardHandoff{GradeLevel: "7th grade", Duration: "4 weeks"}},
		{"missing grade level", WizardHandoff{Subject: "History", Duration: "4 weeks"}},
		{"missing duration", WizardHandoff{Subject: "History", GradeLevel: "7th grade"}},
		{"whitespace subject", WizardHandoff{Subject: "  ", GradeLevel: "7th grade", Duration: "4 weeks"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.handoff.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrMissingHandoffField) {
				t.Errorf("expected ErrMissingHandoffField, got %v", err)
			}
		})
	}
}

func TestWizardHandoffOptionalFields(t *testing.T) {
	h := WizardHandoff{Subject: "Art", GradeLevel: "5th grade", Duration: "2 weeks"}
	if err := h.Validate(); err != nil {
		t.Errorf("handoff without location/materials should validate: %v", err)
	}
}

func TestSuggestionDedupeKey(t *testing.T) {
	k1 := SuggestionDedupeKey(StepBigIdea, SuggestionIdeas)
	k2 := SuggestionDedupeKey(StepBigIdea, SuggestionExamples)
	k3 := SuggestionDedupeKey(StepChallenge, SuggestionIdeas)

	if k1 == k2 || k1 == k3 || k2 == k3 {
		t.Errorf("dedupe keys must be distinct per step and kind: %s %s %s", k1, k2, k3)
	}
	if k1 != SuggestionDedupeKey(StepBigIdea, SuggestionIdeas) {
		t.Error("dedupe key must be stable")
	}
}

func TestIsValidSuggestionKind(t *testing.T) {
	for _, kind := range []SuggestionKind{SuggestionIdeas, SuggestionExamples, SuggestionWhatIf} {
		if !IsValidSuggestionKind(kind) {
			t.Errorf("kind %s should be valid", kind)
		}
	}
	if IsValidSuggestionKind("jokes") {
		t.Error("unknown kind should be invalid")
	}
}

func TestAPIResponseBuilders(t *testing.T) {
	ok := Success(map[string]string{"k": "v"})
	if ok.Status != string(APIStatusOK) {
		t.Errorf("Success status = %s", ok.Status)
	}
	if ok.Result == nil {
		t.Error("Success must carry the result")
	}

	withMsg := SuccessWithMessage("done", nil)
	if withMsg.Status != string(APIStatusOK) || withMsg.Message != "done" {
		t.Errorf("SuccessWithMessage = %+v", withMsg)
	}

	errResp := Error("boom")
	if errResp.Status != string(APIStatusError) || errResp.Message != "boom" {
		t.Errorf("Error = %+v", errResp)
	}
}
