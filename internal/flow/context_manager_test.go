package flow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/alcove-ed/blueprint/internal/models"
)

func docWithHistory(n int, pinnedEvery int) *models.SessionDocument {
	doc := &models.SessionDocument{
		SessionID: "ctx-test",
		Handoff:   testHandoff(),
		Stage:     models.StageIdeation,
		Step:      models.StepBigIdea,
		SubPhase:  models.SubPhaseStepEntry,
		Captured:  map[models.StepKey]models.CapturedField{},
	}
	cm := NewContextManager(0, 0)
	for i := 0; i < n; i++ {
		msg := models.Message{
			ID:      fmt.Sprintf("m%d", i),
			Role:    models.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		}
		if pinnedEvery > 0 && i%pinnedEvery == 0 {
			msg.Pinned = true
		}
		cm.Append(doc, msg)
	}
	return doc
}

func TestAppendEnforcesBound(t *testing.T) {
	doc := docWithHistory(200, 0)

	if len(doc.History) != DefaultMaxHistory {
		t.Errorf("history not bounded: %d messages, max %d", len(doc.History), DefaultMaxHistory)
	}
	// The newest messages survive trimming.
	last := doc.History[len(doc.History)-1]
	if last.Content != "message 199" {
		t.Errorf("newest message lost: %q", last.Content)
	}
}

func TestAppendNeverTrimsPinned(t *testing.T) {
	doc := docWithHistory(200, 10) // 20 pinned messages across the stream

	pinned := 0
	for _, m := range doc.History {
		if m.Pinned {
			pinned++
		}
	}
	if pinned != 20 {
		t.Errorf("pinned messages trimmed: %d of 20 survive", pinned)
	}
	if len(doc.History) > DefaultMaxHistory {
		t.Errorf("history exceeds bound: %d", len(doc.History))
	}
	// The very first pinned message (oldest) must still be present.
	if doc.History[0].ID != "m0" {
		t.Errorf("oldest pinned message lost, history starts at %s", doc.History[0].ID)
	}
}

func TestRelevantContextRecentWindow(t *testing.T) {
	cm := NewContextManager(0, 0)
	doc := docWithHistory(40, 0)

	rc := cm.RelevantContext(doc, "", models.StageIdeation)

	if len(rc.Recent) != DefaultRecentWindow {
		t.Errorf("recent window = %d, want %d", len(rc.Recent), DefaultRecentWindow)
	}
	if rc.Recent[len(rc.Recent)-1].Content != "message 39" {
		t.Errorf("recent window missing newest message: %q", rc.Recent[len(rc.Recent)-1].Content)
	}
}

func TestRelevantContextIncludesPinnedOutsideWindow(t *testing.T) {
	cm := NewContextManager(0, 0)
	doc := docWithHistory(40, 0)
	// Pin one message far outside the recent window.
	doc.History[0].Pinned = true

	rc := cm.RelevantContext(doc, "", models.StageIdeation)

	found := false
	for _, m := range rc.Related {
		if m.ID == doc.History[0].ID {
			found = true
		}
	}
	if !found {
		t.Error("pinned message outside recent window not included in related context")
	}
}

func TestSummarizeKeyDecisions(t *testing.T) {
	cm := NewContextManager(0, 0)
	doc := docWithHistory(5, 0)
	doc.Captured[models.StepBigIdea] = models.CapturedField{
		Step: models.StepBigIdea, Text: "Culture shapes cities",
	}
	doc.Captured[models.StepChallenge] = models.CapturedField{
		Step: models.StepChallenge, Text: "Redesign a public space",
	}

	rc := cm.RelevantContext(doc, "", models.StageIdeation)

	if len(rc.Summary.KeyDecisions) != 2 {
		t.Fatalf("expected 2 key decisions, got %d", len(rc.Summary.KeyDecisions))
	}
	if !strings.Contains(rc.Summary.KeyDecisions[0], "Culture shapes cities") {
		t.Errorf("big idea missing from decisions: %v", rc.Summary.KeyDecisions)
	}
}

func TestBuildMessagesOrdering(t *testing.T) {
	cm := NewContextManager(0, 0)
	doc := &models.SessionDocument{
		SessionID: "ctx-test",
		Stage:     models.StageIdeation,
		Captured:  map[models.StepKey]models.CapturedField{},
	}
	cm.Append(doc, models.Message{ID: "p", Role: models.RoleSystem, Content: "SESSION CONTEXT: subject=Art", Pinned: true})
	cm.Append(doc, models.Message{ID: "u", Role: models.RoleUser, Content: "hello"})
	cm.Append(doc, models.Message{ID: "a", Role: models.RoleAssistant, Content: "welcome"})

	messages := cm.BuildMessages(doc, "You are a coach.", "")

	if len(messages) < 3 {
		t.Fatalf("expected at least 3 messages, got %d", len(messages))
	}
	// The configured system prompt always leads.
	first := messages[0].OfSystem
	if first == nil || first.Content.OfString.Value != "You are a coach." {
		t.Errorf("system prompt not first: %+v", messages[0])
	}
	// The trailing turns arrive in conversation order.
	last := messages[len(messages)-1].OfAssistant
	if last == nil || last.Content.OfString.Value != "welcome" {
		t.Errorf("assistant turn not last: %+v", messages[len(messages)-1])
	}
}

func TestStats(t *testing.T) {
	cm := NewContextManager(30, 5)
	doc := docWithHistory(10, 5)
	doc.Captured[models.StepBigIdea] = models.CapturedField{Step: models.StepBigIdea, Text: "Rivers connect us"}

	stats := cm.Stats(doc)

	if stats.TotalMessages != 10 {
		t.Errorf("total = %d", stats.TotalMessages)
	}
	if stats.PinnedMessages != 2 {
		t.Errorf("pinned = %d", stats.PinnedMessages)
	}
	if stats.CapturedFields != 1 {
		t.Errorf("captured = %d", stats.CapturedFields)
	}
	if stats.MaxHistory != 30 || stats.RecentWindowSize != 5 {
		t.Errorf("bounds = %d/%d", stats.MaxHistory, stats.RecentWindowSize)
	}
}

func TestFormattedContext(t *testing.T) {
	cm := NewContextManager(0, 0)
	doc := docWithHistory(3, 0)
	doc.Step = models.StepBigIdea

	out := cm.FormattedContext(doc)

	if !strings.Contains(out, "ctx-test") {
		t.Errorf("session ID missing from formatted context:\n%s", out)
	}
	if !strings.Contains(out, "message 2") {
		t.Errorf("recent message missing from formatted context:\n%s", out)
	}
}
