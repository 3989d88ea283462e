package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alcove-ed/blueprint/internal/models"
)

func sampleDoc(id string) models.SessionDocument {
	now := time.Now()
	return models.SessionDocument{
		SessionID: id,
		Handoff:   models.WizardHandoff{Subject: "Science", GradeLevel: "8th grade", Duration: "3 weeks"},
		Stage:     models.StageIdeation,
		Step:      models.StepBigIdea,
		SubPhase:  models.SubPhaseStepEntry,
		Captured:  map[models.StepKey]models.CapturedField{},
		History: []models.Message{
			{ID: "m1", Role: models.RoleSystem, Content: "SESSION CONTEXT", Pinned: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInMemorySessionRoundTrip(t *testing.T) {
	st := NewInMemoryStore()
	doc := sampleDoc("s1")
	doc.Captured[models.StepBigIdea] = models.CapturedField{
		Step: models.StepBigIdea, Text: "Culture shapes cities", CapturedAt: time.Now(),
	}

	if err := st.SaveSession(doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := st.GetSession("s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("session not found after save")
	}
	if got.Handoff.Subject != "Science" {
		t.Errorf("handoff lost: %+v", got.Handoff)
	}
	if got.Captured[models.StepBigIdea].Text != "Culture shapes cities" {
		t.Errorf("captured field lost: %+v", got.Captured)
	}
	if len(got.History) != 1 || !got.History[0].Pinned {
		t.Errorf("history lost: %+v", got.History)
	}
}

func TestInMemorySessionCopyIsolation(t *testing.T) {
	st := NewInMemoryStore()
	doc := sampleDoc("s1")
	if err := st.SaveSession(doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Writes through a loaded snapshot must not reach the stored document.
	got, _ := st.GetSession("s1")
	got.Captured[models.StepBigIdea] = models.CapturedField{Step: models.StepBigIdea, Text: "mutated"}
	got.History = append(got.History, models.Message{ID: "m2", Role: models.RoleUser, Content: "extra"})

	again, _ := st.GetSession("s1")
	if _, ok := again.Captured[models.StepBigIdea]; ok {
		t.Error("stored captured map mutated through returned snapshot")
	}
	if len(again.History) != 1 {
		t.Errorf("stored history mutated through returned snapshot: %d messages", len(again.History))
	}

	// Nor must later mutation of the saved document leak into the store.
	doc.Captured[models.StepChallenge] = models.CapturedField{Step: models.StepChallenge, Text: "leaked"}
	again, _ = st.GetSession("s1")
	if _, ok := again.Captured[models.StepChallenge]; ok {
		t.Error("stored captured map aliases the caller's document")
	}
}

func TestInMemoryConcurrentReadWrite(t *testing.T) {
	st := NewInMemoryStore()
	if err := st.SaveSession(sampleDoc("s1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			doc, _ := st.GetSession("s1")
			doc.Captured[models.StepBigIdea] = models.CapturedField{Step: models.StepBigIdea, Text: "Rivers connect us"}
			if err := st.SaveSession(*doc); err != nil {
				t.Errorf("save failed: %v", err)
				return
			}
		}
	}()
	for i := 0; i < 200; i++ {
		doc, _ := st.GetSession("s1")
		if _, err := json.Marshal(doc); err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
	}
	<-done
}

func TestInMemoryGetMissingSession(t *testing.T) {
	st := NewInMemoryStore()
	got, err := st.GetSession("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing session, got %+v", got)
	}
}

func TestInMemoryDeleteSession(t *testing.T) {
	st := NewInMemoryStore()
	if err := st.SaveSession(sampleDoc("s1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := st.DeleteSession("s1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, _ := st.GetSession("s1")
	if got != nil {
		t.Error("session still present after delete")
	}
}

func TestInMemoryListSessionIDs(t *testing.T) {
	st := NewInMemoryStore()
	for _, id := range []string{"c", "a", "b"} {
		if err := st.SaveSession(sampleDoc(id)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	ids, err := st.ListSessionIDs()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids not sorted: got %v", ids)
			break
		}
	}
}

func TestInMemoryBlueprintRoundTrip(t *testing.T) {
	st := NewInMemoryStore()
	captured := map[models.StepKey]models.CapturedField{
		models.StepBigIdea: {Step: models.StepBigIdea, Text: "Water connects everything"},
	}

	if err := st.SaveBlueprint("s1", captured); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := st.GetBlueprint("s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got[models.StepBigIdea].Text != "Water connects everything" {
		t.Errorf("blueprint field lost: %+v", got)
	}

	// Mutating the returned copy must not corrupt the stored document.
	got[models.StepBigIdea] = models.CapturedField{Text: "mutated"}
	again, _ := st.GetBlueprint("s1")
	if again[models.StepBigIdea].Text != "Water connects everything" {
		t.Error("stored blueprint mutated through returned copy")
	}
}

func TestInMemoryGetMissingBlueprint(t *testing.T) {
	st := NewInMemoryStore()
	got, err := st.GetBlueprint("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing blueprint, got %+v", got)
	}
}

func TestIsPostgresDSN(t *testing.T) {
	cases := map[string]bool{
		"postgres://user:pw@localhost/db":   true,
		"postgresql://user:pw@localhost/db": true,
		"/var/lib/blueprint/blueprint.db":   false,
		"":                                  false,
	}
	for dsn, want := range cases {
		if got := IsPostgresDSN(dsn); got != want {
			t.Errorf("IsPostgresDSN(%q) = %v, want %v", dsn, got, want)
		}
	}
}
