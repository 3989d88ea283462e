// Package flow provides concrete implementations of state management.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/alcove-ed/blueprint/internal/models"
	"github.com/alcove-ed/blueprint/internal/store"
)

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// LoadSession retrieves the session document for a session.
func (sm *StoreBasedStateManager) LoadSession(ctx context.Context, sessionID string) (*models.SessionDocument, error) {
	slog.Debug("StateManager LoadSession", "sessionID", sessionID)

	doc, err := sm.store.GetSession(sessionID)
	if err != nil {
		slog.Error("StateManager LoadSession error", "error", err, "sessionID", sessionID)
		return nil, err
	}
	if doc == nil {
		slog.Debug("StateManager LoadSession not found", "sessionID", sessionID)
		return nil, nil
	}

	slog.Debug("StateManager LoadSession found", "sessionID", sessionID, "stage", doc.Stage, "step", doc.Step, "subPhase", doc.SubPhase)
	return doc, nil
}

// SaveSession stores or replaces the session document.
func (sm *StoreBasedStateManager) SaveSession(ctx context.Context, doc *models.SessionDocument) error {
	doc.UpdatedAt = time.Now()
	if err := sm.store.SaveSession(*doc); err != nil {
		slog.Error("StateManager SaveSession error", "error", err, "sessionID", doc.SessionID)
		return err
	}
	slog.Debug("StateManager SaveSession succeeded", "sessionID", doc.SessionID, "stage", doc.Stage, "step", doc.Step, "subPhase", doc.SubPhase)
	return nil
}

// SaveBlueprint persists the captured-field document for a session.
func (sm *StoreBasedStateManager) SaveBlueprint(ctx context.Context, sessionID string, captured map[models.StepKey]models.CapturedField) error {
	if err := sm.store.SaveBlueprint(sessionID, captured); err != nil {
		slog.Error("StateManager SaveBlueprint error", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Debug("StateManager SaveBlueprint succeeded", "sessionID", sessionID, "fields", len(captured))
	return nil
}

// DeleteSession removes all state for a session.
func (sm *StoreBasedStateManager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := sm.store.DeleteSession(sessionID); err != nil {
		slog.Error("StateManager DeleteSession error", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Info("StateManager DeleteSession succeeded", "sessionID", sessionID)
	return nil
}
