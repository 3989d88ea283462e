// Package flow defines state management interfaces for the design session
// state machine.
package flow

import (
	"context"

	"github.com/alcove-ed/blueprint/internal/models"
)

// StateManager defines the interface for loading and persisting session
// documents. The engine persists through it after every mutation.
type StateManager interface {
	// LoadSession retrieves the session document, or nil when absent
	LoadSession(ctx context.Context, sessionID string) (*models.SessionDocument, error)

	// SaveSession stores or replaces the session document
	SaveSession(ctx context.Context, doc *models.SessionDocument) error

	// SaveBlueprint persists the captured-field document for a session
	SaveBlueprint(ctx context.Context, sessionID string, captured map[models.StepKey]models.CapturedField) error

	// DeleteSession removes all state for a session
	DeleteSession(ctx context.Context, sessionID string) error
}
