// Package store provides storage backends for Blueprint sessions.
//
// It includes an in-memory store plus SQLite and PostgreSQL persistent
// backends. Session documents are stored whole as JSON; last write wins
// within a session, which is safe because a session has exactly one owner.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alcove-ed/blueprint/internal/models"
)

// Store defines the persistence boundary for session and blueprint documents.
type Store interface {
	// SaveSession stores or replaces a session document.
	SaveSession(doc models.SessionDocument) error
	// GetSession retrieves a session document, or nil when absent.
	GetSession(sessionID string) (*models.SessionDocument, error)
	// DeleteSession removes a session document.
	DeleteSession(sessionID string) error
	// ListSessionIDs returns the IDs of all stored sessions.
	ListSessionIDs() ([]string, error)
	// SaveBlueprint stores the captured-field document for a completed (or
	// in-progress) blueprint.
	SaveBlueprint(blueprintID string, captured map[models.StepKey]models.CapturedField) error
	// GetBlueprint retrieves a blueprint document, or nil when absent.
	GetBlueprint(blueprintID string) (map[models.StepKey]models.CapturedField, error)
	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the database DSN (file path for SQLite, URL for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// IsPostgresDSN reports whether a DSN selects the Postgres backend.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// InMemoryStore is a mutex-guarded map store. It backs tests and the
// degraded mode used when a persistent backend is unavailable.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]models.SessionDocument
	blueprints map[string]map[models.StepKey]models.CapturedField
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[string]models.SessionDocument),
		blueprints: make(map[string]map[models.StepKey]models.CapturedField),
	}
}

// SaveSession stores or replaces a session document.
func (s *InMemoryStore) SaveSession(doc models.SessionDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.UpdatedAt = time.Now()
	s.sessions[doc.SessionID] = cloneSession(doc)
	return nil
}

// GetSession retrieves a session document, or nil when absent.
func (s *InMemoryStore) GetSession(sessionID string) (*models.SessionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := cloneSession(doc)
	return &cp, nil
}

// cloneSession copies the document's maps and slices so that callers and the
// store never share mutable state. Concurrent handlers load and marshal
// snapshots while the engine writes; the persistent backends get this
// isolation from JSON serialization, the in-memory store needs it explicitly.
func cloneSession(doc models.SessionDocument) models.SessionDocument {
	if doc.Captured != nil {
		captured := make(map[models.StepKey]models.CapturedField, len(doc.Captured))
		for k, v := range doc.Captured {
			captured[k] = v
		}
		doc.Captured = captured
	}
	if doc.Suggestions != nil {
		suggestions := make(map[string]string, len(doc.Suggestions))
		for k, v := range doc.Suggestions {
			suggestions[k] = v
		}
		doc.Suggestions = suggestions
	}
	if doc.History != nil {
		doc.History = append([]models.Message(nil), doc.History...)
	}
	if doc.Pending != nil {
		pending := *doc.Pending
		if pending.Content != nil {
			content := *pending.Content
			content.Items = append([]models.ContentItem(nil), content.Items...)
			pending.Content = &content
		}
		doc.Pending = &pending
	}
	return doc
}

// DeleteSession removes a session document.
func (s *InMemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// ListSessionIDs returns the IDs of all stored sessions.
func (s *InMemoryStore) ListSessionIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveBlueprint stores a blueprint document.
func (s *InMemoryStore) SaveBlueprint(blueprintID string, captured map[models.StepKey]models.CapturedField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[models.StepKey]models.CapturedField, len(captured))
	for k, v := range captured {
		cp[k] = v
	}
	s.blueprints[blueprintID] = cp
	return nil
}

// GetBlueprint retrieves a blueprint document, or nil when absent.
func (s *InMemoryStore) GetBlueprint(blueprintID string) (map[models.StepKey]models.CapturedField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.blueprints[blueprintID]
	if !ok {
		return nil, nil
	}
	cp := make(map[models.StepKey]models.CapturedField, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return cp, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
