// Package store provides storage backends for Blueprint sessions.
//
// This file implements an SQLite-backed store for session and blueprint
// documents.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/alcove-ed/blueprint/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists documents in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveSession stores or replaces a session document.
func (s *SQLiteStore) SaveSession(doc models.SessionDocument) error {
	doc.UpdatedAt = time.Now()
	docJSON, err := json.Marshal(doc)
	if err != nil {
		slog.Error("SQLiteStore SaveSession marshal failed", "error", err, "sessionID", doc.SessionID)
		return fmt.Errorf("failed to marshal session document: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (session_id, document, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		doc.SessionID, string(docJSON), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sessionID", doc.SessionID)
		return fmt.Errorf("failed to save session %s: %w", doc.SessionID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "sessionID", doc.SessionID, "subPhase", doc.SubPhase)
	return nil
}

// GetSession retrieves a session document, or nil when absent.
func (s *SQLiteStore) GetSession(sessionID string) (*models.SessionDocument, error) {
	var docJSON string
	err := s.db.QueryRow(`SELECT document FROM sessions WHERE session_id = ?`, sessionID).Scan(&docJSON)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}

	var doc models.SessionDocument
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		slog.Error("SQLiteStore GetSession unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &doc, nil
}

// DeleteSession removes a session document.
func (s *SQLiteStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "sessionID", sessionID)
	return nil
}

// ListSessionIDs returns the IDs of all stored sessions.
func (s *SQLiteStore) ListSessionIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		slog.Error("SQLiteStore ListSessionIDs query failed", "error", err)
		return nil, fmt.Errorf("failed to query session ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Error("SQLiteStore ListSessionIDs scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session ids: %w", err)
	}
	return ids, nil
}

// SaveBlueprint stores a blueprint document.
func (s *SQLiteStore) SaveBlueprint(blueprintID string, captured map[models.StepKey]models.CapturedField) error {
	docJSON, err := json.Marshal(captured)
	if err != nil {
		slog.Error("SQLiteStore SaveBlueprint marshal failed", "error", err, "blueprintID", blueprintID)
		return fmt.Errorf("failed to marshal blueprint document: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO blueprints (blueprint_id, document, updated_at)
		VALUES (?, ?, ?)`,
		blueprintID, string(docJSON), time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveBlueprint failed", "error", err, "blueprintID", blueprintID)
		return fmt.Errorf("failed to save blueprint %s: %w", blueprintID, err)
	}
	slog.Debug("SQLiteStore SaveBlueprint succeeded", "blueprintID", blueprintID, "fields", len(captured))
	return nil
}

// GetBlueprint retrieves a blueprint document, or nil when absent.
func (s *SQLiteStore) GetBlueprint(blueprintID string) (map[models.StepKey]models.CapturedField, error) {
	var docJSON string
	err := s.db.QueryRow(`SELECT document FROM blueprints WHERE blueprint_id = ?`, blueprintID).Scan(&docJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetBlueprint failed", "error", err, "blueprintID", blueprintID)
		return nil, fmt.Errorf("failed to query blueprint %s: %w", blueprintID, err)
	}

	captured := make(map[models.StepKey]models.CapturedField)
	if err := json.Unmarshal([]byte(docJSON), &captured); err != nil {
		slog.Error("SQLiteStore GetBlueprint unmarshal failed", "error", err, "blueprintID", blueprintID)
		return nil, fmt.Errorf("failed to unmarshal blueprint %s: %w", blueprintID, err)
	}
	return captured, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore Close invoked")
	return s.db.Close()
}
