// Package store provides storage backends for Blueprint sessions.
//
// This file implements a PostgreSQL-backed store for session and blueprint
// documents.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/alcove-ed/blueprint/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists documents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// SaveSession stores or replaces a session document.
func (s *PostgresStore) SaveSession(doc models.SessionDocument) error {
	doc.UpdatedAt = time.Now()
	docJSON, err := json.Marshal(doc)
	if err != nil {
		slog.Error("PostgresStore SaveSession marshal failed", "error", err, "sessionID", doc.SessionID)
		return fmt.Errorf("failed to marshal session document: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (session_id, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET document = $2, updated_at = $4`,
		doc.SessionID, string(docJSON), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", doc.SessionID)
		return fmt.Errorf("failed to save session %s: %w", doc.SessionID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", doc.SessionID, "subPhase", doc.SubPhase)
	return nil
}

// GetSession retrieves a session document, or nil when absent.
func (s *PostgresStore) GetSession(sessionID string) (*models.SessionDocument, error) {
	var docJSON string
	err := s.db.QueryRow(`SELECT document FROM sessions WHERE session_id = $1`, sessionID).Scan(&docJSON)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}

	var doc models.SessionDocument
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		slog.Error("PostgresStore GetSession unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &doc, nil
}

// DeleteSession removes a session document.
func (s *PostgresStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// ListSessionIDs returns the IDs of all stored sessions.
func (s *PostgresStore) ListSessionIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		slog.Error("PostgresStore ListSessionIDs query failed", "error", err)
		return nil, fmt.Errorf("failed to query session ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
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
func (s *PostgresStore) SaveBlueprint(blueprintID string, captured map[models.StepKey]models.CapturedField) error {
	docJSON, err := json.Marshal(captured)
	if err != nil {
		slog.Error("PostgresStore SaveBlueprint marshal failed", "error", err, "blueprintID", blueprintID)
		return fmt.Errorf("failed to marshal blueprint document: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO blueprints (blueprint_id, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (blueprint_id) DO UPDATE SET document = $2, updated_at = $3`,
		blueprintID, string(docJSON), time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveBlueprint failed", "error", err, "blueprintID", blueprintID)
		return fmt.Errorf("failed to save blueprint %s: %w", blueprintID, err)
	}
	return nil
}

// GetBlueprint retrieves a blueprint document, or nil when absent.
func (s *PostgresStore) GetBlueprint(blueprintID string) (map[models.StepKey]models.CapturedField, error) {
	var docJSON string
	err := s.db.QueryRow(`SELECT document FROM blueprints WHERE blueprint_id = $1`, blueprintID).Scan(&docJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetBlueprint failed", "error", err, "blueprintID", blueprintID)
		return nil, fmt.Errorf("failed to query blueprint %s: %w", blueprintID, err)
	}

	captured := make(map[models.StepKey]models.CapturedField)
	if err := json.Unmarshal([]byte(docJSON), &captured); err != nil {
		slog.Error("PostgresStore GetBlueprint unmarshal failed", "error", err, "blueprintID", blueprintID)
		return nil, fmt.Errorf("failed to unmarshal blueprint %s: %w", blueprintID, err)
	}
	return captured, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore Close invoked")
	return s.db.Close()
}
