package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the artifact store
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL for concurrency, busy timeout for lock contention, immediate
	// txlock so write transactions fail fast instead of deadlocking
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		recipe_name TEXT NOT NULL,
		version TEXT NOT NULL,
		build_number INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL DEFAULT 0,
		duration_seconds REAL NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		completed_at TIMESTAMP,
		state_transitions TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_status ON artifacts(status);
	CREATE INDEX IF NOT EXISTS idx_artifacts_recipe ON artifacts(recipe_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateArtifact inserts an artifact row
func (s *SQLiteStore) CreateArtifact(artifact *models.Artifact) error {
	transitions, err := json.Marshal(artifact.StateTransitions)
	if err != nil {
		return fmt.Errorf("failed to marshal state transitions: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO artifacts (id, recipe_name, version, build_number, status,
			exit_code, duration_seconds, error, created_at, started_at, completed_at, state_transitions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.RecipeName, artifact.Version, artifact.BuildNumber,
		string(artifact.Status), artifact.ExitCode, artifact.DurationSeconds, artifact.Error,
		artifact.CreatedAt, artifact.StartedAt, artifact.CompletedAt, string(transitions))
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an artifact by ID
func (s *SQLiteStore) GetArtifact(id string) (*models.Artifact, error) {
	row := s.db.QueryRow(`
		SELECT id, recipe_name, version, build_number, status, exit_code,
			duration_seconds, error, created_at, started_at, completed_at, state_transitions
		FROM artifacts WHERE id = ?`, id)
	return scanArtifact(row)
}

// GetAllArtifacts returns all artifacts, newest first
func (s *SQLiteStore) GetAllArtifacts() []*models.Artifact {
	rows, err := s.db.Query(`
		SELECT id, recipe_name, version, build_number, status, exit_code,
			duration_seconds, error, created_at, started_at, completed_at, state_transitions
		FROM artifacts ORDER BY created_at DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	return collectArtifacts(rows)
}

// GetArtifactsByStatus returns all artifacts in the given state
func (s *SQLiteStore) GetArtifactsByStatus(status models.ArtifactStatus) []*models.Artifact {
	rows, err := s.db.Query(`
		SELECT id, recipe_name, version, build_number, status, exit_code,
			duration_seconds, error, created_at, started_at, completed_at, state_transitions
		FROM artifacts WHERE status = ? ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil
	}
	defer rows.Close()
	return collectArtifacts(rows)
}

// UpdateArtifactStatus transitions an artifact and appends the change record
func (s *SQLiteStore) UpdateArtifactStatus(id string, status models.ArtifactStatus, reason string) error {
	artifact, err := s.GetArtifact(id)
	if err != nil {
		return err
	}
	if !models.ValidTransition(artifact.Status, status) {
		return fmt.Errorf("invalid transition %s -> %s for artifact %s", artifact.Status, status, id)
	}

	now := time.Now()
	artifact.StateTransitions = append(artifact.StateTransitions, models.StateTransition{
		From:      artifact.Status,
		To:        status,
		Reason:    reason,
		Timestamp: now,
	})
	transitions, err := json.Marshal(artifact.StateTransitions)
	if err != nil {
		return fmt.Errorf("failed to marshal state transitions: %w", err)
	}

	startedAt := artifact.StartedAt
	if status == models.ArtifactStatusBuilding && startedAt == nil {
		startedAt = &now
	}
	completedAt := artifact.CompletedAt
	if status.IsTerminal() {
		completedAt = &now
	}

	_, err = s.db.Exec(`
		UPDATE artifacts SET status = ?, started_at = ?, completed_at = ?, state_transitions = ?
		WHERE id = ?`,
		string(status), startedAt, completedAt, string(transitions), id)
	if err != nil {
		return fmt.Errorf("failed to update artifact status: %w", err)
	}
	return nil
}

// UpdateArtifactResult records the outcome of the last executed phase
func (s *SQLiteStore) UpdateArtifactResult(id string, exitCode int, durationSeconds float64, errorMsg string) error {
	result, err := s.db.Exec(`
		UPDATE artifacts SET exit_code = ?, duration_seconds = ?, error = ?
		WHERE id = ?`, exitCode, durationSeconds, errorMsg, id)
	if err != nil {
		return fmt.Errorf("failed to update artifact result: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

// DeleteArtifact removes an artifact row
func (s *SQLiteStore) DeleteArtifact(id string) error {
	result, err := s.db.Exec(`DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

// GetBuildMetrics aggregates counts and durations without loading all rows
func (s *SQLiteStore) GetBuildMetrics() (*models.BuildMetrics, error) {
	metrics := &models.BuildMetrics{
		ArtifactsByStatus: make(map[models.ArtifactStatus]int),
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM artifacts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		metrics.ArtifactsByStatus[models.ArtifactStatus(status)] = count
		metrics.TotalBuilds += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`
		SELECT COALESCE(AVG(duration_seconds), 0) FROM artifacts
		WHERE completed_at IS NOT NULL AND duration_seconds > 0`)
	if err := row.Scan(&metrics.AvgDurationSeconds); err != nil {
		return nil, err
	}

	return metrics, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row rowScanner) (*models.Artifact, error) {
	var artifact models.Artifact
	var status, transitions string
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&artifact.ID, &artifact.RecipeName, &artifact.Version,
		&artifact.BuildNumber, &status, &artifact.ExitCode, &artifact.DurationSeconds,
		&artifact.Error, &artifact.CreatedAt, &startedAt, &completedAt, &transitions)
	if err == sql.ErrNoRows {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}

	artifact.Status = models.ArtifactStatus(status)
	if startedAt.Valid {
		artifact.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		artifact.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(transitions), &artifact.StateTransitions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state transitions: %w", err)
	}

	return &artifact, nil
}

func collectArtifacts(rows *sql.Rows) []*models.Artifact {
	var artifacts []*models.Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts
}
