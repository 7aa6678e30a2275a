package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/bokulich-lab/q2pkg/pkg/models"
	"github.com/bokulich-lab/q2pkg/pkg/retry"
)

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store. The initial ping is
// retried with backoff: CI databases often accept connections before
// they finish recovery.
func NewPostgresStore(ctx context.Context, config PostgresConfig) (*PostgresStore, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		recipe_name TEXT NOT NULL,
		version TEXT NOT NULL,
		build_number INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL DEFAULT 0,
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		state_transitions JSONB NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_status ON artifacts(status);
	CREATE INDEX IF NOT EXISTS idx_artifacts_recipe ON artifacts(recipe_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateArtifact inserts an artifact row
func (s *PostgresStore) CreateArtifact(artifact *models.Artifact) error {
	transitions, err := json.Marshal(artifact.StateTransitions)
	if err != nil {
		return fmt.Errorf("failed to marshal state transitions: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO artifacts (id, recipe_name, version, build_number, status,
			exit_code, duration_seconds, error, created_at, started_at, completed_at, state_transitions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		artifact.ID, artifact.RecipeName, artifact.Version, artifact.BuildNumber,
		string(artifact.Status), artifact.ExitCode, artifact.DurationSeconds, artifact.Error,
		artifact.CreatedAt, artifact.StartedAt, artifact.CompletedAt, string(transitions))
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an artifact by ID
func (s *PostgresStore) GetArtifact(id string) (*models.Artifact, error) {
	row := s.db.QueryRow(`
		SELECT id, recipe_name, version, build_number, status, exit_code,
			duration_seconds, error, created_at, started_at, completed_at, state_transitions
		FROM artifacts WHERE id = $1`, id)
	return scanArtifact(row)
}

// GetAllArtifacts returns all artifacts, newest first
func (s *PostgresStore) GetAllArtifacts() []*models.Artifact {
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
func (s *PostgresStore) GetArtifactsByStatus(status models.ArtifactStatus) []*models.Artifact {
	rows, err := s.db.Query(`
		SELECT id, recipe_name, version, build_number, status, exit_code,
			duration_seconds, error, created_at, started_at, completed_at, state_transitions
		FROM artifacts WHERE status = $1 ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil
	}
	defer rows.Close()
	return collectArtifacts(rows)
}

// UpdateArtifactStatus transitions an artifact and appends the change record
func (s *PostgresStore) UpdateArtifactStatus(id string, status models.ArtifactStatus, reason string) error {
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
		UPDATE artifacts SET status = $1, started_at = $2, completed_at = $3, state_transitions = $4
		WHERE id = $5`,
		string(status), startedAt, completedAt, string(transitions), id)
	if err != nil {
		return fmt.Errorf("failed to update artifact status: %w", err)
	}
	return nil
}

// UpdateArtifactResult records the outcome of the last executed phase
func (s *PostgresStore) UpdateArtifactResult(id string, exitCode int, durationSeconds float64, errorMsg string) error {
	result, err := s.db.Exec(`
		UPDATE artifacts SET exit_code = $1, duration_seconds = $2, error = $3
		WHERE id = $4`, exitCode, durationSeconds, errorMsg, id)
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
func (s *PostgresStore) DeleteArtifact(id string) error {
	result, err := s.db.Exec(`DELETE FROM artifacts WHERE id = $1`, id)
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
func (s *PostgresStore) GetBuildMetrics() (*models.BuildMetrics, error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
