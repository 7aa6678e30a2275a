package store

import (
	"errors"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Store defines the interface for build artifact persistence.
// Memory, SQLite and PostgreSQL implement this interface.
type Store interface {
	CreateArtifact(artifact *models.Artifact) error
	GetArtifact(id string) (*models.Artifact, error)
	GetAllArtifacts() []*models.Artifact
	GetArtifactsByStatus(status models.ArtifactStatus) []*models.Artifact
	UpdateArtifactStatus(id string, status models.ArtifactStatus, reason string) error
	UpdateArtifactResult(id string, exitCode int, durationSeconds float64, errorMsg string) error
	DeleteArtifact(id string) error

	// GetBuildMetrics aggregates counts and durations for the exporter
	GetBuildMetrics() (*models.BuildMetrics, error)

	Close() error
}
