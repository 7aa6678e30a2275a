package models

import (
	"time"

	"github.com/google/uuid"
)

// ArtifactStatus represents the lifecycle state of a recorded build
type ArtifactStatus string

const (
	ArtifactStatusPending  ArtifactStatus = "pending"
	ArtifactStatusBuilding ArtifactStatus = "building"
	ArtifactStatusBuilt    ArtifactStatus = "built"
	ArtifactStatusTesting  ArtifactStatus = "testing"
	ArtifactStatusTested   ArtifactStatus = "tested"
	ArtifactStatusFailed   ArtifactStatus = "failed"
)

// Artifact records one build of a recipe
type Artifact struct {
	ID               string            `json:"id"`
	RecipeName       string            `json:"recipe_name"`
	Version          string            `json:"version"`
	BuildNumber      int               `json:"build_number"`
	Status           ArtifactStatus    `json:"status"`
	ExitCode         int               `json:"exit_code"`
	DurationSeconds  float64           `json:"duration_seconds,omitempty"`
	Error            string            `json:"error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	StateTransitions []StateTransition `json:"state_transitions,omitempty"`
}

// StateTransition tracks artifact state changes with timestamps
type StateTransition struct {
	From      ArtifactStatus `json:"from"`
	To        ArtifactStatus `json:"to"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewArtifact creates a pending artifact for a recipe build
func NewArtifact(recipeName, version string, buildNumber int) *Artifact {
	return &Artifact{
		ID:          uuid.New().String(),
		RecipeName:  recipeName,
		Version:     version,
		BuildNumber: buildNumber,
		Status:      ArtifactStatusPending,
		CreatedAt:   time.Now(),
	}
}

// IsTerminal reports whether the artifact reached a final state
func (s ArtifactStatus) IsTerminal() bool {
	return s == ArtifactStatusTested || s == ArtifactStatusFailed
}

// ValidTransition reports whether a status change is allowed
func ValidTransition(from, to ArtifactStatus) bool {
	allowed := map[ArtifactStatus][]ArtifactStatus{
		ArtifactStatusPending:  {ArtifactStatusBuilding, ArtifactStatusFailed},
		ArtifactStatusBuilding: {ArtifactStatusBuilt, ArtifactStatusFailed},
		ArtifactStatusBuilt:    {ArtifactStatusTesting, ArtifactStatusTested, ArtifactStatusFailed},
		ArtifactStatusTesting:  {ArtifactStatusTested, ArtifactStatusFailed},
	}
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BuildMetrics aggregates store-wide build statistics
type BuildMetrics struct {
	ArtifactsByStatus  map[ArtifactStatus]int `json:"artifacts_by_status"`
	TotalBuilds        int                    `json:"total_builds"`
	AvgDurationSeconds float64                `json:"avg_duration_seconds"`
}
