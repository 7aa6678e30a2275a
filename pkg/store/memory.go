package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

// MemoryStore is an in-memory implementation of the artifact store
type MemoryStore struct {
	artifacts map[string]*models.Artifact
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		artifacts: make(map[string]*models.Artifact),
	}
}

// CreateArtifact adds an artifact to the store
func (s *MemoryStore) CreateArtifact(artifact *models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.artifacts[artifact.ID]; exists {
		return fmt.Errorf("artifact %s already exists", artifact.ID)
	}
	s.artifacts[artifact.ID] = artifact
	return nil
}

// GetArtifact retrieves an artifact by ID
func (s *MemoryStore) GetArtifact(id string) (*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, ok := s.artifacts[id]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return artifact, nil
}

// GetAllArtifacts returns all artifacts, newest first
func (s *MemoryStore) GetAllArtifacts() []*models.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifacts := make([]*models.Artifact, 0, len(s.artifacts))
	for _, artifact := range s.artifacts {
		artifacts = append(artifacts, artifact)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts
}

// GetArtifactsByStatus returns all artifacts in the given state
func (s *MemoryStore) GetArtifactsByStatus(status models.ArtifactStatus) []*models.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var artifacts []*models.Artifact
	for _, artifact := range s.artifacts {
		if artifact.Status == status {
			artifacts = append(artifacts, artifact)
		}
	}
	return artifacts
}

// UpdateArtifactStatus transitions an artifact and records the change
func (s *MemoryStore) UpdateArtifactStatus(id string, status models.ArtifactStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact, ok := s.artifacts[id]
	if !ok {
		return ErrArtifactNotFound
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

	if status == models.ArtifactStatusBuilding && artifact.StartedAt == nil {
		artifact.StartedAt = &now
	}
	if status.IsTerminal() {
		artifact.CompletedAt = &now
	}
	artifact.Status = status
	return nil
}

// UpdateArtifactResult records the outcome of the last executed phase
func (s *MemoryStore) UpdateArtifactResult(id string, exitCode int, durationSeconds float64, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact, ok := s.artifacts[id]
	if !ok {
		return ErrArtifactNotFound
	}
	artifact.ExitCode = exitCode
	artifact.DurationSeconds = durationSeconds
	artifact.Error = errorMsg
	return nil
}

// DeleteArtifact removes an artifact from the store
func (s *MemoryStore) DeleteArtifact(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.artifacts[id]; !ok {
		return ErrArtifactNotFound
	}
	delete(s.artifacts, id)
	return nil
}

// GetBuildMetrics aggregates store-wide build statistics
func (s *MemoryStore) GetBuildMetrics() (*models.BuildMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := &models.BuildMetrics{
		ArtifactsByStatus: make(map[models.ArtifactStatus]int),
	}

	var totalDuration float64
	var completed int
	for _, artifact := range s.artifacts {
		metrics.ArtifactsByStatus[artifact.Status]++
		metrics.TotalBuilds++
		if artifact.Status.IsTerminal() && artifact.DurationSeconds > 0 {
			totalDuration += artifact.DurationSeconds
			completed++
		}
	}
	if completed > 0 {
		metrics.AvgDurationSeconds = totalDuration / float64(completed)
	}
	return metrics, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}
