package models

import "testing"

func TestNewArtifact(t *testing.T) {
	artifact := NewArtifact("q2-amrfinderplus", "2024.5.0", 0)

	if artifact.ID == "" {
		t.Error("expected generated ID")
	}
	if artifact.Status != ArtifactStatusPending {
		t.Errorf("status = %q, want pending", artifact.Status)
	}
	if artifact.RecipeName != "q2-amrfinderplus" {
		t.Errorf("recipe name = %q", artifact.RecipeName)
	}
	if artifact.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to ArtifactStatus
		want     bool
	}{
		{ArtifactStatusPending, ArtifactStatusBuilding, true},
		{ArtifactStatusBuilding, ArtifactStatusBuilt, true},
		{ArtifactStatusBuilt, ArtifactStatusTesting, true},
		{ArtifactStatusBuilt, ArtifactStatusTested, true}, // --skip-test promotion
		{ArtifactStatusTesting, ArtifactStatusTested, true},
		{ArtifactStatusBuilding, ArtifactStatusFailed, true},
		{ArtifactStatusPending, ArtifactStatusTested, false},
		{ArtifactStatusTested, ArtifactStatusBuilding, false},
		{ArtifactStatusFailed, ArtifactStatusBuilding, false},
		{ArtifactStatusBuilding, ArtifactStatusPending, false},
	}

	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []ArtifactStatus{ArtifactStatusTested, ArtifactStatusFailed} {
		if !status.IsTerminal() {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []ArtifactStatus{ArtifactStatusPending, ArtifactStatusBuilding, ArtifactStatusBuilt, ArtifactStatusTesting} {
		if status.IsTerminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}
