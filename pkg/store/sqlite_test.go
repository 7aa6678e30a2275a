package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_artifacts.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-shm")
		os.Remove(dbPath + "-wal")
	})
	return s
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)

	artifact := models.NewArtifact("q2-amrfinderplus", "2024.5.0", 0)
	if err := s.CreateArtifact(artifact); err != nil {
		t.Fatalf("CreateArtifact failed: %v", err)
	}

	got, err := s.GetArtifact(artifact.ID)
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if got.RecipeName != "q2-amrfinderplus" || got.Version != "2024.5.0" {
		t.Errorf("unexpected artifact: %+v", got)
	}
	if got.Status != models.ArtifactStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}

	for _, status := range []models.ArtifactStatus{
		models.ArtifactStatusBuilding,
		models.ArtifactStatusBuilt,
		models.ArtifactStatusTesting,
		models.ArtifactStatusTested,
	} {
		if err := s.UpdateArtifactStatus(artifact.ID, status, ""); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	got, err = s.GetArtifact(artifact.ID)
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if got.Status != models.ArtifactStatusTested {
		t.Errorf("status = %q, want tested", got.Status)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("expected timestamps to persist through the database")
	}
	if len(got.StateTransitions) != 4 {
		t.Errorf("expected 4 persisted transitions, got %d", len(got.StateTransitions))
	}
}

func TestSQLiteStoreInvalidTransition(t *testing.T) {
	s := newTestSQLiteStore(t)

	artifact := models.NewArtifact("q2-demo", "1.0", 0)
	if err := s.CreateArtifact(artifact); err != nil {
		t.Fatalf("CreateArtifact failed: %v", err)
	}

	if err := s.UpdateArtifactStatus(artifact.ID, models.ArtifactStatusTested, ""); err == nil {
		t.Fatal("expected error for pending -> tested")
	}
}

func TestSQLiteStoreNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	if _, err := s.GetArtifact("missing"); err != ErrArtifactNotFound {
		t.Errorf("GetArtifact error = %v, want ErrArtifactNotFound", err)
	}
	if err := s.UpdateArtifactResult("missing", 0, 0, ""); err != ErrArtifactNotFound {
		t.Errorf("UpdateArtifactResult error = %v, want ErrArtifactNotFound", err)
	}
	if err := s.DeleteArtifact("missing"); err != ErrArtifactNotFound {
		t.Errorf("DeleteArtifact error = %v, want ErrArtifactNotFound", err)
	}
}

func TestSQLiteStoreResultPersistence(t *testing.T) {
	s := newTestSQLiteStore(t)

	artifact := models.NewArtifact("q2-demo", "1.0", 0)
	if err := s.CreateArtifact(artifact); err != nil {
		t.Fatalf("CreateArtifact failed: %v", err)
	}
	if err := s.UpdateArtifactResult(artifact.ID, 2, 12.5, "build script failed"); err != nil {
		t.Fatalf("UpdateArtifactResult failed: %v", err)
	}

	got, err := s.GetArtifact(artifact.ID)
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if got.ExitCode != 2 || got.DurationSeconds != 12.5 || got.Error != "build script failed" {
		t.Errorf("result not persisted: %+v", got)
	}
}

func TestSQLiteStoreGetByStatus(t *testing.T) {
	s := newTestSQLiteStore(t)

	for i := 0; i < 3; i++ {
		artifact := models.NewArtifact("q2-demo", "1.0", i)
		if err := s.CreateArtifact(artifact); err != nil {
			t.Fatalf("CreateArtifact failed: %v", err)
		}
		if i == 0 {
			if err := s.UpdateArtifactStatus(artifact.ID, models.ArtifactStatusBuilding, ""); err != nil {
				t.Fatalf("transition failed: %v", err)
			}
		}
	}

	if got := len(s.GetArtifactsByStatus(models.ArtifactStatusPending)); got != 2 {
		t.Errorf("pending count = %d, want 2", got)
	}
	if got := len(s.GetAllArtifacts()); got != 3 {
		t.Errorf("total count = %d, want 3", got)
	}
}

func TestSQLiteStoreBuildMetrics(t *testing.T) {
	s := newTestSQLiteStore(t)

	a := models.NewArtifact("q2-demo", "1.0", 0)
	s.CreateArtifact(a)
	s.UpdateArtifactStatus(a.ID, models.ArtifactStatusBuilding, "")
	s.UpdateArtifactStatus(a.ID, models.ArtifactStatusBuilt, "")
	s.UpdateArtifactStatus(a.ID, models.ArtifactStatusTested, "")
	s.UpdateArtifactResult(a.ID, 0, 30.0, "")

	b := models.NewArtifact("q2-demo", "1.0", 1)
	s.CreateArtifact(b)

	metrics, err := s.GetBuildMetrics()
	if err != nil {
		t.Fatalf("GetBuildMetrics failed: %v", err)
	}
	if metrics.TotalBuilds != 2 {
		t.Errorf("total builds = %d, want 2", metrics.TotalBuilds)
	}
	if metrics.ArtifactsByStatus[models.ArtifactStatusTested] != 1 {
		t.Errorf("tested count = %d", metrics.ArtifactsByStatus[models.ArtifactStatusTested])
	}
	if metrics.ArtifactsByStatus[models.ArtifactStatusPending] != 1 {
		t.Errorf("pending count = %d", metrics.ArtifactsByStatus[models.ArtifactStatusPending])
	}
	if metrics.AvgDurationSeconds != 30.0 {
		t.Errorf("avg duration = %f, want 30.0", metrics.AvgDurationSeconds)
	}
}

func TestSQLiteStoreConcurrentWrites(t *testing.T) {
	s := newTestSQLiteStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			artifact := models.NewArtifact("q2-demo", "1.0", n)
			if err := s.CreateArtifact(artifact); err != nil {
				t.Errorf("CreateArtifact failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.GetAllArtifacts()); got != 10 {
		t.Errorf("expected 10 artifacts, got %d", got)
	}
}
