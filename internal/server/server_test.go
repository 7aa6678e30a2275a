package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bokulich-lab/q2pkg/pkg/logging"
	"github.com/bokulich-lab/q2pkg/pkg/metrics"
	"github.com/bokulich-lab/q2pkg/pkg/models"
	"github.com/bokulich-lab/q2pkg/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()

	s := store.NewMemoryStore()
	logger := logging.NewLogger(logging.ERROR, false)
	logger.SetOutput(os.Stderr)
	srv := New(":0", s, metrics.NewExporter(s), logger)
	return srv, s
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestListArtifacts(t *testing.T) {
	srv, s := newTestServer(t)

	a := models.NewArtifact("q2-amrfinderplus", "2024.5.0", 0)
	if err := s.CreateArtifact(a); err != nil {
		t.Fatalf("CreateArtifact failed: %v", err)
	}
	b := models.NewArtifact("q2-amrfinderplus", "2024.5.0", 1)
	if err := s.CreateArtifact(b); err != nil {
		t.Fatalf("CreateArtifact failed: %v", err)
	}
	if err := s.UpdateArtifactStatus(b.ID, models.ArtifactStatusBuilding, ""); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var artifacts []*models.Artifact
	if err := json.NewDecoder(rec.Body).Decode(&artifacts); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(artifacts) != 2 {
		t.Errorf("expected 2 artifacts, got %d", len(artifacts))
	}
}

func TestListArtifactsByStatus(t *testing.T) {
	srv, s := newTestServer(t)

	a := models.NewArtifact("q2-amrfinderplus", "2024.5.0", 0)
	s.CreateArtifact(a)
	b := models.NewArtifact("q2-amrfinderplus", "2024.5.0", 1)
	s.CreateArtifact(b)
	s.UpdateArtifactStatus(b.ID, models.ArtifactStatusBuilding, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts?status=building", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var artifacts []*models.Artifact
	if err := json.NewDecoder(rec.Body).Decode(&artifacts); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 building artifact, got %d", len(artifacts))
	}
	if artifacts[0].ID != b.ID {
		t.Errorf("wrong artifact returned: %s", artifacts[0].ID)
	}
}

func TestListArtifactsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	// empty store yields [], not null
	var artifacts []*models.Artifact
	if err := json.NewDecoder(rec.Body).Decode(&artifacts); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if artifacts == nil {
		t.Error("expected empty array, got null")
	}
}

func TestGetArtifact(t *testing.T) {
	srv, s := newTestServer(t)

	a := models.NewArtifact("q2-amrfinderplus", "2024.5.0", 0)
	s.CreateArtifact(a)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/"+a.ID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var artifact models.Artifact
	if err := json.NewDecoder(rec.Body).Decode(&artifact); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if artifact.ID != a.ID {
		t.Errorf("artifact ID = %q, want %q", artifact.ID, a.ID)
	}
}

func TestGetArtifactNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/no-such-id", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, s := newTestServer(t)

	a := models.NewArtifact("q2-amrfinderplus", "2024.5.0", 0)
	s.CreateArtifact(a)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{"q2pkg_builds_total", "q2pkg_build_duration_seconds_avg", "q2pkg_uptime_seconds"} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}
