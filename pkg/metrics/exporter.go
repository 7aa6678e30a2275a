// Package metrics exposes build pipeline metrics in Prometheus text
// exposition format, backed by the artifact store.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/bokulich-lab/q2pkg/pkg/models"
	"github.com/bokulich-lab/q2pkg/pkg/store"
)

// artifactStatuses lists every state so each series always exists
var artifactStatuses = []models.ArtifactStatus{
	models.ArtifactStatusPending,
	models.ArtifactStatusBuilding,
	models.ArtifactStatusBuilt,
	models.ArtifactStatusTesting,
	models.ArtifactStatusTested,
	models.ArtifactStatusFailed,
}

// Exporter serves build metrics at /metrics
type Exporter struct {
	store     store.Store
	startTime time.Time

	mu           sync.RWMutex
	phaseResults map[string]int64 // phase/outcome -> count
}

// NewExporter creates a Prometheus exporter over the artifact store
func NewExporter(s store.Store) *Exporter {
	return &Exporter{
		store:        s,
		startTime:    time.Now(),
		phaseResults: make(map[string]int64),
	}
}

// RecordPhase counts one executed phase by outcome
func (e *Exporter) RecordPhase(phase string, succeeded bool) {
	outcome := "ok"
	if !succeeded {
		outcome = "failed"
	}
	e.mu.Lock()
	e.phaseResults[phase+"/"+outcome]++
	e.mu.Unlock()
}

// ServeHTTP serves Prometheus-compatible metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	buildMetrics, err := e.store.GetBuildMetrics()
	if err != nil {
		http.Error(w, fmt.Sprintf("Error collecting build metrics: %v", err), http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "# HELP q2pkg_builds_total Total recorded builds by status\n")
	fmt.Fprintf(w, "# TYPE q2pkg_builds_total gauge\n")
	for _, status := range artifactStatuses {
		fmt.Fprintf(w, "q2pkg_builds_total{status=\"%s\"} %d\n", status, buildMetrics.ArtifactsByStatus[status])
	}

	fmt.Fprintf(w, "\n# HELP q2pkg_build_duration_seconds_avg Average completed build duration\n")
	fmt.Fprintf(w, "# TYPE q2pkg_build_duration_seconds_avg gauge\n")
	fmt.Fprintf(w, "q2pkg_build_duration_seconds_avg %.2f\n", buildMetrics.AvgDurationSeconds)

	e.mu.RLock()
	fmt.Fprintf(w, "\n# HELP q2pkg_phase_results_total Executed phases by outcome\n")
	fmt.Fprintf(w, "# TYPE q2pkg_phase_results_total counter\n")
	for key, count := range e.phaseResults {
		phase, outcome := key, ""
		if i := strings.IndexByte(key, '/'); i >= 0 {
			phase, outcome = key[:i], key[i+1:]
		}
		fmt.Fprintf(w, "q2pkg_phase_results_total{phase=\"%s\",outcome=\"%s\"} %d\n", phase, outcome, count)
	}
	e.mu.RUnlock()

	fmt.Fprintf(w, "\n# HELP q2pkg_uptime_seconds Exporter uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE q2pkg_uptime_seconds gauge\n")
	fmt.Fprintf(w, "q2pkg_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())

	// Append metrics from the Prometheus default registry (Go runtime,
	// process collectors) using the text encoder.
	fmt.Fprintf(w, "\n")
	metricFamilies, err := promclient.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}
	w.Write(buf.Bytes())
}
