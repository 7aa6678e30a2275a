package runner

import (
	"log"
	"time"
)

// Result is the immutable record of one executed phase command.
// Set once at completion, never updated.
type Result struct {
	ArtifactID string `json:"artifact_id"`
	Phase      string `json:"phase"` // "build" or "test"
	Command    string `json:"command"`
	PID        int    `json:"pid"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	ExitCode int `json:"exit_code"`
}

// NewResult creates an immutable result
func NewResult(artifactID, phase, command string, pid, exitCode int, timing *Timing) *Result {
	return &Result{
		ArtifactID: artifactID,
		Phase:      phase,
		Command:    command,
		PID:        pid,
		ExitCode:   exitCode,
		StartTime:  timing.StartedAt,
		EndTime:    timing.CompletedAt,
		Duration:   timing.Duration(),
	}
}

// Succeeded reports whether the command exited cleanly
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}

// LogSummary emits a one-line human-readable summary.
// This is what ops grep for after a failed pipeline run.
func (r *Result) LogSummary() {
	outcome := "ok"
	if !r.Succeeded() {
		outcome = "FAILED"
	}
	log.Printf("PHASE %s | artifact=%s | %s | runtime=%.1fs | exit=%d | cmd=%q",
		r.Phase,
		r.ArtifactID,
		outcome,
		r.Duration.Seconds(),
		r.ExitCode,
		r.Command,
	)
}

// Timing records start/end timestamps only
type Timing struct {
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewTiming creates timing with current start time
func NewTiming() *Timing {
	return &Timing{StartedAt: time.Now()}
}

// Complete records completion time
func (t *Timing) Complete() {
	t.CompletedAt = time.Now()
}

// Duration returns execution duration
func (t *Timing) Duration() time.Duration {
	if t.CompletedAt.IsZero() {
		return time.Since(t.StartedAt)
	}
	return t.CompletedAt.Sub(t.StartedAt)
}
