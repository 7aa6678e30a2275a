package runner

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes phase failures for handling strategy
type ErrorKind int

const (
	ErrorKindUnknown        ErrorKind = iota
	ErrorKindScriptNotFound           // interpreter or tool missing, no retry
	ErrorKindNonzeroExit              // tool ran and failed, outcome is its own
	ErrorKindTimeout                  // phase deadline exceeded
	ErrorKindTransient                // environment hiccup, retry possible
)

// PhaseError wraps a phase failure with context and categorization
type PhaseError struct {
	Kind       ErrorKind
	Phase      string
	ArtifactID string
	ExitCode   int
	Err        error
}

// Error implements error interface
func (e *PhaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s phase failed for artifact %s (exit %d): %v",
			e.Phase, e.ArtifactID, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s phase failed for artifact %s (exit %d)",
		e.Phase, e.ArtifactID, e.ExitCode)
}

// Unwrap implements error unwrapping
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Retryable reports whether re-running the phase could succeed
func (e *PhaseError) Retryable() bool {
	return e.Kind == ErrorKindTransient
}

// classifyError determines error kind from error content
func classifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "executable file not found") ||
		strings.Contains(errStr, "no such file or directory") {
		return ErrorKindScriptNotFound
	}
	if strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "signal: killed") {
		return ErrorKindTimeout
	}
	if strings.Contains(errStr, "resource temporarily unavailable") ||
		strings.Contains(errStr, "text file busy") {
		return ErrorKindTransient
	}

	return ErrorKindUnknown
}
