package gepa

import "errors"

// Sentinel errors grouped by the taxonomy a run can surface. Adapter
// per-item failures are never represented here — they are swallowed by the
// adapter and surfaced as a low score, per contract.
var (
	// ErrInvalidConfig is raised eagerly before the loop starts: missing
	// required fields, conflicting options, an invalid seed candidate, or
	// an out-of-range numeric parameter. Fatal.
	ErrInvalidConfig = errors.New("gepa: invalid configuration")

	// ErrAdapterFailure wraps a systemic Adapter.Evaluate failure (e.g. the
	// transport is dead). Proposers catch it, log, and return no proposal;
	// the engine continues.
	ErrAdapterFailure = errors.New("gepa: adapter failure")

	// ErrLLMFailure wraps a default-proposer LLM call failure. Treated the
	// same as ErrAdapterFailure.
	ErrLLMFailure = errors.New("gepa: llm failure")

	// ErrPersistLoad is returned when loading a persisted State fails.
	// Fatal only if the caller explicitly requested resume.
	ErrPersistLoad = errors.New("gepa: failed to load persisted state")

	// ErrPersistSave is returned when persisting State fails. Logged; the
	// loop continues (best-effort durability).
	ErrPersistSave = errors.New("gepa: failed to persist state")

	// ErrInvariantViolation indicates a State invariant was violated — a
	// bug. The engine aborts rather than risk corrupting State.
	ErrInvariantViolation = errors.New("gepa: state invariant violation")

	// ErrUnknownSchemaVersion is returned by loaders when a persisted
	// State's schema version is not recognized.
	ErrUnknownSchemaVersion = errors.New("gepa: unknown state schema version")
)

// RunError wraps a sentinel with a human-readable message and an optional
// machine-checkable code, mirroring the teacher's DomainError shape.
type RunError struct {
	Err     error
	Message string
	Code    string
}

func (e *RunError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error { return e.Err }

// NewRunError wraps err with a message.
func NewRunError(err error, message string) *RunError {
	return &RunError{Err: err, Message: message}
}

// NewRunErrorWithCode wraps err with a message and a machine-checkable code.
func NewRunErrorWithCode(err error, message, code string) *RunError {
	return &RunError{Err: err, Message: message, Code: code}
}
