package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotFoundError indicates a referenced record does not exist
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvalidStateError indicates an operation is forbidden in the record's current state
type InvalidStateError struct {
	Kind      string
	ID        string
	State     string
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %q", e.Operation, e.Kind, e.ID, e.State)
}

// Conflict reasons
const (
	ConflictOverlap     = "overlap"
	ConflictUnavailable = "unavailable"
)

// ConflictError indicates a proposed slot collides with an interviewer's calendar
type ConflictError struct {
	RoundID            uuid.UUID `json:"round_id"`
	Interviewer        string    `json:"interviewer"`
	Slot               Slot      `json:"slot"`
	ConflictingRoundID uuid.UUID `json:"conflicting_round_id,omitempty"`
	ConflictingSlot    Slot      `json:"conflicting_slot"`
	Reason             string    `json:"reason"`
}

func (e *ConflictError) Error() string {
	if e.Reason == ConflictUnavailable {
		return fmt.Sprintf("interviewer %s is unavailable for %s (busy %s)",
			e.Interviewer, e.Slot, e.ConflictingSlot)
	}
	return fmt.Sprintf("interviewer %s already has round %s at %s, which overlaps %s",
		e.Interviewer, e.ConflictingRoundID, e.ConflictingSlot, e.Slot)
}

// VersionConflictError indicates a lost optimistic-concurrency race; the caller should retry with fresh state
type VersionConflictError struct {
	Kind     string
	ID       string
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	if e.Expected == 0 {
		return fmt.Sprintf("version conflict on %s %s: already exists at version %d", e.Kind, e.ID, e.Actual)
	}
	return fmt.Sprintf("version conflict on %s %s: expected version %d, found %d", e.Kind, e.ID, e.Expected, e.Actual)
}

// InsufficientCandidatesError reports a shortlisting shortfall. It is carried
// in results and never returned as a failure.
type InsufficientCandidatesError struct {
	JobID     uuid.UUID `json:"job_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("insufficient candidates for job %s: requested %d, available %d", e.JobID, e.Requested, e.Available)
}

// ValidationError indicates malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// CollaboratorError wraps a failure of an external collaborator
type CollaboratorError struct {
	Collaborator string
	Operation    string
	Cause        error
}

func (e *CollaboratorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Collaborator, e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s %s failed", e.Collaborator, e.Operation)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}

// Warning is an advisory failure attached to an otherwise successful result.
type Warning struct {
	Collaborator string    `json:"collaborator"`
	Operation    string    `json:"operation"`
	Message      string    `json:"message"`
	At           time.Time `json:"at"`
}

// NewWarning builds a warning from a collaborator failure.
func NewWarning(collaborator, operation string, err error) *Warning {
	return &Warning{
		Collaborator: collaborator,
		Operation:    operation,
		Message:      err.Error(),
		At:           time.Now().UTC(),
	}
}
