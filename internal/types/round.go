package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RoundStatus is the lifecycle state of a single interview round.
type RoundStatus string

// RoundStatus constants
const (
	RoundUnscheduled RoundStatus = "unscheduled"
	RoundScheduled   RoundStatus = "scheduled"
	RoundRescheduled RoundStatus = "rescheduled"
	RoundCompleted   RoundStatus = "completed"
	RoundCancelled   RoundStatus = "cancelled"
)

// roundTransitions lists every legal edge of the round state machine.
// completed and cancelled have no outgoing edges.
var roundTransitions = map[RoundStatus][]RoundStatus{
	RoundUnscheduled: {RoundScheduled, RoundCancelled},
	RoundScheduled:   {RoundRescheduled, RoundCompleted, RoundCancelled},
	RoundRescheduled: {RoundScheduled, RoundRescheduled, RoundCompleted, RoundCancelled},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to RoundStatus) bool {
	for _, next := range roundTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s RoundStatus) IsTerminal() bool {
	return s == RoundCompleted || s == RoundCancelled
}

// IsBooked reports whether the round holds a time slot on its interviewers' calendars.
func (s RoundStatus) IsBooked() bool {
	return s == RoundScheduled || s == RoundRescheduled
}

// Valid reports whether s is a known status.
func (s RoundStatus) Valid() bool {
	switch s {
	case RoundUnscheduled, RoundScheduled, RoundRescheduled, RoundCompleted, RoundCancelled:
		return true
	}
	return false
}

// Department constants used by the roster and the offer signatory lookup.
const (
	DepartmentEngineering = "Engineering"
	DepartmentManagement  = "Management"
	DepartmentHR          = "Human Resources"
)

// InterviewerRef identifies an interviewer assigned to a round.
type InterviewerRef struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department,omitempty"`
}

// Key returns the identity used for conflict detection: the normalized
// email, which every ref carries whether it came from the roster or a
// caller. The ID is only a fallback for refs without one.
func (i InterviewerRef) Key() string {
	if email := strings.ToLower(strings.TrimSpace(i.Email)); email != "" {
		return email
	}
	return i.ID
}

// RoundTemplate describes one round of a process at shortlisting time.
type RoundTemplate struct {
	RoundType    string           `json:"round_type" validate:"required"`
	Interviewers []InterviewerRef `json:"interviewers" validate:"required,min=1,dive"`
}

// Decision is the interviewer's advance recommendation.
type Decision string

// Decision constants
const (
	DecisionYes   Decision = "yes"
	DecisionNo    Decision = "no"
	DecisionMaybe Decision = "maybe"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionYes || d == DecisionNo || d == DecisionMaybe
}

// Rating bounds
const (
	MinRating = 0
	MaxRating = 10
)

// Feedback is the outcome of a completed round.
type Feedback struct {
	Rating      *int      `json:"rating_out_of_10"`
	Comment     string    `json:"comment"`
	Decision    Decision  `json:"advance_decision"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Round is one interview session within a process.
type Round struct {
	ID           uuid.UUID        `json:"id"`
	ProcessID    uuid.UUID        `json:"process_id"`
	JobID        uuid.UUID        `json:"job_id"`
	CandidateID  uuid.UUID        `json:"candidate_id"`
	Index        int              `json:"index"`
	RoundType    string           `json:"round_type"`
	Interviewers []InterviewerRef `json:"interviewers"`
	Slot         *Slot            `json:"slot,omitempty"`
	Status       RoundStatus      `json:"status"`
	Feedback     *Feedback        `json:"feedback,omitempty"`
	EventRef     string           `json:"event_ref,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Version      int64            `json:"version"`
}

// Transition moves the round to status to. It is the only way to change
// Status; illegal edges and completion without a rating are rejected.
func (r *Round) Transition(to RoundStatus, operation string) error {
	if !CanTransition(r.Status, to) {
		return &InvalidStateError{Kind: KindRound, ID: r.ID.String(), State: string(r.Status), Operation: operation}
	}
	if to == RoundCompleted && (r.Feedback == nil || r.Feedback.Rating == nil) {
		return &InvalidStateError{Kind: KindRound, ID: r.ID.String(), State: string(r.Status), Operation: operation + " without rating"}
	}
	r.Status = to
	return nil
}

// Rating returns the recorded rating, or 0 and false when none exists.
func (r *Round) Rating() (int, bool) {
	if r.Feedback == nil || r.Feedback.Rating == nil {
		return 0, false
	}
	return *r.Feedback.Rating, true
}

// InterviewerKeys returns the distinct conflict keys of the round's interviewers.
func (r *Round) InterviewerKeys() []string {
	seen := make(map[string]bool, len(r.Interviewers))
	keys := make([]string, 0, len(r.Interviewers))
	for _, iv := range r.Interviewers {
		k := iv.Key()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// Clone returns a deep copy safe to mutate.
func (r *Round) Clone() *Round {
	c := *r
	c.Interviewers = append([]InterviewerRef(nil), r.Interviewers...)
	if r.Slot != nil {
		s := *r.Slot
		c.Slot = &s
	}
	if r.Feedback != nil {
		f := *r.Feedback
		if r.Feedback.Rating != nil {
			v := *r.Feedback.Rating
			f.Rating = &v
		}
		c.Feedback = &f
	}
	return &c
}
