// Package collab defines the external collaborators the hiring engines call
// and the advisory call policy applied to them.
//
// Collaborator calls never fail a core operation. Each one is bounded by a
// timeout; a failure is logged and handed back to the caller as a warning.
package collab

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Collaborator names used in warnings and logs
const (
	NameFitScores    = "fit_scores"
	NameCalendar     = "calendar"
	NameAvailability = "availability"
	NameNotifier     = "notifier"
	NameOfferLetter  = "offer_letter"
)

// Notification templates
const (
	TemplateInvitation  = "interview_invitation"
	TemplateRescheduled = "interview_rescheduled"
	TemplateCancelled   = "interview_cancelled"
	TemplateOfferLetter = "offer_letter"
)

// DefaultTimeout bounds a collaborator call when none is configured.
const DefaultTimeout = 5 * time.Second

// FitScores returns the externally computed fit score of a candidate.
type FitScores interface {
	FitScore(ctx context.Context, candidate *types.Candidate) (float64, error)
}

// StoredFitScores reads the score recorded on the candidate at intake.
type StoredFitScores struct{}

// FitScore returns candidate.FitScore.
func (StoredFitScores) FitScore(_ context.Context, candidate *types.Candidate) (float64, error) {
	return candidate.FitScore, nil
}

// Attendee is a calendar invitee or mail recipient.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventRequest asks the calendar to create an interview event.
type EventRequest struct {
	RoundID     uuid.UUID
	Slot        types.Slot
	Attendees   []Attendee
	Summary     string
	Description string
}

// Calendar creates and cancels interview events.
type Calendar interface {
	CreateEvent(ctx context.Context, req EventRequest) (eventRef string, err error)
	CancelEvent(ctx context.Context, eventRef string) error
}

// Availability reports the busy intervals of an attendee inside a window.
type Availability interface {
	Busy(ctx context.Context, attendee string, window types.Slot) ([]types.Slot, error)
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a templated notification for one recipient.
type Message struct {
	Template    string
	Recipient   Attendee
	Payload     map[string]string
	Attachments []Attachment
}

// Notifier delivers templated messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Advise runs fn under a timeout. A failure is logged and returned as a
// warning; the caller's operation carries on regardless.
func Advise(ctx context.Context, logger *slog.Logger, timeout time.Duration, collaborator, operation string, fn func(context.Context) error) *types.Warning {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if callCtx.Err() == context.DeadlineExceeded {
		err = &types.CollaboratorError{Collaborator: collaborator, Operation: operation, Cause: context.DeadlineExceeded}
	} else {
		err = &types.CollaboratorError{Collaborator: collaborator, Operation: operation, Cause: err}
	}
	logger.Warn("collaborator call failed",
		"collaborator", collaborator,
		"operation", operation,
		"error", err)
	return types.NewWarning(collaborator, operation, err)
}
