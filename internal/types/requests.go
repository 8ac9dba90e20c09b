package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// AsValidationError converts validator errors into a *ValidationError naming
// the first failing field. Other errors are returned unchanged.
func AsValidationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
		return &ValidationError{Field: field, Message: "failed " + fe.Tag() + " check"}
	}
	return err
}

// CreateJobRequest is the intake payload for a job posting.
type CreateJobRequest struct {
	RoleName           string `json:"role_name" validate:"required,min=1,max=200"`
	Description        string `json:"description" validate:"max=20000"`
	RequiredExperience string `json:"required_experience" validate:"max=200"`
	Location           string `json:"location" validate:"max=200"`
}

// CreateCandidateRequest is the intake payload for a candidate of a job.
type CreateCandidateRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone,omitempty" validate:"max=50"`
	Profile  Profile `json:"profile"`
	FitScore float64 `json:"fit_score" validate:"gte=0"`
}

// ShortlistRequest selects the top candidates of a job and creates their processes.
// Templates may be omitted when a roster is configured; otherwise its length must
// equal NumberOfRounds.
type ShortlistRequest struct {
	JobID              uuid.UUID       `json:"-"`
	NumberOfCandidates int             `json:"number_of_candidates" validate:"required,min=1"`
	NumberOfRounds     int             `json:"number_of_rounds" validate:"required,min=1,max=20"`
	Templates          []RoundTemplate `json:"round_templates,omitempty" validate:"omitempty,dive"`
}

// SlotInput is the wire form of a slot. Start and End are RFC3339 timestamps;
// a timestamp without an offset is interpreted in TimeZone.
type SlotInput struct {
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
	TimeZone string `json:"time_zone,omitempty"`
}

const localLayout = "2006-01-02T15:04:05"

// ToSlot normalizes the input into a validated Slot.
func (in SlotInput) ToSlot() (Slot, error) {
	zone := strings.TrimSpace(in.TimeZone)
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Slot{}, &ValidationError{Field: "slot.time_zone", Message: fmt.Sprintf("unknown time zone %q", in.TimeZone)}
	}
	start, err := parseTimestamp(in.Start, loc)
	if err != nil {
		return Slot{}, &ValidationError{Field: "slot.start", Message: err.Error()}
	}
	end, err := parseTimestamp(in.End, loc)
	if err != nil {
		return Slot{}, &ValidationError{Field: "slot.end", Message: err.Error()}
	}
	slot := Slot{Start: start, End: end, TimeZone: zone}
	if err := slot.Validate(); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
	}
	return t, nil
}

// ScheduleRequest assigns a first slot to an unscheduled round.
type ScheduleRequest struct {
	Slot SlotInput `json:"slot" validate:"required"`
}

// RescheduleRequest moves a booked round to a new slot.
type RescheduleRequest struct {
	Slot SlotInput `json:"slot" validate:"required"`
}

// FeedbackRequest records the outcome of a round.
type FeedbackRequest struct {
	Rating   *int     `json:"rating_out_of_10" validate:"required,min=0,max=10"`
	Comment  string   `json:"comment" validate:"max=10000"`
	Decision Decision `json:"advance_decision" validate:"required,oneof=yes no maybe"`
}

// OfferRequest sends the offer to the selected candidate.
type OfferRequest struct {
	Compensation string `json:"compensation" validate:"required,min=1,max=500"`
}

// Attendee responses to a rescheduled round
const (
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

// ResponseRequest carries an attendee's answer to a rescheduled round.
// Accepting confirms the new slot; declining cancels the round.
type ResponseRequest struct {
	Response string `json:"response" validate:"required,oneof=accepted declined"`
	Reason   string `json:"reason,omitempty" validate:"max=1000"`
}

// CancelRequest cancels a round or a whole process.
type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

// Validate validates the CreateJobRequest using the validator.
func (r *CreateJobRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the CreateCandidateRequest using the validator.
func (r *CreateCandidateRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the ShortlistRequest using the validator.
func (r *ShortlistRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the ScheduleRequest using the validator.
func (r *ScheduleRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the RescheduleRequest using the validator.
func (r *RescheduleRequest) Validate() error {
	return validate.Struct(r)
}

// Validate lower-cases the decision, then validates the FeedbackRequest
// using the validator. "Yes" and "yes" are the same decision.
func (r *FeedbackRequest) Validate() error {
	r.Decision = Decision(strings.ToLower(strings.TrimSpace(string(r.Decision))))
	return validate.Struct(r)
}

// Validate validates the OfferRequest using the validator.
func (r *OfferRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the ResponseRequest using the validator.
func (r *ResponseRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the CancelRequest using the validator.
func (r *CancelRequest) Validate() error {
	return validate.Struct(r)
}
