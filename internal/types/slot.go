package types

import (
	"fmt"
	"time"
)

// DefaultTimeZone is used when a slot arrives without an explicit zone.
const DefaultTimeZone = "UTC"

// Slot is a half-open time interval [Start, End) in a named IANA zone.
type Slot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	TimeZone string    `json:"time_zone"`
}

// Overlaps reports whether two slots share any instant.
// Touching intervals (a.End == b.Start) do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// Duration returns the length of the slot.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Equal compares instants and zone, ignoring monotonic clock readings.
func (s Slot) Equal(other Slot) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End) && s.TimeZone == other.TimeZone
}

// Validate checks that the slot is non-empty and its zone is loadable.
func (s Slot) Validate() error {
	if s.Start.IsZero() || s.End.IsZero() {
		return &ValidationError{Field: "slot", Message: "start and end are required"}
	}
	if !s.End.After(s.Start) {
		return &ValidationError{Field: "slot", Message: "end must be after start"}
	}
	if _, err := time.LoadLocation(s.zone()); err != nil {
		return &ValidationError{Field: "slot.time_zone", Message: fmt.Sprintf("unknown time zone %q", s.TimeZone)}
	}
	return nil
}

// Location returns the slot's zone, falling back to UTC.
func (s Slot) Location() *time.Location {
	loc, err := time.LoadLocation(s.zone())
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s Slot) zone() string {
	if s.TimeZone == "" {
		return DefaultTimeZone
	}
	return s.TimeZone
}

// String renders the slot in its own zone.
func (s Slot) String() string {
	loc := s.Location()
	return fmt.Sprintf("%s - %s (%s)",
		s.Start.In(loc).Format(time.RFC3339),
		s.End.In(loc).Format(time.RFC3339),
		s.zone())
}
