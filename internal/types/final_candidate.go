package types

import (
	"time"

	"github.com/google/uuid"
)

// FinalStatus is the offer lifecycle of the per-job final candidate.
type FinalStatus string

// FinalStatus constants
const (
	FinalSelected FinalStatus = "selected"
	FinalOffered  FinalStatus = "offered"
)

// FinalCandidate is the single selection record of a job. A selected record
// is upgraded in place to offered; an offered record never changes again.
type FinalCandidate struct {
	ID            uuid.UUID   `json:"id"`
	JobID         uuid.UUID   `json:"job_id"`
	CandidateID   uuid.UUID   `json:"candidate_id"`
	ProcessID     uuid.UUID   `json:"process_id"`
	CandidateName string      `json:"candidate_name"`
	Email         string      `json:"email"`
	RoleName      string      `json:"role_name"`
	TotalScore    int         `json:"total_score"`
	Status        FinalStatus `json:"status"`
	Compensation  string      `json:"compensation"`
	HRName        string      `json:"hr_name,omitempty"`
	HREmail       string      `json:"hr_email,omitempty"`
	SelectedAt    time.Time   `json:"selected_at"`
	OfferedAt     *time.Time  `json:"offered_at,omitempty"`
	Version       int64       `json:"version"`
}

// RankedCandidate is one entry of a stackrank result.
type RankedCandidate struct {
	Rank             int       `json:"rank"`
	CandidateID      uuid.UUID `json:"candidate_id"`
	CandidateName    string    `json:"candidate_name"`
	ProcessID        uuid.UUID `json:"process_id"`
	ProcessCreatedAt time.Time `json:"process_created_at"`
	Ratings          []int     `json:"ratings"`
	TotalScore       int       `json:"total_score"`
}

// InterviewerSchedule is the booking ledger of one interviewer. It is the
// record that concurrent scheduling calls contend on.
type InterviewerSchedule struct {
	ID       uuid.UUID `json:"id"`
	Key      string    `json:"key"`
	Bookings []Booking `json:"bookings"`
	Version  int64     `json:"version"`
}

// Booking reserves a slot for a round.
type Booking struct {
	RoundID uuid.UUID `json:"round_id"`
	Slot    Slot      `json:"slot"`
}

// Without returns the bookings excluding the given round.
func (s *InterviewerSchedule) Without(roundID uuid.UUID) []Booking {
	out := make([]Booking, 0, len(s.Bookings))
	for _, b := range s.Bookings {
		if b.RoundID != roundID {
			out = append(out, b)
		}
	}
	return out
}
