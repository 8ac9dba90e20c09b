package types

import (
	"time"

	"github.com/google/uuid"
)

// ProcessStatus is derived from a process's rounds and never stored.
type ProcessStatus string

// ProcessStatus constants
const (
	ProcessInProgress ProcessStatus = "in_progress"
	ProcessComplete   ProcessStatus = "complete"
	ProcessCancelled  ProcessStatus = "cancelled"
)

// InterviewProcess is the set of rounds for one candidate against one job.
type InterviewProcess struct {
	ID          uuid.UUID   `json:"id"`
	JobID       uuid.UUID   `json:"job_id"`
	CandidateID uuid.UUID   `json:"candidate_id"`
	RoundIDs    []uuid.UUID `json:"round_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	Version     int64       `json:"version"`
}

// DeriveProcessStatus computes a process's status from its rounds.
// Any cancelled round cancels the process permanently; otherwise the process
// is complete only when every round is completed.
func DeriveProcessStatus(rounds []*Round) ProcessStatus {
	if len(rounds) == 0 {
		return ProcessInProgress
	}
	complete := true
	for _, r := range rounds {
		switch r.Status {
		case RoundCancelled:
			return ProcessCancelled
		case RoundCompleted:
		default:
			complete = false
		}
	}
	if complete {
		return ProcessComplete
	}
	return ProcessInProgress
}

// ProcessView is a process together with its ordered rounds and derived status.
type ProcessView struct {
	Process *InterviewProcess `json:"process"`
	Rounds  []*Round          `json:"rounds"`
	Status  ProcessStatus     `json:"status"`
}

// NewProcessView orders rounds by index and derives the status.
func NewProcessView(p *InterviewProcess, rounds []*Round) *ProcessView {
	byID := make(map[uuid.UUID]*Round, len(rounds))
	for _, r := range rounds {
		byID[r.ID] = r
	}
	ordered := make([]*Round, 0, len(p.RoundIDs))
	for _, id := range p.RoundIDs {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return &ProcessView{Process: p, Rounds: ordered, Status: DeriveProcessStatus(ordered)}
}

// TotalScore sums the ratings of all rounds.
func (v *ProcessView) TotalScore() int {
	total := 0
	for _, r := range v.Rounds {
		if rating, ok := r.Rating(); ok {
			total += rating
		}
	}
	return total
}
