package hiring

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/types"
)

// Statistics summarizes the interview pipeline of one job.
type Statistics struct {
	JobID            uuid.UUID                   `json:"job_id"`
	Candidates       int                         `json:"candidates"`
	Processes        int                         `json:"processes"`
	ProcessesBy      map[types.ProcessStatus]int `json:"processes_by_status"`
	RoundsBy         map[types.RoundStatus]int   `json:"rounds_by_status"`
	AverageTotal     float64                     `json:"average_total_score"`
	HighestTotal     int                         `json:"highest_total_score"`
	FinalCandidateID *uuid.UUID                  `json:"final_candidate_id,omitempty"`
	OfferStatus      types.FinalStatus           `json:"offer_status,omitempty"`
}

// Statistics counts the job's processes by derived status and rounds by
// status, and averages the totals of complete processes.
func (e *Engine) Statistics(ctx context.Context, jobID uuid.UUID) (*Statistics, error) {
	if _, err := e.repo.Job(ctx, jobID); err != nil {
		return nil, err
	}
	candidates, err := e.repo.Candidates(ctx, jobID)
	if err != nil {
		return nil, err
	}
	views, err := e.repo.ProcessViews(ctx, jobID)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		JobID:       jobID,
		Candidates:  len(candidates),
		Processes:   len(views),
		ProcessesBy: map[types.ProcessStatus]int{},
		RoundsBy:    map[types.RoundStatus]int{},
	}
	complete, sum := 0, 0
	for _, v := range views {
		stats.ProcessesBy[v.Status]++
		for _, r := range v.Rounds {
			stats.RoundsBy[r.Status]++
		}
		if v.Status != types.ProcessComplete {
			continue
		}
		total := v.TotalScore()
		sum += total
		if complete == 0 || total > stats.HighestTotal {
			stats.HighestTotal = total
		}
		complete++
	}
	if complete > 0 {
		stats.AverageTotal = float64(sum) / float64(complete)
	}

	fc, err := e.ranking.GetOffers(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(fc) == 1 {
		id := fc[0].CandidateID
		stats.FinalCandidateID = &id
		stats.OfferStatus = fc[0].Status
	}
	return stats, nil
}
