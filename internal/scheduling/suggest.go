package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/slots"
	"github.com/jonathan/hiring-engine/internal/types"
)

// SuggestRequest describes a slot search for one round.
type SuggestRequest struct {
	Window   types.Slot
	Duration time.Duration
	Step     time.Duration
	Limit    int
}

// Suggestions is the outcome of a slot search.
type Suggestions struct {
	RoundID  uuid.UUID        `json:"round_id"`
	Slots    []types.Slot     `json:"slots"`
	Warnings []*types.Warning `json:"warnings,omitempty"`
}

// Suggest lists slots inside the window that none of the round's
// interviewers has booked or marked busy. It reads only; callers still go
// through Schedule or Reschedule, which re-check everything.
func (e *Engine) Suggest(ctx context.Context, roundID uuid.UUID, req SuggestRequest) (*Suggestions, error) {
	if err := req.Window.Validate(); err != nil {
		return nil, err
	}
	if req.Duration <= 0 {
		return nil, &types.ValidationError{Field: "duration", Message: "must be positive"}
	}
	if req.Step <= 0 {
		req.Step = req.Duration
	}

	round, err := e.repo.Round(ctx, roundID)
	if err != nil {
		return nil, err
	}
	out := &Suggestions{RoundID: round.ID}

	var busy [][]types.Slot
	for _, iv := range round.Interviewers {
		ledger, err := e.repo.Schedule(ctx, iv.Key())
		if err != nil {
			return nil, err
		}
		live, err := e.liveBookings(ctx, ledger, round.ID)
		if err != nil {
			return nil, err
		}
		var intervals []types.Slot
		for _, b := range live {
			intervals = append(intervals, b.Slot)
		}

		if e.availability != nil && iv.Email != "" {
			var external []types.Slot
			w := collab.Advise(ctx, e.logger, e.timeout, collab.NameAvailability, "busy "+iv.Email, func(ctx context.Context) error {
				var err error
				external, err = e.availability.Busy(ctx, iv.Email, req.Window)
				return err
			})
			if w != nil {
				out.Warnings = append(out.Warnings, w)
			}
			intervals = append(intervals, external...)
		}
		busy = append(busy, intervals)
	}

	out.Slots = slots.Suggest(req.Window, req.Duration, req.Step, busy, req.Limit)
	return out, nil
}
