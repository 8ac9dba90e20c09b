// Package feedback records interviewer feedback and completes rounds.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/keylock"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Aggregator writes feedback onto rounds.
type Aggregator struct {
	repo   *store.Repository
	locks  *keylock.Locker
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Aggregator. locks and logger may be nil.
func New(repo *store.Repository, locks *keylock.Locker, logger *slog.Logger) *Aggregator {
	if locks == nil {
		locks = keylock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		repo:   repo,
		locks:  locks,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Result is a completed round with the re-derived status of its process.
type Result struct {
	Round         *types.Round        `json:"round"`
	ProcessStatus types.ProcessStatus `json:"process_status"`
}

// Submit records the feedback of a booked round and completes it. Feedback
// on a completed round is rejected, so it never changes once written.
func (a *Aggregator) Submit(ctx context.Context, roundID uuid.UUID, rating int, comment string, decision types.Decision) (*Result, error) {
	if rating < types.MinRating || rating > types.MaxRating {
		return nil, &types.ValidationError{
			Field:   "rating_out_of_10",
			Message: fmt.Sprintf("must be between %d and %d, got %d", types.MinRating, types.MaxRating, rating),
		}
	}
	decision = types.Decision(strings.ToLower(strings.TrimSpace(string(decision))))
	if !decision.Valid() {
		return nil, &types.ValidationError{Field: "advance_decision", Message: fmt.Sprintf("unknown decision %q", decision)}
	}

	round, err := a.complete(ctx, roundID, rating, comment, decision)
	if err != nil {
		return nil, err
	}

	view, err := a.repo.ProcessView(ctx, round.ProcessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load process %s: %w", round.ProcessID, err)
	}
	a.logger.Info("feedback recorded",
		"round_id", round.ID,
		"process_id", round.ProcessID,
		"rating", rating,
		"decision", decision,
		"process_status", view.Status)
	return &Result{Round: round, ProcessStatus: view.Status}, nil
}

func (a *Aggregator) complete(ctx context.Context, roundID uuid.UUID, rating int, comment string, decision types.Decision) (*types.Round, error) {
	unlock := a.locks.Lock(keylock.RoundKey(roundID.String()))
	defer unlock()

	round, err := a.repo.Round(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !round.Status.IsBooked() {
		return nil, &types.InvalidStateError{Kind: types.KindRound, ID: round.ID.String(), State: string(round.Status), Operation: "submit feedback for"}
	}

	now := a.now()
	round.Feedback = &types.Feedback{
		Rating:      &rating,
		Comment:     comment,
		Decision:    decision,
		SubmittedAt: now,
	}
	if err := round.Transition(types.RoundCompleted, "complete"); err != nil {
		return nil, err
	}
	round.UpdatedAt = now

	w, err := store.RoundWrite(round)
	if err != nil {
		return nil, err
	}
	if err := a.repo.Commit(ctx, w); err != nil {
		return nil, err
	}
	round.Version++
	return round, nil
}
