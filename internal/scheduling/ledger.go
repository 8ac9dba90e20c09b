package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// liveBookings returns the ledger's bookings that still hold time, minus the
// excluded round. A booking is live only while its round is scheduled or
// rescheduled at the same slot; anything else is stale and gets dropped on
// the next write of the ledger.
func (e *Engine) liveBookings(ctx context.Context, ledger *types.InterviewerSchedule, exclude uuid.UUID) ([]types.Booking, error) {
	live := make([]types.Booking, 0, len(ledger.Bookings))
	for _, b := range ledger.Bookings {
		if b.RoundID == exclude {
			continue
		}
		other, err := e.repo.Round(ctx, b.RoundID)
		if err != nil {
			var nf *types.NotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return nil, fmt.Errorf("failed to load booked round %s: %w", b.RoundID, err)
		}
		if !other.Status.IsBooked() || other.Slot == nil || !other.Slot.Equal(b.Slot) {
			continue
		}
		live = append(live, b)
	}
	return live, nil
}

// reserve checks slot against every interviewer ledger of the round and
// returns the ledger writes that book it. The round's own booking, if any,
// is replaced.
func (e *Engine) reserve(ctx context.Context, round *types.Round, slot types.Slot) ([]store.Write, error) {
	keys := round.InterviewerKeys()
	writes := make([]store.Write, 0, len(keys))
	for _, key := range keys {
		ledger, err := e.repo.Schedule(ctx, key)
		if err != nil {
			return nil, err
		}
		live, err := e.liveBookings(ctx, ledger, round.ID)
		if err != nil {
			return nil, err
		}
		for _, b := range live {
			if b.Slot.Overlaps(slot) {
				return nil, &types.ConflictError{
					RoundID:            round.ID,
					Interviewer:        key,
					Slot:               slot,
					ConflictingRoundID: b.RoundID,
					ConflictingSlot:    b.Slot,
					Reason:             types.ConflictOverlap,
				}
			}
		}
		ledger.Bookings = append(live, types.Booking{RoundID: round.ID, Slot: slot})
		w, err := store.ScheduleWrite(ledger)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}
	return writes, nil
}

// release returns the ledger writes that drop the round's bookings. Ledgers
// that do not mention the round are left alone.
func (e *Engine) release(ctx context.Context, round *types.Round) ([]store.Write, error) {
	var writes []store.Write
	for _, key := range round.InterviewerKeys() {
		ledger, err := e.repo.Schedule(ctx, key)
		if err != nil {
			return nil, err
		}
		if ledger.Version == 0 {
			continue
		}
		kept := ledger.Without(round.ID)
		if len(kept) == len(ledger.Bookings) {
			continue
		}
		ledger.Bookings = kept
		w, err := store.ScheduleWrite(ledger)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}
	return writes, nil
}

// fetchBusy asks the availability provider for each interviewer's busy
// time around slot. Interviewers whose lookup fails are left out with a
// warning; a provider failure never rejects the slot.
func (e *Engine) fetchBusy(ctx context.Context, round *types.Round, slot types.Slot, res *Result) map[string][]types.Slot {
	if e.availability == nil {
		return nil
	}
	busy := make(map[string][]types.Slot, len(round.Interviewers))
	for _, iv := range round.Interviewers {
		if iv.Email == "" {
			continue
		}
		var intervals []types.Slot
		w := collab.Advise(ctx, e.logger, e.timeout, collab.NameAvailability, "busy "+iv.Email, func(ctx context.Context) error {
			var err error
			intervals, err = e.availability.Busy(ctx, iv.Email, slot)
			return err
		})
		if w != nil {
			res.warn(w)
			continue
		}
		busy[iv.Key()] = intervals
	}
	return busy
}

// checkBusy rejects slot when it overlaps an interviewer's busy time.
// Intervals equal to the round's current slot belong to the round itself
// and are ignored.
func checkBusy(round *types.Round, slot types.Slot, busy map[string][]types.Slot) error {
	for _, key := range round.InterviewerKeys() {
		for _, b := range busy[key] {
			if round.Slot != nil && b.Start.Equal(round.Slot.Start) && b.End.Equal(round.Slot.End) {
				continue
			}
			if b.Overlaps(slot) {
				return &types.ConflictError{
					RoundID:         round.ID,
					Interviewer:     key,
					Slot:            slot,
					ConflictingSlot: b,
					Reason:          types.ConflictUnavailable,
				}
			}
		}
	}
	return nil
}
