package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/keylock"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// lockRound takes the round and interviewer locks and returns the round as
// loaded under them. Interviewers never change after shortlisting, so the
// keys read before locking stay valid.
func (e *Engine) lockRound(ctx context.Context, roundID uuid.UUID) (*types.Round, func(), error) {
	peek, err := e.repo.Round(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	return e.lockPeeked(ctx, peek)
}

func (e *Engine) lockPeeked(ctx context.Context, peek *types.Round) (*types.Round, func(), error) {
	unlock := e.locks.Lock(lockKeys(peek)...)
	round, err := e.repo.Round(ctx, peek.ID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return round, unlock, nil
}

// slotChange is a committed slot assignment plus what it replaced.
type slotChange struct {
	round    *types.Round
	prevSlot *types.Slot
	prevRef  string
}

// assign books slot for the round and moves it to status to, all in one
// commit. Nothing is written when the conflict check fails. External busy
// time is fetched before the locks are taken so a slow provider never holds
// them.
func (e *Engine) assign(ctx context.Context, roundID uuid.UUID, slot types.Slot, to types.RoundStatus, operation string, allowed func(types.RoundStatus) bool, res *Result) (*slotChange, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}
	peek, err := e.repo.Round(ctx, roundID)
	if err != nil {
		return nil, err
	}
	busy := e.fetchBusy(ctx, peek, slot, res)

	round, unlock, err := e.lockPeeked(ctx, peek)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !allowed(round.Status) {
		return nil, &types.InvalidStateError{Kind: types.KindRound, ID: round.ID.String(), State: string(round.Status), Operation: operation}
	}

	writes, err := e.reserve(ctx, round, slot)
	if err != nil {
		return nil, err
	}
	if err := checkBusy(round, slot, busy); err != nil {
		return nil, err
	}

	change := &slotChange{prevRef: round.EventRef}
	if round.Slot != nil {
		prev := *round.Slot
		change.prevSlot = &prev
	}

	next := round.Clone()
	if err := next.Transition(to, operation); err != nil {
		return nil, err
	}
	next.Slot = &slot
	next.EventRef = ""
	next.UpdatedAt = e.now()
	rw, err := store.RoundWrite(next)
	if err != nil {
		return nil, err
	}
	if err := e.repo.Commit(ctx, append(writes, rw)...); err != nil {
		return nil, err
	}
	next.Version++
	change.round = next

	e.logger.Info("round slot committed",
		"operation", operation,
		"round_id", next.ID,
		"status", next.Status,
		"slot", slot.String())
	return change, nil
}

// Schedule books the first slot of an unscheduled round.
func (e *Engine) Schedule(ctx context.Context, roundID uuid.UUID, slot types.Slot) (*Result, error) {
	res := &Result{}
	change, err := e.assign(ctx, roundID, slot, types.RoundScheduled, "schedule",
		func(s types.RoundStatus) bool { return s == types.RoundUnscheduled }, res)
	if err != nil {
		return nil, err
	}
	res.Round = change.round
	e.announce(ctx, res, collab.TemplateInvitation, nil, true)
	return res, nil
}

// Reschedule moves a booked round to a new slot. On a conflict the round
// keeps its slot and calendar event; on success the previous event is
// cancelled best-effort and a new one is requested.
func (e *Engine) Reschedule(ctx context.Context, roundID uuid.UUID, slot types.Slot) (*Result, error) {
	res := &Result{}
	change, err := e.assign(ctx, roundID, slot, types.RoundRescheduled, "reschedule",
		types.RoundStatus.IsBooked, res)
	if err != nil {
		return nil, err
	}
	res.Round = change.round

	if change.prevRef != "" {
		e.cancelEvent(ctx, change.prevRef, res)
	}
	extra := map[string]string{}
	if change.prevSlot != nil {
		extra["previous_start"] = formatTime(change.prevSlot.Start, *change.prevSlot)
	}
	e.announce(ctx, res, collab.TemplateRescheduled, extra, true)
	return res, nil
}

// Confirm settles a rescheduled round back to scheduled once its attendees
// have accepted the new slot.
func (e *Engine) Confirm(ctx context.Context, roundID uuid.UUID) (*Result, error) {
	round, unlock, err := e.lockRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if round.Status != types.RoundRescheduled {
		return nil, &types.InvalidStateError{Kind: types.KindRound, ID: round.ID.String(), State: string(round.Status), Operation: "confirm"}
	}
	if err := round.Transition(types.RoundScheduled, "confirm"); err != nil {
		return nil, err
	}
	round.UpdatedAt = e.now()
	w, err := store.RoundWrite(round)
	if err != nil {
		return nil, err
	}
	if err := e.repo.Commit(ctx, w); err != nil {
		return nil, err
	}
	round.Version++
	return &Result{Round: round, Notified: true}, nil
}

// Cancel moves a pre-completion round to cancelled and releases its
// bookings. Attendees of a booked round are told about the cancellation.
func (e *Engine) Cancel(ctx context.Context, roundID uuid.UUID, reason string) (*Result, error) {
	round, wasBooked, prevRef, err := e.cancel(ctx, roundID)
	if err != nil {
		return nil, err
	}
	res := &Result{Round: round, Notified: true}
	if prevRef != "" {
		e.cancelEvent(ctx, prevRef, res)
	}
	if wasBooked {
		e.announce(ctx, res, collab.TemplateCancelled, map[string]string{"reason": reason}, false)
	}
	return res, nil
}

func (e *Engine) cancel(ctx context.Context, roundID uuid.UUID) (*types.Round, bool, string, error) {
	round, unlock, err := e.lockRound(ctx, roundID)
	if err != nil {
		return nil, false, "", err
	}
	defer unlock()

	wasBooked := round.Status.IsBooked()
	prevRef := round.EventRef

	writes, err := e.release(ctx, round)
	if err != nil {
		return nil, false, "", err
	}
	if err := round.Transition(types.RoundCancelled, "cancel"); err != nil {
		return nil, false, "", err
	}
	round.EventRef = ""
	round.UpdatedAt = e.now()
	rw, err := store.RoundWrite(round)
	if err != nil {
		return nil, false, "", err
	}
	if err := e.repo.Commit(ctx, append(writes, rw)...); err != nil {
		return nil, false, "", err
	}
	round.Version++
	e.logger.Info("round cancelled", "round_id", round.ID, "was_booked", wasBooked)
	return round, wasBooked, prevRef, nil
}

// ProcessResult is the outcome of cancelling a whole process.
type ProcessResult struct {
	Process   *types.ProcessView `json:"process"`
	Cancelled []uuid.UUID        `json:"cancelled_rounds"`
	Notified  bool               `json:"notified"`
	Warnings  []*types.Warning   `json:"warnings,omitempty"`
}

// CancelProcess cancels every round of the process that has not completed.
// A complete process cannot be cancelled; an already cancelled one is
// returned unchanged.
func (e *Engine) CancelProcess(ctx context.Context, processID uuid.UUID, reason string) (*ProcessResult, error) {
	unlock := e.locks.Lock(keylock.ProcessKey(processID.String()))
	defer unlock()

	view, err := e.repo.ProcessView(ctx, processID)
	if err != nil {
		return nil, err
	}
	if view.Status == types.ProcessComplete {
		return nil, &types.InvalidStateError{Kind: types.KindProcess, ID: processID.String(), State: string(view.Status), Operation: "cancel"}
	}

	out := &ProcessResult{Notified: true}
	for _, r := range view.Rounds {
		if r.Status.IsTerminal() {
			continue
		}
		res, err := e.Cancel(ctx, r.ID, reason)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel round %d of process %s: %w", r.Index, processID, err)
		}
		out.Cancelled = append(out.Cancelled, r.ID)
		out.Notified = out.Notified && res.Notified
		out.Warnings = append(out.Warnings, res.Warnings...)
	}

	view, err = e.repo.ProcessView(ctx, processID)
	if err != nil {
		return nil, err
	}
	out.Process = view
	return out, nil
}
