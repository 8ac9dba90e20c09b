package scheduling

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/keylock"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// displayLayout formats slot times in messages, in the slot's own zone.
const displayLayout = "Monday, January 2, 2006 15:04 MST"

func formatTime(t time.Time, slot types.Slot) string {
	return t.In(slot.Location()).Format(displayLayout)
}

// announce runs the advisory side of a committed change: an optional
// calendar event for the round's slot, then one message per attendee.
// res.Notified ends up false when any of it failed.
func (e *Engine) announce(ctx context.Context, res *Result, template string, extra map[string]string, createEvent bool) {
	round := res.Round
	job, err := e.repo.Job(ctx, round.JobID)
	if err != nil {
		res.warn(types.NewWarning(collab.NameNotifier, template, fmt.Errorf("failed to load job: %w", err)))
		res.Notified = false
		return
	}
	candidate, err := e.repo.Candidate(ctx, round.CandidateID)
	if err != nil {
		res.warn(types.NewWarning(collab.NameNotifier, template, fmt.Errorf("failed to load candidate: %w", err)))
		res.Notified = false
		return
	}

	calendarOK := true
	if createEvent && e.calendar != nil && round.Slot != nil {
		calendarOK = e.createEvent(ctx, res, job, candidate)
	}

	payload := basePayload(res.Round, job, candidate)
	maps.Copy(payload, extra)
	msgs := make([]collab.Message, 0, len(round.Interviewers)+1)
	for _, a := range attendees(round, candidate) {
		p := maps.Clone(payload)
		p["recipient_name"] = a.Name
		msgs = append(msgs, collab.Message{Template: template, Recipient: a, Payload: p})
	}
	notifyOK, warnings := collab.Broadcast(ctx, e.logger, e.timeout, e.notifier, msgs)
	res.warn(warnings...)
	res.Notified = calendarOK && notifyOK
}

// createEvent requests the calendar event and records its reference on the
// round. An event whose round moved on before the reference was recorded is
// cancelled again.
func (e *Engine) createEvent(ctx context.Context, res *Result, job *types.JobPosting, candidate *types.Candidate) bool {
	round := res.Round
	req := collab.EventRequest{
		RoundID:     round.ID,
		Slot:        *round.Slot,
		Attendees:   attendees(round, candidate),
		Summary:     fmt.Sprintf("%s interview: %s (%s)", round.RoundType, candidate.Name, job.RoleName),
		Description: fmt.Sprintf("Round %d of the %s process for %s.", round.Index, job.RoleName, candidate.Name),
	}
	var ref string
	w := collab.Advise(ctx, e.logger, e.timeout, collab.NameCalendar, "create_event", func(ctx context.Context) error {
		var err error
		ref, err = e.calendar.CreateEvent(ctx, req)
		return err
	})
	if w != nil {
		res.warn(w)
		return false
	}

	updated, err := e.recordEvent(ctx, round, ref)
	if err != nil {
		e.logger.Warn("failed to record calendar event", "round_id", round.ID, "event_ref", ref, "error", err)
		res.warn(types.NewWarning(collab.NameCalendar, "record_event", err))
		e.cancelEvent(ctx, ref, res)
		return false
	}
	res.Round = updated
	return true
}

// recordEvent writes the event reference back if the round is still at the
// version the event was created for.
func (e *Engine) recordEvent(ctx context.Context, round *types.Round, ref string) (*types.Round, error) {
	unlock := e.locks.Lock(keylock.RoundKey(round.ID.String()))
	defer unlock()

	current, err := e.repo.Round(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	if current.Version != round.Version {
		return nil, &types.VersionConflictError{Kind: types.KindRound, ID: round.ID.String(), Expected: round.Version, Actual: current.Version}
	}
	current.EventRef = ref
	current.UpdatedAt = e.now()
	w, err := store.RoundWrite(current)
	if err != nil {
		return nil, err
	}
	if err := e.repo.Commit(ctx, w); err != nil {
		return nil, err
	}
	current.Version++
	return current, nil
}

// cancelEvent removes a calendar event best-effort.
func (e *Engine) cancelEvent(ctx context.Context, ref string, res *Result) {
	if e.calendar == nil {
		return
	}
	res.warn(collab.Advise(ctx, e.logger, e.timeout, collab.NameCalendar, "cancel_event "+ref, func(ctx context.Context) error {
		return e.calendar.CancelEvent(ctx, ref)
	}))
}

// attendees lists the interviewers with an email address, then the candidate.
func attendees(round *types.Round, candidate *types.Candidate) []collab.Attendee {
	out := make([]collab.Attendee, 0, len(round.Interviewers)+1)
	seen := make(map[string]bool, len(round.Interviewers)+1)
	for _, iv := range round.Interviewers {
		email := strings.ToLower(strings.TrimSpace(iv.Email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, collab.Attendee{Name: iv.Name, Email: iv.Email})
	}
	if email := strings.ToLower(strings.TrimSpace(candidate.Email)); email != "" && !seen[email] {
		out = append(out, collab.Attendee{Name: candidate.Name, Email: candidate.Email})
	}
	return out
}

func basePayload(round *types.Round, job *types.JobPosting, candidate *types.Candidate) map[string]string {
	names := make([]string, 0, len(round.Interviewers))
	for _, iv := range round.Interviewers {
		if iv.Name != "" {
			names = append(names, iv.Name)
		} else {
			names = append(names, iv.Email)
		}
	}
	p := map[string]string{
		"candidate_name": candidate.Name,
		"role_name":      job.RoleName,
		"round_type":     round.RoundType,
		"round_index":    strconv.Itoa(round.Index),
		"interviewers":   strings.Join(names, ", "),
	}
	if round.Slot != nil {
		p["start"] = formatTime(round.Slot.Start, *round.Slot)
		p["end"] = formatTime(round.Slot.End, *round.Slot)
		p["time_zone"] = round.Slot.Location().String()
	}
	return p
}
