// Package scheduling assigns, moves and cancels interview round slots.
//
// Every slot change is checked against the booking ledger of each
// interviewer on the round and committed together with those ledgers in one
// batch, so two rounds sharing an interviewer can never hold overlapping
// slots even when the calls race across processes. Calendar events and
// notifications follow the commit and are advisory: their failures come back
// as warnings on an otherwise successful result.
package scheduling

import (
	"log/slog"
	"time"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/keylock"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Config holds the engine's dependencies. Calendar, Availability and
// Notifier are optional.
type Config struct {
	Repo         *store.Repository
	Locks        *keylock.Locker
	Calendar     collab.Calendar
	Availability collab.Availability
	Notifier     collab.Notifier
	Logger       *slog.Logger
	Timeout      time.Duration
	Now          func() time.Time
}

// Engine runs the scheduling operations.
type Engine struct {
	repo         *store.Repository
	locks        *keylock.Locker
	calendar     collab.Calendar
	availability collab.Availability
	notifier     collab.Notifier
	logger       *slog.Logger
	timeout      time.Duration
	now          func() time.Time
}

// New creates a scheduling engine.
func New(cfg Config) *Engine {
	e := &Engine{
		repo:         cfg.Repo,
		locks:        cfg.Locks,
		calendar:     cfg.Calendar,
		availability: cfg.Availability,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger,
		timeout:      cfg.Timeout,
		now:          cfg.Now,
	}
	if e.locks == nil {
		e.locks = keylock.New()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.timeout <= 0 {
		e.timeout = collab.DefaultTimeout
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e
}

// Result is the outcome of a slot operation. Notified is false when the
// state change was committed but the calendar or a notification failed.
type Result struct {
	Round    *types.Round     `json:"round"`
	Notified bool             `json:"notified"`
	Warnings []*types.Warning `json:"warnings,omitempty"`
}

func (r *Result) warn(ws ...*types.Warning) {
	for _, w := range ws {
		if w != nil {
			r.Warnings = append(r.Warnings, w)
		}
	}
}

// lockKeys returns the round lock plus one lock per interviewer ledger.
func lockKeys(round *types.Round) []string {
	keys := []string{keylock.RoundKey(round.ID.String())}
	for _, k := range round.InterviewerKeys() {
		keys = append(keys, keylock.InterviewerKey(k))
	}
	return keys
}
