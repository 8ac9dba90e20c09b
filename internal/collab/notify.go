package collab

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/hiring-engine/internal/types"
)

// Broadcast sends every message concurrently, each under its own timeout.
// It returns one warning per failed delivery and true when all succeeded.
func Broadcast(ctx context.Context, logger *slog.Logger, timeout time.Duration, n Notifier, msgs []Message) (bool, []*types.Warning) {
	if n == nil || len(msgs) == 0 {
		return len(msgs) == 0, nil
	}

	var (
		g        errgroup.Group
		mu       sync.Mutex
		warnings []*types.Warning
	)
	for _, msg := range msgs {
		g.Go(func() error {
			w := Advise(ctx, logger, timeout, NameNotifier, msg.Template+" to "+msg.Recipient.Email, func(ctx context.Context) error {
				return n.Send(ctx, msg)
			})
			if w != nil {
				mu.Lock()
				warnings = append(warnings, w)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return len(warnings) == 0, warnings
}

// LogNotifier logs messages instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
}

// Send logs the message.
func (n LogNotifier) Send(_ context.Context, msg Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"template", msg.Template,
		"recipient", msg.Recipient.Email,
		"attachments", len(msg.Attachments))
	return nil
}

// LogCalendar logs events instead of creating them. Event references are
// derived from the round so repeated calls are stable.
type LogCalendar struct {
	Logger *slog.Logger
}

// CreateEvent logs the event and returns a local reference.
func (c LogCalendar) CreateEvent(_ context.Context, req EventRequest) (string, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ref := "local-" + req.RoundID.String() + "-" + req.Slot.Start.UTC().Format("20060102T150405Z")
	logger.Info("calendar event",
		"round_id", req.RoundID,
		"start", req.Slot.Start,
		"end", req.Slot.End,
		"attendees", len(req.Attendees),
		"event_ref", ref)
	return ref, nil
}

// CancelEvent logs the cancellation.
func (c LogCalendar) CancelEvent(_ context.Context, ref string) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("calendar event cancelled", "event_ref", ref)
	return nil
}
