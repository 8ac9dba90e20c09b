// Package collabtest provides recording collaborator fakes for engine tests.
package collabtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/types"
)

// ErrUnavailable is returned by fakes configured to fail.
var ErrUnavailable = errors.New("collaborator unavailable")

// Calendar records created and cancelled events.
type Calendar struct {
	mu         sync.Mutex
	Created    []collab.EventRequest
	Cancelled  []string
	FailCreate bool
	FailCancel bool
	// Block makes calls wait for context cancellation.
	Block bool
	next  int
}

// CreateEvent records req and returns a sequential reference.
func (c *Calendar) CreateEvent(ctx context.Context, req collab.EventRequest) (string, error) {
	if c.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailCreate {
		return "", ErrUnavailable
	}
	c.next++
	c.Created = append(c.Created, req)
	return fmt.Sprintf("evt-%d", c.next), nil
}

// CancelEvent records the reference.
func (c *Calendar) CancelEvent(ctx context.Context, ref string) error {
	if c.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailCancel {
		return ErrUnavailable
	}
	c.Cancelled = append(c.Cancelled, ref)
	return nil
}

// CreatedCount returns the number of created events.
func (c *Calendar) CreatedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Created)
}

// CancelledRefs returns a copy of the cancelled references.
func (c *Calendar) CancelledRefs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Cancelled...)
}

// Notifier records sent messages.
type Notifier struct {
	mu   sync.Mutex
	Sent []collab.Message
	Fail bool
}

// Send records msg.
func (n *Notifier) Send(_ context.Context, msg collab.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Fail {
		return ErrUnavailable
	}
	n.Sent = append(n.Sent, msg)
	return nil
}

// Templates returns the template of every sent message.
func (n *Notifier) Templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.Sent))
	for i, m := range n.Sent {
		out[i] = m.Template
	}
	return out
}

// Messages returns a copy of the sent messages.
func (n *Notifier) Messages() []collab.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]collab.Message(nil), n.Sent...)
}

// Availability returns fixed busy intervals per attendee email.
type Availability struct {
	BusyByAttendee map[string][]types.Slot
	Fail           bool
}

// Busy returns the configured intervals overlapping window.
func (a *Availability) Busy(_ context.Context, attendee string, window types.Slot) ([]types.Slot, error) {
	if a.Fail {
		return nil, ErrUnavailable
	}
	var out []types.Slot
	for _, s := range a.BusyByAttendee[attendee] {
		if s.Overlaps(window) {
			out = append(out, s)
		}
	}
	return out, nil
}

// FitScores returns scores from a map, failing for listed candidates.
type FitScores struct {
	Scores map[string]float64
	Fail   map[string]bool
}

// FitScore looks the candidate up by id.
func (f *FitScores) FitScore(_ context.Context, c *types.Candidate) (float64, error) {
	if f.Fail[c.ID.String()] {
		return 0, ErrUnavailable
	}
	if s, ok := f.Scores[c.ID.String()]; ok {
		return s, nil
	}
	return c.FitScore, nil
}
