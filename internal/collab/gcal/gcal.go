// Package gcal implements the calendar and availability collaborators on top
// of the Google Calendar v3 API.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Conservative defaults, well below Google's per-user quota.
const (
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 10
)

// Client creates interview events on one calendar and answers free/busy queries.
type Client struct {
	svc        *calendar.Service
	calendarID string
	limiter    *rate.Limiter
}

var (
	_ collab.Calendar     = (*Client)(nil)
	_ collab.Availability = (*Client)(nil)
)

// New builds a client from a service-account or OAuth credentials file.
func New(ctx context.Context, credentialsFile, calendarID string, opts ...option.ClientOption) (*Client, error) {
	base := []option.ClientOption{option.WithScopes(calendar.CalendarScope)}
	if credentialsFile != "" {
		base = append(base, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := calendar.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return NewWithService(svc, calendarID), nil
}

// NewWithService wraps an existing calendar service.
func NewWithService(svc *calendar.Service, calendarID string) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{
		svc:        svc,
		calendarID: calendarID,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultBurst),
	}
}

// CreateEvent inserts the interview and invites every attendee.
func (c *Client) CreateEvent(ctx context.Context, req collab.EventRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	attendees := make([]*calendar.EventAttendee, 0, len(req.Attendees))
	for _, a := range req.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: a.Email, DisplayName: a.Name})
	}
	event := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       eventTime(req.Slot.Start, req.Slot),
		End:         eventTime(req.Slot.End, req.Slot),
		Attendees:   attendees,
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"round_id": req.RoundID.String()},
		},
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	return created.Id, nil
}

// CancelEvent deletes the event. An event that is already gone counts as cancelled.
func (c *Client) CancelEvent(ctx context.Context, eventRef string) error {
	if eventRef == "" {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	err := c.svc.Events.Delete(c.calendarID, eventRef).SendUpdates("all").Context(ctx).Do()
	if err != nil && !isGone(err) {
		return fmt.Errorf("failed to delete event %s: %w", eventRef, err)
	}
	return nil
}

// Busy returns the busy intervals of attendee's calendar inside window.
func (c *Client) Busy(ctx context.Context, attendee string, window types.Slot) ([]types.Slot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin:  window.Start.Format(time.RFC3339),
		TimeMax:  window.End.Format(time.RFC3339),
		TimeZone: window.TimeZone,
		Items:    []*calendar.FreeBusyRequestItem{{Id: attendee}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	cal, ok := resp.Calendars[attendee]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("free/busy for %s: %s", attendee, cal.Errors[0].Reason)
	}

	busy := make([]types.Slot, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid busy start %q: %w", p.Start, err)
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, fmt.Errorf("invalid busy end %q: %w", p.End, err)
		}
		busy = append(busy, types.Slot{Start: start, End: end, TimeZone: window.TimeZone})
	}
	return busy, nil
}

func eventTime(t time.Time, slot types.Slot) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.In(slot.Location()).Format(time.RFC3339),
		TimeZone: slot.TimeZone,
	}
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
