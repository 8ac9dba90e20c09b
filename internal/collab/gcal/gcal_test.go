package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return NewWithService(svc, "interviews")
}

func testSlot() types.Slot {
	return types.Slot{
		Start:    time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
		TimeZone: "UTC",
	}
}

func TestCreateEvent(t *testing.T) {
	var got calendar.Event
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "/calendars/interviews/events"), r.URL.Path)
		assert.Equal(t, "all", r.URL.Query().Get("sendUpdates"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-42"}`))
	})

	roundID := uuid.New()
	ref, err := client.CreateEvent(context.Background(), collab.EventRequest{
		RoundID:   roundID,
		Slot:      testSlot(),
		Attendees: []collab.Attendee{{Name: "Ada", Email: "ada@example.com"}},
		Summary:   "Technical interview",
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-42", ref)
	assert.Equal(t, "Technical interview", got.Summary)
	require.Len(t, got.Attendees, 1)
	assert.Equal(t, "ada@example.com", got.Attendees[0].Email)
	assert.Equal(t, "2026-04-01T09:00:00Z", got.Start.DateTime)
	assert.Equal(t, roundID.String(), got.ExtendedProperties.Private["round_id"])
}

func TestCancelEvent(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		var path string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			path = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		})
		require.NoError(t, client.CancelEvent(context.Background(), "evt-1"))
		assert.True(t, strings.HasSuffix(path, "/events/evt-1"))
	})

	t.Run("already gone", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGone)
			_, _ = w.Write([]byte(`{"error":{"code":410,"message":"deleted"}}`))
		})
		assert.NoError(t, client.CancelEvent(context.Background(), "evt-1"))
	})

	t.Run("server error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad"}}`))
		})
		assert.Error(t, client.CancelEvent(context.Background(), "evt-1"))
	})

	t.Run("empty reference is a no-op", func(t *testing.T) {
		client := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
			t.Fatal("no request expected")
		})
		assert.NoError(t, client.CancelEvent(context.Background(), ""))
	})
}

func TestBusy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/freeBusy"), r.URL.Path)
		var req calendar.FreeBusyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 1)
		assert.Equal(t, "ada@example.com", req.Items[0].Id)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calendars":{"ada@example.com":{"busy":[
			{"start":"2026-04-01T09:30:00Z","end":"2026-04-01T10:30:00Z"}
		]}}}`))
	})

	busy, err := client.Busy(context.Background(), "ada@example.com", testSlot())
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.True(t, busy[0].Start.Equal(time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)))
	assert.True(t, busy[0].Overlaps(testSlot()))
}

func TestBusyCalendarError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calendars":{"ada@example.com":{"errors":[{"domain":"global","reason":"notFound"}]}}}`))
	})

	_, err := client.Busy(context.Background(), "ada@example.com", testSlot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notFound")
}
