package collab_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/collab/collabtest"
	"github.com/jonathan/hiring-engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestAdviseSuccess(t *testing.T) {
	w := collab.Advise(context.Background(), quiet, time.Second, collab.NameCalendar, "create_event", func(context.Context) error {
		return nil
	})
	assert.Nil(t, w)
}

func TestAdviseFailureBecomesWarning(t *testing.T) {
	w := collab.Advise(context.Background(), quiet, time.Second, collab.NameCalendar, "create_event", func(context.Context) error {
		return errors.New("boom")
	})
	require.NotNil(t, w)
	assert.Equal(t, collab.NameCalendar, w.Collaborator)
	assert.Equal(t, "create_event", w.Operation)
	assert.Contains(t, w.Message, "boom")
}

func TestAdviseTimeout(t *testing.T) {
	cal := &collabtest.Calendar{Block: true}
	start := time.Now()
	w := collab.Advise(context.Background(), quiet, 20*time.Millisecond, collab.NameCalendar, "create_event", func(ctx context.Context) error {
		_, err := cal.CreateEvent(ctx, collab.EventRequest{})
		return err
	})
	require.NotNil(t, w)
	assert.Contains(t, w.Message, "deadline exceeded")
	assert.Less(t, time.Since(start), time.Second)
}

func TestBroadcast(t *testing.T) {
	msgs := []collab.Message{
		{Template: collab.TemplateInvitation, Recipient: collab.Attendee{Email: "a@x.com"}},
		{Template: collab.TemplateInvitation, Recipient: collab.Attendee{Email: "b@x.com"}},
	}

	t.Run("all delivered", func(t *testing.T) {
		n := &collabtest.Notifier{}
		ok, warnings := collab.Broadcast(context.Background(), quiet, time.Second, n, msgs)
		assert.True(t, ok)
		assert.Empty(t, warnings)
		assert.Len(t, n.Messages(), 2)
	})

	t.Run("failures are warnings", func(t *testing.T) {
		n := &collabtest.Notifier{Fail: true}
		ok, warnings := collab.Broadcast(context.Background(), quiet, time.Second, n, msgs)
		assert.False(t, ok)
		assert.Len(t, warnings, 2)
	})

	t.Run("nothing to send", func(t *testing.T) {
		ok, warnings := collab.Broadcast(context.Background(), quiet, time.Second, &collabtest.Notifier{}, nil)
		assert.True(t, ok)
		assert.Empty(t, warnings)
	})
}

func TestLogCalendarStableRef(t *testing.T) {
	cal := collab.LogCalendar{Logger: quiet}
	req := collab.EventRequest{
		RoundID: uuid.New(),
		Slot:    types.Slot{Start: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)},
	}
	a, err := cal.CreateEvent(context.Background(), req)
	require.NoError(t, err)
	b, err := cal.CreateEvent(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NoError(t, cal.CancelEvent(context.Background(), a))
}

func TestStoredFitScores(t *testing.T) {
	score, err := collab.StoredFitScores{}.FitScore(context.Background(), &types.Candidate{FitScore: 0.42})
	require.NoError(t, err)
	assert.Equal(t, 0.42, score)
}
