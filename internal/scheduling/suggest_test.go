package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/hiring-engine/internal/collab/collabtest"
	"github.com/jonathan/hiring-engine/internal/types"
)

func TestSuggestSkipsBookedAndBusyTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// ada is booked 10-11 with the first candidate
	_, err := f.engine.Schedule(ctx, f.first.Rounds[0].ID, slotAt(10, 0, time.Hour))
	require.NoError(t, err)

	avail := &collabtest.Availability{BusyByAttendee: map[string][]types.Slot{
		grace.Email: {slotAt(11, 0, time.Hour)},
	}}
	engine := f.newEngine(func(c *Config) { c.Availability = avail })

	window := types.Slot{Start: slotAt(9, 0, 0).Start, End: slotAt(14, 0, 0).Start, TimeZone: "UTC"}
	got, err := engine.Suggest(ctx, f.second.Rounds[0].ID, SuggestRequest{Window: window, Duration: time.Hour, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, got.Warnings)
	require.Len(t, got.Slots, 3)
	assert.True(t, got.Slots[0].Equal(slotAt(9, 0, time.Hour)))
	assert.True(t, got.Slots[1].Equal(slotAt(12, 0, time.Hour)))
	assert.True(t, got.Slots[2].Equal(slotAt(13, 0, time.Hour)))
}

func TestSuggestIgnoresOwnBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	round := f.first.Rounds[0]

	_, err := f.engine.Schedule(ctx, round.ID, slotAt(10, 0, time.Hour))
	require.NoError(t, err)

	window := types.Slot{Start: slotAt(10, 0, 0).Start, End: slotAt(11, 0, 0).Start, TimeZone: "UTC"}
	got, err := f.engine.Suggest(ctx, round.ID, SuggestRequest{Window: window, Duration: time.Hour})
	require.NoError(t, err)
	require.Len(t, got.Slots, 1)
}

func TestSuggestValidates(t *testing.T) {
	f := newFixture(t)
	window := types.Slot{Start: slotAt(10, 0, 0).Start, End: slotAt(11, 0, 0).Start, TimeZone: "UTC"}
	_, err := f.engine.Suggest(context.Background(), f.first.Rounds[0].ID, SuggestRequest{Window: window})
	var ve *types.ValidationError
	assert.True(t, errors.As(err, &ve))
}
