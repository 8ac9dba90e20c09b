package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/hiring-engine/internal/types"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 6, 17, hour, minute, 0, 0, time.UTC)
}

func span(h1, m1, h2, m2 int) types.Slot {
	return types.Slot{Start: at(h1, m1), End: at(h2, m2), TimeZone: "UTC"}
}

func TestGenerate(t *testing.T) {
	got := Generate(span(9, 0, 11, 0), 30*time.Minute, 30*time.Minute)
	require.Len(t, got, 4)
	assert.True(t, got[0].Equal(span(9, 0, 9, 30)))
	assert.True(t, got[3].Equal(span(10, 30, 11, 0)))

	overlapping := Generate(span(9, 0, 10, 0), time.Hour, 15*time.Minute)
	assert.Len(t, overlapping, 1, "slots never pass the window end")

	assert.Nil(t, Generate(span(9, 0, 9, 0), time.Hour, time.Hour))
	assert.Nil(t, Generate(span(9, 0, 10, 0), 0, time.Hour))
}

func TestMask(t *testing.T) {
	m := newMask(70, true)
	assert.Equal(t, 70, m.Count())
	assert.True(t, m.Has(69))

	other := newMask(70, false)
	other.Set(3)
	other.Set(65)
	m.And(other)
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.Has(65))
	assert.False(t, m.Has(4))
}

func TestSuggest(t *testing.T) {
	window := span(9, 0, 12, 0)
	busy := [][]types.Slot{
		{span(9, 0, 9, 30)},
		{span(9, 30, 10, 0)},
		{span(10, 0, 10, 30)},
	}

	tests := []struct {
		name  string
		busy  [][]types.Slot
		limit int
		want  []types.Slot
	}{
		{
			name:  "first common slots",
			busy:  busy,
			limit: 2,
			want:  []types.Slot{span(10, 30, 11, 0), span(11, 0, 11, 30)},
		},
		{
			name:  "no limit",
			busy:  busy,
			limit: 0,
			want:  []types.Slot{span(10, 30, 11, 0), span(11, 0, 11, 30), span(11, 30, 12, 0)},
		},
		{
			name:  "no attendees means all free",
			busy:  nil,
			limit: 1,
			want:  []types.Slot{span(9, 0, 9, 30)},
		},
		{
			name:  "fully booked",
			busy:  [][]types.Slot{{span(8, 0, 13, 0)}},
			limit: 3,
			want:  []types.Slot{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(window, 30*time.Minute, 30*time.Minute, tt.busy, tt.limit)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.True(t, tt.want[i].Equal(got[i]), "slot %d: got %s", i, got[i])
			}
		})
	}
}
