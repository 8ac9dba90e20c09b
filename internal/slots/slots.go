// Package slots suggests interview slots that every attendee has free.
//
// The search window is cut into fixed-step candidate slots. Each attendee
// gets a bitmask with one bit per candidate slot, set when the slot does not
// touch any of their busy intervals; the AND of all masks is the set of
// slots free for everyone.
package slots

import (
	"math/bits"
	"time"

	"github.com/jonathan/hiring-engine/internal/types"
)

// MaxCandidates bounds how many candidate slots one window may produce.
const MaxCandidates = 4096

// Mask is a bitset over candidate slots.
type Mask []uint64

func newMask(n int, full bool) Mask {
	m := make(Mask, (n+63)/64)
	if full {
		for i := range m {
			m[i] = ^uint64(0)
		}
		if rem := n % 64; rem != 0 {
			m[len(m)-1] = (uint64(1) << rem) - 1
		}
	}
	return m
}

// Set marks slot i.
func (m Mask) Set(i int) { m[i/64] |= 1 << (i % 64) }

// Has reports whether slot i is marked.
func (m Mask) Has(i int) bool { return m[i/64]&(1<<(i%64)) != 0 }

// And intersects m with other in place.
func (m Mask) And(other Mask) {
	for i := range m {
		m[i] &= other[i]
	}
}

// Count returns the number of marked slots.
func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Generate cuts window into slots of the given duration starting every step.
// Slots never run past the window end.
func Generate(window types.Slot, duration, step time.Duration) []types.Slot {
	if duration <= 0 || step <= 0 || !window.End.After(window.Start) {
		return nil
	}
	var out []types.Slot
	for start := window.Start; !start.Add(duration).After(window.End); start = start.Add(step) {
		out = append(out, types.Slot{Start: start, End: start.Add(duration), TimeZone: window.TimeZone})
		if len(out) == MaxCandidates {
			break
		}
	}
	return out
}

// Free builds the availability mask of one attendee over candidates.
func Free(candidates []types.Slot, busy []types.Slot) Mask {
	m := newMask(len(candidates), false)
	for i, c := range candidates {
		free := true
		for _, b := range busy {
			if c.Overlaps(b) {
				free = false
				break
			}
		}
		if free {
			m.Set(i)
		}
	}
	return m
}

// Suggest returns up to limit slots inside window that are free for every
// attendee, in chronological order. busy holds one list of busy intervals
// per attendee. A limit of 0 or less returns every common slot.
func Suggest(window types.Slot, duration, step time.Duration, busy [][]types.Slot, limit int) []types.Slot {
	candidates := Generate(window, duration, step)
	if len(candidates) == 0 {
		return nil
	}
	common := newMask(len(candidates), true)
	for _, b := range busy {
		common.And(Free(candidates, b))
	}

	out := make([]types.Slot, 0, min(common.Count(), max(limit, 0)))
	for i, c := range candidates {
		if !common.Has(i) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
