package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-engine/internal/types"
)

type recordKey struct {
	kind string
	id   uuid.UUID
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[recordKey]Record
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[recordKey]Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*Memory)(nil)

// Get returns a copy of the stored record.
func (m *Memory) Get(_ context.Context, kind string, id uuid.UUID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordKey{kind, id}]
	if !ok {
		return nil, &types.NotFoundError{Kind: kind, ID: id.String()}
	}
	return copyRecord(rec), nil
}

// Query returns copies of all matching records.
func (m *Memory) Query(_ context.Context, kind string, filter Filter) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Record
	for k, rec := range m.records {
		if k.kind != kind {
			continue
		}
		if filter.JobID != uuid.Nil && rec.JobID != filter.JobID {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	SortRecords(out)
	return out, nil
}

// Commit validates every expectation before applying any write.
func (m *Memory) Commit(ctx context.Context, writes ...Write) error {
	if err := CheckBatch(writes); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		existing, ok := m.records[recordKey{w.Record.Kind, w.Record.ID}]
		var actual int64
		if ok {
			actual = existing.Version
		}
		if actual != w.ExpectedVersion {
			return Conflict(w, actual)
		}
	}

	now := m.now()
	for _, w := range writes {
		key := recordKey{w.Record.Kind, w.Record.ID}
		rec := *copyRecord(*w.Record)
		rec.Version = w.ExpectedVersion + 1
		rec.UpdatedAt = now
		if existing, ok := m.records[key]; ok {
			rec.CreatedAt = existing.CreatedAt
		} else {
			rec.CreatedAt = now
		}
		m.records[key] = rec
	}
	return nil
}

// Len returns the number of stored records of a kind.
func (m *Memory) Len(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for k := range m.records {
		if k.kind == kind {
			n++
		}
	}
	return n
}

func copyRecord(rec Record) *Record {
	c := rec
	c.Data = append([]byte(nil), rec.Data...)
	return &c
}

// SortRecords orders records by creation time, then id.
func SortRecords(recs []*Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
}
