// Package store defines the versioned record store the hiring engines persist
// through, an in-memory implementation and a typed repository on top of it.
//
// Records are JSON documents addressed by (kind, id). Every write names the
// version it expects to replace; a batch of writes commits atomically or not
// at all. Expected version 0 means "create only if absent".
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Record is a stored document.
type Record struct {
	Kind      string          `json:"kind"`
	ID        uuid.UUID       `json:"id"`
	JobID     uuid.UUID       `json:"job_id"`
	Data      json.RawMessage `json:"data"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Write is one conditional write of a batch.
type Write struct {
	Record          *Record
	ExpectedVersion int64
}

// Filter narrows a query. A nil JobID matches every record of the kind.
type Filter struct {
	JobID uuid.UUID
}

// Store is the persistence contract of the engines.
type Store interface {
	// Get returns the record or a *types.NotFoundError.
	Get(ctx context.Context, kind string, id uuid.UUID) (*Record, error)
	// Query returns matching records ordered by creation time, then id.
	Query(ctx context.Context, kind string, filter Filter) ([]*Record, error)
	// Commit applies all writes or none. A version mismatch returns a
	// *types.VersionConflictError and leaves the store unchanged.
	Commit(ctx context.Context, writes ...Write) error
}

// NewWrite marshals entity into a conditional write.
func NewWrite(kind string, id, jobID uuid.UUID, entity any, expectedVersion int64) (Write, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return Write{}, fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}
	return Write{
		Record:          &Record{Kind: kind, ID: id, JobID: jobID, Data: data},
		ExpectedVersion: expectedVersion,
	}, nil
}

// CheckBatch rejects malformed batches and batches that touch the same record twice.
func CheckBatch(writes []Write) error {
	seen := make(map[string]bool, len(writes))
	for _, w := range writes {
		if w.Record == nil {
			return &types.ValidationError{Field: "write", Message: "nil record"}
		}
		if w.ExpectedVersion < 0 {
			return &types.ValidationError{Field: "expected_version", Message: "must not be negative"}
		}
		key := w.Record.Kind + "/" + w.Record.ID.String()
		if seen[key] {
			return &types.ValidationError{Field: "write", Message: "duplicate record in batch: " + key}
		}
		seen[key] = true
	}
	return nil
}

// Conflict builds the error returned when a write's expectation fails.
func Conflict(w Write, actual int64) error {
	return &types.VersionConflictError{
		Kind:     w.Record.Kind,
		ID:       w.Record.ID.String(),
		Expected: w.ExpectedVersion,
		Actual:   actual,
	}
}
