// Package storetest holds the behavioural tests every store.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name string `json:"name"`
}

func write(t *testing.T, kind string, id, jobID uuid.UUID, name string, expected int64) store.Write {
	t.Helper()
	w, err := store.NewWrite(kind, id, jobID, doc{Name: name}, expected)
	require.NoError(t, err)
	return w
}

// Run exercises s against the store contract. s must be empty.
func Run(t *testing.T, s store.Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "widget", uuid.New())
		var nf *types.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("create then update", func(t *testing.T) {
		id, job := uuid.New(), uuid.New()
		require.NoError(t, s.Commit(ctx, write(t, "widget", id, job, "first", 0)))

		rec, err := s.Get(ctx, "widget", id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.Version)
		assert.Equal(t, job, rec.JobID)
		assert.JSONEq(t, `{"name":"first"}`, string(rec.Data))

		require.NoError(t, s.Commit(ctx, write(t, "widget", id, job, "second", 1)))
		rec, err = s.Get(ctx, "widget", id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.Version)
		assert.JSONEq(t, `{"name":"second"}`, string(rec.Data))
	})

	t.Run("create if absent", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, s.Commit(ctx, write(t, "widget", id, uuid.Nil, "a", 0)))

		err := s.Commit(ctx, write(t, "widget", id, uuid.Nil, "b", 0))
		var vc *types.VersionConflictError
		require.True(t, errors.As(err, &vc))
		assert.Equal(t, int64(0), vc.Expected)
		assert.Equal(t, int64(1), vc.Actual)
	})

	t.Run("stale version", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, s.Commit(ctx, write(t, "widget", id, uuid.Nil, "a", 0)))
		require.NoError(t, s.Commit(ctx, write(t, "widget", id, uuid.Nil, "b", 1)))

		err := s.Commit(ctx, write(t, "widget", id, uuid.Nil, "c", 1))
		var vc *types.VersionConflictError
		require.True(t, errors.As(err, &vc))
		assert.Equal(t, int64(2), vc.Actual)
	})

	t.Run("update of missing record conflicts", func(t *testing.T) {
		err := s.Commit(ctx, write(t, "widget", uuid.New(), uuid.Nil, "x", 3))
		var vc *types.VersionConflictError
		require.True(t, errors.As(err, &vc))
		assert.Equal(t, int64(0), vc.Actual)
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		existing, fresh := uuid.New(), uuid.New()
		require.NoError(t, s.Commit(ctx, write(t, "widget", existing, uuid.Nil, "a", 0)))

		err := s.Commit(ctx,
			write(t, "widget", fresh, uuid.Nil, "fresh", 0),
			write(t, "widget", existing, uuid.Nil, "stale", 7),
		)
		require.Error(t, err)

		_, err = s.Get(ctx, "widget", fresh)
		var nf *types.NotFoundError
		assert.True(t, errors.As(err, &nf), "first write of a failed batch must not persist")

		rec, err := s.Get(ctx, "widget", existing)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.Version)
	})

	t.Run("duplicate record in batch", func(t *testing.T) {
		id := uuid.New()
		err := s.Commit(ctx,
			write(t, "widget", id, uuid.Nil, "a", 0),
			write(t, "widget", id, uuid.Nil, "b", 0),
		)
		var ve *types.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("query by job", func(t *testing.T) {
		jobA, jobB := uuid.New(), uuid.New()
		a1, a2, b1 := uuid.New(), uuid.New(), uuid.New()
		require.NoError(t, s.Commit(ctx, write(t, "gadget", a1, jobA, "a1", 0)))
		require.NoError(t, s.Commit(ctx, write(t, "gadget", a2, jobA, "a2", 0)))
		require.NoError(t, s.Commit(ctx, write(t, "gadget", b1, jobB, "b1", 0)))

		recs, err := s.Query(ctx, "gadget", store.Filter{JobID: jobA})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		ids := []uuid.UUID{recs[0].ID, recs[1].ID}
		assert.ElementsMatch(t, []uuid.UUID{a1, a2}, ids)

		all, err := s.Query(ctx, "gadget", store.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		none, err := s.Query(ctx, "gizmo", store.Filter{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("concurrent creates have one winner", func(t *testing.T) {
		id := uuid.New()
		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w, err := store.NewWrite("widget", id, uuid.Nil, doc{Name: "racer"}, 0)
				if err != nil {
					return
				}
				err = s.Commit(ctx, w)
				mu.Lock()
				defer mu.Unlock()
				var vc *types.VersionConflictError
				switch {
				case err == nil:
					wins++
				case errors.As(err, &vc):
					conflicts++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
		assert.Equal(t, workers-1, conflicts)
	})
}
