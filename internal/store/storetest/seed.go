package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// SeedJob stores an active job.
func SeedJob(t *testing.T, repo *store.Repository, roleName string) *types.JobPosting {
	t.Helper()
	now := time.Now().UTC()
	job := &types.JobPosting{
		ID:        uuid.New(),
		RoleName:  roleName,
		Status:    types.JobStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	w, err := store.JobWrite(job)
	require.NoError(t, err)
	require.NoError(t, repo.Commit(context.Background(), w))
	job.Version = 1
	return job
}

// SeedCandidate stores a candidate of the job.
func SeedCandidate(t *testing.T, repo *store.Repository, jobID uuid.UUID, name, email string, fitScore float64) *types.Candidate {
	t.Helper()
	c := &types.Candidate{
		ID:        uuid.New(),
		JobID:     jobID,
		Name:      name,
		Email:     email,
		FitScore:  fitScore,
		CreatedAt: time.Now().UTC(),
	}
	w, err := store.CandidateWrite(c)
	require.NoError(t, err)
	require.NoError(t, repo.Commit(context.Background(), w))
	c.Version = 1
	return c
}

// SeedProcess stores a process for the candidate with one unscheduled round
// per template.
func SeedProcess(t *testing.T, repo *store.Repository, c *types.Candidate, createdAt time.Time, templates ...types.RoundTemplate) *types.ProcessView {
	t.Helper()
	pid := types.ProcessID(c.JobID, c.ID)
	p := &types.InterviewProcess{ID: pid, JobID: c.JobID, CandidateID: c.ID, CreatedAt: createdAt}
	var (
		rounds []*types.Round
		writes []store.Write
	)
	for i, tmpl := range templates {
		r := &types.Round{
			ID:           types.RoundID(pid, i+1),
			ProcessID:    pid,
			JobID:        c.JobID,
			CandidateID:  c.ID,
			Index:        i + 1,
			RoundType:    tmpl.RoundType,
			Interviewers: tmpl.Interviewers,
			Status:       types.RoundUnscheduled,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		}
		p.RoundIDs = append(p.RoundIDs, r.ID)
		w, err := store.RoundWrite(r)
		require.NoError(t, err)
		writes = append(writes, w)
		r.Version = 1
		rounds = append(rounds, r)
	}
	w, err := store.ProcessWrite(p)
	require.NoError(t, err)
	require.NoError(t, repo.Commit(context.Background(), append(writes, w)...))
	p.Version = 1
	return types.NewProcessView(p, rounds)
}

// SetRound overwrites a stored round with the given status, slot and
// rating, bypassing the engines. It returns the stored round.
func SetRound(t *testing.T, repo *store.Repository, roundID uuid.UUID, status types.RoundStatus, slot *types.Slot, rating *int) *types.Round {
	t.Helper()
	ctx := context.Background()
	r, err := repo.Round(ctx, roundID)
	require.NoError(t, err)
	r.Status = status
	r.Slot = slot
	if rating != nil {
		r.Feedback = &types.Feedback{Rating: rating, Decision: types.DecisionYes, SubmittedAt: time.Now().UTC()}
	}
	w, err := store.RoundWrite(r)
	require.NoError(t, err)
	require.NoError(t, repo.Commit(ctx, w))
	r.Version++
	return r
}
