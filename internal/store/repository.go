package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Repository decodes records into the typed hiring model.
type Repository struct {
	store Store
}

// NewRepository wraps a Store.
func NewRepository(s Store) *Repository {
	return &Repository{store: s}
}

// Store returns the underlying store.
func (r *Repository) Store() Store {
	return r.store
}

// Commit forwards a batch to the store.
func (r *Repository) Commit(ctx context.Context, writes ...Write) error {
	return r.store.Commit(ctx, writes...)
}

func decode(rec *Record, v any) error {
	if err := json.Unmarshal(rec.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Jobs and candidates
// ----------------------------------------------------------------------------

// Job loads a job posting.
func (r *Repository) Job(ctx context.Context, id uuid.UUID) (*types.JobPosting, error) {
	rec, err := r.store.Get(ctx, types.KindJob, id)
	if err != nil {
		return nil, err
	}
	var job types.JobPosting
	if err := decode(rec, &job); err != nil {
		return nil, err
	}
	job.Version = rec.Version
	return &job, nil
}

// Jobs lists every job posting.
func (r *Repository) Jobs(ctx context.Context) ([]*types.JobPosting, error) {
	recs, err := r.store.Query(ctx, types.KindJob, Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	jobs := make([]*types.JobPosting, 0, len(recs))
	for _, rec := range recs {
		var job types.JobPosting
		if err := decode(rec, &job); err != nil {
			return nil, err
		}
		job.Version = rec.Version
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// JobWrite builds the write for a job at its current version.
func JobWrite(job *types.JobPosting) (Write, error) {
	return NewWrite(types.KindJob, job.ID, job.ID, job, job.Version)
}

// Candidate loads a candidate.
func (r *Repository) Candidate(ctx context.Context, id uuid.UUID) (*types.Candidate, error) {
	rec, err := r.store.Get(ctx, types.KindCandidate, id)
	if err != nil {
		return nil, err
	}
	var c types.Candidate
	if err := decode(rec, &c); err != nil {
		return nil, err
	}
	c.Version = rec.Version
	return &c, nil
}

// Candidates lists the candidates of a job.
func (r *Repository) Candidates(ctx context.Context, jobID uuid.UUID) ([]*types.Candidate, error) {
	recs, err := r.store.Query(ctx, types.KindCandidate, Filter{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	out := make([]*types.Candidate, 0, len(recs))
	for _, rec := range recs {
		var c types.Candidate
		if err := decode(rec, &c); err != nil {
			return nil, err
		}
		c.Version = rec.Version
		out = append(out, &c)
	}
	return out, nil
}

// CandidateWrite builds the write for a candidate at its current version.
func CandidateWrite(c *types.Candidate) (Write, error) {
	return NewWrite(types.KindCandidate, c.ID, c.JobID, c, c.Version)
}

// ----------------------------------------------------------------------------
// Processes and rounds
// ----------------------------------------------------------------------------

// Process loads an interview process.
func (r *Repository) Process(ctx context.Context, id uuid.UUID) (*types.InterviewProcess, error) {
	rec, err := r.store.Get(ctx, types.KindProcess, id)
	if err != nil {
		return nil, err
	}
	var p types.InterviewProcess
	if err := decode(rec, &p); err != nil {
		return nil, err
	}
	p.Version = rec.Version
	return &p, nil
}

// Processes lists the processes of a job.
func (r *Repository) Processes(ctx context.Context, jobID uuid.UUID) ([]*types.InterviewProcess, error) {
	recs, err := r.store.Query(ctx, types.KindProcess, Filter{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	out := make([]*types.InterviewProcess, 0, len(recs))
	for _, rec := range recs {
		var p types.InterviewProcess
		if err := decode(rec, &p); err != nil {
			return nil, err
		}
		p.Version = rec.Version
		out = append(out, &p)
	}
	return out, nil
}

// ProcessExists reports whether a process record is stored under id.
func (r *Repository) ProcessExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := r.store.Get(ctx, types.KindProcess, id)
	if err == nil {
		return true, nil
	}
	var nf *types.NotFoundError
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, err
}

// ProcessWrite builds the write for a process at its current version.
func ProcessWrite(p *types.InterviewProcess) (Write, error) {
	return NewWrite(types.KindProcess, p.ID, p.JobID, p, p.Version)
}

// Round loads a round.
func (r *Repository) Round(ctx context.Context, id uuid.UUID) (*types.Round, error) {
	rec, err := r.store.Get(ctx, types.KindRound, id)
	if err != nil {
		return nil, err
	}
	var round types.Round
	if err := decode(rec, &round); err != nil {
		return nil, err
	}
	round.Version = rec.Version
	return &round, nil
}

// RoundsForJob lists every round of a job.
func (r *Repository) RoundsForJob(ctx context.Context, jobID uuid.UUID) ([]*types.Round, error) {
	recs, err := r.store.Query(ctx, types.KindRound, Filter{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	out := make([]*types.Round, 0, len(recs))
	for _, rec := range recs {
		var round types.Round
		if err := decode(rec, &round); err != nil {
			return nil, err
		}
		round.Version = rec.Version
		out = append(out, &round)
	}
	return out, nil
}

// RoundWrite builds the write for a round at its current version.
func RoundWrite(round *types.Round) (Write, error) {
	return NewWrite(types.KindRound, round.ID, round.JobID, round, round.Version)
}

// ProcessView loads a process with its rounds.
func (r *Repository) ProcessView(ctx context.Context, id uuid.UUID) (*types.ProcessView, error) {
	p, err := r.Process(ctx, id)
	if err != nil {
		return nil, err
	}
	rounds := make([]*types.Round, 0, len(p.RoundIDs))
	for _, rid := range p.RoundIDs {
		round, err := r.Round(ctx, rid)
		if err != nil {
			return nil, fmt.Errorf("failed to load round %s of process %s: %w", rid, id, err)
		}
		rounds = append(rounds, round)
	}
	return types.NewProcessView(p, rounds), nil
}

// ProcessViews loads every process of a job with its rounds, using one
// query per kind.
func (r *Repository) ProcessViews(ctx context.Context, jobID uuid.UUID) ([]*types.ProcessView, error) {
	processes, err := r.Processes(ctx, jobID)
	if err != nil {
		return nil, err
	}
	rounds, err := r.RoundsForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	byProcess := make(map[uuid.UUID][]*types.Round)
	for _, round := range rounds {
		byProcess[round.ProcessID] = append(byProcess[round.ProcessID], round)
	}
	views := make([]*types.ProcessView, 0, len(processes))
	for _, p := range processes {
		views = append(views, types.NewProcessView(p, byProcess[p.ID]))
	}
	return views, nil
}

// ----------------------------------------------------------------------------
// Final candidates
// ----------------------------------------------------------------------------

// FinalCandidate loads the final-candidate record of a job.
func (r *Repository) FinalCandidate(ctx context.Context, jobID uuid.UUID) (*types.FinalCandidate, error) {
	rec, err := r.store.Get(ctx, types.KindFinalCandidate, types.FinalCandidateID(jobID))
	if err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return nil, &types.NotFoundError{Kind: types.KindFinalCandidate, ID: "job " + jobID.String()}
		}
		return nil, err
	}
	var fc types.FinalCandidate
	if err := decode(rec, &fc); err != nil {
		return nil, err
	}
	fc.Version = rec.Version
	return &fc, nil
}

// FinalCandidateWrite builds the write for a final candidate at its current version.
func FinalCandidateWrite(fc *types.FinalCandidate) (Write, error) {
	return NewWrite(types.KindFinalCandidate, fc.ID, fc.JobID, fc, fc.Version)
}

// ----------------------------------------------------------------------------
// Interviewer schedules
// ----------------------------------------------------------------------------

// Schedule loads an interviewer's booking ledger. A missing ledger is
// returned empty at version 0 so it can be created by the next commit.
func (r *Repository) Schedule(ctx context.Context, key string) (*types.InterviewerSchedule, error) {
	id := types.ScheduleID(key)
	rec, err := r.store.Get(ctx, types.KindInterviewerSchedule, id)
	if err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return &types.InterviewerSchedule{ID: id, Key: key}, nil
		}
		return nil, err
	}
	var s types.InterviewerSchedule
	if err := decode(rec, &s); err != nil {
		return nil, err
	}
	s.Version = rec.Version
	return &s, nil
}

// ScheduleWrite builds the write for a ledger at its current version.
func ScheduleWrite(s *types.InterviewerSchedule) (Write, error) {
	return NewWrite(types.KindInterviewerSchedule, s.ID, uuid.Nil, s, s.Version)
}
