// Package shortlist selects the top candidates of a job by fit score and
// materializes one interview process per selected candidate.
package shortlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/keylock"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Config holds the engine's dependencies.
type Config struct {
	Repo      *store.Repository
	Locks     *keylock.Locker
	FitScores collab.FitScores
	Logger    *slog.Logger
	Timeout   time.Duration
	Now       func() time.Time
}

// Engine runs shortlisting.
type Engine struct {
	repo    *store.Repository
	locks   *keylock.Locker
	scores  collab.FitScores
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// New creates a shortlisting engine.
func New(cfg Config) *Engine {
	e := &Engine{
		repo:    cfg.Repo,
		locks:   cfg.Locks,
		scores:  cfg.FitScores,
		logger:  cfg.Logger,
		timeout: cfg.Timeout,
		now:     cfg.Now,
	}
	if e.locks == nil {
		e.locks = keylock.New()
	}
	if e.scores == nil {
		e.scores = collab.StoredFitScores{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.timeout <= 0 {
		e.timeout = collab.DefaultTimeout
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e
}

// Result reports what a shortlisting call did. A shortfall is not an error.
type Result struct {
	JobID              uuid.UUID                          `json:"job_id"`
	Created            []*types.ProcessView               `json:"created"`
	AlreadyShortlisted []uuid.UUID                        `json:"already_shortlisted"`
	Ineligible         []uuid.UUID                        `json:"ineligible,omitempty"`
	Shortfall          *types.InsufficientCandidatesError `json:"shortfall,omitempty"`
	Warnings           []*types.Warning                   `json:"warnings,omitempty"`
}

type scored struct {
	candidate *types.Candidate
	score     float64
}

// Shortlist picks the top NumberOfCandidates candidates of the job and
// creates a process with NumberOfRounds unscheduled rounds for each one that
// does not have a process yet.
func (e *Engine) Shortlist(ctx context.Context, req types.ShortlistRequest) (*Result, error) {
	if req.NumberOfCandidates < 1 {
		return nil, &types.ValidationError{Field: "number_of_candidates", Message: "must be at least 1"}
	}
	if req.NumberOfRounds < 1 {
		return nil, &types.ValidationError{Field: "number_of_rounds", Message: "must be at least 1"}
	}
	if len(req.Templates) != req.NumberOfRounds {
		return nil, &types.ValidationError{
			Field:   "round_templates",
			Message: fmt.Sprintf("expected %d templates, got %d", req.NumberOfRounds, len(req.Templates)),
		}
	}
	for i, tmpl := range req.Templates {
		if len(tmpl.Interviewers) == 0 {
			return nil, &types.ValidationError{Field: fmt.Sprintf("round_templates[%d].interviewers", i), Message: "at least one interviewer is required"}
		}
	}

	unlock := e.locks.Lock(keylock.JobKey(req.JobID.String()))
	defer unlock()

	job, err := e.repo.Job(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsActive() {
		return nil, &types.InvalidStateError{Kind: types.KindJob, ID: job.ID.String(), State: job.Status, Operation: "shortlist"}
	}

	candidates, err := e.repo.Candidates(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	result := &Result{JobID: job.ID}
	ranked := e.rank(ctx, candidates, result)

	selected := ranked
	if len(selected) > req.NumberOfCandidates {
		selected = selected[:req.NumberOfCandidates]
	}
	if len(ranked) < req.NumberOfCandidates {
		result.Shortfall = &types.InsufficientCandidatesError{
			JobID:     job.ID,
			Requested: req.NumberOfCandidates,
			Available: len(ranked),
		}
	}

	for _, s := range selected {
		view, created, err := e.materialize(ctx, job, s.candidate, req.Templates)
		if err != nil {
			return nil, err
		}
		if created {
			result.Created = append(result.Created, view)
		} else {
			result.AlreadyShortlisted = append(result.AlreadyShortlisted, s.candidate.ID)
		}
	}

	e.logger.Info("shortlist complete",
		"job_id", job.ID,
		"requested", req.NumberOfCandidates,
		"created", len(result.Created),
		"already_shortlisted", len(result.AlreadyShortlisted),
		"ineligible", len(result.Ineligible))
	return result, nil
}

// rank scores every candidate and orders them by score descending, then id
// ascending. Candidates whose score cannot be fetched are left out.
func (e *Engine) rank(ctx context.Context, candidates []*types.Candidate, result *Result) []scored {
	out := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		var score float64
		w := collab.Advise(ctx, e.logger, e.timeout, collab.NameFitScores, "fit_score "+c.ID.String(), func(ctx context.Context) error {
			var err error
			score, err = e.scores.FitScore(ctx, c)
			return err
		})
		if w != nil {
			result.Warnings = append(result.Warnings, w)
			result.Ineligible = append(result.Ineligible, c.ID)
			continue
		}
		out = append(out, scored{candidate: c, score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].candidate.ID.String() < out[j].candidate.ID.String()
	})
	return out
}

// materialize creates the process and its rounds in one batch. It returns
// created=false when the process already exists, including when a
// concurrent caller created it first.
func (e *Engine) materialize(ctx context.Context, job *types.JobPosting, c *types.Candidate, templates []types.RoundTemplate) (*types.ProcessView, bool, error) {
	pid := types.ProcessID(job.ID, c.ID)
	exists, err := e.repo.ProcessExists(ctx, pid)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, nil
	}

	now := e.now()
	process := &types.InterviewProcess{
		ID:          pid,
		JobID:       job.ID,
		CandidateID: c.ID,
		CreatedAt:   now,
	}
	rounds := make([]*types.Round, 0, len(templates))
	writes := make([]store.Write, 0, len(templates)+1)
	for i, tmpl := range templates {
		round := &types.Round{
			ID:           types.RoundID(pid, i+1),
			ProcessID:    pid,
			JobID:        job.ID,
			CandidateID:  c.ID,
			Index:        i + 1,
			RoundType:    tmpl.RoundType,
			Interviewers: append([]types.InterviewerRef(nil), tmpl.Interviewers...),
			Status:       types.RoundUnscheduled,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		process.RoundIDs = append(process.RoundIDs, round.ID)
		rounds = append(rounds, round)
		w, err := store.RoundWrite(round)
		if err != nil {
			return nil, false, err
		}
		writes = append(writes, w)
	}
	pw, err := store.ProcessWrite(process)
	if err != nil {
		return nil, false, err
	}
	writes = append(writes, pw)

	if err := e.repo.Commit(ctx, writes...); err != nil {
		var vc *types.VersionConflictError
		if errors.As(err, &vc) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to create process for candidate %s: %w", c.ID, err)
	}

	process.Version = 1
	for _, r := range rounds {
		r.Version = 1
	}
	return types.NewProcessView(process, rounds), true, nil
}
