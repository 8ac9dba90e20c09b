// Package ranking orders a job's complete interview processes by total score
// and manages the job's final-candidate record through selection and offer.
package ranking

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
	"github.com/jonathan/hiring-engine/internal/offerletter"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// DefaultMaxAttempts bounds the conditional final-candidate write.
const DefaultMaxAttempts = 5

// DefaultLetterTimeout bounds offer letter generation.
const DefaultLetterTimeout = 30 * time.Second

// Contact is a named mailbox, used for the HR signatory.
type Contact struct {
	Name  string
	Email string
}

// Config holds the engine's dependencies. Notifier and Letters are optional.
type Config struct {
	Repo          *store.Repository
	Locks         *keylock.Locker
	Notifier      collab.Notifier
	Letters       *offerletter.Generator
	HR            Contact
	CompanyName   string
	Logger        *slog.Logger
	Timeout       time.Duration
	LetterTimeout time.Duration
	MaxAttempts   int
	Now           func() time.Time
}

// Engine runs stackranking and offers.
type Engine struct {
	repo          *store.Repository
	locks         *keylock.Locker
	notifier      collab.Notifier
	letters       *offerletter.Generator
	hr            Contact
	company       string
	logger        *slog.Logger
	timeout       time.Duration
	letterTimeout time.Duration
	maxAttempts   int
	now           func() time.Time
}

// New creates a ranking engine.
func New(cfg Config) *Engine {
	e := &Engine{
		repo:          cfg.Repo,
		locks:         cfg.Locks,
		notifier:      cfg.Notifier,
		letters:       cfg.Letters,
		hr:            cfg.HR,
		company:       cfg.CompanyName,
		logger:        cfg.Logger,
		timeout:       cfg.Timeout,
		letterTimeout: cfg.LetterTimeout,
		maxAttempts:   cfg.MaxAttempts,
		now:           cfg.Now,
	}
	if e.locks == nil {
		e.locks = keylock.New()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.timeout <= 0 {
		e.timeout = collab.DefaultTimeout
	}
	if e.letterTimeout <= 0 {
		e.letterTimeout = DefaultLetterTimeout
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e
}

// Stackrank is the ranked list of a job plus its final-candidate record.
type Stackrank struct {
	JobID    uuid.UUID               `json:"job_id"`
	Ranked   []types.RankedCandidate `json:"ranked"`
	Selected *types.FinalCandidate   `json:"selected,omitempty"`
}

// rank orders the complete processes of the job. Cancelled and in-progress
// processes never appear.
func (e *Engine) rank(ctx context.Context, jobID uuid.UUID) (*types.JobPosting, []types.RankedCandidate, error) {
	job, err := e.repo.Job(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	views, err := e.repo.ProcessViews(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	candidates, err := e.repo.Candidates(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[uuid.UUID]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.Name
	}

	ranked := make([]types.RankedCandidate, 0, len(views))
	for _, v := range views {
		if v.Status != types.ProcessComplete {
			continue
		}
		ratings := make([]int, 0, len(v.Rounds))
		for _, r := range v.Rounds {
			rating, _ := r.Rating()
			ratings = append(ratings, rating)
		}
		ranked = append(ranked, types.RankedCandidate{
			CandidateID:      v.Process.CandidateID,
			CandidateName:    names[v.Process.CandidateID],
			ProcessID:        v.Process.ID,
			ProcessCreatedAt: v.Process.CreatedAt,
			Ratings:          ratings,
			TotalScore:       v.TotalScore(),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.ProcessCreatedAt.Equal(b.ProcessCreatedAt) {
			return a.ProcessCreatedAt.Before(b.ProcessCreatedAt)
		}
		return a.CandidateID.String() < b.CandidateID.String()
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return job, ranked, nil
}

// Stackrank ranks the job's complete processes and selects the leader. An
// offered final candidate is never replaced.
func (e *Engine) Stackrank(ctx context.Context, jobID uuid.UUID) (*Stackrank, error) {
	unlock := e.locks.Lock(keylock.FinalCandidateKey(jobID.String()))
	defer unlock()

	out, err := e.upsertSelected(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(out.Ranked) > 0 {
		e.logger.Info("stackrank complete",
			"job_id", jobID,
			"ranked", len(out.Ranked),
			"leader", out.Ranked[0].CandidateID,
			"final_status", out.Selected.Status)
	}
	return out, nil
}

// upsertSelected ranks the job and writes the leader as the selected final
// candidate. Each attempt ranks afresh, so a retry after a lost race never
// writes a leader computed from older feedback.
func (e *Engine) upsertSelected(ctx context.Context, jobID uuid.UUID) (*Stackrank, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		job, ranked, err := e.rank(ctx, jobID)
		if err != nil {
			return nil, err
		}
		out := &Stackrank{JobID: jobID, Ranked: ranked}

		fc, err := e.currentFinal(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if len(ranked) == 0 || (fc != nil && fc.Status == types.FinalOffered) {
			out.Selected = fc
			return out, nil
		}
		leader := ranked[0]
		if fc != nil && fc.CandidateID == leader.CandidateID && fc.TotalScore == leader.TotalScore {
			out.Selected = fc
			return out, nil
		}

		next, err := e.selection(ctx, job, leader, fc)
		if err != nil {
			return nil, err
		}
		w, err := store.FinalCandidateWrite(next)
		if err != nil {
			return nil, err
		}
		err = e.repo.Commit(ctx, w)
		if err == nil {
			next.Version++
			out.Selected = next
			return out, nil
		}
		var vc *types.VersionConflictError
		if !errors.As(err, &vc) {
			return nil, err
		}
		lastErr = err
		e.logger.Debug("final candidate write lost a race", "job_id", jobID, "attempt", attempt)
	}
	return nil, fmt.Errorf("failed to select final candidate after %d attempts: %w", e.maxAttempts, lastErr)
}

// selection builds the selected record for the leader on top of the
// current one, if any.
func (e *Engine) selection(ctx context.Context, job *types.JobPosting, leader types.RankedCandidate, current *types.FinalCandidate) (*types.FinalCandidate, error) {
	c, err := e.repo.Candidate(ctx, leader.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load leading candidate: %w", err)
	}
	next := &types.FinalCandidate{
		ID:            types.FinalCandidateID(job.ID),
		JobID:         job.ID,
		CandidateID:   c.ID,
		ProcessID:     leader.ProcessID,
		CandidateName: c.Name,
		Email:         c.Email,
		RoleName:      job.RoleName,
		TotalScore:    leader.TotalScore,
		Status:        types.FinalSelected,
		SelectedAt:    e.now(),
	}
	if current != nil {
		next.Version = current.Version
	}
	return next, nil
}

// currentFinal loads the job's final candidate, or nil when there is none.
func (e *Engine) currentFinal(ctx context.Context, jobID uuid.UUID) (*types.FinalCandidate, error) {
	fc, err := e.repo.FinalCandidate(ctx, jobID)
	if err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	return fc, nil
}

// Preview ranks the job like Stackrank but writes nothing. Selected is the
// stored final candidate, which may lag behind the ranking.
func (e *Engine) Preview(ctx context.Context, jobID uuid.UUID) (*types.JobPosting, *Stackrank, error) {
	job, ranked, err := e.rank(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	fc, err := e.currentFinal(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return job, &Stackrank{JobID: jobID, Ranked: ranked, Selected: fc}, nil
}

// TopCandidate returns the current leader without writing anything.
func (e *Engine) TopCandidate(ctx context.Context, jobID uuid.UUID) (*types.RankedCandidate, error) {
	_, ranked, err := e.rank(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, &types.NotFoundError{Kind: "complete process", ID: "job " + jobID.String()}
	}
	top := ranked[0]
	return &top, nil
}

// GetOffers returns the final-candidate records of the job: none or one.
func (e *Engine) GetOffers(ctx context.Context, jobID uuid.UUID) ([]*types.FinalCandidate, error) {
	if _, err := e.repo.Job(ctx, jobID); err != nil {
		return nil, err
	}
	fc, err := e.currentFinal(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if fc == nil {
		return []*types.FinalCandidate{}, nil
	}
	return []*types.FinalCandidate{fc}, nil
}
