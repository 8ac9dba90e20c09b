// Package hiring wires the record store, the per-entity locker and the
// collaborators into the shortlisting, scheduling, feedback and ranking
// engines, and adds the job and candidate intake around them. It is the one
// type the HTTP server and the CLI talk to.
package hiring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/feedback"
	"github.com/jonathan/hiring-engine/internal/keylock"
	"github.com/jonathan/hiring-engine/internal/offerletter"
	"github.com/jonathan/hiring-engine/internal/ranking"
	"github.com/jonathan/hiring-engine/internal/roster"
	"github.com/jonathan/hiring-engine/internal/scheduling"
	"github.com/jonathan/hiring-engine/internal/shortlist"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// Config holds everything the engine needs. Only Store is required.
type Config struct {
	Store        store.Store
	FitScores    collab.FitScores
	Calendar     collab.Calendar
	Availability collab.Availability
	Notifier     collab.Notifier
	Letters      *offerletter.Generator
	Roster       *roster.Roster
	HR           ranking.Contact
	CompanyName  string
	Logger       *slog.Logger
	Timeout      time.Duration
	Now          func() time.Time
}

// Engine is the hiring facade.
type Engine struct {
	repo   *store.Repository
	locks  *keylock.Locker
	roster *roster.Roster
	logger *slog.Logger
	now    func() time.Time

	shortlist  *shortlist.Engine
	scheduling *scheduling.Engine
	feedback   *feedback.Aggregator
	ranking    *ranking.Engine
}

// New builds the engine and its sub-engines over one repository and locker.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("hiring: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	repo := store.NewRepository(cfg.Store)
	locks := keylock.New()

	return &Engine{
		repo:   repo,
		locks:  locks,
		roster: cfg.Roster,
		logger: logger,
		now:    now,
		shortlist: shortlist.New(shortlist.Config{
			Repo:      repo,
			Locks:     locks,
			FitScores: cfg.FitScores,
			Logger:    logger.With("component", "shortlist"),
			Timeout:   cfg.Timeout,
			Now:       now,
		}),
		scheduling: scheduling.New(scheduling.Config{
			Repo:         repo,
			Locks:        locks,
			Calendar:     cfg.Calendar,
			Availability: cfg.Availability,
			Notifier:     cfg.Notifier,
			Logger:       logger.With("component", "scheduling"),
			Timeout:      cfg.Timeout,
			Now:          now,
		}),
		feedback: feedback.New(repo, locks, logger.With("component", "feedback")),
		ranking: ranking.New(ranking.Config{
			Repo:        repo,
			Locks:       locks,
			Notifier:    cfg.Notifier,
			Letters:     cfg.Letters,
			HR:          cfg.HR,
			CompanyName: cfg.CompanyName,
			Logger:      logger.With("component", "ranking"),
			Timeout:     cfg.Timeout,
			Now:         now,
		}),
	}, nil
}

// Repository exposes the typed store, for the CLI and tests.
func (e *Engine) Repository() *store.Repository {
	return e.repo
}

// ----------------------------------------------------------------------------
// Jobs and candidates
// ----------------------------------------------------------------------------

// CreateJob stores a new active job posting.
func (e *Engine) CreateJob(ctx context.Context, req types.CreateJobRequest) (*types.JobPosting, error) {
	if err := req.Validate(); err != nil {
		return nil, types.AsValidationError(err)
	}
	now := e.now()
	job := &types.JobPosting{
		ID:                 uuid.New(),
		RoleName:           strings.TrimSpace(req.RoleName),
		Description:        req.Description,
		RequiredExperience: req.RequiredExperience,
		Location:           req.Location,
		Status:             types.JobStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	w, err := store.JobWrite(job)
	if err != nil {
		return nil, err
	}
	if err := e.repo.Commit(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	job.Version = 1
	e.logger.Info("job created", "job_id", job.ID, "role", job.RoleName)
	return job, nil
}

// GetJob loads a job posting.
func (e *Engine) GetJob(ctx context.Context, id uuid.UUID) (*types.JobPosting, error) {
	return e.repo.Job(ctx, id)
}

// ListJobs lists every job posting.
func (e *Engine) ListJobs(ctx context.Context) ([]*types.JobPosting, error) {
	return e.repo.Jobs(ctx)
}

// CloseJob stops further shortlisting for the job. Existing processes carry on.
func (e *Engine) CloseJob(ctx context.Context, id uuid.UUID) (*types.JobPosting, error) {
	unlock := e.locks.Lock(keylock.JobKey(id.String()))
	defer unlock()

	job, err := e.repo.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.IsActive() {
		return nil, &types.InvalidStateError{Kind: types.KindJob, ID: id.String(), State: job.Status, Operation: "close"}
	}
	job.Status = types.JobStatusClosed
	job.UpdatedAt = e.now()
	w, err := store.JobWrite(job)
	if err != nil {
		return nil, err
	}
	if err := e.repo.Commit(ctx, w); err != nil {
		return nil, err
	}
	job.Version++
	e.logger.Info("job closed", "job_id", id)
	return job, nil
}

// CreateCandidate registers an applicant for an active job. An email can
// apply to a job once.
func (e *Engine) CreateCandidate(ctx context.Context, jobID uuid.UUID, req types.CreateCandidateRequest) (*types.Candidate, error) {
	if err := req.Validate(); err != nil {
		return nil, types.AsValidationError(err)
	}
	unlock := e.locks.Lock(keylock.JobKey(jobID.String()))
	defer unlock()

	job, err := e.repo.Job(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsActive() {
		return nil, &types.InvalidStateError{Kind: types.KindJob, ID: jobID.String(), State: job.Status, Operation: "add candidates to"}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := e.repo.Candidates(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.Email, email) {
			return nil, &types.ValidationError{Field: "email", Message: "already applied to this job as candidate " + c.ID.String()}
		}
	}

	c := &types.Candidate{
		ID:        uuid.New(),
		JobID:     jobID,
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Phone:     req.Phone,
		Profile:   req.Profile,
		FitScore:  req.FitScore,
		CreatedAt: e.now(),
	}
	w, err := store.CandidateWrite(c)
	if err != nil {
		return nil, err
	}
	if err := e.repo.Commit(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}
	c.Version = 1
	return c, nil
}

// ListCandidates lists the candidates of a job in registration order.
func (e *Engine) ListCandidates(ctx context.Context, jobID uuid.UUID) ([]*types.Candidate, error) {
	if _, err := e.repo.Job(ctx, jobID); err != nil {
		return nil, err
	}
	return e.repo.Candidates(ctx, jobID)
}

// ----------------------------------------------------------------------------
// Shortlisting
// ----------------------------------------------------------------------------

// Shortlist creates processes for the job's top candidates. When the request
// carries no round templates they are derived from the interviewer roster.
func (e *Engine) Shortlist(ctx context.Context, req types.ShortlistRequest) (*shortlist.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, types.AsValidationError(err)
	}
	if len(req.Templates) == 0 {
		if e.roster == nil {
			return nil, &types.ValidationError{Field: "round_templates", Message: "required when no interviewer roster is configured"}
		}
		templates, err := e.roster.Templates(req.NumberOfRounds)
		if err != nil {
			return nil, err
		}
		req.Templates = templates
	}
	return e.shortlist.Shortlist(ctx, req)
}

// ----------------------------------------------------------------------------
// Scheduling
// ----------------------------------------------------------------------------

// Schedule books the first slot of an unscheduled round.
func (e *Engine) Schedule(ctx context.Context, roundID uuid.UUID, in types.SlotInput) (*scheduling.Result, error) {
	slot, err := in.ToSlot()
	if err != nil {
		return nil, err
	}
	return e.scheduling.Schedule(ctx, roundID, slot)
}

// Reschedule moves a booked round to a new slot.
func (e *Engine) Reschedule(ctx context.Context, roundID uuid.UUID, in types.SlotInput) (*scheduling.Result, error) {
	slot, err := in.ToSlot()
	if err != nil {
		return nil, err
	}
	return e.scheduling.Reschedule(ctx, roundID, slot)
}

// Respond applies an attendee's answer to a rescheduled round: accepting
// confirms the slot, declining cancels the round.
func (e *Engine) Respond(ctx context.Context, roundID uuid.UUID, req types.ResponseRequest) (*scheduling.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, types.AsValidationError(err)
	}
	if req.Response == types.ResponseAccepted {
		return e.scheduling.Confirm(ctx, roundID)
	}
	reason := req.Reason
	if reason == "" {
		reason = "declined by attendee"
	}
	return e.scheduling.Cancel(ctx, roundID, reason)
}

// Confirm moves a rescheduled round back to scheduled.
func (e *Engine) Confirm(ctx context.Context, roundID uuid.UUID) (*scheduling.Result, error) {
	return e.scheduling.Confirm(ctx, roundID)
}

// CancelRound cancels a round that has not completed.
func (e *Engine) CancelRound(ctx context.Context, roundID uuid.UUID, reason string) (*scheduling.Result, error) {
	return e.scheduling.Cancel(ctx, roundID, reason)
}

// CancelProcess cancels every open round of a process.
func (e *Engine) CancelProcess(ctx context.Context, processID uuid.UUID, reason string) (*scheduling.ProcessResult, error) {
	return e.scheduling.CancelProcess(ctx, processID, reason)
}

// Suggest lists free slots for a round.
func (e *Engine) Suggest(ctx context.Context, roundID uuid.UUID, req scheduling.SuggestRequest) (*scheduling.Suggestions, error) {
	return e.scheduling.Suggest(ctx, roundID, req)
}

// ----------------------------------------------------------------------------
// Feedback and ranking
// ----------------------------------------------------------------------------

// SubmitFeedback records a round's rating and completes it.
func (e *Engine) SubmitFeedback(ctx context.Context, roundID uuid.UUID, req types.FeedbackRequest) (*feedback.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, types.AsValidationError(err)
	}
	return e.feedback.Submit(ctx, roundID, *req.Rating, req.Comment, req.Decision)
}

// Stackrank ranks the job's complete processes and selects the leader.
func (e *Engine) Stackrank(ctx context.Context, jobID uuid.UUID) (*ranking.Stackrank, error) {
	return e.ranking.Stackrank(ctx, jobID)
}

// PreviewStackrank ranks the job without selecting a leader.
func (e *Engine) PreviewStackrank(ctx context.Context, jobID uuid.UUID) (*types.JobPosting, *ranking.Stackrank, error) {
	return e.ranking.Preview(ctx, jobID)
}

// TopCandidate returns the current leader without selecting it.
func (e *Engine) TopCandidate(ctx context.Context, jobID uuid.UUID) (*types.RankedCandidate, error) {
	return e.ranking.TopCandidate(ctx, jobID)
}

// SendOffer offers the job to its selected final candidate.
func (e *Engine) SendOffer(ctx context.Context, jobID uuid.UUID, req types.OfferRequest) (*ranking.OfferResult, error) {
	return e.ranking.SendOffer(ctx, jobID, req.Compensation)
}

// GetOffers returns the job's final-candidate records.
func (e *Engine) GetOffers(ctx context.Context, jobID uuid.UUID) ([]*types.FinalCandidate, error) {
	return e.ranking.GetOffers(ctx, jobID)
}

// ----------------------------------------------------------------------------
// Views
// ----------------------------------------------------------------------------

// GetProcess loads a process with its rounds and derived status.
func (e *Engine) GetProcess(ctx context.Context, id uuid.UUID) (*types.ProcessView, error) {
	return e.repo.ProcessView(ctx, id)
}

// ListProcesses loads every process of a job. An empty status matches all.
func (e *Engine) ListProcesses(ctx context.Context, jobID uuid.UUID, status types.ProcessStatus) ([]*types.ProcessView, error) {
	if _, err := e.repo.Job(ctx, jobID); err != nil {
		return nil, err
	}
	views, err := e.repo.ProcessViews(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return views, nil
	}
	out := make([]*types.ProcessView, 0, len(views))
	for _, v := range views {
		if v.Status == status {
			out = append(out, v)
		}
	}
	return out, nil
}

// GetRound loads a round.
func (e *Engine) GetRound(ctx context.Context, id uuid.UUID) (*types.Round, error) {
	return e.repo.Round(ctx, id)
}
