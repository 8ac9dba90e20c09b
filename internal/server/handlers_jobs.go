package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/schemas"
	"github.com/jonathan/hiring-engine/internal/types"
)

// pathID parses the {id} path value.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &types.ValidationError{Field: "id", Message: "invalid UUID " + raw}
	}
	return id, nil
}

// handleCreateJob creates a job posting
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req types.CreateJobRequest
	if err := s.decodeBody(r, schemas.Job, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.engine.CreateJob(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, job)
}

// handleListJobs lists all job postings
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.engine.ListJobs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*types.JobPosting{}
	}
	s.jsonResponse(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.engine.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleCloseJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.engine.CloseJob(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleCreateCandidate adds a candidate to a job
func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.CreateCandidateRequest
	if err := s.decodeBody(r, schemas.Candidate, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.engine.CreateCandidate(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, c)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.engine.ListCandidates(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*types.Candidate{}
	}
	s.jsonResponse(w, http.StatusOK, list)
}

// handleStatistics returns per-job pipeline counters
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stats, err := s.engine.Statistics(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// handleShortlist creates interview processes for the top candidates
func (s *Server) handleShortlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ShortlistRequest
	if err := s.decodeBody(r, schemas.Shortlist, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.JobID = id
	res, err := s.engine.Shortlist(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, res)
}

// handleListProcesses lists a job's processes, optionally filtered by ?status=
func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := types.ProcessStatus(r.URL.Query().Get("status"))
	switch status {
	case "", types.ProcessInProgress, types.ProcessComplete, types.ProcessCancelled:
	default:
		s.writeError(w, r, &types.ValidationError{Field: "status", Message: "unknown process status " + string(status)})
		return
	}
	views, err := s.engine.ListProcesses(r.Context(), id, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if views == nil {
		views = []*types.ProcessView{}
	}
	s.jsonResponse(w, http.StatusOK, views)
}

func (s *Server) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.engine.GetProcess(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

// handleCancelProcess cancels every open round of a process
func (s *Server) handleCancelProcess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.CancelRequest
	if err := s.decodeBody(r, schemas.Cancel, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, types.AsValidationError(err))
		return
	}
	res, err := s.engine.CancelProcess(r.Context(), id, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}
