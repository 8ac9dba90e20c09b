package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonathan/hiring-engine/internal/scheduling"
	"github.com/jonathan/hiring-engine/internal/schemas"
	"github.com/jonathan/hiring-engine/internal/types"
)

const (
	defaultSuggestDuration = time.Hour
	defaultSuggestLimit    = 10
)

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	round, err := s.engine.GetRound(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, round)
}

// handleSchedule books the first slot of a round
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ScheduleRequest
	if err := s.decodeBody(r, schemas.Slot, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, types.AsValidationError(err))
		return
	}
	res, err := s.engine.Schedule(r.Context(), id, req.Slot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleReschedule moves a booked round to a new slot
func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.RescheduleRequest
	if err := s.decodeBody(r, schemas.Slot, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, types.AsValidationError(err))
		return
	}
	res, err := s.engine.Reschedule(r.Context(), id, req.Slot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.engine.Confirm(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleRespond applies an attendee's answer to a rescheduled round
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.ResponseRequest
	if err := s.decodeBody(r, schemas.Response, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.engine.Respond(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleCancelRound(w http.ResponseWriter, r *http.Request) {
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
	res, err := s.engine.CancelRound(r.Context(), id, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleFeedback records a round's rating and completes it
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.FeedbackRequest
	if err := s.decodeBody(r, schemas.Feedback, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.engine.SubmitFeedback(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleSuggestions lists free slots for a round.
// Query: from, to (required), tz, duration, step, limit.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := parseSuggestQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.engine.Suggest(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.Slots == nil {
		res.Slots = []types.Slot{}
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func parseSuggestQuery(q url.Values) (scheduling.SuggestRequest, error) {
	window, err := types.SlotInput{Start: q.Get("from"), End: q.Get("to"), TimeZone: q.Get("tz")}.ToSlot()
	if err != nil {
		return scheduling.SuggestRequest{}, err
	}
	req := scheduling.SuggestRequest{Window: window, Duration: defaultSuggestDuration, Limit: defaultSuggestLimit}

	if v := q.Get("duration"); v != "" {
		if req.Duration, err = time.ParseDuration(v); err != nil {
			return req, &types.ValidationError{Field: "duration", Message: "invalid duration " + v}
		}
	}
	if v := q.Get("step"); v != "" {
		if req.Step, err = time.ParseDuration(v); err != nil {
			return req, &types.ValidationError{Field: "step", Message: "invalid duration " + v}
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, &types.ValidationError{Field: "limit", Message: "must be a positive integer"}
		}
		req.Limit = n
	}
	return req, nil
}
