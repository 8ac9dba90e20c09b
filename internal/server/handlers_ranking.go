package server

import (
	"log"
	"net/http"

	"github.com/jonathan/hiring-engine/internal/export"
	"github.com/jonathan/hiring-engine/internal/schemas"
	"github.com/jonathan/hiring-engine/internal/types"
)

// handleStackrank ranks a job's complete processes and selects the leader
func (s *Server) handleStackrank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rank, err := s.engine.Stackrank(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rank)
}

// handleStackrankXLSX downloads the current ranking as a workbook. It does
// not change the final-candidate selection.
func (s *Server) handleStackrankXLSX(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	job, rank, err := s.engine.PreviewStackrank(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := export.StackrankXLSX(job, rank)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(job)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing workbook: %v", err)
	}
}

func (s *Server) handleTopCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	top, err := s.engine.TopCandidate(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, top)
}

// handleSendOffer offers the job to its selected final candidate
func (s *Server) handleSendOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.OfferRequest
	if err := s.decodeBody(r, schemas.Offer, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, types.AsValidationError(err))
		return
	}
	res, err := s.engine.SendOffer(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleGetOffers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offers, err := s.engine.GetOffers(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, offers)
}
