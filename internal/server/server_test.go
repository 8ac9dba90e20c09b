package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/hiring-engine/internal/collab/collabtest"
	"github.com/jonathan/hiring-engine/internal/export"
	"github.com/jonathan/hiring-engine/internal/hiring"
	"github.com/jonathan/hiring-engine/internal/ranking"
	"github.com/jonathan/hiring-engine/internal/scheduling"
	"github.com/jonathan/hiring-engine/internal/server/ratelimit"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

const technicalRound = `{"round_type":"Technical","interviewers":[{"name":"Ada","email":"ada@acme.test","department":"Engineering"}]}`

func newTestServer(t *testing.T, rl *ratelimit.Config) *Server {
	t.Helper()
	engine, err := hiring.New(hiring.Config{
		Store:       store.NewMemory(),
		Calendar:    &collabtest.Calendar{},
		Notifier:    &collabtest.Notifier{},
		HR:          ranking.Contact{Name: "Recruiting", Email: "recruiting@acme.test"},
		CompanyName: "Acme",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	srv, err := New(Config{Port: 0, Engine: engine, RateLimit: rl})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func slotBody(hour int) string {
	start := time.Date(2026, 6, 1, hour, 0, 0, 0, time.UTC)
	return fmt.Sprintf(`{"slot":{"start":%q,"end":%q,"time_zone":"UTC"}}`,
		start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339))
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	w := do(t, h, http.MethodOptions, "/jobs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestHiringFlowOverHTTP(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	w := do(t, h, http.MethodPost, "/jobs", `{"role_name":"Backend Engineer","location":"Remote"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	job := decode[types.JobPosting](t, w)
	jobPath := "/jobs/" + job.ID.String()

	w = do(t, h, http.MethodPost, jobPath+"/candidates", `{"name":"Grace","email":"grace@example.com","fit_score":0.9}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	grace := decode[types.Candidate](t, w)
	w = do(t, h, http.MethodPost, jobPath+"/candidates", `{"name":"Alan","email":"alan@example.com","fit_score":0.5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, jobPath+"/candidates", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.Candidate](t, w), 2)

	w = do(t, h, http.MethodPost, jobPath+"/shortlist",
		`{"number_of_candidates":2,"number_of_rounds":1,"round_templates":[`+technicalRound+`]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sl struct {
		Created []types.ProcessView `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sl))
	require.Len(t, sl.Created, 2)

	ratings := map[uuid.UUID]int{grace.ID: 9}
	hour := 9
	for _, view := range sl.Created {
		round := view.Rounds[0]
		roundPath := "/rounds/" + round.ID.String()

		w = do(t, h, http.MethodPost, roundPath+"/schedule", slotBody(hour))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[scheduling.Result](t, w)
		assert.Equal(t, types.RoundScheduled, res.Round.Status)
		hour += 2

		rating, ok := ratings[view.Process.CandidateID]
		if !ok {
			rating = 6
		}
		w = do(t, h, http.MethodPost, roundPath+"/feedback",
			fmt.Sprintf(`{"rating_out_of_10":%d,"comment":"solid","advance_decision":"Yes"}`, rating))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, string(types.ProcessComplete), decode[map[string]any](t, w)["process_status"])
	}

	w = do(t, h, http.MethodGet, jobPath+"/processes?status=complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.ProcessView](t, w), 2)

	w = do(t, h, http.MethodGet, jobPath+"/top-candidate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, grace.ID, decode[types.RankedCandidate](t, w).CandidateID)

	w = do(t, h, http.MethodPost, jobPath+"/stackrank", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rank := decode[ranking.Stackrank](t, w)
	require.Len(t, rank.Ranked, 2)
	require.NotNil(t, rank.Selected)
	assert.Equal(t, grace.ID, rank.Selected.CandidateID)

	w = do(t, h, http.MethodPost, jobPath+"/offer", `{"compensation":"USD 180k"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	offer := decode[ranking.OfferResult](t, w)
	assert.Equal(t, types.FinalOffered, offer.Offer.Status)

	w = do(t, h, http.MethodGet, jobPath+"/offers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.FinalCandidate](t, w), 1)

	w = do(t, h, http.MethodGet, jobPath+"/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[hiring.Statistics](t, w)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 9, stats.HighestTotal)

	w = do(t, h, http.MethodGet, jobPath+"/stackrank.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), export.Filename(&job))
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	name, err := f.GetCellValue(export.SheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Grace", name)
}

func TestErrorResponses(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	w := do(t, h, http.MethodPost, "/jobs", `{"role_name":"SRE"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	job := decode[types.JobPosting](t, w)
	jobPath := "/jobs/" + job.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"bad id", http.MethodGet, "/jobs/not-a-uuid", "", http.StatusBadRequest, KindValidation},
		{"unknown job", http.MethodGet, "/jobs/" + uuid.NewString(), "", http.StatusNotFound, KindNotFound},
		{"unknown round", http.MethodGet, "/rounds/" + uuid.NewString(), "", http.StatusNotFound, KindNotFound},
		{"malformed json", http.MethodPost, "/jobs", `{"role_name":`, http.StatusBadRequest, KindValidation},
		{"missing role", http.MethodPost, "/jobs", `{}`, http.StatusBadRequest, KindValidation},
		{"unknown field", http.MethodPost, "/jobs", `{"role_name":"x","salary":1}`, http.StatusBadRequest, KindValidation},
		{"bad email", http.MethodPost, jobPath + "/candidates", `{"name":"x","email":"nope"}`, http.StatusBadRequest, KindValidation},
		{"rating out of range", http.MethodPost, "/rounds/" + uuid.NewString() + "/feedback", `{"rating_out_of_10":11,"advance_decision":"yes"}`, http.StatusBadRequest, KindValidation},
		{"bad decision", http.MethodPost, "/rounds/" + uuid.NewString() + "/feedback", `{"rating_out_of_10":5,"advance_decision":"perhaps"}`, http.StatusBadRequest, KindValidation},
		{"bad process status", http.MethodGet, jobPath + "/processes?status=done", "", http.StatusBadRequest, KindValidation},
		{"no offer without selection", http.MethodPost, jobPath + "/offer", `{"compensation":"USD 1"}`, http.StatusNotFound, KindNotFound},
		{"no top candidate", http.MethodGet, jobPath + "/top-candidate", "", http.StatusNotFound, KindNotFound},
		{"suggest without window", http.MethodGet, "/rounds/" + uuid.NewString() + "/suggestions", "", http.StatusBadRequest, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := decode[ErrorResponse](t, w)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.kind, body.Kind)
		})
	}
}

func TestScheduleConflictOverHTTP(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	w := do(t, h, http.MethodPost, "/jobs", `{"role_name":"SRE"}`)
	job := decode[types.JobPosting](t, w)
	jobPath := "/jobs/" + job.ID.String()
	do(t, h, http.MethodPost, jobPath+"/candidates", `{"name":"A","email":"a@example.com","fit_score":0.9}`)
	do(t, h, http.MethodPost, jobPath+"/candidates", `{"name":"B","email":"b@example.com","fit_score":0.8}`)

	w = do(t, h, http.MethodPost, jobPath+"/shortlist",
		`{"number_of_candidates":2,"number_of_rounds":1,"round_templates":[`+technicalRound+`]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sl struct {
		Created []types.ProcessView `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sl))
	require.Len(t, sl.Created, 2)

	first := "/rounds/" + sl.Created[0].Rounds[0].ID.String()
	second := "/rounds/" + sl.Created[1].Rounds[0].ID.String()

	w = do(t, h, http.MethodPost, first+"/schedule", slotBody(9))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, second+"/schedule", slotBody(9))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := decode[ErrorResponse](t, w)
	assert.Equal(t, KindConflict, body.Kind)
	require.NotNil(t, body.Details)
	assert.Equal(t, "ada@acme.test", body.Details.Interviewer)

	// scheduling an already scheduled round is an invalid transition
	w = do(t, h, http.MethodPost, first+"/schedule", slotBody(14))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, KindInvalidState, decode[ErrorResponse](t, w).Kind)

	w = do(t, h, http.MethodGet, second+"/suggestions?from=2026-06-01T09:00:00Z&to=2026-06-01T12:00:00Z&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sugg := decode[scheduling.Suggestions](t, w)
	require.Len(t, sugg.Slots, 2)
	assert.Equal(t, 10, sugg.Slots[0].Start.UTC().Hour())

	w = do(t, h, http.MethodPost, first+"/reschedule", slotBody(15))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.RoundRescheduled, decode[scheduling.Result](t, w).Round.Status)

	w = do(t, h, http.MethodPost, first+"/respond", `{"response":"declined","reason":"travel"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.RoundCancelled, decode[scheduling.Result](t, w).Round.Status)

	w = do(t, h, http.MethodGet, "/processes/"+sl.Created[0].Process.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.ProcessCancelled, decode[types.ProcessView](t, w).Status)

	w = do(t, h, http.MethodPost, "/processes/"+sl.Created[1].Process.ID.String()+"/cancel", `{"reason":"withdrew"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRateLimitTier(t *testing.T) {
	rl := &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/jobs/*/shortlist", Method: http.MethodPost, Limit: 1, Window: time.Hour, Burst: 1},
		},
	}
	h := newTestServer(t, rl).Handler()

	w := do(t, h, http.MethodPost, "/jobs/"+uuid.NewString()+"/shortlist", `{"number_of_candidates":1,"number_of_rounds":1}`)
	assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	// a different job shares the tier
	w = do(t, h, http.MethodPost, "/jobs/"+uuid.NewString()+"/shortlist", `{"number_of_candidates":1,"number_of_rounds":1}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
