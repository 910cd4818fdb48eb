package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

type startSearchRequest struct {
	Query       string            `json:"query"`
	Constraints model.Constraints `json:"constraints"`
	MaxBatches  int               `json:"max_batches"`
	BatchSize   int               `json:"batch_size"`
	// Replace stops an active run instead of rejecting the request.
	Replace bool `json:"replace"`
}

type startSearchResponse struct {
	RunID string            `json:"run_id"`
	State model.SearchState `json:"state"`
}

// startSearch launches a mining run for the caller. Progress arrives on the
// event stream; the current state can also be polled.
func (s *Server) startSearch(w http.ResponseWriter, r *http.Request) {
	if s.d.Session == nil {
		unavailable(w, r, "mining")
		return
	}
	var req startSearchRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(w, r, "query is required")
		return
	}
	if req.MaxBatches < 0 || req.BatchSize < 0 || req.BatchSize > 25 {
		badRequest(w, r, "max_batches must be >= 0 and batch_size between 0 and 25")
		return
	}

	acct := accountFrom(r.Context())
	balance, err := s.d.Store.Balance(r.Context(), acct.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if balance < s.d.MinBalance {
		writeError(w, r, http.StatusPaymentRequired, "insufficient_credits", "not enough credits to start a search")
		return
	}

	rc, err := s.d.Session.Start(r.Context(), mining.RunContext{
		AccountID:   acct.ID,
		Query:       strings.TrimSpace(req.Query),
		Constraints: req.Constraints,
		MaxBatches:  req.MaxBatches,
		BatchSize:   req.BatchSize,
	}, mining.StartOptions{Replace: req.Replace})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startSearchResponse{RunID: rc.RunID, State: s.d.Session.State(acct.ID)})
}

func (s *Server) currentSearch(w http.ResponseWriter, r *http.Request) {
	if s.d.Session == nil {
		unavailable(w, r, "mining")
		return
	}
	writeJSON(w, http.StatusOK, s.d.Session.State(accountFrom(r.Context()).ID))
}

// stopSearch cancels the caller's run and returns its final state. Leads
// accepted before the stop are kept.
func (s *Server) stopSearch(w http.ResponseWriter, r *http.Request) {
	if s.d.Session == nil {
		unavailable(w, r, "mining")
		return
	}
	state, err := s.d.Session.Stop(r.Context(), accountFrom(r.Context()).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) savedSearches(w http.ResponseWriter, r *http.Request) {
	saved, err := s.d.Store.ListSavedSearches(r.Context(), accountFrom(r.Context()).ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if saved == nil {
		saved = []model.SavedSearch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": saved})
}

type saveSearchRequest struct {
	Query      string `json:"query"`
	LeadsCount int    `json:"leads_count"`
}

// saveSearch favorites a query. With an empty body it saves the caller's
// current search and its lead count.
func (s *Server) saveSearch(w http.ResponseWriter, r *http.Request) {
	var req saveSearchRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	acct := accountFrom(r.Context())
	if strings.TrimSpace(req.Query) == "" && s.d.Session != nil {
		st := s.d.Session.State(acct.ID)
		req.Query, req.LeadsCount = st.Query, st.TotalLeads
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(w, r, "query is required")
		return
	}
	saved, err := s.d.Store.SaveSearch(r.Context(), model.SavedSearch{
		AccountID:  acct.ID,
		Query:      strings.TrimSpace(req.Query),
		LeadsCount: req.LeadsCount,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.d.Store.ListRuns(r.Context(), model.RunFilter{
		AccountID: accountFrom(r.Context()).ID,
		Status:    model.RunStatus(r.URL.Query().Get("status")),
		Limit:     queryInt(r, "limit", 20),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.d.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if run.AccountID != accountFrom(r.Context()).ID {
		fail(w, r, eris.Wrapf(store.ErrNotFound, "run %s", run.ID))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
