package api

import (
	"net/http"
	"strings"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

type researchRequest struct {
	Website string `json:"website"`
}

func (s *Server) researchTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.d.Researcher == nil {
		unavailable(w, r, "research")
		return "", false
	}
	var req researchRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return "", false
	}
	site := strings.TrimSpace(req.Website)
	if site == "" {
		badRequest(w, r, "website is required")
		return "", false
	}
	return site, true
}

func (s *Server) competitors(w http.ResponseWriter, r *http.Request) {
	site, ok := s.researchTarget(w, r)
	if !ok {
		return
	}
	analysis, err := s.d.Researcher.AnalyzeCompetitors(r.Context(), site)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// lookalikes returns companies similar to the given website. They are
// suggestions only: nothing is stored and no credits are spent.
func (s *Server) lookalikes(w http.ResponseWriter, r *http.Request) {
	site, ok := s.researchTarget(w, r)
	if !ok {
		return
	}
	leads, _, err := s.d.Researcher.FindLookalikes(r.Context(), site)
	if err != nil {
		fail(w, r, err)
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
}
