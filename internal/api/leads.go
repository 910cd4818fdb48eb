package api

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/analytics"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/export"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

type leadPage struct {
	Leads  []model.Lead `json:"leads"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// leadFilter reads the lead table filters from the query string. The
// caller's account is always applied.
func leadFilter(r *http.Request) (model.LeadFilter, error) {
	q := r.URL.Query()
	f := model.LeadFilter{
		AccountID: accountFrom(r.Context()).ID,
		RunID:     q.Get("run_id"),
		Query:     q.Get("q"),
		Location:  q.Get("location"),
		Industry:  q.Get("industry"),
		Employees: q.Get("employees"),
		MinScore:  queryInt(r, "min_score", 0),
		Limit:     queryInt(r, "limit", model.DefaultPageSize),
		Offset:    queryInt(r, "offset", 0),
	}
	if st := q.Get("status"); st != "" {
		status, err := model.ParseLeadStatus(st)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	return f, nil
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	f, err := leadFilter(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	leads, total, err := s.d.Store.ListLeads(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, leadPage{Leads: leads, Total: total, Limit: f.Limit, Offset: f.Offset})
}

type statusRequest struct {
	Status string `json:"status"`
}

// updateLeadStatus moves a lead through the pipeline. Subscribers get a
// lead.status event; the webhook and CRMs that track status are updated in
// the background.
func (s *Server) updateLeadStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	to, err := model.ParseLeadStatus(req.Status)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	from, err := s.d.Store.UpdateLeadStatus(r.Context(), id, to)
	if err != nil {
		fail(w, r, err)
		return
	}
	lead, err := s.d.Store.GetLead(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}

	if from != to {
		acct := accountFrom(r.Context()).ID
		if s.d.Events != nil {
			s.d.Events.LeadStatusChanged(acct, *lead, from, to)
		}
		ctx := context.WithoutCancel(r.Context())
		s.d.Webhook.LeadStatusChangedAsync(ctx, *lead, from, to)
		if len(s.d.Pushers) > 0 {
			go export.SyncStatus(ctx, *lead, s.d.Pushers...)
		}
	}
	writeJSON(w, http.StatusOK, lead)
}

type emailRequest struct {
	BrandVoice string `json:"brand_voice"`
}

func (s *Server) composeEmail(w http.ResponseWriter, r *http.Request) {
	if s.d.Composer == nil {
		unavailable(w, r, "email composer")
		return
	}
	var req emailRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	lead, err := s.d.Store.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	voice := strings.TrimSpace(req.BrandVoice)
	if voice == "" {
		voice = s.d.Outreach.BrandVoice
	}
	email, err := s.d.Composer.ComposeEmail(r.Context(), *lead, voice)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

// allLeads reads every lead matching f, ignoring paging, up to
// MaxExportLeads.
func (s *Server) allLeads(ctx context.Context, f model.LeadFilter) ([]model.Lead, error) {
	f.Limit, f.Offset = MaxExportLeads, 0
	leads, _, err := s.d.Store.ListLeads(ctx, f)
	return leads, err
}

// filteredLeads is allLeads over the request's query string. It writes
// the error response itself and reports whether the caller may go on.
func (s *Server) filteredLeads(w http.ResponseWriter, r *http.Request) ([]model.Lead, model.LeadFilter, bool) {
	f, err := leadFilter(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return nil, f, false
	}
	leads, err := s.allLeads(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return nil, f, false
	}
	return leads, f, true
}

type exportFormat struct {
	ext         string
	contentType string
}

var exportFormats = map[string]exportFormat{
	"csv":     {"csv", "text/csv; charset=utf-8"},
	"xlsx":    {"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"docx":    {"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	"geojson": {"geojson", "application/geo+json"},
}

// exportLeads streams the filtered leads as a file download.
func (s *Server) exportLeads(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "format"))
	format, ok := exportFormats[name]
	if !ok {
		badRequest(w, r, "format must be csv, xlsx, docx or geojson")
		return
	}
	leads, f, ok := s.filteredLeads(w, r)
	if !ok {
		return
	}

	now := s.d.Now()
	query := f.Query
	if query == "" {
		query = "leads"
	}
	filename := export.Filename(query, now, format.ext)

	// Render into memory so a failure can still produce a JSON error.
	var (
		buf bytes.Buffer
		err error
	)
	switch name {
	case "csv":
		err = export.WriteCSV(&buf, leads)
	case "xlsx":
		err = export.WriteXLSX(&buf, leads)
	case "docx":
		filename = export.ReportFilename(now)
		err = export.WriteDOCX(&buf, f.Query, leads, now)
	case "geojson":
		err = export.WriteGeoJSON(&buf, leads)
	}
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type crmRequest struct {
	Targets []string `json:"targets"`
	LeadIDs []string `json:"lead_ids"`
}

type crmResponse struct {
	Results []export.PushResult `json:"results"`
}

// exportCRM pushes leads to the configured CRMs. Targets narrows the
// pushers by name and LeadIDs narrows the leads; both default to all.
func (s *Server) exportCRM(w http.ResponseWriter, r *http.Request) {
	var req crmRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	pushers := selectPushers(s.d.Pushers, req.Targets)
	if len(pushers) == 0 {
		unavailable(w, r, "CRM export")
		return
	}

	leads, ok := s.selectedLeads(w, r, req.LeadIDs)
	if !ok {
		return
	}
	if len(leads) == 0 {
		badRequest(w, r, "no leads to export")
		return
	}

	results, err := export.PushAll(r.Context(), leads, pushers...)
	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
		zap.L().Warn("api: crm export partially failed", zap.Error(err))
	}
	writeJSON(w, status, crmResponse{Results: results})
}

func selectPushers(all []export.Pusher, names []string) []export.Pusher {
	if len(names) == 0 {
		return all
	}
	var out []export.Pusher
	for _, p := range all {
		for _, n := range names {
			if strings.EqualFold(p.Name(), n) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

type dashboardResponse struct {
	analytics.Summary
	Search  model.SearchState `json:"search"`
	Credits int               `json:"credits"`
}

// dashboard summarizes the caller's leads alongside their live search
// state and balance.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	leads, _, ok := s.filteredLeads(w, r)
	if !ok {
		return
	}
	acct := accountFrom(r.Context())
	balance, err := s.d.Store.Balance(r.Context(), acct.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	resp := dashboardResponse{Summary: analytics.Summarize(leads), Credits: balance}
	if s.d.Session != nil {
		resp.Search = s.d.Session.State(acct.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

// selectedLeads returns the request's filtered leads, narrowed to ids
// when any are given. Unknown IDs are skipped.
func (s *Server) selectedLeads(w http.ResponseWriter, r *http.Request, ids []string) ([]model.Lead, bool) {
	leads, _, ok := s.filteredLeads(w, r)
	if !ok || len(ids) == 0 {
		return leads, ok
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	kept := leads[:0]
	for _, l := range leads {
		if want[l.ID] {
			kept = append(kept, l)
		}
	}
	return kept, true
}
