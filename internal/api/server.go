// Package api serves the LeadGenius JSON API, the live event stream (SSE
// and WebSocket) and file exports.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/events"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/export"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/notify"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/outreach"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/research"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

// MaxExportLeads caps how many leads one export or dashboard reads.
const MaxExportLeads = 10000

// Deps are the services the API is built on. Optional services may be nil;
// their endpoints answer 503.
type Deps struct {
	Store   store.Store
	Session *mining.Session
	Hub     *events.Hub
	Events  *events.HubSink

	Composer   *outreach.Composer
	SMS        *outreach.SMSCampaign
	Researcher *research.Researcher
	Pushers    []export.Pusher
	Webhook    *notify.Webhook

	Credits        config.CreditsConfig
	Outreach       config.OutreachConfig
	SMSSender      string
	MinBalance     int
	AllowedOrigins []string

	// PingInterval spaces keep-alive pings on event streams.
	PingInterval time.Duration
	Now          func() time.Time
}

// Server holds the handlers.
type Server struct {
	d Deps
}

// NewServer fills defaults into d.
func NewServer(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MinBalance < 1 {
		d.MinBalance = 1
	}
	if d.PingInterval <= 0 {
		d.PingInterval = 25 * time.Second
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}
	return &Server{d: d}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", AccountHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccount)

			r.Get("/account", s.getAccount)
			r.Post("/account/purchase", s.purchase)
			r.Get("/account/transactions", s.transactions)

			r.Post("/searches", s.startSearch)
			r.Get("/searches/current", s.currentSearch)
			r.Delete("/searches/current", s.stopSearch)
			r.Get("/searches/saved", s.savedSearches)
			r.Post("/searches/saved", s.saveSearch)
			r.Get("/runs", s.listRuns)
			r.Get("/runs/{id}", s.getRun)

			r.Get("/leads", s.listLeads)
			r.Patch("/leads/{id}/status", s.updateLeadStatus)
			r.Post("/leads/{id}/email", s.composeEmail)
			r.Get("/leads/export/{format}", s.exportLeads)
			r.Post("/leads/export/crm", s.exportCRM)
			r.Get("/dashboard", s.dashboard)

			r.Post("/outreach/template", s.composeTemplate)
			r.Post("/sms", s.sendSMS)
			r.Post("/whatsapp", s.whatsApp)

			r.Post("/research/competitors", s.competitors)
			r.Post("/research/lookalikes", s.lookalikes)

			r.Get("/events", s.serveSSE)
			r.Get("/ws", s.serveWS)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
