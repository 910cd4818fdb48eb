package api

import (
	"net/http"
	"strings"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/outreach"
	"github.com/mintahmichael98-prog/leadgenius-ai/pkg/arkesel"
)

type templateRequest struct {
	Channel    outreach.Channel `json:"channel"`
	BrandVoice string           `json:"brand_voice"`
}

func (s *Server) composeTemplate(w http.ResponseWriter, r *http.Request) {
	if s.d.Composer == nil {
		unavailable(w, r, "template composer")
		return
	}
	var req templateRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	ch := outreach.Channel(strings.ToLower(string(req.Channel)))
	if ch != outreach.ChannelSMS && ch != outreach.ChannelWhatsApp {
		badRequest(w, r, "channel must be sms or whatsapp")
		return
	}
	voice := strings.TrimSpace(req.BrandVoice)
	if voice == "" {
		voice = s.d.Outreach.BrandVoice
	}
	tmpl, err := s.d.Composer.ComposeTemplate(r.Context(), ch, voice)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"channel": string(ch), "template": tmpl})
}

type broadcastRequest struct {
	LeadIDs  []string `json:"lead_ids"`
	Template string   `json:"template"`
	Sender   string   `json:"sender"`
}

// sendSMS runs an SMS campaign over the selected leads and answers with
// the per-lead results once it finishes.
func (s *Server) sendSMS(w http.ResponseWriter, r *http.Request) {
	if s.d.SMS == nil {
		unavailable(w, r, "SMS")
		return
	}
	var req broadcastRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		sender = s.d.SMSSender
	}
	if len(sender) > arkesel.MaxSenderLength {
		badRequest(w, r, "sender must be at most 11 characters")
		return
	}
	leads, ok := s.selectedLeads(w, r, req.LeadIDs)
	if !ok {
		return
	}
	if len(leads) == 0 {
		badRequest(w, r, "no leads selected")
		return
	}

	report, err := s.d.SMS.Send(r.Context(), leads, sender, req.Template)
	if err != nil && len(report.Results) == 0 {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// whatsApp renders click-to-chat links. Nothing is sent server-side.
func (s *Server) whatsApp(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Template) == "" {
		badRequest(w, r, "template is required")
		return
	}
	leads, ok := s.selectedLeads(w, r, req.LeadIDs)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": outreach.WhatsAppBroadcast(leads, req.Template)})
}
