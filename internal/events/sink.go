package events

import (
	"context"
	"sync"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/mining"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// HubSink publishes mining events to a Hub.
type HubSink struct {
	hub *Hub

	mu       sync.Mutex
	accounts map[string]string
}

// NewHubSink creates a HubSink.
func NewHubSink(hub *Hub) *HubSink {
	return &HubSink{hub: hub, accounts: make(map[string]string)}
}

var (
	_ mining.Sink    = (*HubSink)(nil)
	_ mining.Starter = (*HubSink)(nil)
)

// RunStarted records which account owns the run so events are routed.
func (s *HubSink) RunStarted(_ context.Context, rc mining.RunContext) error {
	s.mu.Lock()
	s.accounts[rc.RunID] = rc.AccountID
	s.mu.Unlock()
	return nil
}

func (s *HubSink) account(runID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[runID]
}

func (s *HubSink) LeadsAppended(runID string, leads []model.Lead) {
	s.hub.Publish(New(TypeLeadsAppended, s.account(runID), runID, leads))
}

func (s *HubSink) Progress(runID string, batch, total int) {
	s.hub.Publish(New(TypeProgress, s.account(runID), runID, ProgressData{Batch: batch, Total: total}))
}

func (s *HubSink) Terminal(runID string, out mining.Outcome) {
	s.mu.Lock()
	acct := s.accounts[runID]
	delete(s.accounts, runID)
	s.mu.Unlock()

	s.hub.Publish(New(TypeTerminal, acct, runID, TerminalData{
		Reason:         string(out.Reason),
		Message:        out.Message,
		Batches:        out.Batches,
		TotalLeads:     out.TotalLeads,
		Credits:        out.Credits,
		CostUSD:        out.CostUSD,
		QuotaExhausted: out.QuotaExhausted(),
	}))
}

// LeadStatusChanged publishes a pipeline status change.
func (s *HubSink) LeadStatusChanged(accountID string, lead model.Lead, from, to model.LeadStatus) {
	s.hub.Publish(New(TypeLeadStatus, accountID, lead.RunID, StatusData{
		LeadID:  lead.ID,
		Company: lead.Company,
		From:    string(from),
		To:      string(to),
	}))
}
