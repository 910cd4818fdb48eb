// Package events fans mining progress and lead updates out to SSE and
// WebSocket subscribers.
package events

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	TypeLeadsAppended = "leads.appended"
	TypeProgress      = "search.progress"
	TypeTerminal      = "search.terminal"
	TypeLeadStatus    = "lead.status"
	TypePing          = "ping"
)

// Version is the envelope schema version.
const Version = 1

// Event is the JSON envelope delivered to subscribers.
type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RunID     string          `json:"run_id,omitempty"`
	AccountID string          `json:"-"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds an event, marshaling data into the envelope.
func New(typ, accountID, runID string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{
		Type:      typ,
		Version:   Version,
		At:        time.Now().UTC(),
		RunID:     runID,
		AccountID: accountID,
		Data:      raw,
	}
}

// JSON returns the wire form of the event.
func (e Event) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// ProgressData is the payload of search.progress.
type ProgressData struct {
	Batch int `json:"batch"`
	Total int `json:"total"`
}

// TerminalData is the payload of search.terminal.
type TerminalData struct {
	Reason         string  `json:"reason"`
	Message        string  `json:"message,omitempty"`
	Batches        int     `json:"batches"`
	TotalLeads     int     `json:"total_leads"`
	Credits        int     `json:"credits"`
	CostUSD        float64 `json:"cost_usd"`
	QuotaExhausted bool    `json:"quota_exhausted,omitempty"`
}

// StatusData is the payload of lead.status.
type StatusData struct {
	LeadID  string `json:"lead_id"`
	Company string `json:"company"`
	From    string `json:"from"`
	To      string `json:"to"`
}
