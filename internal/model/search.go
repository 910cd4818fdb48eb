package model

import "time"

// RunStatus represents the state of a mining run.
type RunStatus string

const (
	RunStatusRunning      RunStatus = "running"
	RunStatusCompleted    RunStatus = "completed"
	RunStatusExhausted    RunStatus = "exhausted"
	RunStatusCancelled    RunStatus = "cancelled"
	RunStatusOutOfCredits RunStatus = "out_of_credits"
	RunStatusFailed       RunStatus = "failed"
)

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool {
	return s != RunStatusRunning && s != ""
}

// Run is the persisted record of one mining run.
type Run struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	Query        string     `json:"query"`
	Status       RunStatus  `json:"status"`
	Batches      int        `json:"batches"`
	LeadsFound   int        `json:"leads_found"`
	CreditsSpent int        `json:"credits_spent"`
	CostUSD      float64    `json:"cost_usd"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	AccountID string    `json:"account_id,omitempty"`
	Status    RunStatus `json:"status,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// SearchState is the progress snapshot the dashboard polls.
type SearchState struct {
	RunID            string    `json:"run_id,omitempty"`
	Query            string    `json:"query"`
	IsSearching      bool      `json:"is_searching"`
	BatchesCompleted int       `json:"batches_completed"`
	TotalLeads       int       `json:"total_leads"`
	Status           RunStatus `json:"status,omitempty"`
	Error            string    `json:"error,omitempty"`
}
