package mining

import (
	"context"
	"errors"
	"sync"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/generate"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// Outcome is the terminal summary of a run.
type Outcome struct {
	Reason     model.RunStatus `json:"reason"`
	Message    string          `json:"message,omitempty"`
	Err        error           `json:"-"`
	Batches    int             `json:"batches"`
	TotalLeads int             `json:"total_leads"`
	Credits    int             `json:"credits"`
	CostUSD    float64         `json:"cost_usd"`
}

// QuotaExhausted reports whether the run stopped on provider quota.
func (o Outcome) QuotaExhausted() bool {
	return errors.Is(o.Err, generate.ErrQuotaExhausted)
}

// Sink receives run events. Calls for one run arrive from a single
// goroutine in order: zero or more LeadsAppended/Progress pairs, then
// exactly one Terminal.
type Sink interface {
	LeadsAppended(runID string, leads []model.Lead)
	Progress(runID string, batch, total int)
	Terminal(runID string, out Outcome)
}

// Starter is implemented by sinks that need to prepare before a run
// begins, such as creating its persisted record.
type Starter interface {
	RunStarted(ctx context.Context, rc RunContext) error
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) LeadsAppended(runID string, leads []model.Lead) {
	for _, s := range m {
		s.LeadsAppended(runID, leads)
	}
}

func (m MultiSink) Progress(runID string, batch, total int) {
	for _, s := range m {
		s.Progress(runID, batch, total)
	}
}

func (m MultiSink) Terminal(runID string, out Outcome) {
	for _, s := range m {
		s.Terminal(runID, out)
	}
}

// RunStarted forwards to every member that implements Starter and stops at
// the first error.
func (m MultiSink) RunStarted(ctx context.Context, rc RunContext) error {
	for _, s := range m {
		if st, ok := s.(Starter); ok {
			if err := st.RunStarted(ctx, rc); err != nil {
				return err
			}
		}
	}
	return nil
}

// FuncSink adapts plain functions to Sink. Nil fields are skipped.
type FuncSink struct {
	OnLeads    func(runID string, leads []model.Lead)
	OnProgress func(runID string, batch, total int)
	OnTerminal func(runID string, out Outcome)
}

func (f FuncSink) LeadsAppended(runID string, leads []model.Lead) {
	if f.OnLeads != nil {
		f.OnLeads(runID, leads)
	}
}

func (f FuncSink) Progress(runID string, batch, total int) {
	if f.OnProgress != nil {
		f.OnProgress(runID, batch, total)
	}
}

func (f FuncSink) Terminal(runID string, out Outcome) {
	if f.OnTerminal != nil {
		f.OnTerminal(runID, out)
	}
}

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	mu       sync.Mutex
	Appended [][]model.Lead
	Batches  []int
	Totals   []int
	Outcomes []Outcome
}

func (r *Recorder) LeadsAppended(_ string, leads []model.Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Appended = append(r.Appended, append([]model.Lead(nil), leads...))
}

func (r *Recorder) Progress(_ string, batch, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Batches = append(r.Batches, batch)
	r.Totals = append(r.Totals, total)
}

func (r *Recorder) Terminal(_ string, out Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outcomes = append(r.Outcomes, out)
}

// Leads returns every appended lead in publication order.
func (r *Recorder) Leads() []model.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Lead
	for _, b := range r.Appended {
		out = append(out, b...)
	}
	return out
}
