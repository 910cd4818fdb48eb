package mining

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

// Persisting is a Sink that writes runs and accepted leads to the store.
// Write failures are logged; they never stop a run.
type Persisting struct {
	store   store.Store
	timeout time.Duration

	mu       sync.Mutex
	accounts map[string]string // run ID -> account ID
	created  map[string]time.Time
}

// NewPersisting creates a Persisting sink.
func NewPersisting(st store.Store) *Persisting {
	return &Persisting{
		store:    st,
		timeout:  10 * time.Second,
		accounts: make(map[string]string),
		created:  make(map[string]time.Time),
	}
}

// RunStarted creates the run record.
func (p *Persisting) RunStarted(ctx context.Context, rc RunContext) error {
	run := &model.Run{
		ID:        rc.RunID,
		AccountID: rc.AccountID,
		Query:     rc.Query,
		Status:    model.RunStatusRunning,
	}
	if err := p.store.CreateRun(ctx, run); err != nil {
		return err
	}
	p.mu.Lock()
	p.accounts[rc.RunID] = rc.AccountID
	p.created[rc.RunID] = run.CreatedAt
	p.mu.Unlock()
	return nil
}

func (p *Persisting) account(runID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accounts[runID]
}

func (p *Persisting) LeadsAppended(runID string, leads []model.Lead) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.SaveLeads(ctx, p.account(runID), leads); err != nil {
		zap.L().Warn("mining: failed to persist leads",
			zap.String("run_id", runID), zap.Int("count", len(leads)), zap.Error(err))
	}
}

func (p *Persisting) Progress(runID string, batch, total int) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.UpdateRunProgress(ctx, runID, batch, total); err != nil {
		zap.L().Debug("mining: failed to persist progress", zap.String("run_id", runID), zap.Error(err))
	}
}

func (p *Persisting) Terminal(runID string, out Outcome) {
	p.mu.Lock()
	accountID := p.accounts[runID]
	createdAt := p.created[runID]
	delete(p.accounts, runID)
	delete(p.created, runID)
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	run := &model.Run{
		ID:           runID,
		AccountID:    accountID,
		Status:       out.Reason,
		Batches:      out.Batches,
		LeadsFound:   out.TotalLeads,
		CreditsSpent: out.Credits,
		CostUSD:      out.CostUSD,
		CreatedAt:    createdAt,
	}
	if out.Err != nil {
		run.Error = out.Message
	}
	if err := p.store.FinishRun(ctx, run); err != nil {
		zap.L().Warn("mining: failed to persist run outcome", zap.String("run_id", runID), zap.Error(err))
	}
}
