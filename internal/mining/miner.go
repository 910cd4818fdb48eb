// Package mining runs the incremental batch-mining loop: generate, enrich,
// score, dedupe, charge, publish, pace, repeat.
package mining

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/cost"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/enrich"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/generate"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

// MessageNoMoreLeads is the outcome message when generation dries up.
const MessageNoMoreLeads = "no more leads found"

// Scorer maps a lead to a 0-100 score.
type Scorer interface {
	Score(lead model.Lead) int
}

// Deps are the collaborators a Miner drives.
type Deps struct {
	Generator generate.Generator
	Enricher  enrich.Enricher
	Scorer    Scorer
	Ledger    store.Ledger
	// Costs prices generation usage. Optional.
	Costs *cost.Calculator
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now defaults to time.Now.
	Now func() time.Time
}

// Config bounds and paces a run.
type Config struct {
	BatchSize       int
	MaxBatches      int
	MinBalance      int
	EmptyBatchLimit int
	ExcludeCap      int
	PacingDelay     time.Duration
	EmptyBackoff    time.Duration
}

// DefaultConfig returns the production loop settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:       5,
		MaxBatches:      100,
		MinBalance:      1,
		EmptyBatchLimit: 3,
		ExcludeCap:      generate.DefaultExcludeCap,
		PacingDelay:     time.Second,
		EmptyBackoff:    2 * time.Second,
	}
}

// ConfigFrom builds a Config from the generation section of the app config.
func ConfigFrom(g config.GenerationConfig) Config {
	c := DefaultConfig()
	if g.BatchSize > 0 {
		c.BatchSize = g.BatchSize
	}
	if g.MaxBatches > 0 {
		c.MaxBatches = g.MaxBatches
	}
	if g.MinBalance > 0 {
		c.MinBalance = g.MinBalance
	}
	if g.EmptyBatchLimit > 0 {
		c.EmptyBatchLimit = g.EmptyBatchLimit
	}
	if g.ExcludeCap > 0 {
		c.ExcludeCap = g.ExcludeCap
	}
	if g.PacingMs >= 0 {
		c.PacingDelay = time.Duration(g.PacingMs) * time.Millisecond
	}
	if g.EmptyBackoffMs >= 0 {
		c.EmptyBackoff = time.Duration(g.EmptyBackoffMs) * time.Millisecond
	}
	return c
}

// RunContext is the immutable input of one run.
type RunContext struct {
	RunID       string            `json:"run_id"`
	AccountID   string            `json:"account_id"`
	Query       string            `json:"query"`
	Constraints model.Constraints `json:"constraints"`
	// MaxBatches and BatchSize override Config when positive.
	MaxBatches int `json:"max_batches,omitempty"`
	BatchSize  int `json:"batch_size,omitempty"`
}

// Prompt returns the query with constraints rendered onto it.
func (rc RunContext) Prompt() string {
	return rc.Constraints.AppendTo(rc.Query)
}

// Result is everything a run produced. Leads holds every accepted lead no
// matter why the run stopped.
type Result struct {
	Outcome
	RunID string
	Leads []model.Lead
	Usage cost.Usage
}

// Miner executes mining runs. It is safe for concurrent use; each Run call
// owns its own state.
type Miner struct {
	deps Deps
	cfg  Config
}

// New creates a Miner. Enricher and Scorer default to pass-through and a
// zero score when nil.
func New(deps Deps, cfg Config) *Miner {
	if deps.Enricher == nil {
		deps.Enricher = enrich.Passthrough{}
	}
	if deps.Scorer == nil {
		deps.Scorer = zeroScorer{}
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Miner{deps: deps, cfg: cfg}
}

// Config returns the loop settings.
func (m *Miner) Config() Config {
	return m.cfg
}

// run holds the mutable state of one Run call.
type run struct {
	m      *Miner
	rc     RunContext
	sink   Sink
	log    *zap.Logger
	res    Result
	seen   map[string]struct{}
	names  []string
	limits Config
}

// Run mines leads until the batch budget is spent, generation runs dry,
// credits run out, ctx is cancelled or generation fails. It always emits
// exactly one Terminal event and returns the accepted leads.
func (m *Miner) Run(ctx context.Context, rc RunContext, sink Sink) Result {
	if sink == nil {
		sink = MultiSink(nil)
	}
	limits := m.cfg
	if rc.MaxBatches > 0 {
		limits.MaxBatches = rc.MaxBatches
	}
	if rc.BatchSize > 0 {
		limits.BatchSize = rc.BatchSize
	}

	r := &run{
		m:      m,
		rc:     rc,
		sink:   sink,
		log:    zap.L().With(zap.String("run_id", rc.RunID), zap.String("account_id", rc.AccountID)),
		res:    Result{RunID: rc.RunID},
		seen:   make(map[string]struct{}),
		limits: limits,
	}

	if strings.TrimSpace(rc.Query) == "" {
		return r.finish(model.RunStatusFailed, "", eris.New("mining: query is required"))
	}
	if m.deps.Generator == nil || m.deps.Ledger == nil {
		return r.finish(model.RunStatusFailed, "", eris.New("mining: generator and ledger are required"))
	}

	r.log.Info("mining: run started",
		zap.String("query", rc.Prompt()),
		zap.Int("batch_size", limits.BatchSize),
		zap.Int("max_batches", limits.MaxBatches),
	)
	return r.loop(ctx)
}

func (r *run) loop(ctx context.Context) Result {
	deps := r.m.deps
	empty := 0

	for r.res.Batches < r.limits.MaxBatches {
		if ctx.Err() != nil {
			return r.cancelled()
		}

		balance, err := deps.Ledger.Balance(ctx, r.rc.AccountID)
		if ctx.Err() != nil {
			return r.cancelled()
		}
		if err != nil {
			return r.finish(model.RunStatusFailed, "", eris.Wrap(err, "mining: read balance"))
		}
		if balance < r.limits.MinBalance {
			r.log.Info("mining: balance below minimum", zap.Int("balance", balance))
			return r.finish(model.RunStatusOutOfCredits, "insufficient credits", store.ErrInsufficientCredits)
		}

		batch, err := deps.Generator.GenerateBatch(ctx, generate.Request{
			Query:      r.rc.Prompt(),
			BatchSize:  r.limits.BatchSize,
			BatchIndex: r.res.Batches,
			Exclude:    r.exclude(),
		})
		if batch != nil {
			r.addUsage(batch.Usage)
		}
		if ctx.Err() != nil {
			return r.cancelled()
		}

		var candidates []model.Lead
		switch {
		case errors.Is(err, generate.ErrMalformedResponse):
			r.log.Warn("mining: malformed batch", zap.Int("batch", r.res.Batches+1), zap.Error(err))
		case err != nil:
			return r.finish(model.RunStatusFailed, "", err)
		default:
			candidates = batch.Candidates
		}

		var accepted []model.Lead
		if len(candidates) > 0 {
			scored, ok := r.enrichAndScore(ctx, candidates)
			if !ok {
				return r.cancelled()
			}
			accepted = r.dedupe(scored)
		}

		r.res.Batches++

		if len(accepted) == 0 {
			empty++
			r.sink.Progress(r.rc.RunID, r.res.Batches, len(r.res.Leads))
			if empty >= r.limits.EmptyBatchLimit {
				return r.finish(model.RunStatusExhausted, MessageNoMoreLeads, nil)
			}
			if r.res.Batches >= r.limits.MaxBatches {
				break
			}
			if err := deps.Sleep(ctx, r.limits.EmptyBackoff); err != nil {
				return r.cancelled()
			}
			continue
		}
		empty = 0

		if ctx.Err() != nil {
			return r.cancelled()
		}
		// The charge and the publication that follows form one acceptance
		// step, so the deduction must not be torn by a late cancel.
		if _, err := deps.Ledger.Deduct(context.WithoutCancel(ctx), r.rc.AccountID, len(accepted),
			store.SearchDescription(r.rc.Query)); err != nil {
			if errors.Is(err, store.ErrInsufficientCredits) {
				return r.finish(model.RunStatusOutOfCredits, "insufficient credits", err)
			}
			return r.finish(model.RunStatusFailed, "", eris.Wrap(err, "mining: deduct credits"))
		}
		r.accept(accepted)
		r.sink.LeadsAppended(r.rc.RunID, accepted)
		r.sink.Progress(r.rc.RunID, r.res.Batches, len(r.res.Leads))
		r.log.Info("mining: batch accepted",
			zap.Int("batch", r.res.Batches),
			zap.Int("accepted", len(accepted)),
			zap.Int("total", len(r.res.Leads)),
		)

		if r.res.Batches >= r.limits.MaxBatches {
			break
		}
		if err := deps.Sleep(ctx, r.limits.PacingDelay); err != nil {
			return r.cancelled()
		}
	}

	return r.finish(model.RunStatusCompleted, "", nil)
}

// enrichAndScore decorates candidates one at a time. It reports false if ctx
// was cancelled, in which case the partial batch must be discarded.
func (r *run) enrichAndScore(ctx context.Context, candidates []model.Lead) ([]model.Lead, bool) {
	deps := r.m.deps
	now := deps.Now().UTC()
	out := make([]model.Lead, 0, len(candidates))

	for _, c := range candidates {
		if ctx.Err() != nil {
			return nil, false
		}
		// Skip enrichment for names the run already holds.
		if _, dup := r.seen[c.Key()]; dup || c.Key() == "" {
			continue
		}
		lead := deps.Enricher.Enrich(ctx, c)
		if ctx.Err() != nil {
			return nil, false
		}
		lead.ApplyDefaults()
		lead.Score = deps.Scorer.Score(lead)
		lead.RunID = r.rc.RunID
		lead.Query = r.rc.Query
		if lead.CreatedAt.IsZero() {
			lead.CreatedAt = now
		}
		out = append(out, lead)
	}
	return out, true
}

// dedupe drops leads whose normalized company name is already accepted or
// repeated earlier in the same batch.
func (r *run) dedupe(leads []model.Lead) []model.Lead {
	batchSeen := make(map[string]struct{}, len(leads))
	out := leads[:0]
	for _, l := range leads {
		k := l.Key()
		if k == "" {
			continue
		}
		if _, ok := r.seen[k]; ok {
			continue
		}
		if _, ok := batchSeen[k]; ok {
			continue
		}
		batchSeen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}

func (r *run) accept(leads []model.Lead) {
	for _, l := range leads {
		r.seen[l.Key()] = struct{}{}
		r.names = append(r.names, l.Company)
	}
	r.res.Leads = append(r.res.Leads, leads...)
	r.res.Credits += len(leads)
}

// exclude returns the most recent accepted names, bounded by ExcludeCap.
func (r *run) exclude() []string {
	n := r.limits.ExcludeCap
	if n <= 0 || len(r.names) <= n {
		return append([]string(nil), r.names...)
	}
	return append([]string(nil), r.names[len(r.names)-n:]...)
}

func (r *run) addUsage(u cost.Usage) {
	r.res.Usage.Add(u)
	r.res.CostUSD += r.m.deps.Costs.Cost(u)
}

func (r *run) cancelled() Result {
	return r.finish(model.RunStatusCancelled, "stopped by user", nil)
}

func (r *run) finish(reason model.RunStatus, msg string, err error) Result {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	r.res.Reason = reason
	r.res.Message = msg
	r.res.Err = err
	r.res.TotalLeads = len(r.res.Leads)

	fields := []zap.Field{
		zap.String("reason", string(reason)),
		zap.Int("batches", r.res.Batches),
		zap.Int("leads", r.res.TotalLeads),
		zap.Int("credits", r.res.Credits),
		zap.Float64("cost_usd", r.res.CostUSD),
	}
	if err != nil && reason == model.RunStatusFailed {
		r.log.Error("mining: run failed", append(fields, zap.Error(err))...)
	} else {
		r.log.Info("mining: run finished", fields...)
	}

	r.sink.Terminal(r.rc.RunID, r.res.Outcome)
	return r.res
}

type zeroScorer struct{}

func (zeroScorer) Score(model.Lead) int { return 0 }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
