package mining

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/generate"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

// blockingGenerator yields one lead per call and then blocks until ctx is
// cancelled.
type blockingGenerator struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{started: make(chan struct{}, 16)}
}

func (g *blockingGenerator) GenerateBatch(ctx context.Context, _ generate.Request) (*generate.Batch, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()
	if n == 1 {
		return &generate.Batch{Candidates: []model.Lead{{ID: "1", Company: "First Co"}}}, nil
	}
	g.started <- struct{}{}
	<-ctx.Done()
	return &generate.Batch{}, ctx.Err()
}

func newTestSession(t *testing.T, gen generate.Generator, ledger store.Ledger, sink Sink) *Session {
	t.Helper()
	m := New(Deps{Generator: gen, Ledger: ledger, Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() }}, testConfig())
	s := NewSession(context.Background(), m, sink)
	t.Cleanup(s.Shutdown)
	return s
}

func waitStarted(t *testing.T, g *blockingGenerator) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached second batch")
	}
}

func TestSession_RejectsSecondRun(t *testing.T) {
	gen := newBlockingGenerator()
	s := newTestSession(t, gen, &memLedger{balance: 10}, nil)
	ctx := context.Background()

	first, err := s.Start(ctx, RunContext{AccountID: "acct-1", Query: "fintech"}, StartOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, first.RunID)
	waitStarted(t, gen)

	assert.True(t, s.Active("acct-1"))
	st := s.State("acct-1")
	assert.True(t, st.IsSearching)
	assert.Equal(t, first.RunID, st.RunID)
	assert.Equal(t, 1, st.TotalLeads)

	_, err = s.Start(ctx, RunContext{AccountID: "acct-1", Query: "again"}, StartOptions{})
	assert.ErrorIs(t, err, ErrRunActive)

	// Other accounts are independent.
	_, err = s.Start(ctx, RunContext{AccountID: "acct-2", Query: "other"}, StartOptions{})
	assert.NoError(t, err)
}

func TestSession_ReplaceCancelsPrevious(t *testing.T) {
	gen := newBlockingGenerator()
	var (
		mu        sync.Mutex
		terminals []string
	)
	sink := FuncSink{OnTerminal: func(runID string, out Outcome) {
		mu.Lock()
		terminals = append(terminals, runID+":"+string(out.Reason))
		mu.Unlock()
	}}
	s := newTestSession(t, gen, &memLedger{balance: 10}, sink)
	ctx := context.Background()

	first, err := s.Start(ctx, RunContext{AccountID: "acct-1", Query: "one"}, StartOptions{})
	require.NoError(t, err)
	waitStarted(t, gen)

	second, err := s.Start(ctx, RunContext{AccountID: "acct-1", Query: "two"}, StartOptions{Replace: true})
	require.NoError(t, err)

	mu.Lock()
	require.NotEmpty(t, terminals, "previous run acknowledged before replacement started")
	assert.Equal(t, first.RunID+":cancelled", terminals[0])
	mu.Unlock()

	assert.Equal(t, second.RunID, s.State("acct-1").RunID)
	assert.Equal(t, "two", s.State("acct-1").Query)
}

func TestSession_StopPreservesPartialResults(t *testing.T) {
	gen := newBlockingGenerator()
	ledger := &memLedger{balance: 10}
	s := newTestSession(t, gen, ledger, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, RunContext{AccountID: "acct-1", Query: "q"}, StartOptions{})
	require.NoError(t, err)
	waitStarted(t, gen)

	st, err := s.Stop(ctx, "acct-1")
	require.NoError(t, err)
	assert.False(t, st.IsSearching)
	assert.Equal(t, model.RunStatusCancelled, st.Status)
	assert.Equal(t, 1, st.TotalLeads)
	assert.Empty(t, st.Error)
	assert.False(t, s.Active("acct-1"))

	res, err := s.Wait(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, res.Leads, 1)
	assert.Equal(t, 1, ledger.total())

	_, err = s.Stop(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestSession_StateReportsOutOfCredits(t *testing.T) {
	s := newTestSession(t, &scriptedGenerator{}, &memLedger{balance: 0}, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, RunContext{AccountID: "acct-1", Query: "q"}, StartOptions{})
	require.NoError(t, err)
	res, err := s.Wait(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusOutOfCredits, res.Reason)

	st := s.State("acct-1")
	assert.False(t, st.IsSearching)
	assert.Equal(t, "insufficient credits", st.Error)

	// A finished run does not block the next one.
	_, err = s.Start(ctx, RunContext{AccountID: "acct-1", Query: "q2"}, StartOptions{})
	assert.NoError(t, err)
}

func TestSession_RequiresAccount(t *testing.T) {
	s := newTestSession(t, &scriptedGenerator{}, &memLedger{}, nil)
	_, err := s.Start(context.Background(), RunContext{Query: "q"}, StartOptions{})
	assert.Error(t, err)
}

func TestPersisting_WritesRunAndLeads(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "mining.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	acct, _, err := st.Login(ctx, "miner@example.com", "", 20)
	require.NoError(t, err)

	gen := &scriptedGenerator{steps: []step{
		{names: []string{"Acme", "Bolt"}},
		{names: []string{"Cedar"}},
	}}
	m := New(Deps{Generator: gen, Ledger: st, Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() }}, testConfig())
	s := NewSession(ctx, m, MultiSink{NewPersisting(st)})
	t.Cleanup(s.Shutdown)

	rc, err := s.Start(ctx, RunContext{AccountID: acct.ID, Query: "fintech", MaxBatches: 2}, StartOptions{})
	require.NoError(t, err)
	res, err := s.Wait(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, model.RunStatusCompleted, res.Reason)

	run, err := st.GetRun(ctx, rc.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.LeadsFound)
	assert.Equal(t, 3, run.CreditsSpent)
	assert.Equal(t, 2, run.Batches)
	assert.NotNil(t, run.FinishedAt)

	leads, total, err := st.ListLeads(ctx, model.LeadFilter{AccountID: acct.ID, RunID: rc.RunID})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, leads, 3)

	bal, err := st.Balance(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, bal)

	txs, err := st.Transactions(ctx, acct.ID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, -1, txs[0].Amount)
	assert.Equal(t, -2, txs[1].Amount)
	assert.Equal(t, "Search: fintech", txs[0].Description)
}
