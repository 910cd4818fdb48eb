package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func newTestAccount(t *testing.T, s Store, credits int) *model.Account {
	t.Helper()
	acct, created, err := s.Login(context.Background(), fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()), "", credits)
	require.NoError(t, err)
	require.True(t, created)
	return acct
}

func TestSQLite_LoginCreatesWithBonus(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	acct, created, err := s.Login(ctx, "  Ama@Example.com ", "", 50)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ama@example.com", acct.Email)
	assert.Equal(t, "ama", acct.Name)
	assert.Equal(t, 50, acct.Credits)
	assert.Equal(t, model.PlanFree, acct.Plan)

	txs, err := s.Transactions(ctx, acct.ID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TxBonus, txs[0].Type)
	assert.Equal(t, 50, txs[0].Amount)
	assert.Equal(t, WelcomeBonus, txs[0].Description)

	again, created, err := s.Login(ctx, "ama@example.com", "Someone Else", 50)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, acct.ID, again.ID)
	assert.Equal(t, 50, again.Credits)
}

func TestSQLite_LoginRequiresEmail(t *testing.T) {
	s := newTestSQLite(t)
	_, _, err := s.Login(context.Background(), "  ", "", 50)
	assert.Error(t, err)
}

func TestSQLite_GetAccountNotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetAccountByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_DeductRecordsTransaction(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, 20)

	bal, err := s.Deduct(ctx, acct.ID, 5, SearchDescription("fintech in Accra"))
	require.NoError(t, err)
	assert.Equal(t, 15, bal)

	got, err := s.Balance(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, got)

	txs, err := s.Transactions(ctx, acct.ID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, model.TxSearch, txs[0].Type, "newest first")
	assert.Equal(t, -5, txs[0].Amount)
	assert.Equal(t, "Search: fintech in Accra", txs[0].Description)
}

func TestSQLite_DeductInsufficientHasNoSideEffects(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, 3)

	_, err := s.Deduct(ctx, acct.ID, 4, "too much")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	bal, err := s.Balance(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, bal)

	txs, err := s.Transactions(ctx, acct.ID, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestSQLite_DeductExactBalance(t *testing.T) {
	s := newTestSQLite(t)
	acct := newTestAccount(t, s, 5)
	bal, err := s.Deduct(context.Background(), acct.ID, 5, "all of it")
	require.NoError(t, err)
	assert.Equal(t, 0, bal)
}

func TestSQLite_DeductUnknownAccount(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.Deduct(context.Background(), "missing", 1, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Balance(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_DeductRejectsNonPositive(t *testing.T) {
	s := newTestSQLite(t)
	acct := newTestAccount(t, s, 5)
	_, err := s.Deduct(context.Background(), acct.ID, 0, "x")
	assert.Error(t, err)
	_, err = s.Deduct(context.Background(), acct.ID, -3, "x")
	assert.Error(t, err)
}

func TestSQLite_ConcurrentDeductNeverOverdraws(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, 10)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Deduct(ctx, acct.ID, 3, "race"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	bal, err := s.Balance(ctx, acct.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bal, 0)
	assert.Equal(t, 10-3*success, bal)
	assert.LessOrEqual(t, success, 3)
}

func TestSQLite_AddCreditsUpgradesPlan(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, 50)

	bal, err := s.AddCredits(ctx, Credit{
		AccountID:   acct.ID,
		Amount:      1000,
		Type:        model.TxPurchase,
		Description: PurchaseDescription(model.PlanPro),
		Plan:        model.PlanPro,
	})
	require.NoError(t, err)
	assert.Equal(t, 1050, bal)

	got, err := s.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, got.Plan)

	txs, err := s.Transactions(ctx, acct.ID, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Purchased PRO Plan", txs[0].Description)
	assert.Equal(t, 1000, txs[0].Amount)
}

func TestSQLite_AddCreditsKeepsPlanWhenUnset(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, 0)

	_, err := s.AddCredits(ctx, Credit{AccountID: acct.ID, Amount: 5, Type: model.TxBonus, Description: "promo"})
	require.NoError(t, err)
	got, err := s.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, got.Plan)
	assert.Equal(t, 5, got.Credits)

	_, err = s.AddCredits(ctx, Credit{AccountID: "missing", Amount: 5, Type: model.TxBonus})
	assert.ErrorIs(t, err, ErrNotFound)
}

func testLeads(runID string) []model.Lead {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []model.Lead{
		{ID: "l1", Company: "Acme Pay", Industry: "Finance", Location: "Accra, Ghana", Employees: "11-50",
			Confidence: 90, Score: 85, Status: model.LeadStatusNew, RunID: runID, Query: "fintech", CreatedAt: base},
		{ID: "l2", Company: "Kumasi Health", Industry: "Healthcare", Location: "Kumasi, Ghana", Employees: "51-200",
			Confidence: 70, Score: 60, Status: model.LeadStatusNew, RunID: runID, Query: "fintech", CreatedAt: base.Add(time.Minute)},
		{ID: "l3", Company: "Lagos Soft", Industry: "Software", Location: "Lagos, Nigeria", Employees: "11-50",
			Confidence: 80, Score: 75, Status: model.LeadStatusNew, RunID: runID, Query: "fintech", CreatedAt: base.Add(2 * time.Minute),
			Management: []model.Manager{{Name: "Ada", Role: "CEO"}}},
	}
}

func TestSQLite_LeadsRoundTripAndFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLeads(ctx, "acct-1", testLeads("run-1")))
	require.NoError(t, s.SaveLeads(ctx, "acct-2", []model.Lead{{ID: "other", Company: "Elsewhere"}}))

	all, total, err := s.ListLeads(ctx, model.LeadFilter{AccountID: "acct-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "Lagos Soft", all[0].Company, "newest first")
	assert.Equal(t, "Ada", all[0].Management[0].Name)

	ghana, total, err := s.ListLeads(ctx, model.LeadFilter{AccountID: "acct-1", Location: "ghana"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, ghana, 2)

	scored, _, err := s.ListLeads(ctx, model.LeadFilter{AccountID: "acct-1", MinScore: 70, Employees: "11-50"})
	require.NoError(t, err)
	assert.Len(t, scored, 2)

	page, total, err := s.ListLeads(ctx, model.LeadFilter{AccountID: "acct-1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Kumasi Health", page[0].Company)
}

func TestSQLite_SaveLeadsIgnoresDuplicateIDs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	leads := testLeads("run-1")
	require.NoError(t, s.SaveLeads(ctx, "acct-1", leads))
	require.NoError(t, s.SaveLeads(ctx, "acct-1", leads[:1]))

	_, total, err := s.ListLeads(ctx, model.LeadFilter{AccountID: "acct-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NoError(t, s.SaveLeads(ctx, "acct-1", nil))
}

func TestSQLite_UpdateLeadStatus(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.SaveLeads(ctx, "acct-1", testLeads("run-1")))

	prev, err := s.UpdateLeadStatus(ctx, "l1", model.LeadStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusNew, prev)

	l, err := s.GetLead(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusContacted, l.Status)

	_, err = s.UpdateLeadStatus(ctx, "missing", model.LeadStatusWon)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateLeadStatus(ctx, "l1", model.LeadStatus("archived"))
	assert.Error(t, err)
	_, err = s.GetLead(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run := &model.Run{AccountID: "acct-1", Query: "fintech in Accra"}
	require.NoError(t, s.CreateRun(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	require.NoError(t, s.UpdateRunProgress(ctx, run.ID, 2, 9))
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Batches)
	assert.Equal(t, 9, got.LeadsFound)
	assert.Nil(t, got.FinishedAt)

	run.Status = model.RunStatusOutOfCredits
	run.Batches = 3
	run.LeadsFound = 12
	run.CreditsSpent = 12
	run.CostUSD = 0.015
	require.NoError(t, s.FinishRun(ctx, run))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusOutOfCredits, got.Status)
	assert.Equal(t, 12, got.CreditsSpent)
	assert.InDelta(t, 0.015, got.CostUSD, 1e-9)
	assert.NotNil(t, got.FinishedAt)

	other := &model.Run{AccountID: "acct-2", Query: "x"}
	require.NoError(t, s.CreateRun(ctx, other))

	runs, err := s.ListRuns(ctx, model.RunFilter{AccountID: "acct-1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	runs, err = s.ListRuns(ctx, model.RunFilter{Status: model.RunStatusRunning, Limit: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, other.ID, runs[0].ID)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateRunProgress(ctx, "missing", 1, 1), ErrNotFound)
}

func TestSQLite_SavedSearchesKeepTenMostRecent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 12 {
		_, err := s.SaveSearch(ctx, model.SavedSearch{
			AccountID:  "acct-1",
			Query:      fmt.Sprintf("query %d", i),
			LeadsCount: i,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	list, err := s.ListSavedSearches(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, list, model.MaxSavedSearches)
	assert.Equal(t, "query 11", list[0].Query)
	assert.Equal(t, "query 2", list[len(list)-1].Query)
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	acct, _, err := st.Login(context.Background(), "a@b.co", "", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, acct.Credits)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
