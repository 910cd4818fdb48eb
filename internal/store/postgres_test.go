package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_Balance(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT credits FROM accounts`).WithArgs("acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(42))
	mock.ExpectQuery(`SELECT credits FROM accounts`).WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	bal, err := s.Balance(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 42, bal)

	_, err = s.Balance(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeductCommits(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE accounts SET credits = credits - \$1`).WithArgs(5, "acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(15))
	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(pgxmock.AnyArg(), "acct-1", pgxmock.AnyArg(), "search", -5, "Search: fintech").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	bal, err := s.Deduct(context.Background(), "acct-1", 5, SearchDescription("fintech"))
	require.NoError(t, err)
	assert.Equal(t, 15, bal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeductInsufficient(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE accounts SET credits = credits - \$1`).WithArgs(5, "acct-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT 1 FROM accounts`).WithArgs("acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := s.Deduct(context.Background(), "acct-1", 5, "x")
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeductUnknownAccount(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE accounts SET credits = credits - \$1`).WithArgs(1, "ghost").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT 1 FROM accounts`).WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.Deduct(context.Background(), "ghost", 1, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeductTransactionInsertFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE accounts SET credits = credits - \$1`).WithArgs(2, "acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(8))
	mock.ExpectExec(`INSERT INTO transactions`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.Deduct(context.Background(), "acct-1", 2, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AddCredits(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE accounts SET credits = credits \+ \$1`).WithArgs(5000, "enterprise", "acct-1").
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(5050))
	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(pgxmock.AnyArg(), "acct-1", pgxmock.AnyArg(), "purchase", 5000, "Purchased ENTERPRISE Plan").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	bal, err := s.AddCredits(context.Background(), Credit{
		AccountID:   "acct-1",
		Amount:      5000,
		Type:        model.TxPurchase,
		Description: PurchaseDescription(model.PlanEnterprise),
		Plan:        model.PlanEnterprise,
	})
	require.NoError(t, err)
	assert.Equal(t, 5050, bal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoginExisting(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, email, name, credits, plan, created_at FROM accounts WHERE email`).
		WithArgs("kofi@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "name", "credits", "plan", "created_at"}).
			AddRow("acct-1", "kofi@example.com", "kofi", 12, model.PlanPro, now))

	acct, created, err := s.Login(context.Background(), "Kofi@Example.com", "", 50)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 12, acct.Credits)
	assert.Equal(t, model.PlanPro, acct.Plan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoginCreates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM accounts WHERE email`).WithArgs("new@example.com").WillReturnError(pgx.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(pgxmock.AnyArg(), "new@example.com", "new", 50, "free", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "bonus", 50, WelcomeBonus).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	acct, created, err := s.Login(context.Background(), "new@example.com", "", 50)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 50, acct.Credits)
	assert.Equal(t, "new", acct.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveLeadsUsesCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"leads"}, leadColumns).WillReturnResult(3)

	require.NoError(t, s.SaveLeads(context.Background(), "acct-1", testLeads("run-1")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListLeadsBuildsFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	lead := model.Lead{ID: "l1", Company: "Acme Pay", Industry: "Finance", Status: model.LeadStatusNew, Score: 10}
	data, err := json.Marshal(lead)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads WHERE account_id = \$1 AND industry ILIKE \$2 AND status = \$3`).
		WithArgs("acct-1", "%fin%", "qualified").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT status, score, data FROM leads WHERE .* LIMIT \$4 OFFSET \$5`).
		WithArgs("acct-1", "%fin%", "qualified", 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"status", "score", "data"}).AddRow(model.LeadStatusQualified, 88, data))

	leads, total, err := s.ListLeads(context.Background(), model.LeadFilter{
		AccountID: "acct-1", Industry: "fin", Status: model.LeadStatusQualified,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, leads, 1)
	assert.Equal(t, "Acme Pay", leads[0].Company)
	assert.Equal(t, model.LeadStatusQualified, leads[0].Status, "column status wins over stored document")
	assert.Equal(t, 88, leads[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateLeadStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`UPDATE leads l SET status`).WithArgs("won", "l1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(model.LeadStatusNegotiation))
	mock.ExpectQuery(`UPDATE leads l SET status`).WithArgs("won", "missing").
		WillReturnError(pgx.ErrNoRows)

	prev, err := s.UpdateLeadStatus(context.Background(), "l1", model.LeadStatusWon)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusNegotiation, prev)

	_, err = s.UpdateLeadStatus(context.Background(), "missing", model.LeadStatusWon)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinishRunNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), &model.Run{ID: "missing", Status: model.RunStatusCompleted})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, account_id, query, status`).WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "account_id", "query", "status", "batches", "leads_found",
			"credits_spent", "cost_usd", "error", "created_at", "finished_at",
		}).AddRow("run-1", "acct-1", "fintech", model.RunStatusRunning, 2, 10, 10, 0.01, "", now, nil))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "fintech", run.Query)
	assert.Equal(t, 10, run.LeadsFound)
	assert.Nil(t, run.FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS accounts`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
