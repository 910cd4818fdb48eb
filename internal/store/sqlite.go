package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	credits    INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
	plan       TEXT NOT NULL DEFAULT 'free',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL REFERENCES accounts(id),
	date        DATETIME NOT NULL,
	type        TEXT NOT NULL,
	amount      INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	account_id    TEXT NOT NULL,
	query         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	batches       INTEGER NOT NULL DEFAULT 0,
	leads_found   INTEGER NOT NULL DEFAULT 0,
	credits_spent INTEGER NOT NULL DEFAULT 0,
	cost_usd      REAL NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at   DATETIME
);

CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL,
	run_id      TEXT NOT NULL DEFAULT '',
	query       TEXT NOT NULL DEFAULT '',
	company     TEXT NOT NULL,
	company_key TEXT NOT NULL,
	industry    TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	employees   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'new',
	score       INTEGER NOT NULL DEFAULT 0,
	confidence  INTEGER NOT NULL DEFAULT 0,
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS saved_searches (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL,
	query       TEXT NOT NULL,
	leads_count INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, date);
CREATE INDEX IF NOT EXISTS idx_runs_account ON runs(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_account ON leads(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_run ON leads(run_id);
CREATE INDEX IF NOT EXISTS idx_leads_company_key ON leads(account_id, company_key);
CREATE INDEX IF NOT EXISTS idx_saved_searches_account ON saved_searches(account_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Ledger ---

func (s *SQLiteStore) Balance(ctx context.Context, accountID string) (int, error) {
	var credits int
	err := s.db.QueryRowContext(ctx, `SELECT credits FROM accounts WHERE id = ?`, accountID).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, eris.Wrapf(ErrNotFound, "account %s", accountID)
	}
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: balance")
	}
	return credits, nil
}

func (s *SQLiteStore) Deduct(ctx context.Context, accountID string, amount int, reason string) (int, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin deduct")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET credits = credits - ? WHERE id = ? AND credits >= ?`,
		amount, accountID, amount,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: deduct credits")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, accountID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, eris.Wrapf(ErrNotFound, "account %s", accountID)
		}
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: check account")
		}
		return 0, eris.Wrapf(ErrInsufficientCredits, "account %s: need %d", accountID, amount)
	}

	if err := sqliteInsertTx(ctx, tx, accountID, model.TxSearch, -amount, reason); err != nil {
		return 0, err
	}

	var balance int
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM accounts WHERE id = ?`, accountID).Scan(&balance); err != nil {
		return 0, eris.Wrap(err, "sqlite: read balance")
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit deduct")
	}
	return balance, nil
}

func (s *SQLiteStore) AddCredits(ctx context.Context, c Credit) (int, error) {
	if err := validateAmount(c.Amount); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin add credits")
	}
	defer tx.Rollback() //nolint:errcheck

	query := `UPDATE accounts SET credits = credits + ? WHERE id = ?`
	args := []any{c.Amount, c.AccountID}
	if c.Plan != "" {
		query = `UPDATE accounts SET credits = credits + ?, plan = ? WHERE id = ?`
		args = []any{c.Amount, string(c.Plan), c.AccountID}
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: add credits")
	}
	if err := checkRowsAffected(res, "account", c.AccountID); err != nil {
		return 0, err
	}

	if err := sqliteInsertTx(ctx, tx, c.AccountID, c.Type, c.Amount, c.Description); err != nil {
		return 0, err
	}

	var balance int
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM accounts WHERE id = ?`, c.AccountID).Scan(&balance); err != nil {
		return 0, eris.Wrap(err, "sqlite: read balance")
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit add credits")
	}
	return balance, nil
}

func sqliteInsertTx(ctx context.Context, tx *sql.Tx, accountID string, typ model.TransactionType, amount int, desc string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, date, type, amount, description) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), accountID, time.Now().UTC(), string(typ), amount, desc,
	)
	return eris.Wrap(err, "sqlite: insert transaction")
}

// --- Accounts ---

func (s *SQLiteStore) Login(ctx context.Context, email, name string, bonus int) (*model.Account, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, false, eris.New("sqlite: email is required")
	}

	acct, err := s.GetAccountByEmail(ctx, email)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if strings.TrimSpace(name) == "" {
		name = NameFromEmail(email)
	}
	acct = &model.Account{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Credits:   max(bonus, 0),
		Plan:      model.PlanFree,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: begin login")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, email, name, credits, plan, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		acct.ID, acct.Email, acct.Name, acct.Credits, string(acct.Plan), acct.CreatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: insert account")
	}
	if bonus > 0 {
		if err := sqliteInsertTx(ctx, tx, acct.ID, model.TxBonus, bonus, WelcomeBonus); err != nil {
			return nil, false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: commit login")
	}
	return acct, true, nil
}

const sqliteAccountCols = `id, email, name, credits, plan, created_at`

func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteAccountCols+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row, id)
}

func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = normalizeEmail(email)
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteAccountCols+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row, email)
}

func (s *SQLiteStore) Transactions(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	query := `SELECT id, account_id, date, type, amount, description FROM transactions
		WHERE account_id = ? ORDER BY date DESC, rowid DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transactions")
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Date, &t.Type, &t.Amount, &t.Description); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transaction")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate transactions")
}

// --- Leads ---

func (s *SQLiteStore) SaveLeads(ctx context.Context, accountID string, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save leads")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (id, account_id, run_id, query, company, company_key, industry, location,
			employees, status, score, confidence, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert lead")
	}
	defer stmt.Close()

	for _, l := range leads {
		row, err := leadRow(accountID, l)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert lead %s", l.Company)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save leads")
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, int, error) {
	where, args := leadWhere(filter, func(int) string { return "?" }, "LIKE")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: count leads")
	}

	limit, offset := pageBounds(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, score, data FROM leads`+where+` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		l, err := scanLead(rows, "")
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	return out, total, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT status, score, data FROM leads WHERE id = ?`, id)
	return scanLead(row, id)
}

func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) (model.LeadStatus, error) {
	if !status.Valid() {
		return "", eris.Errorf("sqlite: invalid lead status %q", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin update lead status")
	}
	defer tx.Rollback() //nolint:errcheck

	var prev model.LeadStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM leads WHERE id = ?`, id).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: read lead status")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE leads SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return "", eris.Wrapf(err, "sqlite: update lead status %s", id)
	}
	return prev, eris.Wrap(tx.Commit(), "sqlite: commit lead status")
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.RunStatusRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, account_id, query, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.AccountID, run.Query, string(run.Status), run.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) UpdateRunProgress(ctx context.Context, runID string, batches, leads int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET batches = ?, leads_found = ? WHERE id = ?`,
		batches, leads, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run progress %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, batches = ?, leads_found = ?, credits_spent = ?, cost_usd = ?,
			error = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), run.Batches, run.LeadsFound, run.CreditsSpent, run.CostUSD,
		run.Error, *run.FinishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

const sqliteRunCols = `id, account_id, query, status, batches, leads_found, credits_spent, cost_usd, error, created_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRunCols+` FROM runs WHERE id = ?`, runID)
	return scanRun(row, runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunCols + ` FROM runs WHERE 1=1`
	var args []any

	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows, "")
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// --- Saved searches ---

func (s *SQLiteStore) SaveSearch(ctx context.Context, ss model.SavedSearch) (*model.SavedSearch, error) {
	if ss.ID == "" {
		ss.ID = uuid.New().String()
	}
	if ss.CreatedAt.IsZero() {
		ss.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin save search")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO saved_searches (id, account_id, query, leads_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		ss.ID, ss.AccountID, ss.Query, ss.LeadsCount, ss.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert saved search")
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM saved_searches WHERE account_id = ? AND id NOT IN (
			SELECT id FROM saved_searches WHERE account_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?)`,
		ss.AccountID, ss.AccountID, model.MaxSavedSearches,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: trim saved searches")
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit save search")
	}
	return &ss, nil
}

func (s *SQLiteStore) ListSavedSearches(ctx context.Context, accountID string) ([]model.SavedSearch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, query, leads_count, created_at FROM saved_searches
		 WHERE account_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		accountID, model.MaxSavedSearches,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list saved searches")
	}
	defer rows.Close()

	var out []model.SavedSearch
	for rows.Next() {
		var ss model.SavedSearch
		if err := rows.Scan(&ss.ID, &ss.AccountID, &ss.Query, &ss.LeadsCount, &ss.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan saved search")
		}
		out = append(out, ss)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate saved searches")
}

// --- helpers ---

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgxNoRows)
}

func scanAccount(row scannable, key string) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Credits, &a.Plan, &a.CreatedAt)
	if isNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "account %s", key)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan account")
	}
	return &a, nil
}

func scanRun(row scannable, key string) (*model.Run, error) {
	var (
		r        model.Run
		finished sql.NullTime
	)
	err := row.Scan(&r.ID, &r.AccountID, &r.Query, &r.Status, &r.Batches, &r.LeadsFound,
		&r.CreditsSpent, &r.CostUSD, &r.Error, &r.CreatedAt, &finished)
	if isNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", key)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func scanLead(row scannable, key string) (*model.Lead, error) {
	var (
		status model.LeadStatus
		score  int
		data   []byte
	)
	err := row.Scan(&status, &score, &data)
	if isNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "lead %s", key)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan lead")
	}
	var l model.Lead
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal lead")
	}
	l.Status = status
	l.Score = score
	return &l, nil
}

// leadRow flattens a lead into the column order shared by both backends.
func leadRow(accountID string, l model.Lead) ([]any, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal lead %s", l.Company)
	}
	return []any{
		l.ID, accountID, l.RunID, l.Query, l.Company, l.Key(), l.Industry, l.Location,
		l.Employees, string(l.Status), l.Score, l.Confidence, string(data), l.CreatedAt,
	}, nil
}

var leadColumns = []string{
	"id", "account_id", "run_id", "query", "company", "company_key", "industry", "location",
	"employees", "status", "score", "confidence", "data", "created_at",
}
