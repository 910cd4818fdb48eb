package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/db"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

var pgxNoRows = pgx.ErrNoRows

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgDeduct      = `UPDATE accounts SET credits = credits - $1 WHERE id = $2 AND credits >= $1 RETURNING credits`
	pgAddCredits  = `UPDATE accounts SET credits = credits + $1, plan = COALESCE(NULLIF($2, ''), plan) WHERE id = $3 RETURNING credits`
	pgInsertTx    = `INSERT INTO transactions (id, account_id, date, type, amount, description) VALUES ($1, $2, $3, $4, $5, $6)`
	pgBalance     = `SELECT credits FROM accounts WHERE id = $1`
	pgGetLead     = `SELECT status, score, data FROM leads WHERE id = $1`
	pgLeadStatus  = `UPDATE leads l SET status = $1 FROM (SELECT id, status FROM leads WHERE id = $2 FOR UPDATE) old WHERE l.id = old.id RETURNING old.status`
	pgRunProgress = `UPDATE runs SET batches = $1, leads_found = $2 WHERE id = $3`
)

// preparedStatements lists queries to prepare on each new connection. The
// ledger statements run on every mining batch.
var preparedStatements = map[string]string{
	"deduct":       pgDeduct,
	"add_credits":  pgAddCredits,
	"insert_tx":    pgInsertTx,
	"balance":      pgBalance,
	"get_lead":     pgGetLead,
	"lead_status":  pgLeadStatus,
	"run_progress": pgRunProgress,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller owns its lifecycle.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	credits    INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
	plan       TEXT NOT NULL DEFAULT 'free',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	seq         BIGSERIAL,
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL REFERENCES accounts(id),
	date        TIMESTAMPTZ NOT NULL,
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
	cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS leads (
	seq         BIGSERIAL,
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
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS saved_searches (
	seq         BIGSERIAL,
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL,
	query       TEXT NOT NULL,
	leads_count INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, date);
CREATE INDEX IF NOT EXISTS idx_runs_account ON runs(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_account ON leads(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_run ON leads(run_id);
CREATE INDEX IF NOT EXISTS idx_leads_company_key ON leads(account_id, company_key);
CREATE INDEX IF NOT EXISTS idx_saved_searches_account ON saved_searches(account_id, created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Ledger ---

func (s *PostgresStore) Balance(ctx context.Context, accountID string) (int, error) {
	var credits int
	err := s.pool.QueryRow(ctx, pgBalance, accountID).Scan(&credits)
	if isNoRows(err) {
		return 0, eris.Wrapf(ErrNotFound, "account %s", accountID)
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgres: balance")
	}
	return credits, nil
}

func (s *PostgresStore) Deduct(ctx context.Context, accountID string, amount int, reason string) (int, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin deduct")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var balance int
	err = tx.QueryRow(ctx, pgDeduct, amount, accountID).Scan(&balance)
	if isNoRows(err) {
		var exists int
		err := tx.QueryRow(ctx, `SELECT 1 FROM accounts WHERE id = $1`, accountID).Scan(&exists)
		if isNoRows(err) {
			return 0, eris.Wrapf(ErrNotFound, "account %s", accountID)
		}
		if err != nil {
			return 0, eris.Wrap(err, "postgres: check account")
		}
		return 0, eris.Wrapf(ErrInsufficientCredits, "account %s: need %d", accountID, amount)
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgres: deduct credits")
	}

	if err := pgInsertTransaction(ctx, tx, accountID, model.TxSearch, -amount, reason); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit deduct")
	}
	return balance, nil
}

func (s *PostgresStore) AddCredits(ctx context.Context, c Credit) (int, error) {
	if err := validateAmount(c.Amount); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin add credits")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var balance int
	err = tx.QueryRow(ctx, pgAddCredits, c.Amount, string(c.Plan), c.AccountID).Scan(&balance)
	if isNoRows(err) {
		return 0, eris.Wrapf(ErrNotFound, "account %s", c.AccountID)
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgres: add credits")
	}

	if err := pgInsertTransaction(ctx, tx, c.AccountID, c.Type, c.Amount, c.Description); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit add credits")
	}
	return balance, nil
}

func pgInsertTransaction(ctx context.Context, tx pgx.Tx, accountID string, typ model.TransactionType, amount int, desc string) error {
	_, err := tx.Exec(ctx, pgInsertTx,
		uuid.New().String(), accountID, time.Now().UTC(), string(typ), amount, desc,
	)
	return eris.Wrap(err, "postgres: insert transaction")
}

// --- Accounts ---

func (s *PostgresStore) Login(ctx context.Context, email, name string, bonus int) (*model.Account, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, false, eris.New("postgres: email is required")
	}

	acct, err := s.GetAccountByEmail(ctx, email)
	if err == nil {
		return acct, false, nil
	}
	if !eris.Is(err, ErrNotFound) {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: begin login")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO accounts (id, email, name, credits, plan, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		acct.ID, acct.Email, acct.Name, acct.Credits, string(acct.Plan), acct.CreatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: insert account")
	}
	if bonus > 0 {
		if err := pgInsertTransaction(ctx, tx, acct.ID, model.TxBonus, bonus, WelcomeBonus); err != nil {
			return nil, false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, eris.Wrap(err, "postgres: commit login")
	}
	return acct, true, nil
}

const pgAccountCols = `id, email, name, credits, plan, created_at`

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgAccountCols+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row, id)
}

func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = normalizeEmail(email)
	row := s.pool.QueryRow(ctx, `SELECT `+pgAccountCols+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row, email)
}

func (s *PostgresStore) Transactions(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	query := `SELECT id, account_id, date, type, amount, description FROM transactions
		WHERE account_id = $1 ORDER BY date DESC, seq DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transactions")
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Date, &t.Type, &t.Amount, &t.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transaction")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate transactions")
}

// --- Leads ---

// SaveLeads bulk-inserts leads with COPY.
func (s *PostgresStore) SaveLeads(ctx context.Context, accountID string, leads []model.Lead) error {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		row, err := leadRow(accountID, l)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	_, err := db.CopyFrom(ctx, s.pool, "leads", leadColumns, rows)
	return eris.Wrap(err, "postgres: save leads")
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, int, error) {
	where, args := leadWhere(filter, func(n int) string { return fmt.Sprintf("$%d", n) }, "ILIKE")

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "postgres: count leads")
	}

	limit, offset := pageBounds(filter)
	query := fmt.Sprintf(`SELECT status, score, data FROM leads%s ORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list leads")
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
	return out, total, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	return scanLead(s.pool.QueryRow(ctx, pgGetLead, id), id)
}

func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) (model.LeadStatus, error) {
	if !status.Valid() {
		return "", eris.Errorf("postgres: invalid lead status %q", status)
	}
	var prev model.LeadStatus
	err := s.pool.QueryRow(ctx, pgLeadStatus, string(status), id).Scan(&prev)
	if isNoRows(err) {
		return "", eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: update lead status %s", id)
	}
	return prev, nil
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.RunStatusRunning
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, account_id, query, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.AccountID, run.Query, string(run.Status), run.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) UpdateRunProgress(ctx context.Context, runID string, batches, leads int) error {
	tag, err := s.pool.Exec(ctx, pgRunProgress, batches, leads, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run progress %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.Run) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, batches = $2, leads_found = $3, credits_spent = $4, cost_usd = $5,
			error = $6, finished_at = $7 WHERE id = $8`,
		string(run.Status), run.Batches, run.LeadsFound, run.CreditsSpent, run.CostUSD,
		run.Error, *run.FinishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	return nil
}

const pgRunCols = `id, account_id, query, status, batches, leads_found, credits_spent, cost_usd, error, created_at, finished_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgRunCols+` FROM runs WHERE id = $1`, runID)
	return scanRun(row, runID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	query := `SELECT ` + pgRunCols + ` FROM runs WHERE 1=1`
	var args []any
	argN := 1

	if filter.AccountID != "" {
		query += fmt.Sprintf(` AND account_id = $%d`, argN)
		args = append(args, filter.AccountID)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argN)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
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
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

// --- Saved searches ---

func (s *PostgresStore) SaveSearch(ctx context.Context, ss model.SavedSearch) (*model.SavedSearch, error) {
	if ss.ID == "" {
		ss.ID = uuid.New().String()
	}
	if ss.CreatedAt.IsZero() {
		ss.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin save search")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO saved_searches (id, account_id, query, leads_count, created_at) VALUES ($1, $2, $3, $4, $5)`,
		ss.ID, ss.AccountID, ss.Query, ss.LeadsCount, ss.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert saved search")
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM saved_searches WHERE account_id = $1 AND id NOT IN (
			SELECT id FROM saved_searches WHERE account_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2)`,
		ss.AccountID, model.MaxSavedSearches,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: trim saved searches")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit save search")
	}
	return &ss, nil
}

func (s *PostgresStore) ListSavedSearches(ctx context.Context, accountID string) ([]model.SavedSearch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, query, leads_count, created_at FROM saved_searches
		 WHERE account_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2`,
		accountID, model.MaxSavedSearches,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list saved searches")
	}
	defer rows.Close()

	var out []model.SavedSearch
	for rows.Next() {
		var ss model.SavedSearch
		if err := rows.Scan(&ss.ID, &ss.AccountID, &ss.Query, &ss.LeadsCount, &ss.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan saved search")
		}
		out = append(out, ss)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate saved searches")
}
