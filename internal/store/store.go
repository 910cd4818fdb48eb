// Package store persists accounts, the credit ledger, leads, mining runs and
// saved searches. SQLite is the default backend; Postgres is used for
// multi-instance deployments.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

var (
	// ErrNotFound is returned when an account, lead or run does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrInsufficientCredits is returned by Deduct when the balance cannot
	// cover the amount. The balance is left unchanged.
	ErrInsufficientCredits = eris.New("store: insufficient credits")
)

// Credit describes a positive ledger entry.
type Credit struct {
	AccountID   string
	Amount      int
	Type        model.TransactionType
	Description string
	// Plan, when set, upgrades the account's plan in the same transaction.
	Plan model.Plan
}

// Ledger is the credit balance authority used by the mining loop.
type Ledger interface {
	// Balance returns the account's current credits.
	Balance(ctx context.Context, accountID string) (int, error)
	// Deduct atomically subtracts amount and records a search transaction.
	// It returns the new balance, or ErrInsufficientCredits with no side
	// effects when the balance is short.
	Deduct(ctx context.Context, accountID string, amount int, reason string) (int, error)
	// AddCredits records a purchase or bonus and returns the new balance.
	AddCredits(ctx context.Context, c Credit) (int, error)
}

// Store is the full persistence interface.
type Store interface {
	Ledger

	// Accounts
	Login(ctx context.Context, email, name string, bonus int) (*model.Account, bool, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	Transactions(ctx context.Context, accountID string, limit int) ([]model.Transaction, error)

	// Leads
	SaveLeads(ctx context.Context, accountID string, leads []model.Lead) error
	ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, int, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) (model.LeadStatus, error)

	// Runs
	CreateRun(ctx context.Context, run *model.Run) error
	UpdateRunProgress(ctx context.Context, runID string, batches, leads int) error
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error)

	// Saved searches
	SaveSearch(ctx context.Context, s model.SavedSearch) (*model.SavedSearch, error)
	ListSavedSearches(ctx context.Context, accountID string) ([]model.SavedSearch, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// WelcomeBonus is the description of the signup credit grant.
const WelcomeBonus = "Welcome Bonus"

// PurchaseDescription renders the ledger description for a plan purchase.
func PurchaseDescription(plan model.Plan) string {
	return "Purchased " + strings.ToUpper(string(plan)) + " Plan"
}

// SearchDescription renders the ledger description for a mining charge.
func SearchDescription(query string) string {
	return "Search: " + query
}

// NameFromEmail derives a display name from the local part of an email.
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateAmount(amount int) error {
	if amount <= 0 {
		return eris.Errorf("store: amount must be positive, got %d", amount)
	}
	return nil
}

// leadWhere builds the WHERE clause for a lead listing. ph renders the nth
// bind placeholder and like is the case-insensitive match operator.
func leadWhere(f model.LeadFilter, ph func(int) string, like string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", ph(len(args))))
	}
	if f.AccountID != "" {
		add("account_id = ?", f.AccountID)
	}
	if f.RunID != "" {
		add("run_id = ?", f.RunID)
	}
	if v := strings.TrimSpace(f.Query); v != "" {
		add("query "+like+" ?", "%"+v+"%")
	}
	if v := strings.TrimSpace(f.Location); v != "" {
		add("location "+like+" ?", "%"+v+"%")
	}
	if v := strings.TrimSpace(f.Industry); v != "" {
		add("industry "+like+" ?", "%"+v+"%")
	}
	if v := strings.TrimSpace(f.Employees); v != "" {
		add("employees "+like+" ?", "%"+v+"%")
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.MinScore > 0 {
		add("score >= ?", f.MinScore)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func pageBounds(f model.LeadFilter) (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = model.DefaultPageSize
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
