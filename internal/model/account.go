package model

import "time"

// Plan is an account's subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Account is a user with a credit balance.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Credits   int       `json:"credits"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionType is the business reason for a ledger entry.
type TransactionType string

const (
	TxSearch   TransactionType = "search"
	TxPurchase TransactionType = "purchase"
	TxBonus    TransactionType = "bonus"
)

// Transaction is one append-only ledger entry. Amount is negative for usage.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Date        time.Time       `json:"date"`
	Type        TransactionType `json:"type"`
	Amount      int             `json:"amount"`
	Description string          `json:"description"`
}

// SavedSearch is a favorited query with its result size.
type SavedSearch struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	Query      string    `json:"query"`
	LeadsCount int       `json:"leads_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// MaxSavedSearches bounds the favorites list per account.
const MaxSavedSearches = 10
