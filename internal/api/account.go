package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
	"github.com/mintahmichael98-prog/leadgenius-ai/internal/store"
)

type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResponse struct {
	Account *model.Account `json:"account"`
	Created bool           `json:"created"`
}

// login signs an email in, creating the account with the signup bonus on
// first use.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		badRequest(w, r, "a valid email is required")
		return
	}

	acct, created, err := s.d.Store.Login(r.Context(), email, req.Name, s.d.Credits.SignupBonus)
	if err != nil {
		fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set(AccountHeader, acct.ID)
	writeJSON(w, status, loginResponse{Account: acct, Created: created})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, accountFrom(r.Context()))
}

type purchaseRequest struct {
	Plan model.Plan `json:"plan"`
}

type purchaseResponse struct {
	Account *model.Account `json:"account"`
	Added   int            `json:"added"`
}

// purchase grants a plan's credits. No payment is taken.
func (s *Server) purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	plan := model.Plan(strings.ToLower(string(req.Plan)))
	var amount int
	switch plan {
	case model.PlanPro:
		amount = s.d.Credits.ProCredits
	case model.PlanEnterprise:
		amount = s.d.Credits.EnterpriseCredits
	default:
		badRequest(w, r, "plan must be pro or enterprise")
		return
	}
	if amount <= 0 {
		unavailable(w, r, "plan "+string(plan))
		return
	}

	acct := accountFrom(r.Context())
	if _, err := s.d.Store.AddCredits(r.Context(), store.Credit{
		AccountID:   acct.ID,
		Amount:      amount,
		Type:        model.TxPurchase,
		Description: store.PurchaseDescription(plan),
		Plan:        plan,
	}); err != nil {
		fail(w, r, err)
		return
	}
	updated, err := s.d.Store.GetAccount(r.Context(), acct.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchaseResponse{Account: updated, Added: amount})
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	txs, err := s.d.Store.Transactions(r.Context(), accountFrom(r.Context()).ID, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
