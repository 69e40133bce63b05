package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bank-ledger/pkg/export"
	"bank-ledger/pkg/ledger"
)

// accountView is the JSON shape of an account.
type accountView struct {
	Number    int64     `json:"number"`
	Owner     string    `json:"owner"`
	Type      string    `json:"type"`
	Balance   string    `json:"balance"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func viewOf(a *ledger.Account) accountView {
	return accountView{
		Number:    a.Number(),
		Owner:     a.Owner(),
		Type:      string(a.Type()),
		Balance:   a.Balance().StringFixed(2),
		Active:    a.IsActive(),
		CreatedAt: a.CreatedAt(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner          string          `json:"owner"`
		Type           string          `json:"type"`
		PIN            string          `json:"pin"`
		OpeningDeposit decimal.Decimal `json:"opening_deposit"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	accountType, ok := ledger.ParseAccountType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown account type %q", req.Type))
		return
	}

	err := s.measured("create_account", func() error {
		a, err := s.ledger.CreateAccount(req.Owner, accountType, req.PIN, req.OpeningDeposit)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, viewOf(a))
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
	}
	s.publishTotals()
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	var accounts []*ledger.Account
	if q := r.URL.Query().Get("owner"); q != "" {
		accounts = s.ledger.SearchByOwner(q)
	} else {
		accounts = s.ledger.ListAccounts()
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, viewOf(a))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, ok := s.account(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(a))
}

type amountRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Narration string          `json:"narration"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	number, ok := accountNumber(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.measured("deposit", func() error {
		t, err := s.ledger.Deposit(number, req.Amount, req.Narration)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, t)
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
	}
	s.publishTotals()
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	number, ok := accountNumber(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.measured("withdraw", func() error {
		t, err := s.ledger.Withdraw(number, req.Amount, req.Narration)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, t)
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
	}
	s.publishTotals()
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From      int64           `json:"from"`
		To        int64           `json:"to"`
		Amount    decimal.Decimal `json:"amount"`
		Narration string          `json:"narration"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.measured("transfer", func() error {
		return s.ledger.Transfer(req.From, req.To, req.Amount, req.Narration)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":   req.From,
		"to":     req.To,
		"amount": req.Amount.Round(2).StringFixed(2),
	})
}

func (s *Server) handleChangePIN(w http.ResponseWriter, r *http.Request) {
	number, ok := accountNumber(w, r)
	if !ok {
		return
	}
	var req struct {
		OldPIN string `json:"old_pin"`
		NewPIN string `json:"new_pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := s.measured("change_pin", func() error {
		return s.ledger.ChangePIN(number, req.OldPIN, req.NewPIN)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin changed"})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	a, ok := s.account(w, r)
	if !ok {
		return
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", limitStr))
			return
		}
		writeJSON(w, http.StatusOK, a.LastN(limit))
		return
	}
	writeJSON(w, http.StatusOK, a.Transactions())
}

func (s *Server) handleStatementCSV(w http.ResponseWriter, r *http.Request) {
	a, ok := s.account(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=statement-%d.csv", a.Number()))
	if err := export.WriteCSV(w, a.Transactions()); err != nil {
		s.logger.Error("statement export failed", zap.Error(err))
	}
}

func (s *Server) handleFreeze(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, ok := accountNumber(w, r)
		if !ok {
			return
		}
		err := s.measured("set_active", func() error {
			return s.ledger.SetAccountActive(number, active)
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"active": active})
		s.publishTotals()
	}
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	number, ok := accountNumber(w, r)
	if !ok {
		return
	}
	txID := mux.Vars(r)["txID"]

	err := s.measured("reverse", func() error {
		t, err := s.ledger.ReverseTransaction(number, txID)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, t)
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
	}
	s.publishTotals()
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_accounts":  s.ledger.TotalAccounts(),
		"active_accounts": s.ledger.CountActiveAccounts(),
		"total_balances":  s.ledger.TotalBalances().StringFixed(2),
	})
}

func (s *Server) handleSetAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.ledger.SetAdminPassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.saver == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("no snapshot store configured"))
		return
	}
	start := time.Now()
	err := s.saver.Save(r.Context(), s.ledger.Snapshot)
	s.metrics.RecordSnapshotSave(err == nil, time.Since(start))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// measured times a ledger call and records its outcome classification.
func (s *Server) measured(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.RecordOperation(op, ledger.ClassifyError(err), time.Since(start))
	return err
}

// publishTotals refreshes the account population gauges.
func (s *Server) publishTotals() {
	total := s.ledger.TotalAccounts()
	active := s.ledger.CountActiveAccounts()
	balance, _ := s.ledger.TotalBalances().Float64()
	s.metrics.SetAccountTotals(total, active, balance)
}

// account resolves the {number} path variable to an account handle.
func (s *Server) account(w http.ResponseWriter, r *http.Request) (*ledger.Account, bool) {
	number, ok := accountNumber(w, r)
	if !ok {
		return nil, false
	}
	a, err := s.ledger.GetAccount(number)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return a, true
}

func accountNumber(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["number"]
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid account number %q", raw))
		return 0, false
	}
	return number, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  ledger.ClassifyError(err),
	})
}

// writeDomainError maps ledger errors to HTTP statuses: validation failures
// are 400, credential failures 403, lookups 404, state conflicts 409 and
// policy rejections 422.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ledger.ErrInvalidOwner),
		errors.Is(err, ledger.ErrInvalidPIN),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrBelowMinimumOpening),
		errors.Is(err, ledger.ErrSameAccount):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ledger.ErrPINMismatch):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, ledger.ErrAccountFrozen),
		errors.Is(err, ledger.ErrNotReversible):
		writeError(w, http.StatusConflict, err)
	case ledger.IsPolicyViolation(err):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
