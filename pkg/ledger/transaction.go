package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind identifies the direction of a balance-affecting event.
type TransactionKind string

const (
	// Deposit increases the balance.
	Deposit TransactionKind = "DEPOSIT"
	// Withdrawal decreases the balance.
	Withdrawal TransactionKind = "WITHDRAWAL"
)

// Transaction is an immutable record of one balance-affecting event.
// Records are created exactly once, appended to the owning account's log and
// never mutated; the log's insertion order is its chronological order.
type Transaction struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Kind         TransactionKind `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Narration    string          `json:"narration"`
}

// newTransaction builds a record with a fresh collision-resistant id.
// Amount and balanceAfter are expected to be rounded already; they are
// rounded again here so a record can never carry more than 2 decimals.
func newTransaction(kind TransactionKind, amount, balanceAfter decimal.Decimal, narration string, at time.Time) Transaction {
	return Transaction{
		ID:           uuid.New().String(),
		Timestamp:    at,
		Kind:         kind,
		Amount:       round2(amount),
		BalanceAfter: round2(balanceAfter),
		Narration:    narration,
	}
}
