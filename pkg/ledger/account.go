package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType selects the minimum-balance policy applied to withdrawals.
// It is immutable after creation.
type AccountType string

const (
	// Savings accounts carry a configurable balance floor.
	Savings AccountType = "SAVINGS"
	// Current accounts have an independently configurable floor, zero by default.
	Current AccountType = "CURRENT"
)

// ParseAccountType maps a case-insensitive type name to an AccountType.
// The second return value is false for unknown names.
func ParseAccountType(s string) (AccountType, bool) {
	switch AccountType(strings.ToUpper(strings.TrimSpace(s))) {
	case Savings:
		return Savings, true
	case Current:
		return Current, true
	default:
		return "", false
	}
}

// Account is a balance-holding entity with an append-only transaction log.
//
// All mutable state sits behind mu. Every mutation updates the balance and
// appends exactly one transaction in the same critical section, so the
// invariant "balance == BalanceAfter of the last transaction" always holds
// under the lock. Accounts are owned by a Ledger; multi-account operations
// (transfer) are orchestrated there with a fixed lock acquisition order.
type Account struct {
	mu sync.Mutex

	number      int64
	owner       string
	accountType AccountType
	createdAt   time.Time
	clock       Clock

	balance        decimal.Decimal
	credentialHash string
	credentialSalt string
	active         bool
	transactions   []Transaction

	// reversed marks transaction ids that have already been compensated,
	// so the same id cannot be reversed twice.
	reversed map[string]struct{}
}

func newAccount(number int64, owner string, accountType AccountType, credentialHash, credentialSalt string, clock Clock) *Account {
	return &Account{
		number:         number,
		owner:          owner,
		accountType:    accountType,
		createdAt:      clock.Now(),
		clock:          clock,
		balance:        decimal.Zero,
		credentialHash: credentialHash,
		credentialSalt: credentialSalt,
		active:         true,
		reversed:       make(map[string]struct{}),
	}
}

// Number returns the account number. Immutable, no lock needed.
func (a *Account) Number() int64 { return a.number }

// Owner returns the owner name. Immutable, no lock needed.
func (a *Account) Owner() string { return a.owner }

// Type returns the account type. Immutable, no lock needed.
func (a *Account) Type() AccountType { return a.accountType }

// CreatedAt returns the creation time. Immutable, no lock needed.
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// IsActive reports whether the account accepts deposits, withdrawals and
// transfers. Frozen accounts reject all three.
func (a *Account) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Transactions returns a copy of the full log in chronological order.
func (a *Account) Transactions() []Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

// LastN returns the most recent min(n, len(log)) transactions, still in
// chronological order.
func (a *Account) LastN(n int) []Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 || len(a.transactions) == 0 {
		return nil
	}
	from := len(a.transactions) - n
	if from < 0 {
		from = 0
	}
	out := make([]Transaction, len(a.transactions)-from)
	copy(out, a.transactions[from:])
	return out
}

// FindTransaction looks up a transaction by id with a linear scan.
// The second return value is false when the id is not in the log.
func (a *Account) FindTransaction(id string) (Transaction, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.findTransactionLocked(id)
}

func (a *Account) findTransactionLocked(id string) (Transaction, bool) {
	for _, t := range a.transactions {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

// WithdrawnToday sums the amounts of all withdrawals whose timestamp falls
// within the current calendar day (local time, boundary at midnight).
//
// The sum is recomputed from the full log on every call rather than kept as a
// counter, so it self-corrects across day rollovers.
func (a *Account) WithdrawnToday() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.withdrawnTodayLocked(a.clock.Now())
}

func (a *Account) withdrawnTodayLocked(now time.Time) decimal.Decimal {
	year, month, day := now.Date()
	startOfDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	sum := decimal.Zero
	for _, t := range a.transactions {
		if t.Kind == Withdrawal && !t.Timestamp.Before(startOfDay) {
			sum = sum.Add(t.Amount)
		}
	}
	return round2(sum)
}

// Deposit adds a positive, already-validated amount to the balance and
// appends a Deposit record. Amount validation (> 0) is the Ledger's job;
// this primitive only rounds and applies.
func (a *Account) Deposit(amount decimal.Decimal, narration string) Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.depositLocked(round2(amount), narration, a.clock.Now())
}

func (a *Account) depositLocked(amount decimal.Decimal, narration string, at time.Time) Transaction {
	if narration == "" {
		narration = "Deposit"
	}
	a.balance = round2(a.balance.Add(amount))
	t := newTransaction(Deposit, amount, a.balance, narration, at)
	a.transactions = append(a.transactions, t)
	return t
}

// Withdraw subtracts amount from the balance and appends a Withdrawal record.
// It fails with ErrInsufficientFunds when amount exceeds the balance; policy
// checks (minimum balance, daily limit) belong to the Ledger and must run
// before this call under the same lock.
func (a *Account) Withdraw(amount decimal.Decimal, narration string) (Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.withdrawLocked(round2(amount), narration, a.clock.Now())
}

func (a *Account) withdrawLocked(amount decimal.Decimal, narration string, at time.Time) (Transaction, error) {
	if amount.GreaterThan(a.balance) {
		return Transaction{}, ErrInsufficientFunds
	}
	if narration == "" {
		narration = "Withdrawal"
	}
	a.balance = round2(a.balance.Sub(amount))
	t := newTransaction(Withdrawal, amount, a.balance, narration, at)
	a.transactions = append(a.transactions, t)
	return t, nil
}
