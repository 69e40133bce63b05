// Package ledger implements a concurrency-safe ledger engine: accounts
// holding balances and append-only transaction histories, mutated through
// deposit, withdrawal, transfer and reversal operations.
//
// Each account carries its own exclusive lock; transfer is the only operation
// holding two locks at once and always acquires them in ascending account
// number order, which is the sole deadlock-prevention mechanism.
package ledger

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bank-ledger/pkg/logging"
)

// baseAccountNumber is the first account number ever allocated. Numbers are
// assigned monotonically from here and never reused.
const baseAccountNumber int64 = 1_000_000_000

// CredentialProvider hashes and verifies secrets (PINs, admin passwords).
// The ledger stores only the opaque hash string and a base64 salt; it never
// inspects either beyond storing and comparing.
type CredentialProvider interface {
	GenerateSalt() ([]byte, error)
	Hash(secret string, salt []byte) string
	Verify(secret, storedHash string, salt []byte) bool
}

// Config holds the policy knobs of a Ledger.
type Config struct {
	// MinOpeningDeposit is the smallest accepted opening deposit.
	MinOpeningDeposit decimal.Decimal

	// MinBalanceSavings is the balance floor for savings accounts.
	MinBalanceSavings decimal.Decimal

	// MinBalanceCurrent is the balance floor for current accounts.
	MinBalanceCurrent decimal.Decimal

	// DailyWithdrawalLimit caps cumulative withdrawals per calendar day.
	DailyWithdrawalLimit decimal.Decimal

	// AdminUser is the admin login name.
	AdminUser string

	// AdminPassword is the bootstrap admin password, hashed at construction.
	AdminPassword string

	// Clock supplies the current time; defaults to the system clock.
	Clock Clock

	// Logger receives operational logs; defaults to a no-op logger.
	Logger *logging.Logger
}

// DefaultConfig returns the stock policy configuration.
func DefaultConfig() Config {
	return Config{
		MinOpeningDeposit:    decimal.NewFromInt(100),
		MinBalanceSavings:    decimal.NewFromInt(100),
		MinBalanceCurrent:    decimal.Zero,
		DailyWithdrawalLimit: decimal.NewFromInt(50_000),
		AdminUser:            "admin",
		AdminPassword:        "admin123",
	}
}

// Ledger owns the account collection and enforces all cross-account
// invariants. Structural mutation (registering accounts, the number counter,
// admin credentials) is serialized by mu; balances and logs are guarded by
// each account's own lock.
type Ledger struct {
	mu          sync.RWMutex
	accounts    map[int64]*Account
	nextNumber  int64
	adminHash   string
	adminSalt   string

	config Config
	creds  CredentialProvider
	clock  Clock
	logger *logging.Logger
	txIDs  *txIndex
}

// New creates an empty ledger with the given credential provider and config.
// Zero-valued policy fields fall back to DefaultConfig values.
func New(creds CredentialProvider, config Config) (*Ledger, error) {
	if creds == nil {
		return nil, fmt.Errorf("ledger: credential provider required")
	}

	defaults := DefaultConfig()
	if config.MinOpeningDeposit.IsZero() {
		config.MinOpeningDeposit = defaults.MinOpeningDeposit
	}
	if config.MinBalanceSavings.IsZero() {
		config.MinBalanceSavings = defaults.MinBalanceSavings
	}
	if config.DailyWithdrawalLimit.IsZero() {
		config.DailyWithdrawalLimit = defaults.DailyWithdrawalLimit
	}
	if config.AdminUser == "" {
		config.AdminUser = defaults.AdminUser
	}
	if config.AdminPassword == "" {
		config.AdminPassword = defaults.AdminPassword
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	if config.Logger == nil {
		config.Logger = logging.NewNoOpLogger()
	}

	l := &Ledger{
		accounts:   make(map[int64]*Account),
		nextNumber: baseAccountNumber,
		config:     config,
		creds:      creds,
		clock:      config.Clock,
		logger:     config.Logger.Named("ledger"),
		txIDs:      newTxIndex(0, 0),
	}

	hash, salt, err := l.hashSecret(config.AdminPassword)
	if err != nil {
		return nil, err
	}
	l.adminHash = hash
	l.adminSalt = salt

	return l, nil
}

// hashSecret generates a fresh salt and hashes the secret against it.
// The salt is returned base64-encoded for opaque storage.
func (l *Ledger) hashSecret(secret string) (hash, saltB64 string, err error) {
	salt, err := l.creds.GenerateSalt()
	if err != nil {
		return "", "", fmt.Errorf("ledger: salt generation failed: %w", err)
	}
	return l.creds.Hash(secret, salt), base64.StdEncoding.EncodeToString(salt), nil
}

func (l *Ledger) verifySecret(secret, storedHash, saltB64 string) bool {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	return l.creds.Verify(secret, storedHash, salt)
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CreateAccount validates the inputs, allocates the next account number and
// registers a new account. The number is allocated only on success, so failed
// attempts never burn numbers. An opening deposit greater than zero is applied
// as the first transaction, narrated "Opening deposit".
func (l *Ledger) CreateAccount(owner string, accountType AccountType, pin string, openingDeposit decimal.Decimal) (*Account, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	if !validPIN(pin) {
		return nil, ErrInvalidPIN
	}
	if accountType != Savings && accountType != Current {
		return nil, fmt.Errorf("ledger: unknown account type %q", accountType)
	}
	openingDeposit = round2(openingDeposit)
	if openingDeposit.LessThan(l.config.MinOpeningDeposit) {
		return nil, ErrBelowMinimumOpening
	}

	hash, salt, err := l.hashSecret(pin)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	number := l.nextNumber
	l.nextNumber++
	a := newAccount(number, owner, accountType, hash, salt, l.clock)
	if openingDeposit.IsPositive() {
		t := a.Deposit(openingDeposit, "Opening deposit")
		l.txIDs.add(t.ID)
	}
	l.accounts[number] = a
	l.mu.Unlock()

	l.logger.Info("account created",
		zap.Int64("account", number),
		zap.String("type", string(accountType)),
	)
	return a, nil
}

func (l *Ledger) lookup(number int64) (*Account, error) {
	l.mu.RLock()
	a, ok := l.accounts[number]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// Deposit adds amount to the account and appends a Deposit transaction.
func (l *Ledger) Deposit(number int64, amount decimal.Decimal, narration string) (Transaction, error) {
	amount = round2(amount)
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	a, err := l.lookup(number)
	if err != nil {
		return Transaction{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return Transaction{}, ErrAccountFrozen
	}
	t := a.depositLocked(amount, narration, l.clock.Now())
	l.txIDs.add(t.ID)
	return t, nil
}

// Withdraw subtracts amount from the account after checking the daily
// withdrawal limit and the minimum-balance floor for the account type.
// Both checks run against the pre-withdrawal state under the same lock used
// for the mutation, so nothing can interleave between check and act.
func (l *Ledger) Withdraw(number int64, amount decimal.Decimal, narration string) (Transaction, error) {
	amount = round2(amount)
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	a, err := l.lookup(number)
	if err != nil {
		return Transaction{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return Transaction{}, ErrAccountFrozen
	}
	now := l.clock.Now()
	if err := l.checkWithdrawPolicyLocked(a, amount, now); err != nil {
		return Transaction{}, err
	}
	t, err := a.withdrawLocked(amount, narration, now)
	if err != nil {
		return Transaction{}, err
	}
	l.txIDs.add(t.ID)
	return t, nil
}

// checkWithdrawPolicyLocked enforces the daily withdrawal limit and the
// minimum-balance floor against the account's current state.
// Caller must hold a.mu.
func (l *Ledger) checkWithdrawPolicyLocked(a *Account, amount decimal.Decimal, now time.Time) error {
	if a.withdrawnTodayLocked(now).Add(amount).GreaterThan(l.config.DailyWithdrawalLimit) {
		return ErrDailyLimitExceeded
	}
	if round2(a.balance.Sub(amount)).LessThan(l.minBalanceFor(a.accountType)) {
		return ErrBelowMinimumBalance
	}
	return nil
}

func (l *Ledger) minBalanceFor(accountType AccountType) decimal.Decimal {
	if accountType == Savings {
		return l.config.MinBalanceSavings
	}
	return l.config.MinBalanceCurrent
}

// Transfer moves amount from one account to another as a single atomic unit:
// other operations observe either both the debit and the credit or neither.
//
// Deadlock avoidance: the two account locks are always acquired in ascending
// account number order, never in call-argument order, so concurrent transfers
// between the same pair request locks in the same global order. Policy checks
// on the source run after both locks are held; that re-check is the
// authoritative one and nothing mutates on failure.
func (l *Ledger) Transfer(fromNumber, toNumber int64, amount decimal.Decimal, narration string) error {
	amount = round2(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if fromNumber == toNumber {
		return ErrSameAccount
	}
	from, err := l.lookup(fromNumber)
	if err != nil {
		return err
	}
	to, err := l.lookup(toNumber)
	if err != nil {
		return err
	}

	first, second := from, to
	if toNumber < fromNumber {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if !from.active || !to.active {
		return ErrAccountFrozen
	}
	now := l.clock.Now()
	if err := l.checkWithdrawPolicyLocked(from, amount, now); err != nil {
		return err
	}

	debitNarr := fmt.Sprintf("Transfer to %d", toNumber)
	creditNarr := fmt.Sprintf("Transfer from %d", fromNumber)
	if narration != "" {
		debitNarr += " | " + narration
		creditNarr += " | " + narration
	}

	debit, err := from.withdrawLocked(amount, debitNarr, now)
	if err != nil {
		return err
	}
	credit := to.depositLocked(amount, creditNarr, now)
	l.txIDs.add(debit.ID)
	l.txIDs.add(credit.ID)

	l.logger.Debug("transfer applied",
		zap.Int64("from", fromNumber),
		zap.Int64("to", toNumber),
		zap.String("amount", amount.StringFixed(2)),
	)
	return nil
}

// ReverseTransaction appends a compensating transaction for a prior deposit
// or withdrawal, validated against the account's current state rather than
// the state at the time of the original.
//
// Reversing a deposit fails with ErrInsufficientFundsForReversal when the
// current balance no longer covers the original amount. Reversing a
// withdrawal is unconditional. A transaction id can be reversed at most once;
// the compensating transaction itself is an ordinary deposit or withdrawal
// and may in turn be reversed.
func (l *Ledger) ReverseTransaction(number int64, txID string) (Transaction, error) {
	a, err := l.lookup(number)
	if err != nil {
		return Transaction{}, err
	}
	// Definitive "never seen" answer skips the log scan entirely.
	if !l.txIDs.mayContain(txID) {
		return Transaction{}, ErrTransactionNotFound
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	orig, ok := a.findTransactionLocked(txID)
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	if _, done := a.reversed[txID]; done {
		return Transaction{}, ErrNotReversible
	}

	now := l.clock.Now()
	narration := "Reversal of " + txID

	var compensating Transaction
	switch orig.Kind {
	case Deposit:
		if a.balance.Sub(orig.Amount).IsNegative() {
			return Transaction{}, ErrInsufficientFundsForReversal
		}
		compensating, err = a.withdrawLocked(orig.Amount, narration, now)
		if err != nil {
			return Transaction{}, err
		}
	case Withdrawal:
		compensating = a.depositLocked(orig.Amount, narration, now)
	default:
		return Transaction{}, ErrNotReversible
	}

	a.reversed[txID] = struct{}{}
	l.txIDs.add(compensating.ID)

	l.logger.Info("transaction reversed",
		zap.Int64("account", number),
		zap.String("tx_id", txID),
	)
	return compensating, nil
}

// GetAccount returns the account handle for the given number.
func (l *Ledger) GetAccount(number int64) (*Account, error) {
	return l.lookup(number)
}

// ListAccounts returns a snapshot of all account handles sorted by number.
func (l *Ledger) ListAccounts() []*Account {
	l.mu.RLock()
	out := make([]*Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}

// SearchByOwner returns accounts whose owner name contains the query,
// case-insensitively.
func (l *Ledger) SearchByOwner(query string) []*Account {
	q := strings.ToLower(query)
	var out []*Account
	for _, a := range l.ListAccounts() {
		if strings.Contains(strings.ToLower(a.owner), q) {
			out = append(out, a)
		}
	}
	return out
}

// TotalAccounts returns the number of registered accounts.
func (l *Ledger) TotalAccounts() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.accounts)
}

// CountActiveAccounts returns the number of accounts that are not frozen.
func (l *Ledger) CountActiveAccounts() int {
	n := 0
	for _, a := range l.ListAccounts() {
		if a.IsActive() {
			n++
		}
	}
	return n
}

// TotalBalances sums the current balance of every account, rounded.
// Each balance read takes the owning account's lock, so the sum never
// observes a torn value; transfers keep it invariant.
func (l *Ledger) TotalBalances() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range l.ListAccounts() {
		sum = sum.Add(a.Balance())
	}
	return round2(sum)
}

// SetAccountActive freezes or unfreezes an account.
func (l *Ledger) SetAccountActive(number int64, active bool) error {
	a, err := l.lookup(number)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.active = active
	a.mu.Unlock()
	l.logger.Info("account active flag changed",
		zap.Int64("account", number),
		zap.Bool("active", active),
	)
	return nil
}

// VerifyPIN checks the account's PIN via the credential provider.
func (l *Ledger) VerifyPIN(number int64, pin string) (bool, error) {
	a, err := l.lookup(number)
	if err != nil {
		return false, err
	}
	a.mu.Lock()
	hash, salt := a.credentialHash, a.credentialSalt
	a.mu.Unlock()
	return l.verifySecret(pin, hash, salt), nil
}

// ChangePIN replaces the account's PIN after verifying the old one.
// A fresh salt is generated for the new PIN.
func (l *Ledger) ChangePIN(number int64, oldPIN, newPIN string) error {
	if !validPIN(newPIN) {
		return ErrInvalidPIN
	}
	a, err := l.lookup(number)
	if err != nil {
		return err
	}
	hash, salt, err := l.hashSecret(newPIN)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !l.verifySecret(oldPIN, a.credentialHash, a.credentialSalt) {
		return ErrPINMismatch
	}
	a.credentialHash = hash
	a.credentialSalt = salt
	return nil
}

// VerifyAdmin checks the admin credentials. Hash comparison is constant-time
// inside the credential provider.
func (l *Ledger) VerifyAdmin(user, pass string) bool {
	l.mu.RLock()
	adminUser, hash, salt := l.config.AdminUser, l.adminHash, l.adminSalt
	l.mu.RUnlock()
	if user != adminUser {
		return false
	}
	return l.verifySecret(pass, hash, salt)
}

// SetAdminPassword regenerates the admin salt and hash for the new password.
func (l *Ledger) SetAdminPassword(pass string) error {
	if pass == "" {
		return fmt.Errorf("ledger: admin password required")
	}
	hash, salt, err := l.hashSecret(pass)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.adminHash = hash
	l.adminSalt = salt
	l.mu.Unlock()
	return nil
}
