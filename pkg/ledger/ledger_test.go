package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// fakeCreds is a transparent credential provider for tests. The real PBKDF2
// provider lives in pkg/auth; the ledger only needs the capability shape.
type fakeCreds struct{}

func (fakeCreds) GenerateSalt() ([]byte, error) { return []byte("0123456789abcdef"), nil }

func (fakeCreds) Hash(secret string, salt []byte) string {
	return "hash:" + secret + ":" + string(salt)
}

func (fakeCreds) Verify(secret, storedHash string, salt []byte) bool {
	return storedHash == "hash:"+secret+":"+string(salt)
}

// fakeClock lets tests control the current time, including day rollovers.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLedger(t *testing.T) (*Ledger, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local))
	l, err := New(fakeCreds{}, Config{Clock: clock})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return l, clock
}

func mustCreate(t *testing.T, l *Ledger, owner string, accountType AccountType, opening float64) *Account {
	t.Helper()
	a, err := l.CreateAccount(owner, accountType, "1234", decimal.NewFromFloat(opening))
	if err != nil {
		t.Fatalf("CreateAccount(%s) failed: %v", owner, err)
	}
	return a
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateAccount_Validation(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.CreateAccount("  ", Savings, "1234", dec("100"))
	if !errors.Is(err, ErrInvalidOwner) {
		t.Errorf("blank owner: expected ErrInvalidOwner, got %v", err)
	}

	for _, pin := range []string{"", "123", "12345", "12a4", "12 4"} {
		_, err := l.CreateAccount("Asha", Savings, pin, dec("100"))
		if !errors.Is(err, ErrInvalidPIN) {
			t.Errorf("pin %q: expected ErrInvalidPIN, got %v", pin, err)
		}
	}

	_, err = l.CreateAccount("Asha", Savings, "1234", dec("99.99"))
	if !errors.Is(err, ErrBelowMinimumOpening) {
		t.Errorf("opening 99.99: expected ErrBelowMinimumOpening, got %v", err)
	}
}

func TestCreateAccount_Success(t *testing.T) {
	l, _ := newTestLedger(t)

	a, err := l.CreateAccount("Asha", Savings, "1234", dec("100"))
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if a.Number() != 1_000_000_000 {
		t.Errorf("expected first account number 1000000000, got %d", a.Number())
	}
	if got := a.Balance().StringFixed(2); got != "100.00" {
		t.Errorf("expected balance 100.00, got %s", got)
	}

	txs := a.Transactions()
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].Kind != Deposit || txs[0].Narration != "Opening deposit" {
		t.Errorf("unexpected opening transaction: %+v", txs[0])
	}
	if !a.IsActive() {
		t.Error("new account should be active")
	}
}

func TestCreateAccount_NumbersNeverReused(t *testing.T) {
	l, _ := newTestLedger(t)

	a := mustCreate(t, l, "Asha", Savings, 100)

	// Failed attempts must not burn numbers.
	if _, err := l.CreateAccount("", Savings, "1234", dec("100")); err == nil {
		t.Fatal("expected validation failure")
	}
	if _, err := l.CreateAccount("Ben", Savings, "9999", dec("50")); err == nil {
		t.Fatal("expected validation failure")
	}

	b := mustCreate(t, l, "Ben", Current, 100)
	if b.Number() != a.Number()+1 {
		t.Errorf("expected consecutive numbers, got %d then %d", a.Number(), b.Number())
	}
}

func TestDeposit(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Savings, 100)

	if _, err := l.Deposit(a.Number(), dec("0"), ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Deposit(a.Number(), dec("-5"), ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Deposit(999, dec("10"), ""); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("unknown account: expected ErrAccountNotFound, got %v", err)
	}

	tx, err := l.Deposit(a.Number(), dec("25.50"), "salary")
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if tx.Narration != "salary" {
		t.Errorf("expected narration 'salary', got %q", tx.Narration)
	}
	if got := a.Balance().StringFixed(2); got != "125.50" {
		t.Errorf("expected balance 125.50, got %s", got)
	}
}

func TestDeposit_FrozenAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Savings, 100)

	if err := l.SetAccountActive(a.Number(), false); err != nil {
		t.Fatalf("SetAccountActive failed: %v", err)
	}
	if _, err := l.Deposit(a.Number(), dec("10"), ""); !errors.Is(err, ErrAccountFrozen) {
		t.Errorf("expected ErrAccountFrozen, got %v", err)
	}
	if _, err := l.Withdraw(a.Number(), dec("10"), ""); !errors.Is(err, ErrAccountFrozen) {
		t.Errorf("expected ErrAccountFrozen, got %v", err)
	}
}

func TestWithdraw_MinimumBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	savings := mustCreate(t, l, "Asha", Savings, 200)
	current := mustCreate(t, l, "Ben", Current, 200)

	// Savings floor is 100: withdrawing 150 would leave 50.
	_, err := l.Withdraw(savings.Number(), dec("150"), "")
	if !errors.Is(err, ErrBelowMinimumBalance) {
		t.Errorf("expected ErrBelowMinimumBalance, got %v", err)
	}
	if got := savings.Balance().StringFixed(2); got != "200.00" {
		t.Errorf("failed withdrawal must not change balance, got %s", got)
	}

	// Current floor is 0: the same withdrawal succeeds.
	if _, err := l.Withdraw(current.Number(), dec("150"), ""); err != nil {
		t.Fatalf("Withdraw on current account failed: %v", err)
	}
	if got := current.Balance().StringFixed(2); got != "50.00" {
		t.Errorf("expected balance 50.00, got %s", got)
	}
}

func TestWithdraw_DailyLimit(t *testing.T) {
	l, clock := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Current, 100_000)

	// Single withdrawal over the 50k limit.
	_, err := l.Withdraw(a.Number(), dec("60000"), "")
	if !errors.Is(err, ErrDailyLimitExceeded) {
		t.Errorf("expected ErrDailyLimitExceeded, got %v", err)
	}
	if got := a.Balance().StringFixed(2); got != "100000.00" {
		t.Errorf("failed withdrawal must not change balance, got %s", got)
	}

	// Cumulative withdrawals hit the limit.
	if _, err := l.Withdraw(a.Number(), dec("30000"), ""); err != nil {
		t.Fatalf("first withdrawal failed: %v", err)
	}
	if _, err := l.Withdraw(a.Number(), dec("20000"), ""); err != nil {
		t.Fatalf("second withdrawal failed: %v", err)
	}
	if _, err := l.Withdraw(a.Number(), dec("0.01"), ""); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Errorf("expected ErrDailyLimitExceeded after 50000 withdrawn, got %v", err)
	}

	// The limit resets at midnight.
	clock.Advance(24 * time.Hour)
	if _, err := l.Withdraw(a.Number(), dec("1000"), ""); err != nil {
		t.Errorf("withdrawal after day rollover failed: %v", err)
	}
}

func TestTransfer(t *testing.T) {
	l, _ := newTestLedger(t)
	x := mustCreate(t, l, "Asha", Current, 100)
	y := mustCreate(t, l, "Ben", Current, 100)

	// Drain Y so the scenario starts at X=100, Y=0.
	if _, err := l.Withdraw(y.Number(), dec("100"), "setup"); err != nil {
		t.Fatalf("setup withdrawal failed: %v", err)
	}

	if err := l.Transfer(x.Number(), y.Number(), dec("40"), ""); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if got := x.Balance().StringFixed(2); got != "60.00" {
		t.Errorf("expected X balance 60.00, got %s", got)
	}
	if got := y.Balance().StringFixed(2); got != "40.00" {
		t.Errorf("expected Y balance 40.00, got %s", got)
	}

	xTxs, yTxs := x.Transactions(), y.Transactions()
	if xTxs[len(xTxs)-1].Kind != Withdrawal {
		t.Error("source should record a withdrawal")
	}
	if yTxs[len(yTxs)-1].Kind != Deposit {
		t.Error("destination should record a deposit")
	}
	if got := x.Balance().Add(y.Balance()).StringFixed(2); got != "100.00" {
		t.Errorf("transfer changed the combined balance: %s", got)
	}
}

func TestTransfer_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	x := mustCreate(t, l, "Asha", Current, 200)
	y := mustCreate(t, l, "Ben", Current, 200)

	if err := l.Transfer(x.Number(), y.Number(), dec("0"), ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if err := l.Transfer(x.Number(), x.Number(), dec("10"), ""); !errors.Is(err, ErrSameAccount) {
		t.Errorf("expected ErrSameAccount, got %v", err)
	}
	if err := l.Transfer(x.Number(), 42, dec("10"), ""); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}

	if err := l.SetAccountActive(y.Number(), false); err != nil {
		t.Fatalf("SetAccountActive failed: %v", err)
	}
	if err := l.Transfer(x.Number(), y.Number(), dec("10"), ""); !errors.Is(err, ErrAccountFrozen) {
		t.Errorf("expected ErrAccountFrozen, got %v", err)
	}
}

func TestTransfer_PolicyFailureLeavesBothUnchanged(t *testing.T) {
	l, _ := newTestLedger(t)
	x := mustCreate(t, l, "Asha", Savings, 150)
	y := mustCreate(t, l, "Ben", Current, 100)

	// Savings floor 100: moving 100 would leave 50.
	err := l.Transfer(x.Number(), y.Number(), dec("100"), "")
	if !errors.Is(err, ErrBelowMinimumBalance) {
		t.Fatalf("expected ErrBelowMinimumBalance, got %v", err)
	}
	if got := x.Balance().StringFixed(2); got != "150.00" {
		t.Errorf("source balance changed on failed transfer: %s", got)
	}
	if got := y.Balance().StringFixed(2); got != "100.00" {
		t.Errorf("destination balance changed on failed transfer: %s", got)
	}
}

func TestTransfer_ConcurrentOppositeDirections(t *testing.T) {
	l, _ := newTestLedger(t)
	x := mustCreate(t, l, "Asha", Current, 10_000)
	y := mustCreate(t, l, "Ben", Current, 10_000)

	const workers = 8
	const transfersPerWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < transfersPerWorker; j++ {
				_ = l.Transfer(x.Number(), y.Number(), dec("1"), "")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < transfersPerWorker; j++ {
				_ = l.Transfer(y.Number(), x.Number(), dec("1"), "")
			}
		}()
	}
	wg.Wait()

	if got := x.Balance().Add(y.Balance()).StringFixed(2); got != "20000.00" {
		t.Errorf("combined balance changed under concurrent transfers: %s", got)
	}
}

func TestConservation(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Current, 500)
	b := mustCreate(t, l, "Ben", Current, 500)

	deposited := dec("1000") // two openings of 500
	withdrawn := decimal.Zero

	if _, err := l.Deposit(a.Number(), dec("123.45"), ""); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	deposited = deposited.Add(dec("123.45"))

	if _, err := l.Withdraw(b.Number(), dec("99.99"), ""); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	withdrawn = withdrawn.Add(dec("99.99"))

	// Transfers net to zero.
	if err := l.Transfer(a.Number(), b.Number(), dec("250"), ""); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	expected := deposited.Sub(withdrawn).StringFixed(2)
	if got := l.TotalBalances().StringFixed(2); got != expected {
		t.Errorf("expected total balances %s, got %s", expected, got)
	}
}

func TestReverseDeposit(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Current, 100)

	dep, err := l.Deposit(a.Number(), dec("50"), "")
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	rev, err := l.ReverseTransaction(a.Number(), dep.ID)
	if err != nil {
		t.Fatalf("ReverseTransaction failed: %v", err)
	}
	if rev.Kind != Withdrawal {
		t.Errorf("reversing a deposit should append a withdrawal, got %s", rev.Kind)
	}
	if got := a.Balance().StringFixed(2); got != "100.00" {
		t.Errorf("expected balance restored to 100.00, got %s", got)
	}
}

func TestReverseDeposit_InsufficientFunds(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Current, 100)

	dep, err := l.Deposit(a.Number(), dec("50"), "")
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	// Spend down to 30: the deposit of 50 can no longer be clawed back.
	if _, err := l.Withdraw(a.Number(), dec("120"), ""); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	_, err = l.ReverseTransaction(a.Number(), dep.ID)
	if !errors.Is(err, ErrInsufficientFundsForReversal) {
		t.Errorf("expected ErrInsufficientFundsForReversal, got %v", err)
	}
	if got := a.Balance().StringFixed(2); got != "30.00" {
		t.Errorf("failed reversal must not change balance, got %s", got)
	}
}

func TestReverseWithdrawal(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Current, 100)

	wd, err := l.Withdraw(a.Number(), dec("80"), "")
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	rev, err := l.ReverseTransaction(a.Number(), wd.ID)
	if err != nil {
		t.Fatalf("ReverseTransaction failed: %v", err)
	}
	if rev.Kind != Deposit {
		t.Errorf("reversing a withdrawal should append a deposit, got %s", rev.Kind)
	}
	if got := a.Balance().StringFixed(2); got != "100.00" {
		t.Errorf("expected balance restored to 100.00, got %s", got)
	}
}

func TestReverse_SameIDOnlyOnce(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Current, 100)

	wd, err := l.Withdraw(a.Number(), dec("20"), "")
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if _, err := l.ReverseTransaction(a.Number(), wd.ID); err != nil {
		t.Fatalf("first reversal failed: %v", err)
	}
	if _, err := l.ReverseTransaction(a.Number(), wd.ID); !errors.Is(err, ErrNotReversible) {
		t.Errorf("second reversal of same id: expected ErrNotReversible, got %v", err)
	}
}

func TestReverse_TransactionNotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Current, 100)

	_, err := l.ReverseTransaction(a.Number(), "0f2c5a9e-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestQueries(t *testing.T) {
	l, _ := newTestLedger(t)
	mustCreate(t, l, "Asha Patel", Savings, 100)
	mustCreate(t, l, "Ben Asher", Current, 100)
	c := mustCreate(t, l, "Cleo", Current, 100)

	if got := l.TotalAccounts(); got != 3 {
		t.Errorf("expected 3 accounts, got %d", got)
	}

	matches := l.SearchByOwner("ash")
	if len(matches) != 2 {
		t.Errorf("expected 2 matches for 'ash', got %d", len(matches))
	}

	if err := l.SetAccountActive(c.Number(), false); err != nil {
		t.Fatalf("SetAccountActive failed: %v", err)
	}
	if got := l.CountActiveAccounts(); got != 2 {
		t.Errorf("expected 2 active accounts, got %d", got)
	}

	if got := l.TotalBalances().StringFixed(2); got != "300.00" {
		t.Errorf("expected total balances 300.00, got %s", got)
	}

	accounts := l.ListAccounts()
	for i := 1; i < len(accounts); i++ {
		if accounts[i-1].Number() >= accounts[i].Number() {
			t.Error("ListAccounts should be sorted by number")
		}
	}
}

func TestAdminCredentials(t *testing.T) {
	l, _ := newTestLedger(t)

	if !l.VerifyAdmin("admin", "admin123") {
		t.Error("default admin credentials should verify")
	}
	if l.VerifyAdmin("admin", "wrong") {
		t.Error("wrong password should not verify")
	}
	if l.VerifyAdmin("root", "admin123") {
		t.Error("wrong user should not verify")
	}

	if err := l.SetAdminPassword("s3cret!"); err != nil {
		t.Fatalf("SetAdminPassword failed: %v", err)
	}
	if l.VerifyAdmin("admin", "admin123") {
		t.Error("old password should no longer verify")
	}
	if !l.VerifyAdmin("admin", "s3cret!") {
		t.Error("new password should verify")
	}
}

func TestPINs(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Savings, 100)

	ok, err := l.VerifyPIN(a.Number(), "1234")
	if err != nil || !ok {
		t.Errorf("expected PIN to verify, got ok=%v err=%v", ok, err)
	}
	ok, err = l.VerifyPIN(a.Number(), "4321")
	if err != nil || ok {
		t.Errorf("wrong PIN should not verify, got ok=%v err=%v", ok, err)
	}

	if err := l.ChangePIN(a.Number(), "0000", "5678"); !errors.Is(err, ErrPINMismatch) {
		t.Errorf("wrong old PIN: expected ErrPINMismatch, got %v", err)
	}
	if err := l.ChangePIN(a.Number(), "1234", "56x8"); !errors.Is(err, ErrInvalidPIN) {
		t.Errorf("malformed new PIN: expected ErrInvalidPIN, got %v", err)
	}
	if err := l.ChangePIN(a.Number(), "1234", "5678"); err != nil {
		t.Fatalf("ChangePIN failed: %v", err)
	}
	if ok, _ := l.VerifyPIN(a.Number(), "5678"); !ok {
		t.Error("new PIN should verify")
	}
}

func TestSnapshot_ConsistentUnderConcurrentTransfers(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Current, 1000)
	b := mustCreate(t, l, "Ben", Current, 1000)
	c := mustCreate(t, l, "Cleo", Current, 1000)

	pairs := [][2]int64{
		{a.Number(), b.Number()},
		{b.Number(), c.Number()},
		{c.Number(), a.Number()},
	}
	var wg sync.WaitGroup
	for _, p := range pairs {
		wg.Add(1)
		go func(from, to int64) {
			defer wg.Done()
			for j := 0; j < 300; j++ {
				_ = l.Transfer(from, to, dec("1"), "")
			}
		}(p[0], p[1])
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Every snapshot taken while transfers are in flight must conserve the
	// combined balance: a transfer appears either fully or not at all.
	for {
		snap := l.Snapshot()
		total := decimal.Zero
		for _, pa := range snap.Accounts {
			total = total.Add(pa.Balance)
		}
		if got := total.StringFixed(2); got != "3000.00" {
			t.Fatalf("snapshot total %s, want 3000.00", got)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	l, clock := newTestLedger(t)
	a := mustCreate(t, l, "Asha", Savings, 200)
	b := mustCreate(t, l, "Ben", Current, 100)

	dep, err := l.Deposit(a.Number(), dec("55.55"), "bonus")
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if err := l.Transfer(a.Number(), b.Number(), dec("50"), "rent"); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if _, err := l.ReverseTransaction(a.Number(), dep.ID); err != nil {
		t.Fatalf("ReverseTransaction failed: %v", err)
	}
	if err := l.SetAccountActive(b.Number(), false); err != nil {
		t.Fatalf("SetAccountActive failed: %v", err)
	}

	snap := l.Snapshot()

	restored, err := New(fakeCreds{}, Config{Clock: clock})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	ra, err := restored.GetAccount(a.Number())
	if err != nil {
		t.Fatalf("GetAccount after restore failed: %v", err)
	}
	if got, want := ra.Balance().StringFixed(2), a.Balance().StringFixed(2); got != want {
		t.Errorf("restored balance %s, want %s", got, want)
	}
	if got, want := len(ra.Transactions()), len(a.Transactions()); got != want {
		t.Errorf("restored %d transactions, want %d", got, want)
	}

	rb, err := restored.GetAccount(b.Number())
	if err != nil {
		t.Fatalf("GetAccount after restore failed: %v", err)
	}
	if rb.IsActive() {
		t.Error("frozen flag should survive restore")
	}

	// The reversal guard survives the round trip.
	if _, err := restored.ReverseTransaction(a.Number(), dep.ID); !errors.Is(err, ErrNotReversible) {
		t.Errorf("expected ErrNotReversible after restore, got %v", err)
	}

	if got, want := restored.TotalBalances().StringFixed(2), l.TotalBalances().StringFixed(2); got != want {
		t.Errorf("restored total balances %s, want %s", got, want)
	}

	// Account numbering continues where it left off.
	c := mustCreate(t, restored, "Cleo", Current, 100)
	if c.Number() != b.Number()+1 {
		t.Errorf("expected next number %d, got %d", b.Number()+1, c.Number())
	}

	// Admin credentials survive the round trip.
	if !restored.VerifyAdmin("admin", "admin123") {
		t.Error("admin credentials should survive restore")
	}
}
