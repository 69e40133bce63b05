package ledger

import "errors"

// Domain errors returned by Ledger and Account operations.
// All of them are caller-recoverable: an operation either completes fully or
// fails with exactly one of these and no partial mutation.
var (
	// ErrInvalidOwner is returned when an account owner name is empty or blank.
	ErrInvalidOwner = errors.New("ledger: owner name required")

	// ErrInvalidPIN is returned when a PIN is not exactly 4 digits.
	ErrInvalidPIN = errors.New("ledger: pin must be exactly 4 digits")

	// ErrPINMismatch is returned when a presented PIN fails verification
	// against the stored credential. Distinct from ErrInvalidPIN, which is a
	// format check.
	ErrPINMismatch = errors.New("ledger: pin verification failed")

	// ErrBelowMinimumOpening is returned when the opening deposit is below the
	// configured minimum.
	ErrBelowMinimumOpening = errors.New("ledger: opening deposit below minimum")

	// ErrInvalidAmount is returned when an amount does not round to a positive value.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")

	// ErrAccountNotFound is returned when the account number is not registered.
	ErrAccountNotFound = errors.New("ledger: account not found")

	// ErrAccountFrozen is returned when the account is inactive.
	ErrAccountFrozen = errors.New("ledger: account frozen")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrBelowMinimumBalance is returned when a withdrawal would leave the
	// balance under the floor for the account type.
	ErrBelowMinimumBalance = errors.New("ledger: withdrawal would break minimum balance")

	// ErrDailyLimitExceeded is returned when a withdrawal would push the
	// calendar-day total over the daily withdrawal limit.
	ErrDailyLimitExceeded = errors.New("ledger: daily withdrawal limit exceeded")

	// ErrSameAccount is returned when a transfer names the same account twice.
	ErrSameAccount = errors.New("ledger: cannot transfer to the same account")

	// ErrTransactionNotFound is returned when a transaction id is not in the
	// account's log.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")

	// ErrNotReversible is returned when a transaction cannot be reversed,
	// including when it has already been reversed once.
	ErrNotReversible = errors.New("ledger: transaction not reversible")

	// ErrInsufficientFundsForReversal is returned when reversing a deposit
	// would overdraw the current balance.
	ErrInsufficientFundsForReversal = errors.New("ledger: insufficient balance to reverse deposit")
)

// IsNotFound checks if the given error indicates a missing account or transaction.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrTransactionNotFound)
}

// IsPolicyViolation checks if the given error is a policy rejection rather than
// a lookup or validation failure.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrBelowMinimumBalance) ||
		errors.Is(err, ErrDailyLimitExceeded) ||
		errors.Is(err, ErrInsufficientFundsForReversal)
}

// ClassifyError returns a string classification of the error for metric labels.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidOwner):
		return "invalid_owner"
	case errors.Is(err, ErrInvalidPIN):
		return "invalid_pin"
	case errors.Is(err, ErrPINMismatch):
		return "pin_mismatch"
	case errors.Is(err, ErrBelowMinimumOpening):
		return "below_minimum_opening"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrAccountFrozen):
		return "account_frozen"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrBelowMinimumBalance):
		return "below_minimum_balance"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "daily_limit_exceeded"
	case errors.Is(err, ErrSameAccount):
		return "same_account"
	case errors.Is(err, ErrTransactionNotFound):
		return "transaction_not_found"
	case errors.Is(err, ErrNotReversible):
		return "not_reversible"
	case errors.Is(err, ErrInsufficientFundsForReversal):
		return "insufficient_funds_for_reversal"
	default:
		return "other"
	}
}
