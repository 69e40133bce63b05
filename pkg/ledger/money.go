package ledger

import "github.com/shopspring/decimal"

// round2 normalizes a monetary value to 2 decimal places, rounding half up.
// Every stored amount and balance passes through here before storage and
// before comparison, so repeated reads are stable and re-rounding is a no-op.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
