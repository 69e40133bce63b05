// Package export renders account statements in external formats.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"bank-ledger/pkg/ledger"
)

// csvHeader is the fixed column order of an exported statement.
const csvHeader = "txId,timestamp,type,amount,balanceAfter,narration"

// WriteCSV writes one row per transaction in chronological order.
// The narration column is always quoted, with internal quotes doubled, so
// free-text narrations cannot break the row structure. Amounts carry exactly
// 2 decimal digits.
func WriteCSV(w io.Writer, transactions []ledger.Transaction) error {
	if _, err := fmt.Fprintln(w, csvHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, t := range transactions {
		narration := `"` + strings.ReplaceAll(t.Narration, `"`, `""`) + `"`
		_, err := fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s\n",
			t.ID,
			t.Timestamp.Format(time.RFC3339),
			t.Kind,
			t.Amount.StringFixed(2),
			t.BalanceAfter.StringFixed(2),
			narration,
		)
		if err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	return nil
}
