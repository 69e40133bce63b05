package export

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bank-ledger/pkg/ledger"
)

func TestWriteCSV_Empty(t *testing.T) {
	var b strings.Builder
	if err := WriteCSV(&b, nil); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if got := b.String(); got != csvHeader+"\n" {
		t.Errorf("expected header only, got %q", got)
	}
}

func TestWriteCSV_Rows(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	txs := []ledger.Transaction{
		{
			ID:           "tx-1",
			Timestamp:    at,
			Kind:         ledger.Deposit,
			Amount:       decimal.RequireFromString("150"),
			BalanceAfter: decimal.RequireFromString("150"),
			Narration:    "Opening deposit",
		},
		{
			ID:           "tx-2",
			Timestamp:    at.Add(time.Hour),
			Kind:         ledger.Withdrawal,
			Amount:       decimal.RequireFromString("25.5"),
			BalanceAfter: decimal.RequireFromString("124.5"),
			Narration:    `rent, "march"`,
		},
	}

	var b strings.Builder
	if err := WriteCSV(&b, txs); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != csvHeader {
		t.Errorf("unexpected header %q", lines[0])
	}
	if want := `tx-1,2024-03-15T10:30:00Z,DEPOSIT,150.00,150.00,"Opening deposit"`; lines[1] != want {
		t.Errorf("row 1 = %q, want %q", lines[1], want)
	}
	// Narration quotes are doubled so commas and quotes stay inside the cell.
	if want := `tx-2,2024-03-15T11:30:00Z,WITHDRAWAL,25.50,124.50,"rent, ""march"""`; lines[2] != want {
		t.Errorf("row 2 = %q, want %q", lines[2], want)
	}
}
