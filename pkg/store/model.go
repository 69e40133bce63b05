package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// snapshotVersion is bumped on incompatible schema changes.
const snapshotVersion = 1

// Meta describes how and when a snapshot was produced.
type Meta struct {
	Backend   string    `json:"backend"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// PersistedTransaction is the serialized form of one transaction record.
type PersistedTransaction struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Narration    string          `json:"narration"`
}

// PersistedAccount is the serialized form of one account, locks stripped.
type PersistedAccount struct {
	Number         int64                  `json:"number"`
	Owner          string                 `json:"owner"`
	Type           string                 `json:"type"`
	Balance        decimal.Decimal        `json:"balance"`
	CredentialHash string                 `json:"credential_hash"`
	CredentialSalt string                 `json:"credential_salt"`
	Active         bool                   `json:"active"`
	CreatedAt      time.Time              `json:"created_at"`
	Transactions   []PersistedTransaction `json:"transactions"`
	ReversedTxIDs  []string               `json:"reversed_tx_ids,omitempty"`
}

// Snapshot is a complete, consistent copy of ledger state.
type Snapshot struct {
	Meta              Meta               `json:"_meta"`
	NextAccountNumber int64              `json:"next_account_number"`
	AdminUser         string             `json:"admin_user"`
	AdminHash         string             `json:"admin_hash"`
	AdminSalt         string             `json:"admin_salt"`
	Accounts          []PersistedAccount `json:"accounts"`
}

// stamp fills in Meta before a save.
func (s *Snapshot) stamp(backend string) {
	s.Meta.Backend = backend
	s.Meta.Version = snapshotVersion
	s.Meta.Timestamp = time.Now()
}
