package ledger

import (
	"fmt"
	"sort"

	"bank-ledger/pkg/store"
)

// Snapshot produces a complete, consistent copy of ledger state for
// persistence. It holds the registry lock and every account's lock for the
// entire copy. Account locks are acquired in ascending number order, the same
// global order Transfer uses, so an in-flight transfer is either fully in the
// snapshot or fully out of it and the copied balances always conserve.
// Persistence I/O happens outside these locks.
func (l *Ledger) Snapshot() store.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := store.Snapshot{
		NextAccountNumber: l.nextNumber,
		AdminUser:         l.config.AdminUser,
		AdminHash:         l.adminHash,
		AdminSalt:         l.adminSalt,
	}

	numbers := make([]int64, 0, len(l.accounts))
	for n := range l.accounts {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	for _, n := range numbers {
		l.accounts[n].mu.Lock()
	}
	defer func() {
		for _, n := range numbers {
			l.accounts[n].mu.Unlock()
		}
	}()

	for _, n := range numbers {
		a := l.accounts[n]
		pa := store.PersistedAccount{
			Number:         a.number,
			Owner:          a.owner,
			Type:           string(a.accountType),
			Balance:        a.balance,
			CredentialHash: a.credentialHash,
			CredentialSalt: a.credentialSalt,
			Active:         a.active,
			CreatedAt:      a.createdAt,
			Transactions:   make([]store.PersistedTransaction, 0, len(a.transactions)),
		}
		for _, t := range a.transactions {
			pa.Transactions = append(pa.Transactions, store.PersistedTransaction{
				ID:           t.ID,
				Timestamp:    t.Timestamp,
				Kind:         string(t.Kind),
				Amount:       t.Amount,
				BalanceAfter: t.BalanceAfter,
				Narration:    t.Narration,
			})
		}
		for id := range a.reversed {
			pa.ReversedTxIDs = append(pa.ReversedTxIDs, id)
		}
		sort.Strings(pa.ReversedTxIDs)
		snap.Accounts = append(snap.Accounts, pa)
	}

	return snap
}

// Restore replaces the ledger's state with the snapshot's: accounts,
// transaction logs, reversal marks, the account number counter and the admin
// credential. The transaction id index is rebuilt from the restored logs.
func (l *Ledger) Restore(snap store.Snapshot) error {
	accounts := make(map[int64]*Account, len(snap.Accounts))
	txIDs := newTxIndex(0, 0)

	for _, pa := range snap.Accounts {
		accountType, ok := ParseAccountType(pa.Type)
		if !ok {
			return fmt.Errorf("ledger: snapshot account %d has unknown type %q", pa.Number, pa.Type)
		}
		a := newAccount(pa.Number, pa.Owner, accountType, pa.CredentialHash, pa.CredentialSalt, l.clock)
		a.createdAt = pa.CreatedAt
		a.active = pa.Active
		a.balance = round2(pa.Balance)
		a.transactions = make([]Transaction, 0, len(pa.Transactions))
		for _, pt := range pa.Transactions {
			kind := TransactionKind(pt.Kind)
			if kind != Deposit && kind != Withdrawal {
				return fmt.Errorf("ledger: snapshot transaction %s has unknown kind %q", pt.ID, pt.Kind)
			}
			a.transactions = append(a.transactions, Transaction{
				ID:           pt.ID,
				Timestamp:    pt.Timestamp,
				Kind:         kind,
				Amount:       round2(pt.Amount),
				BalanceAfter: round2(pt.BalanceAfter),
				Narration:    pt.Narration,
			})
			txIDs.add(pt.ID)
		}
		for _, id := range pa.ReversedTxIDs {
			a.reversed[id] = struct{}{}
		}
		accounts[pa.Number] = a
	}

	nextNumber := snap.NextAccountNumber
	if nextNumber < baseAccountNumber {
		nextNumber = baseAccountNumber
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = accounts
	l.nextNumber = nextNumber
	l.txIDs = txIDs
	if snap.AdminUser != "" {
		l.config.AdminUser = snap.AdminUser
	}
	if snap.AdminHash != "" {
		l.adminHash = snap.AdminHash
		l.adminSalt = snap.AdminSalt
	}
	return nil
}
