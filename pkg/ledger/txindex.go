package ledger

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// txIndex is a probabilistic index of every transaction id ever appended.
// Reversal lookups consult it first: a definite "not present" answer avoids
// scanning the account log at all. False positives only cost the scan that
// would have happened anyway; the log remains the source of truth.
type txIndex struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

func newTxIndex(expectedItems uint, falsePositiveRate float64) *txIndex {
	if expectedItems == 0 {
		expectedItems = 100000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	return &txIndex{filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate)}
}

func (ti *txIndex) add(id string) {
	ti.mu.Lock()
	ti.filter.Add([]byte(id))
	ti.mu.Unlock()
}

func (ti *txIndex) mayContain(id string) bool {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.filter.Test([]byte(id))
}
