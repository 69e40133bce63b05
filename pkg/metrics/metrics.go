// Package metrics defines the collector interface the ledger service reports
// into. Implementations can export to Prometheus or discard everything.
package metrics

import "time"

// Collector records ledger service metrics.
type Collector interface {
	// RecordOperation records one ledger operation with its outcome
	// classification ("ok" or an error class) and duration.
	RecordOperation(op, result string, duration time.Duration)

	// RecordHTTPRequest records one handled HTTP request.
	RecordHTTPRequest(method, route string, status int, duration time.Duration)

	// RecordSnapshotSave records a persistence save attempt.
	RecordSnapshotSave(success bool, duration time.Duration)

	// SetAccountTotals updates the account population gauges.
	SetAccountTotals(total, active int, totalBalance float64)
}

// NoOp is a Collector that discards everything. It is the default when
// metrics are not wired up.
type NoOp struct{}

// RecordOperation does nothing.
func (NoOp) RecordOperation(op, result string, duration time.Duration) {}

// RecordHTTPRequest does nothing.
func (NoOp) RecordHTTPRequest(method, route string, status int, duration time.Duration) {}

// RecordSnapshotSave does nothing.
func (NoOp) RecordSnapshotSave(success bool, duration time.Duration) {}

// SetAccountTotals does nothing.
func (NoOp) SetAccountTotals(total, active int, totalBalance float64) {}
