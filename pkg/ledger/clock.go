package ledger

import "time"

// Clock supplies the current time. It is injected so that calendar-day logic
// (the daily withdrawal limit) can be exercised deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
