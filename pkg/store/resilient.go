package store

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"bank-ledger/pkg/logging"
)

// ResilientStore wraps a Store with circuit breaker and timeout protection,
// so a misbehaving backend fails fast instead of stalling shutdown saves.
type ResilientStore struct {
	store   Store
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *logging.Logger
}

// ResilientConfig holds settings for the resilient wrapper.
type ResilientConfig struct {
	// Timeout bounds each Save/Load call. Zero disables the timeout.
	Timeout time.Duration

	// MaxRequests, Interval and Timeout for the half-open/open states follow
	// gobreaker semantics.
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration

	Logger *logging.Logger
}

// DefaultResilientConfig returns conservative defaults: the breaker trips
// after 5 consecutive failures and probes again after 30 seconds.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:            10 * time.Second,
		BreakerMaxRequests: 1,
		BreakerInterval:    60 * time.Second,
		BreakerTimeout:     30 * time.Second,
	}
}

// NewResilientStore wraps the given store.
func NewResilientStore(inner Store, config ResilientConfig) *ResilientStore {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	logger = logger.Named("store").Named(inner.Name())

	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: config.BreakerMaxRequests,
		Interval:    config.BreakerInterval,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &ResilientStore{
		store:   inner,
		cb:      gobreaker.NewCircuitBreaker(settings),
		timeout: config.Timeout,
		logger:  logger,
	}
}

// Save persists the snapshot through the breaker.
func (rs *ResilientStore) Save(ctx context.Context, snap Snapshot) error {
	if rs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}

	_, err := rs.cb.Execute(func() (interface{}, error) {
		return nil, rs.store.Save(ctx, snap)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		rs.logger.Warn("save rejected, circuit open")
		return ErrUnavailable
	}
	return err
}

// Load reads the snapshot through the breaker. A missing snapshot is not a
// failure and does not count against the breaker.
func (rs *ResilientStore) Load(ctx context.Context) (Snapshot, error) {
	if rs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}

	result, err := rs.cb.Execute(func() (interface{}, error) {
		snap, err := rs.store.Load(ctx)
		if IsNotFound(err) {
			// Report success to the breaker, propagate not-found via payload.
			return snapshotResult{snap: snap, notFound: true}, nil
		}
		return snapshotResult{snap: snap}, err
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			rs.logger.Warn("load rejected, circuit open")
			return Snapshot{}, ErrUnavailable
		}
		return Snapshot{}, err
	}

	sr := result.(snapshotResult)
	if sr.notFound {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return sr.snap, nil
}

type snapshotResult struct {
	snap     Snapshot
	notFound bool
}

// Name returns the wrapped backend's identifier.
func (rs *ResilientStore) Name() string { return rs.store.Name() }

// Close closes the wrapped store.
func (rs *ResilientStore) Close() error { return rs.store.Close() }
