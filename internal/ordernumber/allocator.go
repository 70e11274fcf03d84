package ordernumber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/config"
)

const (
	// DefaultFloor is the lowest order number the allocator hands out.
	DefaultFloor int64 = 100000
	// DefaultMaxAttempts bounds the candidate probes before degrading.
	DefaultMaxAttempts = 10
	// DefaultRetryBaseDelay is multiplied by attempt+1 between probes.
	DefaultRetryBaseDelay = 10 * time.Millisecond
	// DefaultPageSize is how many of the highest numbers are read per attempt.
	DefaultPageSize = 10

	// DegradedBase starts the range used when sequential allocation fails.
	// Numbers at or above it were not allocated sequentially.
	DegradedBase int64 = 9000000
	// DegradedSpan is the width of the degraded range.
	DegradedSpan int64 = 1000000
)

// Degradation reasons reported in logs and metrics.
const (
	ReasonExhausted  = "exhausted"
	ReasonStoreError = "store_error"
	ReasonCanceled   = "canceled"
)

var meter = otel.Meter("github.com/Additional-Code/propdesk/ordernumber")

// Store is the read side of the purchases table the allocator probes.
type Store interface {
	// TopOrderNumbers returns up to limit assigned order numbers, highest first.
	TopOrderNumbers(ctx context.Context, limit int) ([]int64, error)
	// OrderNumberExists reports whether any purchase holds number n.
	OrderNumberExists(ctx context.Context, n int64) (bool, error)
}

// Settings tune an Allocator. Zero fields fall back to the package defaults.
type Settings struct {
	Floor          int64
	MaxAttempts    int
	RetryBaseDelay time.Duration
	PageSize       int
}

// SettingsFromConfig maps application configuration onto allocator settings.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Floor:          cfg.Allocator.Floor,
		MaxAttempts:    cfg.Allocator.MaxAttempts,
		RetryBaseDelay: cfg.Allocator.RetryBaseDelay,
		PageSize:       cfg.Allocator.PageSize,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Floor <= 0 {
		s.Floor = DefaultFloor
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.RetryBaseDelay <= 0 {
		s.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	return s
}

// Allocator hands out increasing order numbers by probing the store
// optimistically. It holds no state between calls; the UNIQUE index on
// order_number remains the authority on uniqueness.
//
// Allocate never fails. When the store is unhealthy, the context ends, or
// every candidate is taken, it returns a number from the degraded range
// [DegradedBase, DegradedBase+DegradedSpan). Operators reading the ledger
// should treat such numbers as a sign the allocator degraded, not as a
// business decision to skip numbers.
type Allocator struct {
	store    Store
	settings Settings
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	allocations metric.Int64Counter
}

// Option customises an Allocator.
type Option func(*Allocator)

// WithClock overrides the wall clock used for degraded numbers.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSleeper overrides how the allocator waits between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Allocator) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

// NewAllocator builds an Allocator over store.
func NewAllocator(store Store, settings Settings, logger *zap.Logger, opts ...Option) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Allocator{
		store:    store,
		settings: settings.withDefaults(),
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}

	counter, err := meter.Int64Counter("order_number.allocations",
		metric.WithDescription("Order numbers handed out, by outcome and degradation reason."),
	)
	if err != nil {
		logger.Warn("order number counter unavailable", zap.Error(err))
	} else {
		a.allocations = counter
	}
	return a
}

// Settings returns the effective settings.
func (a *Allocator) Settings() Settings {
	return a.settings
}

// Allocate returns the next order number. See Allocator for the failure policy.
func (a *Allocator) Allocate(ctx context.Context) (n int64) {
	defer func() {
		if r := recover(); r != nil {
			n = a.degrade(ctx, ReasonStoreError, 0, fmt.Errorf("store panicked: %v", r))
		}
	}()

	for attempt := 0; attempt < a.settings.MaxAttempts; attempt++ {
		candidate, free, err := a.probe(ctx, attempt)
		if err != nil {
			return a.degrade(ctx, reasonFor(ctx, err), attempt, err)
		}
		if free {
			a.record(ctx, "sequential", "")
			return candidate
		}

		a.logger.Debug("order number taken, retrying",
			zap.Int64("candidate", candidate),
			zap.Int("attempt", attempt),
		)
		if err := a.sleep(ctx, a.settings.RetryBaseDelay*time.Duration(attempt+1)); err != nil {
			return a.degrade(ctx, ReasonCanceled, attempt, err)
		}
	}
	return a.degrade(ctx, ReasonExhausted, a.settings.MaxAttempts, nil)
}

func (a *Allocator) probe(ctx context.Context, attempt int) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	top, err := a.store.TopOrderNumbers(ctx, a.settings.PageSize)
	if err != nil {
		return 0, false, err
	}

	highest := a.settings.Floor - 1
	for _, n := range top {
		if n > highest {
			highest = n
		}
	}
	candidate := highest + 1 + int64(attempt)

	taken, err := a.store.OrderNumberExists(ctx, candidate)
	if err != nil {
		return candidate, false, err
	}
	return candidate, !taken, nil
}

func (a *Allocator) degrade(ctx context.Context, reason string, attempts int, cause error) int64 {
	n := Degraded(a.now())
	fields := []zap.Field{
		zap.Int64("order_number", n),
		zap.String("reason", reason),
		zap.Int("attempts", attempts),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	a.logger.Warn("order number allocation degraded", fields...)
	a.record(context.WithoutCancel(ctx), "degraded", reason)
	return n
}

func (a *Allocator) record(ctx context.Context, outcome, reason string) {
	if a.allocations == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	a.allocations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Degraded computes the fallback number for instant t.
func Degraded(t time.Time) int64 {
	return DegradedBase + t.UnixMilli()%DegradedSpan
}

// IsDegraded reports whether n lies in the degraded range.
func IsDegraded(n int64) bool {
	return n >= DegradedBase && n < DegradedBase+DegradedSpan
}

func reasonFor(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonCanceled
	}
	return ReasonStoreError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
