package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// FixedClock is a hand-written Clock returning a settable time.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SequentialIDGenerator returns prefix-1, prefix-2, ...
type SequentialIDGenerator struct {
	Prefix  string
	mu      sync.Mutex
	counter int
}

func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{Prefix: prefix}
}

func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.Prefix, g.counter)
}

// CountingRetrier runs the operation up to Attempts times while RetryIf
// matches the error, and records how many attempts were made.
type CountingRetrier struct {
	Attempts int
	RetryIf  func(error) bool

	mu    sync.Mutex
	calls int
}

func (r *CountingRetrier) Retry(_ context.Context, operation func() error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		r.mu.Lock()
		r.calls++
		r.mu.Unlock()

		err = operation()
		if err == nil || r.RetryIf == nil || !r.RetryIf(err) {
			return err
		}
	}
	return err
}

// Calls returns the number of operation runs so far.
func (r *CountingRetrier) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// StaticExchangeRates is an ExchangeRateProvider backed by a map of
// currency to rate.
type StaticExchangeRates map[string]decimal.Decimal

func (s StaticExchangeRates) Rate(_ context.Context, _, currency string, _ time.Time) (decimal.Decimal, error) {
	if r, ok := s[currency]; ok {
		return r, nil
	}
	return decimal.Decimal{}, fmt.Errorf("no exchange rate for %s", currency)
}
