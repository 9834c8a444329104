package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultTaxCodeCacheTTL is how long tax code rows stay in the cache.
	DefaultTaxCodeCacheTTL = 10 * time.Minute

	// DefaultNumberWidth is the zero padding of formatted document numbers.
	DefaultNumberWidth = 6

	// DefaultBaseCurrency is used when a tenant has no base currency configured.
	DefaultBaseCurrency = "USD"
)
