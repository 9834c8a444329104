package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/taxledger/internal/infrastructure/metrics"
)

// Retrier re-runs a whole transaction when Postgres aborts it with a
// serialization failure or deadlock. Any other error is permanent.
type Retrier struct {
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

// NewRetrier creates a Retrier with the default policy.
func NewRetrier() *Retrier {
	return &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     1 * time.Second,
		maxElapsedTime:  10 * time.Second,
		logger:          slog.Default(),
	}
}

// WithLogger sets the logger used for retry warnings.
func (r *Retrier) WithLogger(logger *slog.Logger) *Retrier {
	r.logger = logger
	return r
}

// WithMaxRetries bounds how many times a transaction is re-run.
func (r *Retrier) WithMaxRetries(n uint64) *Retrier {
	r.maxRetries = n
	return r
}

// WithMetrics counts retries by SQLSTATE.
func (r *Retrier) WithMetrics(m *metrics.Metrics) *Retrier {
	r.metrics = m
	return r
}

// Retry runs operation until it succeeds, fails permanently or the policy
// gives up.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		code := sqlState(err)
		if r.metrics != nil {
			r.metrics.DBRetries.WithLabelValues(code).Inc()
		}
		r.logger.WarnContext(ctx, "retrying transaction",
			slog.String("sqlstate", code),
			slog.Duration("backoff", wait),
			slog.Any("error", err),
		)
	})
}

func isRetryableError(err error) bool {
	code := sqlState(err)
	return code == pgErrSerialization || code == pgErrDeadlock
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
