package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/taxledger/internal/adapter/http/handler"
	"github.com/iho/taxledger/internal/adapter/http/middleware"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
	"github.com/iho/taxledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler  *handler.AccountHandler
	TaxHandler      *handler.TaxHandler
	PeriodHandler   *handler.PeriodHandler
	DocumentHandler *handler.DocumentHandler
	JournalHandler  *handler.JournalHandler
	LedgerHandler   *handler.LedgerHandler
	HealthHandler   *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		r.Use(middleware.Tenant)

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idem := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			if cfg.IdempotencyTTL > 0 {
				idem = idem.WithTTL(cfg.IdempotencyTTL)
			}
			r.Use(idem.Wrap)
		}

		// Chart of accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Post("/{id}/deactivate", cfg.AccountHandler.Deactivate)
			r.Post("/{id}/activate", cfg.AccountHandler.Activate)
		})
		r.Get("/posting-profile", cfg.AccountHandler.GetPostingProfile)
		r.Put("/posting-profile", cfg.AccountHandler.SetPostingProfile)

		// Tax
		r.Post("/tax-codes", cfg.TaxHandler.CreateCode)
		r.Get("/tax-codes", cfg.TaxHandler.ListCodes)
		r.Get("/tax-codes/{code}", cfg.TaxHandler.ListCodes)
		r.Post("/tax/compute", cfg.TaxHandler.Compute)

		// Fiscal periods
		r.Route("/periods", func(r chi.Router) {
			r.Post("/", cfg.PeriodHandler.Create)
			r.Get("/", cfg.PeriodHandler.List)
			r.Post("/{id}/close", cfg.PeriodHandler.Close)
			r.Post("/{id}/reopen", cfg.PeriodHandler.Reopen)
			r.Post("/{id}/lock", cfg.PeriodHandler.Lock)
			r.Post("/{id}/unlock", cfg.PeriodHandler.Unlock)
		})

		// Documents
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Create)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Put("/{id}", cfg.DocumentHandler.Update)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Post("/{id}/approve", cfg.DocumentHandler.Approve)
			r.Post("/{id}/void", cfg.DocumentHandler.Void)
			r.Post("/{id}/send", cfg.DocumentHandler.Send)
			r.Post("/{id}/payments", cfg.DocumentHandler.RecordPayment)
			r.Post("/{id}/overdue", cfg.DocumentHandler.MarkOverdue)
		})

		// Journal
		r.Route("/journal-entries", func(r chi.Router) {
			r.Post("/", cfg.JournalHandler.Post)
			r.Get("/", cfg.JournalHandler.List)
			r.Get("/{id}", cfg.JournalHandler.Get)
			r.Post("/{id}/reverse", cfg.JournalHandler.Reverse)
		})

		// Ledger reports
		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
		r.Get("/ledger/trial-balance", cfg.LedgerHandler.TrialBalance)
	})

	return r
}
