package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/taxledger/internal/adapter/http"
	"github.com/iho/taxledger/internal/adapter/http/handler"
	"github.com/iho/taxledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/taxledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/taxledger/internal/adapter/repository/redis"
	"github.com/iho/taxledger/internal/infrastructure/config"
	"github.com/iho/taxledger/internal/infrastructure/eventpublisher"
	"github.com/iho/taxledger/internal/infrastructure/logger"
	"github.com/iho/taxledger/internal/infrastructure/logging"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
	"github.com/iho/taxledger/internal/infrastructure/postgres"
	"github.com/iho/taxledger/internal/infrastructure/redis"
	"github.com/iho/taxledger/internal/usecase"
)

// limiterIdle is how long a tenant's bucket may sit unused before cleanup.
const limiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat).Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:      cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		StatementTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()
	outboxRepo := outboxRepository(cfg, pool)
	rateLimiter := newRateLimiter(cfg, m)

	router := httpAdapter.NewRouter(routerConfig(cfg, pool, redisClient, outboxRepo, rateLimiter, m, log))

	server := &http.Server{
		Addr:         serverAddr(cfg),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.OutboxEnabled {
		publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: outboxRepo,
			Logger:     slog.Default(),
			Metrics:    m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
			Retention:  cfg.OutboxRetention,
		})
		g.Go(func() error {
			if err := publisher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if rateLimiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(limiterIdle)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n := rateLimiter.CleanupLimiters(limiterIdle); n > 0 {
						log.Debug().Int("removed", n).Msg("cleaned up idle rate limiters")
					}
				}
			}
		})
	}

	return g.Wait()
}

// routerConfig wires repositories, use cases and handlers.
func routerConfig(
	cfg *config.Config,
	pool *pgxpool.Pool,
	redisClient *goredis.Client,
	outboxRepo usecase.OutboxRepository,
	rateLimiter *middleware.RateLimiter,
	m *metrics.Metrics,
	log zerolog.Logger,
) httpAdapter.RouterConfig {
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	profileRepo := postgresRepo.NewPostingProfileRepository(pool)
	taxRepo := postgresRepo.NewTaxCodeRepository(pool)
	periodRepo := postgresRepo.NewPeriodRepository(pool)
	journalRepo := postgresRepo.NewJournalRepository(pool)
	documentRepo := postgresRepo.NewDocumentRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier().
		WithMaxRetries(cfg.RetryMaxAttempts).
		WithMetrics(m)

	sequences := usecase.NewSequenceGenerator(txManager, postgresRepo.NewSequenceRepository(pool))

	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, journalRepo, periodRepo, sequences, outboxRepo, auditRepo, idGen).
		WithRetrier(retrier).
		WithMetrics(m)
	taxUC := usecase.NewTaxUseCase(txManager, taxRepo, redisRepo.NewCache(redisClient), auditRepo, idGen).
		WithCacheTTL(cfg.TaxCodeCacheTTL).
		WithMetrics(m)
	documentUC := usecase.NewDocumentUseCase(txManager, documentRepo, taxRepo, profileRepo, ledgerUC, sequences, taxUC, outboxRepo, auditRepo, idGen).
		WithRetrier(retrier).
		WithMetrics(m).
		WithNumberWidth(cfg.NumberWidth).
		WithBaseCurrency(cfg.BaseCurrency)

	return httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(usecase.NewAccountUseCase(txManager, accountRepo, profileRepo, auditRepo, idGen)),
		TaxHandler:      handler.NewTaxHandler(taxUC),
		PeriodHandler:   handler.NewPeriodHandler(usecase.NewPeriodUseCase(txManager, periodRepo, auditRepo, idGen)),
		DocumentHandler: handler.NewDocumentHandler(documentUC),
		JournalHandler:  handler.NewJournalHandler(ledgerUC),
		LedgerHandler:   handler.NewLedgerHandler(usecase.NewReconciliationUseCase(ledgerRepo)),
		HealthHandler: handler.NewHealthHandler(
			handler.PingFunc(pool.Ping),
			handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		),
		IdempotencyStore: redisRepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Metrics:          m,
		MetricsHandler:   promhttp.Handler(),
		Logger:           log,
	}
}

// outboxRepository drops events when the outbox is disabled.
func outboxRepository(cfg *config.Config, db postgresRepo.DBTX) usecase.OutboxRepository {
	if !cfg.OutboxEnabled {
		return postgresRepo.NewNullOutboxRepository()
	}
	return postgresRepo.NewOutboxRepository(db)
}

// newRateLimiter returns nil when rate limiting is disabled.
func newRateLimiter(cfg *config.Config, m *metrics.Metrics) *middleware.RateLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)
}

func serverAddr(cfg *config.Config) string {
	return ":" + cfg.HTTPPort
}
