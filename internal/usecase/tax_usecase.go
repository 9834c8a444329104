package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
)

// TaxUseCase manages tax codes and computes line taxes.
type TaxUseCase struct {
	txManager   TransactionManager
	taxCodeRepo TaxCodeRepository
	cache       Cache
	recorder    recorder
	idGen       IDGenerator
	clock       Clock
	cacheTTL    time.Duration
	metrics     *metrics.Metrics
	loads       singleflight.Group
}

// NewTaxUseCase creates a new TaxUseCase. cache may be nil.
func NewTaxUseCase(
	txManager TransactionManager,
	taxCodeRepo TaxCodeRepository,
	cache Cache,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *TaxUseCase {
	return &TaxUseCase{
		txManager:   txManager,
		taxCodeRepo: taxCodeRepo,
		cache:       cache,
		recorder:    recorder{auditRepo: auditRepo, idGen: idGen},
		idGen:       idGen,
		clock:       SystemClock(),
		cacheTTL:    DefaultTaxCodeCacheTTL,
	}
}

// WithCacheTTL overrides how long tax code rows are cached.
func (uc *TaxUseCase) WithCacheTTL(ttl time.Duration) *TaxUseCase {
	uc.cacheTTL = ttl
	return uc
}

// WithMetrics enables cache metrics.
func (uc *TaxUseCase) WithMetrics(m *metrics.Metrics) *TaxUseCase {
	uc.metrics = m
	return uc
}

// WithClock overrides the clock.
func (uc *TaxUseCase) WithClock(c Clock) *TaxUseCase {
	uc.clock = c
	return uc
}

// CreateTaxCodeInput represents input for adding a tax code rate row.
type CreateTaxCodeInput struct {
	TenantID      string
	ActorID       string
	Code          string
	Description   string
	Rate          decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	IsZeroRated   bool
	IsExempt      bool
	IsOutOfScope  bool
	Claimable     bool
}

// CreateTaxCode adds a rate row. Rows of the same code must not overlap.
func (uc *TaxUseCase) CreateTaxCode(ctx context.Context, input CreateTaxCodeInput) (*domain.TaxCode, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	code := &domain.TaxCode{
		ID:            uc.idGen.Generate(),
		TenantID:      input.TenantID,
		Code:          normalizeTaxCode(input.Code),
		Description:   input.Description,
		Rate:          input.Rate,
		EffectiveFrom: domain.DateOnly(input.EffectiveFrom),
		IsZeroRated:   input.IsZeroRated,
		IsExempt:      input.IsExempt,
		IsOutOfScope:  input.IsOutOfScope,
		Claimable:     input.Claimable,
		CreatedAt:     now,
	}
	if input.EffectiveTo != nil {
		to := domain.DateOnly(*input.EffectiveTo)
		code.EffectiveTo = &to
	}

	if err := code.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	existing, err := uc.taxCodeRepo.ListByCodesTx(txCtx, tx, input.TenantID, []string{code.Code})
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Overlaps(code) {
			return nil, fmt.Errorf("%w: %s from %s", domain.ErrTaxRangeOverlap, code.Code,
				existing[i].EffectiveFrom.Format(time.DateOnly))
		}
	}

	if err := uc.taxCodeRepo.Create(txCtx, tx, code); err != nil {
		return nil, err
	}

	if err := uc.recorder.audit(txCtx, tx, input.TenantID, input.ActorID, domain.AuditActionTaxCodeCreate,
		"tax_code", code.ID, nil, code, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.invalidate(ctx, input.TenantID, code.Code)

	return code, nil
}

// ListTaxCodes lists rate rows, optionally for one code.
func (uc *TaxUseCase) ListTaxCodes(ctx context.Context, tenantID, code string) ([]domain.TaxCode, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if code = normalizeTaxCode(code); code == "" {
		return uc.taxCodeRepo.List(ctx, tenantID)
	}
	return uc.taxCodeRepo.ListByCodes(ctx, tenantID, []string{code})
}

// ComputeLine computes one line with the tenant's tax codes.
func (uc *TaxUseCase) ComputeLine(ctx context.Context, tenantID string, in domain.TaxLineInput) (domain.TaxLineResult, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return domain.TaxLineResult{}, err
	}

	in.TaxCode = normalizeTaxCode(in.TaxCode)

	var table domain.TaxTable
	if !in.IsExemptOverride {
		var err error
		table, err = uc.Table(ctx, tenantID, []string{in.TaxCode})
		if err != nil {
			return domain.TaxLineResult{}, err
		}
	}

	return domain.ComputeLine(in, table)
}

// ComputeDocument computes every line as of asOf and returns the totals.
func (uc *TaxUseCase) ComputeDocument(ctx context.Context, tenantID string, lines []domain.TaxLineInput) ([]domain.TaxLineResult, domain.DocumentTotals, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, domain.DocumentTotals{}, err
	}

	lines = append([]domain.TaxLineInput(nil), lines...)
	codes := make([]string, 0, len(lines))
	for i := range lines {
		lines[i].TaxCode = normalizeTaxCode(lines[i].TaxCode)
		if !lines[i].IsExemptOverride {
			codes = append(codes, lines[i].TaxCode)
		}
	}

	table, err := uc.Table(ctx, tenantID, codes)
	if err != nil {
		return nil, domain.DocumentTotals{}, err
	}

	results := make([]domain.TaxLineResult, len(lines))
	for i, l := range lines {
		results[i], err = domain.ComputeLine(l, table)
		if err != nil {
			return nil, domain.DocumentTotals{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	totals, err := domain.SumLines(results)
	if err != nil {
		return nil, domain.DocumentTotals{}, err
	}
	return results, totals, nil
}

// Table loads every rate row of codes through the cache. The result is for
// previews; approval reloads rows inside its own transaction.
func (uc *TaxUseCase) Table(ctx context.Context, tenantID string, codes []string) (domain.TaxTable, error) {
	normalized := make([]string, len(codes))
	for i, code := range codes {
		normalized[i] = normalizeTaxCode(code)
	}

	var table domain.TaxTable
	for _, code := range uniqueSorted(normalized) {
		rows, err := uc.cachedRows(ctx, tenantID, code)
		if err != nil {
			return nil, err
		}
		table = append(table, rows...)
	}
	return table, nil
}

func (uc *TaxUseCase) cachedRows(ctx context.Context, tenantID, code string) ([]domain.TaxCode, error) {
	key := taxCodeCacheKey(tenantID, code)

	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, key); err == nil && data != nil {
			var rows []domain.TaxCode
			if err := json.Unmarshal(data, &rows); err == nil {
				uc.observeCache("hit")
				return rows, nil
			}
		}
		uc.observeCache("miss")
	}

	// The load is shared by every caller waiting on key, so one caller
	// cancelling must not fail the others.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := uc.loads.Do(key, func() (any, error) {
		rows, err := uc.taxCodeRepo.ListByCodes(loadCtx, tenantID, []string{code})
		if err != nil {
			return nil, err
		}
		if uc.cache != nil {
			if data, err := json.Marshal(rows); err == nil {
				_ = uc.cache.Set(loadCtx, key, data, uc.cacheTTL)
			}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]domain.TaxCode), nil
}

func (uc *TaxUseCase) invalidate(ctx context.Context, tenantID, code string) {
	if uc.cache == nil {
		return
	}
	_ = uc.cache.Delete(ctx, taxCodeCacheKey(tenantID, code))
}

func (uc *TaxUseCase) observeCache(result string) {
	if uc.metrics != nil {
		uc.metrics.TaxCodeCache.WithLabelValues(result).Inc()
	}
}

func normalizeTaxCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func taxCodeCacheKey(tenantID, code string) string {
	return "taxcodes:" + tenantID + ":" + code
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
