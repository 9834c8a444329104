package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/taxledger/internal/infrastructure/metrics"
)

func TestRateLimiterIsPerTenant(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	rl := NewRateLimiter(1, 1).WithMetrics(m)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(tenant string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set(TenantHeader, tenant)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("acme"); code != http.StatusOK {
		t.Fatalf("expected first acme request to pass, got %d", code)
	}
	if code := send("acme"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second acme request to be throttled, got %d", code)
	}
	if code := send("globex"); code != http.StatusOK {
		t.Fatalf("expected globex to have its own bucket, got %d", code)
	}

	if got := testutil.ToFloat64(m.RateLimitHits.WithLabelValues("acme")); got != 1 {
		t.Fatalf("expected one hit for acme, got %v", got)
	}
}

func TestRateLimiterCleanupDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10)
	rl.now = func() time.Time { return now }

	rl.getLimiter("acme")
	now = now.Add(2 * time.Hour)
	rl.getLimiter("globex")

	if removed := rl.CleanupLimiters(time.Hour); removed != 1 {
		t.Fatalf("expected one idle bucket removed, got %d", removed)
	}
	if _, ok := rl.limiters["globex"]; !ok {
		t.Fatalf("expected recent bucket to survive")
	}
}
