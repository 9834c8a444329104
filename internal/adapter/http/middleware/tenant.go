package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/logging"
)

const (
	// TenantHeader carries the tenant every /api/v1 request acts for.
	TenantHeader = "X-Tenant-ID"
	// ActorHeader optionally names the user recorded in audit logs.
	ActorHeader = "X-Actor-ID"
)

type actorKey struct{}

// Tenant rejects requests without a valid X-Tenant-ID header and stores the
// tenant in the request context for logging and handlers.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get(TenantHeader)
		if err := domain.ValidateTenantID(tenantID); err != nil {
			code := "invalid_tenant"
			if errors.Is(err, domain.ErrTenantRequired) {
				code = "tenant_required"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   code,
				"message": err.Error(),
			})
			return
		}

		ctx := logging.ContextWithTenantID(r.Context(), tenantID)
		if actor := r.Header.Get(ActorHeader); actor != "" {
			ctx = context.WithValue(ctx, actorKey{}, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantID returns the tenant stored by Tenant.
func TenantID(ctx context.Context) string {
	return logging.TenantIDFromContext(ctx)
}

// ActorID returns the actor header value, or "api" when absent.
func ActorID(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "api"
}
