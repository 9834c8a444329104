package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(PingFunc(ok), nil)
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_Readiness(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	redisPing := PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	down := PingFunc(func(context.Context) error { return errors.New("down") })

	tests := []struct {
		name     string
		postgres Pinger
		redis    Pinger
		status   int
	}{
		{"all up", PingFunc(ok), redisPing, http.StatusOK},
		{"without redis", PingFunc(ok), nil, http.StatusOK},
		{"postgres down", down, redisPing, http.StatusServiceUnavailable},
		{"redis down", PingFunc(ok), down, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.postgres, tt.redis)
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
