package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 2, false, zap.NewNop())
	defer rl.Shutdown()
	handler := rl.Middleware(okHandler())

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/status/txn_1", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1235"), "port is not part of the key")
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1236"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234"), "other clients have their own bucket")
}

func TestRateLimiter_ClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "41.90.1.2, 10.0.0.1")

	direct := NewRateLimiter(1, 1, false, zap.NewNop())
	defer direct.Shutdown()
	assert.Equal(t, "127.0.0.1", direct.clientIP(req))

	proxied := NewRateLimiter(1, 1, true, zap.NewNop())
	defer proxied.Shutdown()
	assert.Equal(t, "41.90.1.2", proxied.clientIP(req))
}

func TestRateLimiter_EvictsOldestAtCapacity(t *testing.T) {
	rl := NewRateLimiter(1, 1, false, zap.NewNop())
	defer rl.Shutdown()
	rl.maxSize = 2

	rl.getLimiter("a")
	rl.getLimiter("b")
	rl.mu.Lock()
	rl.limiters["a"].lastAccess = time.Now().Add(-time.Minute)
	rl.mu.Unlock()
	rl.getLimiter("c")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.limiters, 2)
	assert.NotContains(t, rl.limiters, "a")
}
