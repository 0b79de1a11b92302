package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerkeeper/ledgerkeeper/internal/server/handlers"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, setupTestLogger())
	defer rl.Stop()

	// Первые rate запросов проходят
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("user-1"), "request %d should be allowed", i+1)
	}

	// Следующий отклоняется
	assert.False(t, rl.Allow("user-1"))

	// Другой ключ имеет собственный bucket
	assert.True(t, rl.Allow("user-2"))
}

func TestRateLimiter_RefillAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond, setupTestLogger())
	defer rl.Stop()

	assert.True(t, rl.Allow("user-1"))
	assert.False(t, rl.Allow("user-1"))

	time.Sleep(30 * time.Millisecond)

	// После окна токены пополняются
	assert.True(t, rl.Allow("user-1"))
}

func TestRateLimitMiddleware_KeyedByUser(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := RateLimitMiddleware(1, time.Minute, setupTestLogger())(handler)

	doRequest := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
		ctx := context.WithValue(req.Context(), handlers.UserIDKey, userID)
		req = req.WithContext(ctx)

		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		return w.Code
	}

	// Лимит считается на пользователя, не на соединение
	assert.Equal(t, http.StatusOK, doRequest("user-1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest("user-1"))
	assert.Equal(t, http.StatusOK, doRequest("user-2"))
}

func TestRateLimitMiddleware_FallbackToRemoteAddr(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := RateLimitMiddleware(1, time.Minute, setupTestLogger())(handler)

	// Без user_id в контексте ключом становится адрес клиента
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w = httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
