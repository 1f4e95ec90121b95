package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agromart/internal/http/handlers"
)

func TestLoginAttemptsAreLimited(t *testing.T) {
	ta := newTestApp(t, handlers.Options{LoginAttempts: 3})
	logs := observeLogs(t)

	creds := map[string]string{"email": "alice@agromart.test", "password": "guess"}
	for i := 0; i < 3; i++ {
		resp := ta.send(t, http.MethodPost, "/api/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}
	resp := ta.send(t, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, logs.FilterMessage("rate.login.hit").All())

	// browsing is not affected
	assert.Equal(t, http.StatusOK, ta.get(t, "/api/products", "").StatusCode)
}

func TestGlobalRequestBudget(t *testing.T) {
	ta := newTestApp(t, handlers.Options{RequestsPerMinute: 4})

	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusOK, ta.get(t, "/api/categories", "").StatusCode)
	}
	assert.Equal(t, http.StatusTooManyRequests, ta.get(t, "/api/categories", "").StatusCode)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(bytes.Repeat([]byte("A"), (1<<20)+10)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ta.app.Test(req, -1)
	// fasthttp may refuse the body before any handler runs
	if err != nil {
		assert.True(t, strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large"), err.Error())
		return
	}
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
