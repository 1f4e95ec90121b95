package handlers_test

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"agromart/internal/domain"
	"agromart/internal/http/handlers"
)

func entry(t *testing.T, logs *observer.ObservedLogs, action string) observer.LoggedEntry {
	t.Helper()
	found := logs.FilterMessage(action).All()
	require.NotEmpty(t, found, "no %q log entry", action)
	return found[len(found)-1]
}

func TestLoginOutcomesAreLogged(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	logs := observeLogs(t)

	ta.login(t, "alice@agromart.test")
	ok := entry(t, logs, "auth.login.success")
	assert.Equal(t, zapcore.InfoLevel, ok.Level)
	assert.Equal(t, true, ok.ContextMap()["audit"])

	ta.send(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@agromart.test", "password": "nope"})
	bad := entry(t, logs, "auth.login.fail")
	assert.Equal(t, zapcore.WarnLevel, bad.Level)

	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "nope")
		}
	}
}

func TestOrderPlacementIsAudited(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	ta.product(t, "p1", 3, "45.00")
	sid := ta.login(t, "alice@agromart.test")
	logs := observeLogs(t)

	resp := ta.send(t, http.MethodPost, "/api/orders", sid, codOrder(domain.LineItem{ProductID: "p1", Quantity: 2}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	e := entry(t, logs, "order.place")
	ctx := e.ContextMap()
	assert.Equal(t, "u-alice", ctx["user_id"])
	assert.Equal(t, "/api/orders", ctx["path"])
	assert.NotEmpty(t, ctx["req_id"])
	fields, _ := ctx["fields"].(map[string]any)
	assert.Equal(t, "90.00", fields["total"])
}

func TestAdminDenialIsASecurityEvent(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	sid := ta.login(t, "bob@agromart.test")
	logs := observeLogs(t)

	ta.get(t, "/api/admin/employees", sid)
	e := entry(t, logs, "access.denied.admin")
	assert.Equal(t, zapcore.WarnLevel, e.Level)
	fields, _ := e.ContextMap()["fields"].(map[string]any)
	assert.Equal(t, "GET /api/admin/employees", fields["route"])
	assert.Equal(t, "user", fields["role"])
}

func TestAccessLogWritesOneLinePerRequest(t *testing.T) {
	var buf bytes.Buffer
	ta := newTestApp(t, handlers.Options{AccessLog: &buf})

	ta.get(t, "/healthz", "")
	ta.get(t, "/api/products", "")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
	assert.Contains(t, buf.String(), "/api/products")
}
