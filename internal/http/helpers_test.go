package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"agromart/internal/auth"
	"agromart/internal/domain"
	"agromart/internal/http/handlers"
	applog "agromart/internal/log"
	"agromart/internal/notify"
	"agromart/internal/repos"
	"agromart/internal/seed"
	"agromart/internal/services"
)

const (
	rootEmail    = "root@agromart.test"
	rootPassword = "R00t!pass"
	testSecret   = "test-secret-test-secret-test-secret"
)

type testApp struct {
	app      *fiber.App
	products *repos.ProductRepo
	orders   *repos.OrderRepo
	users    *repos.UserRepo
	auth     *services.AuthService
}

func newTestApp(t *testing.T, opts handlers.Options) *testApp {
	t.Helper()
	if opts.LoginAttempts == 0 {
		opts.LoginAttempts = 50
	}
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repos.NewUserRepo(db)
	authSvc := services.NewAuthService(users, users, auth.NewTokens(testSecret, time.Hour), rootEmail, rootPassword, zap.NewNop())
	authSvc.Cost = bcrypt.MinCost
	require.NoError(t, authSvc.EnsureAdminUser(context.Background()))

	ta := &testApp{
		products: repos.NewProductRepo(db),
		orders:   repos.NewOrderRepo(db),
		users:    users,
		auth:     authSvc,
	}
	st := handlers.Stores{
		Products:     ta.products,
		Carts:        repos.NewCartRepo(db),
		Orders:       ta.orders,
		Users:        users,
		Sessions:     users,
		Applications: repos.NewApplicationRepo(db),
		News:         repos.NewNewsRepo(db),
	}
	ta.app = handlers.NewApp(handlers.NewDeps(st, authSvc, notify.Discard{}, zap.NewNop(), false), opts)
	return ta
}

// observeLogs routes the request log helpers into an in-memory core for
// the rest of the test.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	applog.SetLogger(zap.New(core))
	t.Cleanup(func() { applog.SetLogger(nil) })
	return logs
}

type call struct {
	method  string
	path    string
	body    any
	sid     string
	token   string
	headers map[string]string
	cookies []*http.Cookie
}

func (ta *testApp) do(t *testing.T, c call) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: c.sid})
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ta *testApp) get(t *testing.T, path, sid string) *http.Response {
	return ta.do(t, call{method: http.MethodGet, path: path, sid: sid})
}

func (ta *testApp) send(t *testing.T, method, path, sid string, body any) *http.Response {
	return ta.do(t, call{method: method, path: path, sid: sid, body: body})
}

// login signs in with the demo password unless another is given and
// returns the new session id.
func (ta *testApp) login(t *testing.T, email string, password ...string) string {
	t.Helper()
	pw := seed.Password
	if len(password) > 0 {
		pw = password[0]
	}
	resp := ta.send(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": pw})
	require.Equal(t, http.StatusOK, resp.StatusCode, readBody(t, resp))
	sid := cookie(resp, "sid")
	require.NotEmpty(t, sid)
	return sid
}

func cookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func message(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decode[map[string]any](t, resp)["message"].(string)
}

// product adds an active product with the given stock and price.
func (ta *testApp) product(t *testing.T, id string, stock int, price string) {
	t.Helper()
	require.NoError(t, ta.products.Create(context.Background(), &domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Category: "test",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}))
}

func (ta *testApp) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := ta.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func codOrder(items ...domain.LineItem) map[string]any {
	return map[string]any{
		"items":         items,
		"paymentMethod": "cod",
		"shippingAddress": domain.ShippingAddress{
			Name:  "Alice",
			Line1: "Plot 12, Mandi Road",
			City:  "Karnal",
			Phone: "+919812345678",
		},
	}
}
