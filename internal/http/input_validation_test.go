package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agromart/internal/domain"
	"agromart/internal/http/handlers"
)

func TestOrderInputIsRejectedBeforeReserving(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	ta.product(t, "p1", 5, "10.00")
	sid := ta.login(t, "alice@agromart.test")

	cases := map[string]map[string]any{
		"zero quantity": codOrder(domain.LineItem{ProductID: "p1", Quantity: 0}),
		"blank product": codOrder(domain.LineItem{ProductID: " ", Quantity: 1}),
		"unknown method": {
			"items":         []domain.LineItem{{ProductID: "p1", Quantity: 1}},
			"paymentMethod": "barter",
		},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := ta.send(t, http.MethodPost, "/api/orders", sid, body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, domain.CodeInvalidInput, decode[map[string]string](t, resp)["code"])
			assert.Equal(t, 5, ta.stock(t, "p1"))
		})
	}
}

func TestUnavailableProductsCannotBeOrdered(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	sid := ta.login(t, "alice@agromart.test")

	for _, id := range []string{"tool-sickle-old", "no-such-product"} {
		resp := ta.send(t, http.MethodPost, "/api/orders", sid, codOrder(domain.LineItem{ProductID: id, Quantity: 1}))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
		assert.Equal(t, domain.CodeProductUnavailable, decode[map[string]string](t, resp)["code"])
	}
}

func TestCartInputValidation(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	sid := ta.login(t, "alice@agromart.test")

	resp := ta.send(t, http.MethodPost, "/api/cart", sid, map[string]any{"productId": "../etc/passwd", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ta.send(t, http.MethodPost, "/api/cart", sid, map[string]any{"productId": "fert-urea-45", "quantity": 5000})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ta.send(t, http.MethodPost, "/api/cart", sid, map[string]any{"productId": "tool-sickle-old", "quantity": 1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.CodeProductUnavailable, decode[map[string]string](t, resp)["code"])

	resp = ta.send(t, http.MethodPost, "/api/cart", "", map[string]any{"productId": "fert-urea-45", "quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCatalogQueryValidation(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})

	resp := ta.get(t, "/api/products?category="+strings.Repeat("x", 41), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ta.get(t, "/api/products?category=seeds", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, p := range decode[[]domain.Product](t, resp) {
		assert.Equal(t, "seeds", p.Category)
		assert.True(t, p.IsActive)
	}
}

func TestApplicationInputValidation(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})

	resp := ta.send(t, http.MethodPost, "/api/applications", "", map[string]string{
		"kind":         "wholesaler",
		"email":        "a@b.test",
		"name":         "A",
		"password":     "Str0ng!pass",
		"businessName": "B",
		"phone":        "+919800000000",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ta.send(t, http.MethodPost, "/api/applications", "", map[string]string{
		"kind":         "distributor",
		"email":        "a@b.test",
		"name":         "A",
		"password":     "Str0ng!pass",
		"businessName": "B",
		"phone":        "call me",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
