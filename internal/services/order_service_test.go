package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"agromart/internal/domain"
	"agromart/internal/notify"
)

func items(pairs ...any) []domain.LineItem {
	var out []domain.LineItem
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.LineItem{ProductID: pairs[i].(string), Quantity: pairs[i+1].(int)})
	}
	return out
}

func TestPlaceOrderReservesStockAndTotals(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, alice, PlaceOrderRequest{Items: items("p1", 3), PaymentMethod: domain.PaymentCard})
	require.NoError(t, err)
	assert.Equal(t, "30.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, domain.OrderPending, o.OrderStatus)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.Equal(t, "u-alice", o.UserID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Product p1", o.Items[0].Name)
	assert.Equal(t, 2, e.stock(t, "p1"))
	assert.Equal(t, []string{notify.TypeOrderCreated}, e.events.types())

	_, err = svc.PlaceOrder(ctx, alice, PlaceOrderRequest{Items: items("p1", 3), PaymentMethod: domain.PaymentCard})
	require.Error(t, err)
	assert.Equal(t, domain.CodeInsufficientStock, domain.Code(err))
	assert.Contains(t, err.Error(), "Product p1")
	assert.Equal(t, 2, e.stock(t, "p1"))

	stored, err := e.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", stored.TotalAmount.StringFixed(2))
}

func TestPlaceOrderTotalOverSeveralLines(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 10, "10.00")
	e.product(t, "p2", 10, "2.55")
	e.product(t, "p3", 10, "0.10")

	o, err := e.orderService(t).PlaceOrder(context.Background(), alice, PlaceOrderRequest{
		Items:         items("p1", 2, "p2", 3, "p3", 7),
		PaymentMethod: domain.PaymentUPI,
	})
	require.NoError(t, err)
	assert.Equal(t, "28.35", o.TotalAmount.StringFixed(2))
	for _, it := range o.Items {
		assert.Equal(t, 10-it.Quantity, e.stock(t, it.ProductID))
	}
}

func TestPlaceOrderRejectsBadInputBeforeReserving(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)

	cases := []struct {
		name string
		req  PlaceOrderRequest
		code string
	}{
		{"no items", PlaceOrderRequest{PaymentMethod: domain.PaymentCard}, domain.CodeInvalidInput},
		{"zero quantity", PlaceOrderRequest{Items: items("p1", 0), PaymentMethod: domain.PaymentCard}, domain.CodeInvalidInput},
		{"blank product", PlaceOrderRequest{Items: items(" ", 1), PaymentMethod: domain.PaymentCard}, domain.CodeInvalidInput},
		{"unknown payment method", PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: "barter"}, domain.CodeInvalidInput},
		{"cod without address", PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: domain.PaymentCOD}, domain.CodeShippingInfoRequired},
		{"cod without phone", PlaceOrderRequest{
			Items:           items("p1", 1),
			PaymentMethod:   domain.PaymentCOD,
			ShippingAddress: &domain.ShippingAddress{Name: "Alice", Line1: "12 Mandi Road"},
		}, domain.CodeShippingInfoRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), alice, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, domain.Code(err))
			assert.Equal(t, 5, e.stock(t, "p1"))
		})
	}
	assert.Empty(t, e.events.types())
}

func TestPlaceOrderCODWithAddress(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")

	o, err := e.orderService(t).PlaceOrder(context.Background(), alice, PlaceOrderRequest{
		Items: items("p1", 1), PaymentMethod: domain.PaymentCOD, ShippingAddress: cod(),
	})
	require.NoError(t, err)
	stored, err := e.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ShippingAddress)
	assert.Equal(t, "12 Mandi Road", stored.ShippingAddress.Line1)
}

func TestPlaceOrderRequiresActor(t *testing.T) {
	e := newEnv(t)
	_, err := e.orderService(t).PlaceOrder(context.Background(), nil, PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: domain.PaymentCard})
	assert.Equal(t, domain.CodeUnauthenticated, domain.Code(err))
}

func TestPlaceOrderUnavailableProductReleasesEarlierLines(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)

	for _, missing := range []string{"no-such-product", "tool-sickle-old"} {
		_, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{
			Items: items("p1", 2, missing, 1), PaymentMethod: domain.PaymentCard,
		})
		require.Error(t, err)
		assert.Equal(t, domain.CodeProductUnavailable, domain.Code(err), missing)
		assert.Equal(t, 5, e.stock(t, "p1"), missing)
	}
	// inactive seed product keeps its stock too
	assert.Equal(t, 12, e.stock(t, "tool-sickle-old"))
}

func TestPlaceOrderRollsBackWhenReservationLosesRace(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	e.product(t, "p2", 5, "10.00")
	prods := &flakyProducts{ProductStore: e.products, failReserve: map[string]bool{"p2": true}}
	svc := NewOrderService(prods, e.orders, e.carts, e.auth, e.events, zaptest.NewLogger(t))

	_, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{
		Items: items("p1", 2, "p2", 1), PaymentMethod: domain.PaymentCard,
	})
	require.Error(t, err)
	assert.Equal(t, domain.CodeStockReservationFailed, domain.Code(err))
	assert.Equal(t, 5, e.stock(t, "p1"))
	assert.Equal(t, 5, e.stock(t, "p2"))
	assert.Equal(t, map[string]int{"p1": 2}, prods.released)
}

func TestPlaceOrderRollsBackWhenSaveFails(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	e.product(t, "p2", 5, "4.00")
	svc := NewOrderService(e.products, failingOrders{e.orders}, e.carts, e.auth, e.events, zaptest.NewLogger(t))

	_, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{
		Items: items("p1", 2, "p2", 5), PaymentMethod: domain.PaymentCard,
	})
	require.Error(t, err)
	assert.Equal(t, 5, e.stock(t, "p1"))
	assert.Equal(t, 5, e.stock(t, "p2"))
	assert.Empty(t, e.events.types())
}

func TestPlaceOrderRollsBackWhenUserCannotBeResolved(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := NewOrderService(e.products, e.orders, e.carts, noUsers{}, e.events, zaptest.NewLogger(t))

	_, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{Items: items("p1", 4), PaymentMethod: domain.PaymentCard})
	require.Error(t, err)
	assert.Equal(t, domain.CodeUserResolutionFailed, domain.Code(err))
	assert.Equal(t, 5, e.stock(t, "p1"))
}

func TestRollbackKeepsGoingPastReleaseErrors(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	e.product(t, "p2", 5, "10.00")
	e.product(t, "p3", 5, "10.00")
	prods := &flakyProducts{
		ProductStore: e.products,
		failReserve:  map[string]bool{"p3": true},
		errRelease:   map[string]error{"p1": errors.New("connection reset")},
	}
	svc := NewOrderService(prods, e.orders, e.carts, e.auth, e.events, zaptest.NewLogger(t))

	_, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{
		Items: items("p1", 1, "p2", 2, "p3", 1), PaymentMethod: domain.PaymentCard,
	})
	require.Error(t, err)
	assert.Equal(t, domain.CodeStockReservationFailed, domain.Code(err))
	assert.Equal(t, map[string]int{"p1": 1, "p2": 2}, prods.released)
	assert.Equal(t, 4, e.stock(t, "p1"))
	assert.Equal(t, 5, e.stock(t, "p2"))
}

type cancellingOrders struct {
	OrderStore
	cancel context.CancelFunc
}

func (c cancellingOrders) Create(ctx context.Context, _ *domain.Order) error {
	c.cancel()
	return ctx.Err()
}

func TestRollbackRunsAfterCallerCancels(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := NewOrderService(e.products, cancellingOrders{e.orders, cancel}, e.carts, e.auth, e.events, zaptest.NewLogger(t))

	_, err := svc.PlaceOrder(ctx, alice, PlaceOrderRequest{Items: items("p1", 3), PaymentMethod: domain.PaymentCard})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, e.stock(t, "p1"))
}

func TestRepeatedLinesReserveSeparately(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)

	_, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{
		Items: items("p1", 3, "p1", 3), PaymentMethod: domain.PaymentCard,
	})
	require.Error(t, err)
	assert.Equal(t, domain.CodeInsufficientStock, domain.Code(err))
	assert.Equal(t, 5, e.stock(t, "p1"))

	o, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{
		Items: items("p1", 2, "p1", 3), PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, "50.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, 0, e.stock(t, "p1"))
}

func TestPlaceOrderClearsCart(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	ctx := context.Background()
	require.NoError(t, e.carts.SetItem(ctx, "u-alice", "p1", 1))

	_, err := e.orderService(t).PlaceOrder(ctx, alice, PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: domain.PaymentCard})
	require.NoError(t, err)
	_, err = e.carts.Get(ctx, "u-alice")
	assert.Equal(t, domain.CodeNotFound, domain.Code(err))
}

func TestCartCleanupFailureDoesNotFailOrder(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := NewOrderService(e.products, e.orders, failingCarts{e.carts}, e.auth, e.events, zaptest.NewLogger(t))

	o, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: domain.PaymentCard})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, 4, e.stock(t, "p1"))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)

	const buyers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		failure = map[string]int{}
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), alice, PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: domain.PaymentCard})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				placed++
				return
			}
			failure[domain.Code(err)]++
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	assert.Equal(t, 0, e.stock(t, "p1"))
	assert.Equal(t, buyers-5, failure[domain.CodeInsufficientStock]+failure[domain.CodeStockReservationFailed])
}

func TestEnvAdminOrdersUnderResolvedUser(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	ctx := context.Background()
	auth := NewAuthService(e.users, e.users, nil, "root@agromart.test", "R00t!pass", zaptest.NewLogger(t))
	auth.Cost = bcrypt.MinCost
	svc := NewOrderService(e.products, e.orders, e.carts, auth, e.events, zaptest.NewLogger(t))

	actor, err := auth.Login(ctx, "sid-1", "root@agromart.test", "R00t!pass")
	require.NoError(t, err)
	assert.Equal(t, EnvAdminSubject, actor.ID)

	_, err = svc.PlaceOrder(ctx, actor, PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: domain.PaymentCard})
	assert.Equal(t, domain.CodeUserResolutionFailed, domain.Code(err))
	assert.Equal(t, 5, e.stock(t, "p1"))

	require.NoError(t, auth.EnsureAdminUser(ctx))
	row, err := e.users.ByEmail(ctx, "root@agromart.test")
	require.NoError(t, err)

	o, err := svc.PlaceOrder(ctx, actor, PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: domain.PaymentCard})
	require.NoError(t, err)
	assert.Equal(t, row.ID, o.UserID)
	assert.NotEqual(t, EnvAdminSubject, o.UserID)
}

func TestCheckoutUsesCart(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	e.product(t, "p2", 5, "1.50")
	ctx := context.Background()
	svc := e.orderService(t)

	_, err := svc.Checkout(ctx, alice, domain.PaymentCard, nil)
	assert.Equal(t, domain.CodeInvalidInput, domain.Code(err))

	require.NoError(t, e.carts.SetItem(ctx, "u-alice", "p1", 2))
	require.NoError(t, e.carts.SetItem(ctx, "u-alice", "p2", 2))
	o, err := svc.Checkout(ctx, alice, domain.PaymentCard, nil)
	require.NoError(t, err)
	assert.Equal(t, "23.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, "p1", o.Items[0].ProductID)
	assert.Equal(t, 3, e.stock(t, "p1"))
}

func placeOne(t *testing.T, e *env, svc *OrderService, actor *domain.Actor) *domain.Order {
	t.Helper()
	o, err := svc.PlaceOrder(context.Background(), actor, PlaceOrderRequest{Items: items("p1", 1), PaymentMethod: domain.PaymentCard})
	require.NoError(t, err)
	return o
}

func TestOwnerCancelsPendingOrder(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)
	o := placeOne(t, e, svc, alice)

	got, err := svc.Cancel(context.Background(), alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.OrderStatus)
	assert.Equal(t, domain.PaymentFailed, got.PaymentStatus)
	// cancellation does not restock
	assert.Equal(t, 4, e.stock(t, "p1"))

	_, err = svc.Cancel(context.Background(), alice, o.ID)
	assert.Equal(t, domain.CodeOrderNotCancellable, domain.Code(err))
	assert.Contains(t, e.events.types(), notify.TypeOrderCancelled)
}

func TestShippedOrderCannotBeCancelledByOwner(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)
	ctx := context.Background()
	o := placeOne(t, e, svc, alice)

	for _, st := range []string{"shipped", "delivered"} {
		_, err := svc.AdminUpdate(ctx, admin, o.ID, OrderUpdate{OrderStatus: &st})
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, alice, o.ID)
		require.Error(t, err)
		assert.Equal(t, domain.CodeOrderNotCancellable, domain.Code(err), st)

		got, err := e.orders.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatus(st), got.OrderStatus)
	}

	// the admin path has no transition table
	cancelled := "cancelled"
	got, err := svc.AdminUpdate(ctx, admin, o.ID, OrderUpdate{OrderStatus: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.OrderStatus)
}

func TestCancelByStrangerLooksMissing(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)
	o := placeOne(t, e, svc, alice)

	_, err := svc.Cancel(context.Background(), bob, o.ID)
	assert.Equal(t, domain.CodeNotFound, domain.Code(err))
	_, err = svc.Cancel(context.Background(), alice, "no-such-order")
	assert.Equal(t, domain.CodeNotFound, domain.Code(err))
	_, err = svc.Cancel(context.Background(), nil, o.ID)
	assert.Equal(t, domain.CodeUnauthenticated, domain.Code(err))
}

func TestAdminUpdate(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)
	ctx := context.Background()
	o := placeOne(t, e, svc, alice)

	bad := "teleported"
	_, err := svc.AdminUpdate(ctx, admin, o.ID, OrderUpdate{OrderStatus: &bad})
	assert.Equal(t, domain.CodeInvalidInput, domain.Code(err))
	_, err = svc.AdminUpdate(ctx, admin, o.ID, OrderUpdate{PaymentStatus: &bad})
	assert.Equal(t, domain.CodeInvalidInput, domain.Code(err))
	_, err = svc.AdminUpdate(ctx, admin, o.ID, OrderUpdate{})
	assert.Equal(t, domain.CodeInvalidInput, domain.Code(err))

	paid := "paid"
	_, err = svc.AdminUpdate(ctx, employee("payments:read", "payments:write"), o.ID, OrderUpdate{PaymentStatus: &paid})
	assert.Equal(t, domain.CodeUnauthorized, domain.Code(err))
	_, err = svc.AdminUpdate(ctx, alice, o.ID, OrderUpdate{PaymentStatus: &paid})
	assert.Equal(t, domain.CodeUnauthorized, domain.Code(err))

	got, err := svc.AdminUpdate(ctx, employee("orders:write"), o.ID, OrderUpdate{PaymentStatus: &paid})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, domain.OrderPending, got.OrderStatus)

	_, err = svc.AdminUpdate(ctx, admin, "no-such-order", OrderUpdate{PaymentStatus: &paid})
	assert.Equal(t, domain.CodeNotFound, domain.Code(err))
	assert.Contains(t, e.events.types(), notify.TypeOrderStatusUpdated)
}

func TestOrderReads(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)
	ctx := context.Background()
	o := placeOne(t, e, svc, alice)

	_, err := svc.Get(ctx, alice, o.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, bob, o.ID)
	assert.Equal(t, domain.CodeNotFound, domain.Code(err))
	_, err = svc.Get(ctx, employee("orders:read"), o.ID)
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := svc.ListMine(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	_, err = svc.ListAll(ctx, employee("news:read"), 10)
	assert.Equal(t, domain.CodeUnauthorized, domain.Code(err))
	all, err := svc.ListAll(ctx, employee("payments:read"), 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSetPaymentStatusNeedsPaymentsWrite(t *testing.T) {
	e := newEnv(t)
	e.product(t, "p1", 5, "10.00")
	svc := e.orderService(t)
	ctx := context.Background()
	o := placeOne(t, e, svc, alice)

	_, err := svc.SetPaymentStatus(ctx, employee("orders:write"), o.ID, "paid")
	assert.Equal(t, domain.CodeUnauthorized, domain.Code(err))
	_, err = svc.SetPaymentStatus(ctx, employee("payments:write"), o.ID, "refunded")
	assert.Equal(t, domain.CodeInvalidInput, domain.Code(err))

	got, err := svc.SetPaymentStatus(ctx, employee("payments:write"), o.ID, "PAID")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, domain.OrderPending, got.OrderStatus)
}
