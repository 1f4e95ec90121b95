package mongostore

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agromart/internal/domain"
)

// openTestStore connects to MONGODB_TEST_URI, which must point at a replica
// set. Each test gets its own database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	name := "agromart_test_" + uuid.NewString()[:8]
	s := New(client, name)
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	require.NoError(t, s.EnsureIndexes(ctx))
	require.NoError(t, s.SeedIfEmpty(ctx))
	return s
}

func TestMongoReserveNeverOversells(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	products := s.Products()

	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := products.Reserve(ctx, "tool-sprayer-16l", 1)
			if err == nil && ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 8, won.Load())
	p, err := products.Get(ctx, "tool-sprayer-16l")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	ok, err := products.Reserve(ctx, "tool-sickle-old", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMongoCartKeepsOneLinePerProduct(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	carts := s.Carts()

	require.NoError(t, carts.SetItem(ctx, "u-alice", "fert-urea-45", 2))
	require.NoError(t, carts.SetItem(ctx, "u-alice", "seed-wheat-hd2967", 1))
	require.NoError(t, carts.SetItem(ctx, "u-alice", "fert-urea-45", 5))

	cart, err := carts.Get(ctx, "u-alice")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, domain.CartItem{ProductID: "fert-urea-45", Quantity: 5}, cart.Items[0])

	require.NoError(t, carts.RemoveItem(ctx, "u-alice", "fert-urea-45"))
	assert.ErrorIs(t, carts.RemoveItem(ctx, "u-alice", "fert-urea-45"), domain.ErrNotFound)
	require.NoError(t, carts.Delete(ctx, "u-alice"))
	_, err = carts.Get(ctx, "u-alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMongoOrderStatusGuard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	orders := s.Orders()

	o := &domain.Order{UserID: "u-bob", PaymentMethod: domain.PaymentCard, PaymentStatus: domain.PaymentPending, OrderStatus: domain.OrderShipped}
	require.NoError(t, orders.Create(ctx, o))

	cancelled := domain.OrderCancelled
	_, ok, err := orders.UpdateStatus(ctx, o.ID, domain.OrderStatusUpdate{OrderStatus: &cancelled, OnlyFrom: domain.CancellableStatuses})
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := orders.UpdateStatus(ctx, o.ID, domain.OrderStatusUpdate{OrderStatus: &cancelled})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.OrderCancelled, got.OrderStatus)

	mine, err := orders.ListByUser(ctx, "u-bob")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestMongoApplicationLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	apps := s.Applications()
	users := s.Users()

	u := &domain.User{Email: "Farm@Supply.test", Name: "Farm Supply", Hash: "x", Role: domain.RoleVendor}
	a := &domain.Application{Kind: domain.KindVendor, BusinessName: "Farm Supply", Phone: "+919811111111", Status: domain.ApplicationPending}
	require.NoError(t, apps.Register(ctx, u, a))

	dup := &domain.User{Email: "farm@supply.test", Name: "Again", Hash: "x", Role: domain.RoleVendor}
	err := apps.Register(ctx, dup, &domain.Application{Kind: domain.KindVendor, Status: domain.ApplicationPending})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = apps.SetStatus(ctx, a.ID, domain.ApplicationApproved)
	require.NoError(t, err)
	got, err := users.ByEmail(ctx, "farm@supply.test")
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	pending, err := apps.List(ctx, domain.KindVendor, domain.ApplicationPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMongoSessionsAndNews(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	users := s.Users()

	require.NoError(t, users.BindSession(ctx, "sid-1", "u-alice"))
	sub, err := users.SessionSubject(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "u-alice", sub)
	require.NoError(t, users.UnbindSession(ctx, "sid-1"))
	_, err = users.SessionSubject(ctx, "sid-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	news := s.News()
	p, err := news.Get(ctx, "kharif-sowing-advisory")
	require.NoError(t, err)
	assert.Equal(t, "news-kharif", p.ID)
	published, err := news.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, published, 1)
	assert.ErrorIs(t, news.Create(ctx, &domain.NewsPost{Title: "x", Slug: "subsidy-update"}), domain.ErrConflict)
}
