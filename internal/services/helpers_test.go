package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"agromart/internal/domain"
	"agromart/internal/notify"
	"agromart/internal/repos"
)

type env struct {
	products *repos.ProductRepo
	carts    *repos.CartRepo
	orders   *repos.OrderRepo
	users    *repos.UserRepo
	apps     *repos.ApplicationRepo
	news     *repos.NewsRepo
	auth     *AuthService
	events   *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		products: repos.NewProductRepo(db),
		carts:    repos.NewCartRepo(db),
		orders:   repos.NewOrderRepo(db),
		users:    repos.NewUserRepo(db),
		apps:     repos.NewApplicationRepo(db),
		news:     repos.NewNewsRepo(db),
		events:   &recorder{},
	}
	e.auth = NewAuthService(e.users, e.users, nil, "", "", zaptest.NewLogger(t))
	e.auth.Cost = bcrypt.MinCost
	return e
}

func (e *env) orderService(t *testing.T) *OrderService {
	return NewOrderService(e.products, e.orders, e.carts, e.auth, e.events, zaptest.NewLogger(t))
}

// product creates an active product with the given stock and price.
func (e *env) product(t *testing.T, id string, stock int, price string) {
	t.Helper()
	require.NoError(t, e.products.Create(context.Background(), &domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Category: "test",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}))
}

func (e *env) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := e.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

var (
	alice = &domain.Actor{ID: "u-alice", Email: "alice@agromart.test", Name: "Alice", Role: domain.RoleUser}
	bob   = &domain.Actor{ID: "u-bob", Email: "bob@agromart.test", Name: "Bob", Role: domain.RoleUser}
	admin = &domain.Actor{ID: "u-admin", Email: "admin@agromart.test", Role: domain.RoleAdmin}
)

func employee(perms ...string) *domain.Actor {
	return &domain.Actor{ID: "u-emp", Email: "emp@agromart.test", Role: domain.RoleEmployee, Permissions: perms}
}

func cod() *domain.ShippingAddress {
	return &domain.ShippingAddress{Name: "Alice", Line1: "12 Mandi Road", City: "Karnal", Phone: "+91 98765 43210"}
}

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(e notify.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return true
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// flakyProducts wraps a real store and fails selected calls.
type flakyProducts struct {
	ProductStore
	mu          sync.Mutex
	failReserve map[string]bool
	errReserve  map[string]error
	errRelease  map[string]error
	released    map[string]int
}

func (f *flakyProducts) Reserve(ctx context.Context, id string, qty int) (bool, error) {
	if err := f.errReserve[id]; err != nil {
		return false, err
	}
	if f.failReserve[id] {
		return false, nil
	}
	return f.ProductStore.Reserve(ctx, id, qty)
}

func (f *flakyProducts) Release(ctx context.Context, id string, qty int) error {
	f.mu.Lock()
	if f.released == nil {
		f.released = map[string]int{}
	}
	f.released[id] += qty
	f.mu.Unlock()
	if err := f.errRelease[id]; err != nil {
		return err
	}
	return f.ProductStore.Release(ctx, id, qty)
}

type failingOrders struct {
	OrderStore
}

func (failingOrders) Create(context.Context, *domain.Order) error {
	return errors.New("disk full")
}

type failingCarts struct {
	CartStore
}

func (failingCarts) Delete(context.Context, string) error {
	return errors.New("cart store down")
}

type noUsers struct{}

func (noUsers) ResolveUserID(context.Context, *domain.Actor) (string, error) {
	return "", domain.ErrUserResolutionFailed
}
