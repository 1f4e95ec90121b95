package services

import (
	"context"

	"agromart/internal/domain"
)

// ProductStore is the product collection. Stock only changes through
// Reserve and Release after a product is created.
type ProductStore interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	// Reserve decrements stock by qty only if the product is active and
	// has at least qty left, reporting false when nothing matched.
	Reserve(ctx context.Context, id string, qty int) (bool, error)
	Release(ctx context.Context, id string, qty int) error
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	SetItem(ctx context.Context, userID, productID string, qty int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Delete(ctx context.Context, userID string) error
}

type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListLatest(ctx context.Context, limit int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, upd domain.OrderStatusUpdate) (*domain.Order, bool, error)
}

type UserStore interface {
	ByID(ctx context.Context, id string) (*domain.User, error)
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateAccess(ctx context.Context, id, employeeRole string, perms []string) error
}

type SessionStore interface {
	BindSession(ctx context.Context, sid, subject string) error
	SessionSubject(ctx context.Context, sid string) (string, error)
	UnbindSession(ctx context.Context, sid string) error
}

type ApplicationStore interface {
	Register(ctx context.Context, u *domain.User, a *domain.Application) error
	Get(ctx context.Context, id string) (*domain.Application, error)
	List(ctx context.Context, kind domain.ApplicationKind, status domain.ApplicationStatus) ([]domain.Application, error)
	SetStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error)
}

type NewsStore interface {
	List(ctx context.Context, publishedOnly bool) ([]domain.NewsPost, error)
	Get(ctx context.Context, idOrSlug string) (*domain.NewsPost, error)
	Create(ctx context.Context, p *domain.NewsPost) error
	Update(ctx context.Context, p *domain.NewsPost) error
	Delete(ctx context.Context, id string) error
}

// UserResolver maps a session actor to the durable user id orders and
// carts are stored under.
type UserResolver interface {
	ResolveUserID(ctx context.Context, actor *domain.Actor) (string, error)
}
