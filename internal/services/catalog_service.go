package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"agromart/internal/authz"
	"agromart/internal/domain"
	"agromart/internal/validate"
)

type CatalogService struct {
	Prods ProductStore
	Log   *zap.Logger
}

func NewCatalogService(prods ProductStore, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{Prods: prods, Log: log.Named("catalog")}
}

// Browse lists active products, optionally within one category.
func (s *CatalogService) Browse(ctx context.Context, category string, limit, offset int) ([]domain.Product, error) {
	return s.Prods.List(ctx, domain.ProductFilter{
		Category:   strings.ToLower(strings.TrimSpace(category)),
		ActiveOnly: true,
		Limit:      limit,
		Offset:     offset,
	})
}

// Product returns an active product. Inactive ones are hidden from the
// storefront and answer NOT_FOUND.
func (s *CatalogService) Product(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.Prods.Categories(ctx)
}

// ListAll is the back office listing, inactive products included. Vendors
// only see their own products.
func (s *CatalogService) ListAll(ctx context.Context, actor *domain.Actor, f domain.ProductFilter) ([]domain.Product, error) {
	switch {
	case authz.HasAny(actor, authz.ProductsRead, authz.ProductsWrite):
	case actor != nil && actor.Role == domain.RoleVendor:
		f.VendorID = actor.ID
	default:
		return nil, domain.ErrUnauthorized
	}
	return s.Prods.List(ctx, f)
}

type ProductInput struct {
	ID          string `json:"id" validate:"omitempty,rid"`
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"required,max=40"`
	Price       string `json:"price" validate:"required"`
	Stock       int    `json:"stock" validate:"min=0"`
	IsActive    *bool  `json:"isActive"`
}

var maxPrice = decimal.RequireFromString("10000000")

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || price.IsNegative() || price.Exponent() < -2 {
		return decimal.Zero, domain.Errorf(domain.CodeInvalidInput, "Price must be a non-negative amount with at most 2 decimals")
	}
	if price.GreaterThan(maxPrice) {
		return decimal.Zero, domain.Errorf(domain.CodeInvalidInput, "Price must not exceed %s", maxPrice.String())
	}
	return price, nil
}

func canEditProduct(actor *domain.Actor, p *domain.Product) bool {
	if authz.HasPermission(actor, authz.ProductsWrite) {
		return true
	}
	return actor != nil && actor.Role == domain.RoleVendor && (p == nil || p.VendorID == actor.ID)
}

// Create adds a product. Vendors may create products; they are recorded
// as the product's vendor.
func (s *CatalogService) Create(ctx context.Context, actor *domain.Actor, in ProductInput) (*domain.Product, error) {
	if !canEditProduct(actor, nil) {
		return nil, domain.ErrUnauthorized
	}
	if err := validate.Struct(in); err != nil {
		return nil, domain.NewDomainError(domain.CodeInvalidInput, err.Error())
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	p := &domain.Product{
		ID:          in.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Price:       price,
		Stock:       in.Stock,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if actor.Role == domain.RoleVendor {
		p.VendorID = actor.ID
	}
	if err := s.Prods.Create(ctx, p); err != nil {
		if domain.Code(err) == domain.CodeConflict {
			return nil, domain.Errorf(domain.CodeConflict, "A product with id %q already exists", p.ID)
		}
		return nil, err
	}
	s.Log.Info("product created", zap.String("product_id", p.ID), zap.String("by", actor.ID))
	return p, nil
}

// Update changes the descriptive fields and price. Stock is not part of
// it; see AdjustStock.
func (s *CatalogService) Update(ctx context.Context, actor *domain.Actor, id string, in ProductInput) (*domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEditProduct(actor, p) {
		return nil, domain.ErrUnauthorized
	}
	if err := validate.Struct(in); err != nil {
		return nil, domain.NewDomainError(domain.CodeInvalidInput, err.Error())
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.ToLower(strings.TrimSpace(in.Category))
	p.Price = price
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.Prods.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) SetActive(ctx context.Context, actor *domain.Actor, id string, active bool) (*domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEditProduct(actor, p) {
		return nil, domain.ErrUnauthorized
	}
	p.IsActive = active
	if err := s.Prods.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AdjustStock adds (delta > 0) or removes (delta < 0) stock through the
// same conditional primitives orders use, so an adjustment can never take
// stock below zero or race an order into overselling.
func (s *CatalogService) AdjustStock(ctx context.Context, actor *domain.Actor, id string, delta int) (*domain.Product, error) {
	if !authz.HasPermission(actor, authz.ProductsWrite) {
		return nil, domain.ErrUnauthorized
	}
	if delta == 0 {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Stock delta must not be zero")
	}
	if delta > 0 {
		if err := s.Prods.Release(ctx, id, delta); err != nil {
			return nil, err
		}
	} else {
		ok, err := s.Prods.Reserve(ctx, id, -delta)
		if err != nil {
			return nil, err
		}
		if !ok {
			if _, err := s.Prods.Get(ctx, id); err != nil {
				return nil, err
			}
			return nil, domain.Errorf(domain.CodeInsufficientStock, "Cannot remove %d units, not enough active stock", -delta)
		}
	}
	s.Log.Info("stock adjusted", zap.String("product_id", id), zap.Int("delta", delta), zap.String("by", actor.ID))
	return s.Prods.Get(ctx, id)
}
