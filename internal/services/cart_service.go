package services

import (
	"context"

	"github.com/shopspring/decimal"

	"agromart/internal/domain"
	"agromart/internal/validate"
)

type CartService struct {
	Carts CartStore
	Prods ProductStore
	Users UserResolver
}

func NewCartService(carts CartStore, prods ProductStore, users UserResolver) *CartService {
	return &CartService{Carts: carts, Prods: prods, Users: users}
}

func (s *CartService) owner(ctx context.Context, actor *domain.Actor) (string, error) {
	if actor == nil {
		return "", domain.ErrUnauthenticated
	}
	id, err := s.Users.ResolveUserID(ctx, actor)
	if err != nil || id == "" {
		return "", domain.ErrUserResolutionFailed
	}
	return id, nil
}

// Add puts productID in the cart with quantity qty. Adding a product that
// is already there replaces its quantity.
func (s *CartService) Add(ctx context.Context, actor *domain.Actor, productID string, qty int) error {
	userID, err := s.owner(ctx, actor)
	if err != nil {
		return err
	}
	if qty < 1 || qty > validate.MaxQty {
		return domain.Errorf(domain.CodeInvalidInput, "Quantity must be between 1 and %d", validate.MaxQty)
	}
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		if domain.Code(err) == domain.CodeNotFound {
			return domain.ErrProductUnavailable
		}
		return err
	}
	if !p.Purchasable() {
		return domain.Errorf(domain.CodeProductUnavailable, "Product %s is not available", p.Name)
	}
	return s.Carts.SetItem(ctx, userID, productID, qty)
}

func (s *CartService) Remove(ctx context.Context, actor *domain.Actor, productID string) error {
	userID, err := s.owner(ctx, actor)
	if err != nil {
		return err
	}
	return s.Carts.RemoveItem(ctx, userID, productID)
}

func (s *CartService) Clear(ctx context.Context, actor *domain.Actor) error {
	userID, err := s.owner(ctx, actor)
	if err != nil {
		return err
	}
	return s.Carts.Delete(ctx, userID)
}

type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Available bool            `json:"available"`
}

type CartView struct {
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// View prices the cart with current product prices. Lines whose product
// went away or was deactivated stay visible but do not count to the total.
func (s *CartService) View(ctx context.Context, actor *domain.Actor) (CartView, error) {
	view := CartView{Items: []CartLine{}, Total: decimal.Zero}
	userID, err := s.owner(ctx, actor)
	if err != nil {
		return view, err
	}
	cart, err := s.Carts.Get(ctx, userID)
	if domain.Code(err) == domain.CodeNotFound {
		return view, nil
	}
	if err != nil {
		return view, err
	}
	ids := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	prods, err := s.Prods.FindByIDs(ctx, ids)
	if err != nil {
		return view, err
	}
	byID := make(map[string]domain.Product, len(prods))
	for _, p := range prods {
		byID[p.ID] = p
	}
	for _, it := range cart.Items {
		line := CartLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: decimal.Zero, Subtotal: decimal.Zero}
		if p, ok := byID[it.ProductID]; ok {
			line.Name = p.Name
			line.Price = p.Price
			line.Available = p.IsActive && p.Stock >= it.Quantity
			if p.IsActive {
				line.Subtotal = p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
				view.Total = view.Total.Add(line.Subtotal)
			}
		}
		view.Items = append(view.Items, line)
	}
	view.Total = view.Total.Round(2)
	return view, nil
}
