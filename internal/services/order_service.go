package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"agromart/internal/authz"
	"agromart/internal/domain"
	"agromart/internal/notify"
)

type OrderService struct {
	Products ProductStore
	Orders   OrderStore
	Carts    CartStore
	Users    UserResolver
	Events   notify.Publisher
	Log      *zap.Logger
}

func NewOrderService(products ProductStore, orders OrderStore, carts CartStore, users UserResolver, events notify.Publisher, log *zap.Logger) *OrderService {
	if events == nil {
		events = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{Products: products, Orders: orders, Carts: carts, Users: users, Events: events, Log: log.Named("orders")}
}

type PlaceOrderRequest struct {
	Items           []domain.LineItem       `json:"items"`
	PaymentMethod   domain.PaymentMethod    `json:"paymentMethod"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress,omitempty"`
}

type reservation struct {
	productID string
	qty       int
}

// PlaceOrder reserves stock for every line item in input order and persists
// the order. Any failure after the first reservation gives all reserved
// stock back before the error is returned.
func (s *OrderService) PlaceOrder(ctx context.Context, actor *domain.Actor, req PlaceOrderRequest) (*domain.Order, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Items))
	seen := map[string]bool{}
	for _, it := range req.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	found, err := s.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	snapshot := make(map[string]domain.Product, len(found))
	for _, p := range found {
		snapshot[p.ID] = p
	}

	var reserved []reservation
	fail := func(err error) (*domain.Order, error) {
		s.rollback(ctx, reserved)
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		p, ok := snapshot[it.ProductID]
		if !ok || !p.IsActive {
			name := it.ProductID
			if ok {
				name = p.Name
			}
			return fail(domain.Errorf(domain.CodeProductUnavailable, "Product %s is not available", name))
		}
		if p.Stock < it.Quantity {
			return fail(domain.Errorf(domain.CodeInsufficientStock,
				"Insufficient stock for %s: requested %d, available %d", p.Name, it.Quantity, p.Stock))
		}
		ok, err := s.Products.Reserve(ctx, p.ID, it.Quantity)
		if err != nil {
			return fail(fmt.Errorf("reserving %s: %w", p.ID, err))
		}
		if !ok {
			return fail(domain.Errorf(domain.CodeStockReservationFailed,
				"Could not reserve %d of %s, stock changed while ordering", it.Quantity, p.Name))
		}
		reserved = append(reserved, reservation{productID: p.ID, qty: it.Quantity})
		// keep the snapshot honest for repeated lines of the same product
		p.Stock -= it.Quantity
		snapshot[p.ID] = p

		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
	}

	userID, err := s.Users.ResolveUserID(ctx, actor)
	if err != nil || userID == "" {
		s.Log.Warn("user resolution failed", zap.String("actor", actor.ID), zap.Error(err))
		return fail(domain.ErrUserResolutionFailed)
	}

	order := &domain.Order{
		UserID:          userID,
		Items:           items,
		TotalAmount:     domain.OrderTotal(items),
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   domain.PaymentPending,
		OrderStatus:     domain.OrderPending,
		ShippingAddress: req.ShippingAddress,
	}
	if err := s.Orders.Create(ctx, order); err != nil {
		return fail(fmt.Errorf("saving order: %w", err))
	}

	if err := s.Carts.Delete(ctx, userID); err != nil {
		s.Log.Warn("cart not cleared after order", zap.String("order_id", order.ID), zap.String("user_id", userID), zap.Error(err))
	}
	s.Events.Publish(notify.NewEvent(notify.TypeOrderCreated, order.ID, order))
	return order, nil
}

// Checkout places an order for the contents of the actor's cart.
func (s *OrderService) Checkout(ctx context.Context, actor *domain.Actor, method domain.PaymentMethod, addr *domain.ShippingAddress) (*domain.Order, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	userID, err := s.Users.ResolveUserID(ctx, actor)
	if err != nil || userID == "" {
		return nil, domain.ErrUserResolutionFailed
	}
	cart, err := s.Carts.Get(ctx, userID)
	if err != nil && domain.Code(err) != domain.CodeNotFound {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Your cart is empty")
	}
	req := PlaceOrderRequest{PaymentMethod: method, ShippingAddress: addr}
	for _, it := range cart.Items {
		req.Items = append(req.Items, domain.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return s.PlaceOrder(ctx, actor, req)
}

// checkRequest rejects malformed requests before anything is reserved.
func checkRequest(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return domain.Errorf(domain.CodeInvalidInput, "At least one line item is required")
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return domain.Errorf(domain.CodeInvalidInput, "Line item %d has no productId", i+1)
		}
		if it.Quantity < 1 {
			return domain.Errorf(domain.CodeInvalidInput, "Line item %d must have a quantity of at least 1", i+1)
		}
	}
	if !req.PaymentMethod.Valid() {
		return domain.Errorf(domain.CodeInvalidInput, "Unsupported payment method %q", req.PaymentMethod)
	}
	if req.PaymentMethod == domain.PaymentCOD && !shippingComplete(req.ShippingAddress) {
		return domain.ErrShippingInfoRequired
	}
	return nil
}

func shippingComplete(a *domain.ShippingAddress) bool {
	return a != nil &&
		strings.TrimSpace(a.Name) != "" &&
		strings.TrimSpace(a.Line1) != "" &&
		strings.TrimSpace(a.Phone) != ""
}

// rollback is best effort: every reservation is attempted even if some fail.
func (s *OrderService) rollback(ctx context.Context, reserved []reservation) {
	if len(reserved) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, r := range reserved {
		if err := s.Products.Release(ctx, r.productID, r.qty); err != nil {
			s.Log.Error("stock rollback failed",
				zap.String("product_id", r.productID), zap.Int("qty", r.qty), zap.Error(err))
		}
	}
	s.Log.Info("stock rolled back", zap.Int("reservations", len(reserved)))
}

// Get returns an order its owner or an order reader may see. Anyone else
// gets NOT_FOUND.
func (s *OrderService) Get(ctx context.Context, actor *domain.Actor, id string) (*domain.Order, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if authz.HasPermission(actor, authz.OrdersRead) || s.owns(ctx, actor, o) {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (s *OrderService) ListMine(ctx context.Context, actor *domain.Actor) ([]domain.Order, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	userID, err := s.Users.ResolveUserID(ctx, actor)
	if err != nil || userID == "" {
		return []domain.Order{}, nil
	}
	return s.Orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context, actor *domain.Actor, limit int) ([]domain.Order, error) {
	if !authz.HasAny(actor, authz.OrdersRead, authz.PaymentsRead) {
		return nil, domain.ErrUnauthorized
	}
	return s.Orders.ListLatest(ctx, limit)
}

func (s *OrderService) owns(ctx context.Context, actor *domain.Actor, o *domain.Order) bool {
	if o.UserID == actor.ID {
		return true
	}
	userID, err := s.Users.ResolveUserID(ctx, actor)
	return err == nil && userID != "" && userID == o.UserID
}

// Cancel lets the owner cancel an order that has not shipped yet. The
// status write is conditional so a concurrent shipment wins cleanly.
func (s *OrderService) Cancel(ctx context.Context, actor *domain.Actor, id string) (*domain.Order, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.owns(ctx, actor, o) {
		return nil, domain.ErrNotFound
	}
	if !o.OrderStatus.Cancellable() {
		return nil, domain.Errorf(domain.CodeOrderNotCancellable, "Order is already %s and cannot be cancelled", o.OrderStatus)
	}
	cancelled, failed := domain.OrderCancelled, domain.PaymentFailed
	updated, ok, err := s.Orders.UpdateStatus(ctx, id, domain.OrderStatusUpdate{
		OrderStatus:   &cancelled,
		PaymentStatus: &failed,
		OnlyFrom:      domain.CancellableStatuses,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrOrderNotCancellable
	}
	s.Events.Publish(notify.NewEvent(notify.TypeOrderCancelled, updated.ID, updated))
	return updated, nil
}

type OrderUpdate struct {
	OrderStatus   *string `json:"orderStatus"`
	PaymentStatus *string `json:"paymentStatus"`
}

// AdminUpdate sets either status field to any valid value. Only enum
// membership is checked; there is no transition table.
func (s *OrderService) AdminUpdate(ctx context.Context, actor *domain.Actor, id string, in OrderUpdate) (*domain.Order, error) {
	if !authz.HasPermission(actor, authz.OrdersWrite) {
		return nil, domain.ErrUnauthorized
	}
	var upd domain.OrderStatusUpdate
	if in.OrderStatus != nil {
		st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(*in.OrderStatus)))
		if !st.Valid() {
			return nil, domain.Errorf(domain.CodeInvalidInput, "Invalid orderStatus %q", *in.OrderStatus)
		}
		upd.OrderStatus = &st
	}
	if in.PaymentStatus != nil {
		ps := domain.PaymentStatus(strings.ToLower(strings.TrimSpace(*in.PaymentStatus)))
		if !ps.Valid() {
			return nil, domain.Errorf(domain.CodeInvalidInput, "Invalid paymentStatus %q", *in.PaymentStatus)
		}
		upd.PaymentStatus = &ps
	}
	if upd.OrderStatus == nil && upd.PaymentStatus == nil {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Nothing to update")
	}
	return s.applyUpdate(ctx, actor, id, upd)
}

// SetPaymentStatus is the payments desk view of AdminUpdate: it only
// touches the payment status.
func (s *OrderService) SetPaymentStatus(ctx context.Context, actor *domain.Actor, id, status string) (*domain.Order, error) {
	if !authz.HasPermission(actor, authz.PaymentsWrite) {
		return nil, domain.ErrUnauthorized
	}
	ps := domain.PaymentStatus(strings.ToLower(strings.TrimSpace(status)))
	if !ps.Valid() {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Invalid paymentStatus %q", status)
	}
	return s.applyUpdate(ctx, actor, id, domain.OrderStatusUpdate{PaymentStatus: &ps})
}

func (s *OrderService) applyUpdate(ctx context.Context, actor *domain.Actor, id string, upd domain.OrderStatusUpdate) (*domain.Order, error) {
	updated, ok, err := s.Orders.UpdateStatus(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.Log.Info("order status updated",
		zap.String("order_id", id),
		zap.String("by", actor.ID),
		zap.String("order_status", string(updated.OrderStatus)),
		zap.String("payment_status", string(updated.PaymentStatus)))
	s.Events.Publish(notify.NewEvent(notify.TypeOrderStatusUpdated, updated.ID, updated))
	return updated, nil
}
