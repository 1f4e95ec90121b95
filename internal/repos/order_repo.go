package repos

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"agromart/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	ID            string          `db:"id"`
	UserID        string          `db:"user_id"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	PaymentMethod string          `db:"payment_method"`
	PaymentStatus string          `db:"payment_status"`
	OrderStatus   string          `db:"order_status"`
	ShippingJSON  string          `db:"shipping_json"`
	CreatedAt     string          `db:"created_at"`
	UpdatedAt     string          `db:"updated_at"`
}

type orderItemRow struct {
	OrderID   string          `db:"order_id"`
	ProductID string          `db:"product_id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Qty       int             `db:"qty"`
}

func (r orderRow) toDomain(items []domain.OrderItem) domain.Order {
	o := domain.Order{
		ID:            r.ID,
		UserID:        r.UserID,
		Items:         items,
		TotalAmount:   r.TotalAmount,
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		PaymentStatus: domain.PaymentStatus(r.PaymentStatus),
		OrderStatus:   domain.OrderStatus(r.OrderStatus),
		CreatedAt:     parseStamp(r.CreatedAt),
		UpdatedAt:     parseStamp(r.UpdatedAt),
	}
	if r.ShippingJSON != "" {
		var addr domain.ShippingAddress
		if err := json.Unmarshal([]byte(r.ShippingJSON), &addr); err == nil {
			o.ShippingAddress = &addr
		}
	}
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return o
}

const orderCols = `id, user_id, total_amount, payment_method, payment_status, order_status, shipping_json, created_at, updated_at`

// Create writes the order header and its item snapshots in one transaction.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	shipping := ""
	if o.ShippingAddress != nil {
		b, err := json.Marshal(o.ShippingAddress)
		if err != nil {
			return err
		}
		shipping = string(b)
	}
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO orders(`+orderCols+`)
		  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.UserID, o.TotalAmount.StringFixed(2), string(o.PaymentMethod), string(o.PaymentStatus),
			string(o.OrderStatus), shipping, stamp(now), stamp(now)); err != nil {
			return err
		}
		for i, it := range o.Items {
			if _, err := tx.ExecContext(ctx, `
			  INSERT INTO order_items(order_id, line, product_id, name, price, qty)
			  VALUES (?, ?, ?, ?, ?, ?)`,
				o.ID, i+1, it.ProductID, it.Name, it.Price.String(), it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	orders, err := r.attachItems(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, `
	  SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID); err != nil {
		return nil, err
	}
	return r.attachItems(ctx, rows)
}

func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, `
	  SELECT `+orderCols+` FROM orders ORDER BY created_at DESC LIMIT ?`, limit); err != nil {
		return nil, err
	}
	return r.attachItems(ctx, rows)
}

func (r *OrderRepo) attachItems(ctx context.Context, rows []orderRow) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	query, args, err := sqlx.In(`
	  SELECT order_id, product_id, name, price, qty
	  FROM order_items
	  WHERE order_id IN (?)
	  ORDER BY order_id, line`, ids)
	if err != nil {
		return nil, err
	}
	var items []orderItemRow
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	byOrder := map[string][]domain.OrderItem{}
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Qty,
		})
	}
	for _, row := range rows {
		out = append(out, row.toDomain(byOrder[row.ID]))
	}
	return out, nil
}

// UpdateStatus applies upd with a single conditional UPDATE. It reports
// false when the order does not exist or upd.OnlyFrom did not match.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, upd domain.OrderStatusUpdate) (*domain.Order, bool, error) {
	sets := []string{`updated_at = ?`}
	args := []any{stamp(time.Now())}
	if upd.OrderStatus != nil {
		sets = append(sets, `order_status = ?`)
		args = append(args, string(*upd.OrderStatus))
	}
	if upd.PaymentStatus != nil {
		sets = append(sets, `payment_status = ?`)
		args = append(args, string(*upd.PaymentStatus))
	}
	query := `UPDATE orders SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if len(upd.OnlyFrom) > 0 {
		from := make([]string, len(upd.OnlyFrom))
		for i, s := range upd.OnlyFrom {
			from[i] = string(s)
		}
		q, inArgs, err := sqlx.In(` AND order_status IN (?)`, from)
		if err != nil {
			return nil, false, err
		}
		query += q
		args = append(args, inArgs...)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, false, nil
	}
	o, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}
