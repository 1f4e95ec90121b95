package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"agromart/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

type productRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Category    string          `db:"category"`
	Price       decimal.Decimal `db:"price"`
	Stock       int             `db:"stock"`
	IsActive    bool            `db:"is_active"`
	VendorID    string          `db:"vendor_id"`
	CreatedAt   string          `db:"created_at"`
	UpdatedAt   string          `db:"updated_at"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Stock:       r.Stock,
		IsActive:    r.IsActive,
		VendorID:    r.VendorID,
		CreatedAt:   parseStamp(r.CreatedAt),
		UpdatedAt:   parseStamp(r.UpdatedAt),
	}
}

const productCols = `id, name, description, category, price, stock, is_active, vendor_id, created_at, updated_at`

func (r *ProductRepo) Get(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+productCols+` FROM products WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	p := row.toDomain()
	return &p, nil
}

// FindByIDs loads every existing product among ids in one query. Missing
// ids are simply absent from the result.
func (r *ProductRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+productCols+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	where := `1 = 1`
	args := []any{}
	if f.ActiveOnly {
		where += ` AND is_active = 1`
	}
	if f.Category != "" {
		where += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.VendorID != "" {
		where += ` AND vendor_id = ?`
		args = append(args, f.VendorID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, f.Offset)

	var rows []productRow
	err := r.db.SelectContext(ctx, &rows, `
	  SELECT `+productCols+`
	  FROM products
	  WHERE `+where+`
	  ORDER BY name
	  LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Categories lists the categories of active products with their counts.
func (r *ProductRepo) Categories(ctx context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT category AS name, COUNT(*) AS products
	  FROM products
	  WHERE is_active = 1 AND category != ''
	  GROUP BY category
	  ORDER BY category`)
	return out, err
}

// Create inserts p with its initial stock. This is the only write that
// sets stock directly.
func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO products(`+productCols+`)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Category, p.Price.String(), p.Stock, boolInt(p.IsActive), p.VendorID,
		stamp(now), stamp(now))
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// Update writes the descriptive fields of p. Stock is deliberately not
// part of it; see Reserve and Release.
func (r *ProductRepo) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
	  UPDATE products
	  SET name = ?, description = ?, category = ?, price = ?, is_active = ?, vendor_id = ?, updated_at = ?
	  WHERE id = ?`,
		p.Name, p.Description, p.Category, p.Price.String(), boolInt(p.IsActive), p.VendorID, stamp(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Reserve atomically subtracts qty when the product is active and has at
// least qty in stock. It reports false when no row matched.
func (r *ProductRepo) Reserve(ctx context.Context, id string, qty int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE products
	  SET stock = stock - ?, updated_at = ?
	  WHERE id = ? AND is_active = 1 AND stock >= ?`,
		qty, stamp(time.Now()), id, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release gives qty back to the product.
func (r *ProductRepo) Release(ctx context.Context, id string, qty int) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?`,
		qty, stamp(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
