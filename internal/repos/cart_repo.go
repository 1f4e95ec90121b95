package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"agromart/internal/domain"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// Get returns the user's cart, or domain.ErrNotFound when none was created yet.
func (r *CartRepo) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	var updated string
	if err := r.db.GetContext(ctx, &updated, `SELECT updated_at FROM carts WHERE user_id = ?`, userID); err != nil {
		return nil, notFound(err)
	}
	items := []domain.CartItem{}
	if err := r.db.SelectContext(ctx, &items, `
	  SELECT product_id AS productid, qty AS quantity
	  FROM cart_items
	  WHERE user_id = ?
	  ORDER BY position`, userID); err != nil {
		return nil, err
	}
	return &domain.Cart{UserID: userID, Items: items, UpdatedAt: parseStamp(updated)}, nil
}

// SetItem creates the cart on first use and sets the quantity of productID,
// overwriting any previous quantity. New lines go to the end.
func (r *CartRepo) SetItem(ctx context.Context, userID, productID string, qty int) error {
	now := stamp(time.Now())
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO carts(user_id, updated_at) VALUES (?, ?)
		  ON CONFLICT(user_id) DO UPDATE SET updated_at = excluded.updated_at`, userID, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
		  INSERT INTO cart_items(user_id, product_id, qty, position)
		  VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM cart_items WHERE user_id = ?))
		  ON CONFLICT(user_id, product_id) DO UPDATE SET qty = excluded.qty`,
			userID, productID, qty, userID)
		return err
	})
}

func (r *CartRepo) RemoveItem(ctx context.Context, userID, productID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	_, err = r.db.ExecContext(ctx, `UPDATE carts SET updated_at = ? WHERE user_id = ?`, stamp(time.Now()), userID)
	return err
}

// Delete drops the whole cart. Deleting a cart that does not exist is not an error.
func (r *CartRepo) Delete(ctx context.Context, userID string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = ?`, userID)
		return err
	})
}
