package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agromart/internal/domain"
)

type cartItemDoc struct {
	ProductID string `bson:"productId"`
	Quantity  int    `bson:"quantity"`
}

type cartDoc struct {
	UserID    string        `bson:"_id"`
	Items     []cartItemDoc `bson:"items"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

type Carts struct{ c *mongo.Collection }

func (r *Carts) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	var d cartDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	cart := &domain.Cart{UserID: d.UserID, Items: make([]domain.CartItem, 0, len(d.Items)), UpdatedAt: d.UpdatedAt}
	for _, it := range d.Items {
		cart.Items = append(cart.Items, domain.CartItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return cart, nil
}

// SetItem overwrites the quantity of an existing line in place, or appends
// a new line, creating the cart on first use.
func (r *Carts) SetItem(ctx context.Context, userID, productID string, qty int) error {
	for attempt := 0; attempt < 2; attempt++ {
		t := now()
		res, err := r.c.UpdateOne(ctx,
			bson.M{"_id": userID, "items.productId": productID},
			bson.M{"$set": bson.M{"items.$.quantity": qty, "updatedAt": t}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 1 {
			return nil
		}
		_, err = r.c.UpdateOne(ctx,
			bson.M{"_id": userID, "items.productId": bson.M{"$ne": productID}},
			bson.M{
				"$push": bson.M{"items": cartItemDoc{ProductID: productID, Quantity: qty}},
				"$set":  bson.M{"updatedAt": t},
			},
			options.Update().SetUpsert(true))
		if !mongo.IsDuplicateKeyError(err) {
			return err
		}
		// another request added the same line first; overwrite it
	}
	return domain.ErrConflict
}

func (r *Carts) RemoveItem(ctx context.Context, userID, productID string) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": userID, "items.productId": productID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"productId": productID}},
			"$set":  bson.M{"updatedAt": now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Carts) Delete(ctx context.Context, userID string) error {
	_, err := r.c.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}
