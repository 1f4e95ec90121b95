package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agromart/internal/domain"
)

type productDoc struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Category    string               `bson:"category"`
	Price       primitive.Decimal128 `bson:"price"`
	Stock       int                  `bson:"stock"`
	IsActive    bool                 `bson:"isActive"`
	VendorID    string               `bson:"vendorId"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d productDoc) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Price:       fromDecimal128(d.Price),
		Stock:       d.Stock,
		IsActive:    d.IsActive,
		VendorID:    d.VendorID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type Products struct{ c *mongo.Collection }

func (r *Products) Get(ctx context.Context, id string) (*domain.Product, error) {
	var d productDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	p := d.toDomain()
	return &p, nil
}

func (r *Products) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

func (r *Products) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Product, error) {
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func productFilter(f domain.ProductFilter) bson.M {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.VendorID != "" {
		filter["vendorId"] = f.VendorID
	}
	return filter
}

func (r *Products) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	limit := int64(f.Limit)
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(limit).
		SetSkip(int64(f.Offset))
	return r.find(ctx, productFilter(f), opts)
}

func (r *Products) Categories(ctx context.Context) ([]domain.Category, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true, "category": bson.M{"$ne": ""}}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "products": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Name     string `bson:"_id"`
		Products int    `bson:"products"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Category{Name: row.Name, Products: row.Products})
	}
	return out, nil
}

// Create inserts p with its initial stock.
func (r *Products) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	price, err := toDecimal128(p.Price)
	if err != nil {
		return err
	}
	t := now()
	p.CreatedAt, p.UpdatedAt = t, t
	_, err = r.c.InsertOne(ctx, productDoc{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       price,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		VendorID:    p.VendorID,
		CreatedAt:   t,
		UpdatedAt:   t,
	})
	return conflict(err)
}

// Update writes everything but stock.
func (r *Products) Update(ctx context.Context, p *domain.Product) error {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return err
	}
	p.UpdatedAt = now()
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"price":       price,
		"isActive":    p.IsActive,
		"vendorId":    p.VendorID,
		"updatedAt":   p.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// reserveFilter matches the product only while it can give up qty units.
func reserveFilter(id string, qty int) bson.M {
	return bson.M{"_id": id, "isActive": true, "stock": bson.M{"$gte": qty}}
}

func stockDelta(delta int) bson.M {
	return bson.M{"$inc": bson.M{"stock": delta}, "$set": bson.M{"updatedAt": now()}}
}

func (r *Products) Reserve(ctx context.Context, id string, qty int) (bool, error) {
	res, err := r.c.UpdateOne(ctx, reserveFilter(id, qty), stockDelta(-qty))
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *Products) Release(ctx context.Context, id string, qty int) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, stockDelta(qty))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
