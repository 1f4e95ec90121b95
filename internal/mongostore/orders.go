package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agromart/internal/domain"
)

type orderItemDoc struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
}

type addressDoc struct {
	Name       string `bson:"name"`
	Line1      string `bson:"line1"`
	Line2      string `bson:"line2,omitempty"`
	City       string `bson:"city,omitempty"`
	State      string `bson:"state,omitempty"`
	PostalCode string `bson:"postalCode,omitempty"`
	Country    string `bson:"country,omitempty"`
	Phone      string `bson:"phone"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"userId"`
	Items           []orderItemDoc       `bson:"items"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	PaymentMethod   string               `bson:"paymentMethod"`
	PaymentStatus   string               `bson:"paymentStatus"`
	OrderStatus     string               `bson:"orderStatus"`
	ShippingAddress *addressDoc          `bson:"shippingAddress,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func newOrderDoc(o *domain.Order) (orderDoc, error) {
	total, err := toDecimal128(o.TotalAmount.Round(2))
	if err != nil {
		return orderDoc{}, err
	}
	d := orderDoc{
		ID:            o.ID,
		UserID:        o.UserID,
		Items:         make([]orderItemDoc, 0, len(o.Items)),
		TotalAmount:   total,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		OrderStatus:   string(o.OrderStatus),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return orderDoc{}, err
		}
		d.Items = append(d.Items, orderItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     price,
			Quantity:  it.Quantity,
		})
	}
	if a := o.ShippingAddress; a != nil {
		d.ShippingAddress = &addressDoc{
			Name: a.Name, Line1: a.Line1, Line2: a.Line2, City: a.City, State: a.State,
			PostalCode: a.PostalCode, Country: a.Country, Phone: a.Phone,
		}
	}
	return d, nil
}

func (d orderDoc) toDomain() domain.Order {
	o := domain.Order{
		ID:            d.ID,
		UserID:        d.UserID,
		Items:         make([]domain.OrderItem, 0, len(d.Items)),
		TotalAmount:   fromDecimal128(d.TotalAmount),
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		PaymentStatus: domain.PaymentStatus(d.PaymentStatus),
		OrderStatus:   domain.OrderStatus(d.OrderStatus),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     fromDecimal128(it.Price),
			Quantity:  it.Quantity,
		})
	}
	if a := d.ShippingAddress; a != nil {
		o.ShippingAddress = &domain.ShippingAddress{
			Name: a.Name, Line1: a.Line1, Line2: a.Line2, City: a.City, State: a.State,
			PostalCode: a.PostalCode, Country: a.Country, Phone: a.Phone,
		}
	}
	return o
}

type Orders struct{ c *mongo.Collection }

// Create stores the order with its item snapshots as one document.
func (r *Orders) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	t := now()
	o.CreatedAt, o.UpdatedAt = t, t
	doc, err := newOrderDoc(o)
	if err != nil {
		return err
	}
	_, err = r.c.InsertOne(ctx, doc)
	return conflict(err)
}

func (r *Orders) Get(ctx context.Context, id string) (*domain.Order, error) {
	var d orderDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	o := d.toDomain()
	return &o, nil
}

func (r *Orders) list(ctx context.Context, filter bson.M, limit int64) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *Orders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, bson.M{"userId": userID}, 0)
}

func (r *Orders) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(ctx, bson.M{}, int64(limit))
}

func statusFilter(id string, onlyFrom []domain.OrderStatus) bson.M {
	filter := bson.M{"_id": id}
	if len(onlyFrom) > 0 {
		from := make([]string, len(onlyFrom))
		for i, s := range onlyFrom {
			from[i] = string(s)
		}
		filter["orderStatus"] = bson.M{"$in": from}
	}
	return filter
}

func statusUpdate(upd domain.OrderStatusUpdate, at time.Time) bson.M {
	set := bson.M{"updatedAt": at}
	if upd.OrderStatus != nil {
		set["orderStatus"] = string(*upd.OrderStatus)
	}
	if upd.PaymentStatus != nil {
		set["paymentStatus"] = string(*upd.PaymentStatus)
	}
	return bson.M{"$set": set}
}

// UpdateStatus applies upd in one conditional findAndModify.
func (r *Orders) UpdateStatus(ctx context.Context, id string, upd domain.OrderStatusUpdate) (*domain.Order, bool, error) {
	var d orderDoc
	err := r.c.FindOneAndUpdate(ctx,
		statusFilter(id, upd.OnlyFrom),
		statusUpdate(upd, now()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	o := d.toDomain()
	return &o, true, nil
}
