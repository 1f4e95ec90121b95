// Package mongostore implements the store contracts on MongoDB. Stock
// reservation is a single conditional update, and every write that has to
// change two documents together runs in a session transaction, which needs
// a replica set deployment.
package mongostore

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"agromart/internal/domain"
	applog "agromart/internal/log"
)

const (
	colProducts     = "products"
	colCarts        = "carts"
	colOrders       = "orders"
	colUsers        = "users"
	colSessions     = "sessions"
	colApplications = "applications"
	colNews         = "news_posts"
)

// Connect opens a client and pings the deployment.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	applog.L().Info("mongo.connected", zap.String("uri", redact(uri)))
	return client, nil
}

// redact drops credentials from uri before it is logged.
func redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "mongodb://..."
	}
	u.User = nil
	return u.String()
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

func (s *Store) Products() *Products         { return &Products{c: s.col(colProducts)} }
func (s *Store) Carts() *Carts               { return &Carts{c: s.col(colCarts)} }
func (s *Store) Orders() *Orders             { return &Orders{c: s.col(colOrders)} }
func (s *Store) Users() *Users               { return &Users{c: s.col(colUsers), sessions: s.col(colSessions)} }
func (s *Store) Applications() *Applications { return &Applications{s: s} }
func (s *Store) News() *News                 { return &News{c: s.col(colNews)} }

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	plan := map[string][]mongo.IndexModel{
		colProducts: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "vendorId", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "emailLower", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		colOrders: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		colApplications: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "kind", Value: 1}}, Options: unique},
		},
		colNews: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		},
	}
	for name, models := range plan {
		if _, err := s.col(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

// transact runs fn in a session transaction.
func (s *Store) transact(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.WithoutCancel(ctx))
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

func conflict(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConflict
	}
	return err
}

// toDecimal128 fails for amounts a Decimal128 cannot hold exactly.
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, domain.Errorf(domain.CodeInvalidInput, "Amount %s cannot be stored", d.String())
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
