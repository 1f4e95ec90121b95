package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agromart/internal/domain"
)

type newsDoc struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Slug      string    `bson:"slug"`
	Summary   string    `bson:"summary"`
	Body      string    `bson:"body"`
	Published bool      `bson:"published"`
	AuthorID  string    `bson:"authorId"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d newsDoc) toDomain() domain.NewsPost {
	return domain.NewsPost{
		ID:        d.ID,
		Title:     d.Title,
		Slug:      d.Slug,
		Summary:   d.Summary,
		Body:      d.Body,
		Published: d.Published,
		AuthorID:  d.AuthorID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type News struct{ c *mongo.Collection }

func (r *News) List(ctx context.Context, publishedOnly bool) ([]domain.NewsPost, error) {
	filter := bson.M{}
	if publishedOnly {
		filter["published"] = true
	}
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []newsDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.NewsPost, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *News) Get(ctx context.Context, idOrSlug string) (*domain.NewsPost, error) {
	var d newsDoc
	filter := bson.M{"$or": bson.A{bson.M{"_id": idOrSlug}, bson.M{"slug": idOrSlug}}}
	if err := r.c.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	p := d.toDomain()
	return &p, nil
}

func (r *News) Create(ctx context.Context, p *domain.NewsPost) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	t := now()
	p.CreatedAt, p.UpdatedAt = t, t
	_, err := r.c.InsertOne(ctx, newsDoc{
		ID: p.ID, Title: p.Title, Slug: p.Slug, Summary: p.Summary, Body: p.Body,
		Published: p.Published, AuthorID: p.AuthorID, CreatedAt: t, UpdatedAt: t,
	})
	return conflict(err)
}

func (r *News) Update(ctx context.Context, p *domain.NewsPost) error {
	p.UpdatedAt = now()
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"title":     p.Title,
		"slug":      p.Slug,
		"summary":   p.Summary,
		"body":      p.Body,
		"published": p.Published,
		"updatedAt": p.UpdatedAt,
	}})
	if err != nil {
		return conflict(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *News) Delete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
