package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"agromart/internal/domain"
	applog "agromart/internal/log"
	"agromart/internal/seed"
)

// SeedIfEmpty loads the demo data when the products collection is empty.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	n, err := s.col(colProducts).CountDocuments(ctx, bson.M{})
	if err != nil || n > 0 {
		return err
	}
	applog.L().Info("seed.demo", zap.String("store", "mongo"))

	products := s.Products()
	for _, p := range seed.Products() {
		if err := products.Create(ctx, &p); err != nil {
			return err
		}
	}
	users := s.Users()
	for _, u := range seed.Users() {
		if err := users.Create(ctx, &u); err != nil && !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	news := s.News()
	for _, p := range seed.News() {
		if err := news.Create(ctx, &p); err != nil && !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return nil
}
