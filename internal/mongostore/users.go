package mongostore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agromart/internal/domain"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	EmailLower   string    `bson:"emailLower"`
	Name         string    `bson:"name"`
	Hash         string    `bson:"passwordHash"`
	Role         string    `bson:"role"`
	EmployeeRole string    `bson:"employeeRole,omitempty"`
	Permissions  []string  `bson:"permissions,omitempty"`
	IsActive     bool      `bson:"isActive"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		Hash:         d.Hash,
		Role:         domain.Role(d.Role),
		EmployeeRole: d.EmployeeRole,
		Permissions:  d.Permissions,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func newUserDoc(u *domain.User) userDoc {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	t := now()
	u.CreatedAt, u.UpdatedAt = t, t
	return userDoc{
		ID:           u.ID,
		Email:        u.Email,
		EmailLower:   strings.ToLower(u.Email),
		Name:         u.Name,
		Hash:         u.Hash,
		Role:         string(u.Role),
		EmployeeRole: u.EmployeeRole,
		Permissions:  u.Permissions,
		IsActive:     u.IsActive,
		CreatedAt:    t,
		UpdatedAt:    t,
	}
}

type Users struct {
	c        *mongo.Collection
	sessions *mongo.Collection
}

func (r *Users) one(ctx context.Context, filter bson.M) (*domain.User, error) {
	var d userDoc
	if err := r.c.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	return d.toDomain(), nil
}

func (r *Users) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, bson.M{"emailLower": strings.ToLower(strings.TrimSpace(email))})
}

func (r *Users) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.one(ctx, bson.M{"_id": id})
}

func (r *Users) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	cur, err := r.c.Find(ctx, bson.M{"role": string(role)}, options.Find().SetSort(bson.D{{Key: "emailLower", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.toDomain())
	}
	return out, nil
}

func (r *Users) Create(ctx context.Context, u *domain.User) error {
	_, err := r.c.InsertOne(ctx, newUserDoc(u))
	return conflict(err)
}

func (r *Users) UpdateAccess(ctx context.Context, id, employeeRole string, perms []string) error {
	if perms == nil {
		perms = []string{}
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"employeeRole": employeeRole,
		"permissions":  perms,
		"updatedAt":    now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Users) BindSession(ctx context.Context, sid, subject string) error {
	t := now()
	_, err := r.sessions.UpdateOne(ctx, bson.M{"_id": sid}, bson.M{
		"$set":         bson.M{"subject": subject, "lastSeen": t},
		"$setOnInsert": bson.M{"createdAt": t},
	}, options.Update().SetUpsert(true))
	return err
}

func (r *Users) SessionSubject(ctx context.Context, sid string) (string, error) {
	var d struct {
		Subject string `bson:"subject"`
	}
	if err := r.sessions.FindOne(ctx, bson.M{"_id": sid}).Decode(&d); err != nil {
		return "", notFound(err)
	}
	if d.Subject == "" {
		return "", domain.ErrNotFound
	}
	return d.Subject, nil
}

func (r *Users) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.sessions.UpdateOne(ctx, bson.M{"_id": sid}, bson.M{
		"$unset": bson.M{"subject": ""},
		"$set":   bson.M{"lastSeen": now()},
	})
	return err
}
