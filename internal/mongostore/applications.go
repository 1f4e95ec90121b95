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

type applicationDoc struct {
	ID           string    `bson:"_id"`
	Kind         string    `bson:"kind"`
	UserID       string    `bson:"userId"`
	BusinessName string    `bson:"businessName"`
	Phone        string    `bson:"phone"`
	Region       string    `bson:"region,omitempty"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d applicationDoc) toDomain() domain.Application {
	return domain.Application{
		ID:           d.ID,
		Kind:         domain.ApplicationKind(d.Kind),
		UserID:       d.UserID,
		BusinessName: d.BusinessName,
		Phone:        d.Phone,
		Region:       d.Region,
		Status:       domain.ApplicationStatus(d.Status),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type Applications struct{ s *Store }

func (r *Applications) c() *mongo.Collection { return r.s.col(colApplications) }

// Register inserts the applicant and the application in one transaction.
func (r *Applications) Register(ctx context.Context, u *domain.User, a *domain.Application) error {
	return r.s.transact(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.s.col(colUsers).InsertOne(sc, newUserDoc(u)); err != nil {
			return conflict(err)
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.UserID = u.ID
		t := now()
		a.CreatedAt, a.UpdatedAt = t, t
		_, err := r.c().InsertOne(sc, applicationDoc{
			ID:           a.ID,
			Kind:         string(a.Kind),
			UserID:       a.UserID,
			BusinessName: a.BusinessName,
			Phone:        a.Phone,
			Region:       a.Region,
			Status:       string(a.Status),
			CreatedAt:    t,
			UpdatedAt:    t,
		})
		return conflict(err)
	})
}

func (r *Applications) Get(ctx context.Context, id string) (*domain.Application, error) {
	var d applicationDoc
	if err := r.c().FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	a := d.toDomain()
	return &a, nil
}

func applicationFilter(kind domain.ApplicationKind, status domain.ApplicationStatus) bson.M {
	filter := bson.M{"kind": string(kind)}
	if status != "" {
		filter["status"] = string(status)
	}
	return filter
}

func (r *Applications) List(ctx context.Context, kind domain.ApplicationKind, status domain.ApplicationStatus) ([]domain.Application, error) {
	cur, err := r.c().Find(ctx, applicationFilter(kind, status), options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []applicationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Application, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// SetStatus updates the application and its linked user in one transaction.
func (r *Applications) SetStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	var out domain.Application
	err := r.s.transact(ctx, func(sc mongo.SessionContext) error {
		var d applicationDoc
		t := now()
		err := r.c().FindOneAndUpdate(sc,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"status": string(status), "updatedAt": t}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&d)
		if err != nil {
			return notFound(err)
		}
		active, role := domain.LinkedUserState(domain.ApplicationKind(d.Kind), status)
		res, err := r.s.col(colUsers).UpdateOne(sc, bson.M{"_id": d.UserID}, bson.M{"$set": bson.M{
			"isActive":  active,
			"role":      string(role),
			"updatedAt": t,
		}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return domain.Errorf(domain.CodeNotFound, "Applicant account %s not found", d.UserID)
		}
		out = d.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
