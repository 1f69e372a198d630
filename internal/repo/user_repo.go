package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/todo-service/internal/domain"
)

// FindUserByEmail returns the identity registered under provider with exactly
// this email, or nil when there is none.
func (s *Store) FindUserByEmail(ctx context.Context, provider, email string) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.find_by_email",
		tracer.Tag("provider", provider),
	)
	defer sp.Finish()

	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"provider": provider, "email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts u and fills its ID and timestamps. A duplicate
// (provider, email) pair yields ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.insert",
		tracer.Tag("provider", u.Provider),
	)
	defer sp.Finish()

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := s.colUsers.InsertOne(ctx, u)
	if IsDup(err) {
		return ErrEmailTaken
	}
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}
