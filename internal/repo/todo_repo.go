package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/todo-service/internal/domain"
)

// ListTodosByOwner returns every todo of owner, newest first. Never nil.
func (s *Store) ListTodosByOwner(ctx context.Context, owner primitive.ObjectID) ([]domain.Todo, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.todos.list")
	defer sp.Finish()

	cur, err := s.colTodos.Find(ctx,
		bson.M{"user_id": owner},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]domain.Todo, 0)
	for cur.Next(ctx) {
		var t domain.Todo
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, cur.Err()
}

func (s *Store) CreateTodo(ctx context.Context, t *domain.Todo) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.todos.insert")
	defer sp.Finish()

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	res, err := s.colTodos.InsertOne(ctx, t)
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid
	}
	return nil
}

// DeleteTodoByOwner removes the todo only when owner matches. A missing todo
// and someone else's todo both give ErrNotFound.
func (s *Store) DeleteTodoByOwner(ctx context.Context, id, owner primitive.ObjectID) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.todos.delete")
	defer sp.Finish()

	res, err := s.colTodos.DeleteOne(ctx, bson.M{"_id": id, "user_id": owner})
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
