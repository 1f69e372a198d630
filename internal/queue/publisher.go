package queue

import (
	"context"
)

const (
	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
	KeyTodoCreated    = "todo.created"
	KeyTodoDeleted    = "todo.deleted"
)

// Publisher emits domain events. Delivery is best effort; callers never fail a
// request because an event could not be sent.
type Publisher interface {
	Publish(ctx context.Context, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

type UserRegistered struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

type UserLoggedIn struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
}

type TodoCreated struct {
	TodoID string `json:"todo_id"`
	UserID string `json:"user_id"`
}

type TodoDeleted struct {
	TodoID string `json:"todo_id"`
	UserID string `json:"user_id"`
}
