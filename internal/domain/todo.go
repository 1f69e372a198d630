package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Todo struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text      string             `bson:"text"       json:"text"`
	Done      bool               `bson:"done"       json:"done"`
	UserID    primitive.ObjectID `bson:"user_id"    json:"user_id"` // owner, set once at creation
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
