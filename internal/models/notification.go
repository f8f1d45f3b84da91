package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is one in-app inbox row for a single recipient of a
// timer trigger. Rows are immutable after creation; the UI only flips
// the read flag.
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TimerID    primitive.ObjectID `bson:"timer_id" json:"timer_id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title      string             `bson:"title" json:"title"`     // "<PRIORITY>: <action_required>"
	Message    string             `bson:"message" json:"message"` // description, falling back to action_required
	Priority   string             `bson:"priority" json:"priority"`
	EntityType string             `bson:"entity_type" json:"entity_type"`
	EntityID   primitive.ObjectID `bson:"entity_id" json:"entity_id"`
	Read       bool               `bson:"read" json:"read"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
