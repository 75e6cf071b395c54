package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base carries the fields every persisted document shares. A document is live
// while ArchivedAt is nil.
type Base struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updatedAt"`
	ArchivedAt *time.Time         `json:"archived_at" bson:"archivedAt"`
}

func (b *Base) Live() bool {
	return b.ArchivedAt == nil
}

// Touch stamps the document timestamps, assigning an id when it has none.
func (b *Base) Touch(now time.Time) {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func (b *Base) GetBase() *Base {
	return b
}
