package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a single chat message. Content is plaintext everywhere in
// process; only the message store sees the encrypted form that is written
// to storage.
type Message struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Conversation_id string             `bson:"conversation_id" json:"conversation_id"`
	Sender_id       *string            `bson:"sender_id" json:"sender_id" validate:"required"`
	Content         *string            `bson:"content" json:"content" validate:"required"`
	Read            bool               `bson:"read" json:"read"`
	Created_at      *time.Time         `bson:"created_at" json:"created_at"`
}
