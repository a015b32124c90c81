package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConversationStateActive   = "active"
	ConversationStateArchived = "archived"
)

// Conversation is a private thread between two users about a listing.
// Participant_key is the sorted, colon-joined pair of participant ids; a
// unique index on (listing_id, participant_key) makes creation idempotent
// under concurrent first-contact.
type Conversation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Listing_id      *string            `bson:"listing_id" json:"listing_id"`
	Participant_key string             `bson:"participant_key" json:"-"`
	State           string             `bson:"state" json:"state"`
	Created_at      *time.Time         `bson:"created_at" json:"created_at"`
	Updated_at      *time.Time         `bson:"updated_at" json:"updated_at"`
}

// Participant is the membership edge between a user and a conversation.
// Last_read_at tracks when the user last acknowledged the thread.
type Participant struct {
	Conversation_id string     `bson:"conversation_id" json:"conversation_id"`
	User_id         string     `bson:"user_id" json:"user_id"`
	Last_read_at    *time.Time `bson:"last_read_at,omitempty" json:"last_read_at,omitempty"`
}

// ConversationSummary is the inbox row for one conversation: resolved
// participants and listing, the latest message (decrypted) and the unread
// count for the requesting user.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	Participants []User       `json:"participants"`
	Listing      *Listing     `json:"listing,omitempty"`
	Last_message *Message     `json:"last_message,omitempty"`
	Unread_count int64        `json:"unread_count"`
}
