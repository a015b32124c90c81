package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ListingTypeOffered   = "offered"
	ListingTypeRequested = "requested"

	ListingStatusActive = "active"
	ListingStatusClosed = "closed"
)

// Listing is a resource a user offers to, or requests from, the
// neighbourhood. Every conversation is anchored to exactly one listing.
type Listing struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Listing_id   string             `bson:"listing_id" json:"listing_id"`
	User_id      *string            `bson:"user_id" json:"user_id"`
	Title        *string            `bson:"title" json:"title" validate:"required,min=3,max=200"`
	Description  *string            `bson:"description" json:"description" validate:"required,max=2000"`
	Category     *string            `bson:"category" json:"category" validate:"required"`
	Listing_type *string            `bson:"listing_type" json:"listing_type" validate:"required,oneof=offered requested"`
	Price        *float64           `bson:"price,omitempty" json:"price,omitempty"`
	Photo_url    *string            `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Status       *string            `bson:"status" json:"status"`
	Created_at   *time.Time         `bson:"created_at" json:"created_at"`
	Updated_at   *time.Time         `bson:"updated_at" json:"updated_at"`
	Deleted_at   *time.Time         `bson:"deleted_at,omitempty" json:"-"`
}

// IsDeleted reports whether the listing has been soft-deleted.
func (l *Listing) IsDeleted() bool {
	return l.Deleted_at != nil
}
