package chat

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dengelma9898/sharelocal-go/models"
)

// UserDirectory resolves user ids to public user projections. It returns
// ErrNotFound for unknown ids; soft-deleted users are returned with
// Deleted_at set so callers can decide whether deletion matters.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ListingDirectory resolves listing ids the same way.
type ListingDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Listing, error)
}

// ContentCipher is the slice of the encryption engine the message store
// needs. *crypto.Engine satisfies it.
type ContentCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
}

type mongoUserDirectory struct {
	users *mongo.Collection
}

// NewMongoUserDirectory returns a UserDirectory backed by the users
// collection.
func NewMongoUserDirectory(users *mongo.Collection) UserDirectory {
	return &mongoUserDirectory{users: users}
}

func (d *mongoUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.users.FindOne(ctx, bson.M{"user_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &user, nil
}

type mongoListingDirectory struct {
	listings *mongo.Collection
}

// NewMongoListingDirectory returns a ListingDirectory backed by the
// listings collection.
func NewMongoListingDirectory(listings *mongo.Collection) ListingDirectory {
	return &mongoListingDirectory{listings: listings}
}

func (d *mongoListingDirectory) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := d.listings.FindOne(ctx, bson.M{"listing_id": id}).Decode(&listing)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find listing %s: %w", id, err)
	}
	return &listing, nil
}
