package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the public projection of an account. It never carries the
// password hash or session tokens; those live on UserWithCredential and
// are only loaded by the login path.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	User_id    string             `bson:"user_id" json:"user_id"`
	First_name *string            `bson:"first_name" json:"first_name" validate:"required,min=2,max=100"`
	Last_name  *string            `bson:"last_name" json:"last_name" validate:"required,min=2,max=100"`
	Email      *string            `bson:"email" json:"email" validate:"required,email"`
	Phone      *string            `bson:"phone" json:"phone" validate:"required"`
	User_type  *string            `bson:"user_type" json:"user_type" validate:"required,oneof=ADMIN USER"`
	Created_at *time.Time         `bson:"created_at" json:"created_at"`
	Updated_at *time.Time         `bson:"updated_at" json:"updated_at"`
	Deleted_at *time.Time         `bson:"deleted_at,omitempty" json:"-"`
}

// UserWithCredential is the internal shape returned by the credential
// lookup during login. It must never be written to an API response.
type UserWithCredential struct {
	User          `bson:",inline"`
	Password      *string `bson:"password" json:"-" validate:"required,min=6"`
	Token         *string `bson:"token,omitempty" json:"-"`
	Refresh_token *string `bson:"refresh_token,omitempty" json:"-"`
}

// IsDeleted reports whether the account has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.Deleted_at != nil
}
