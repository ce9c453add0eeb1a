package accounts

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Roles assignable to user accounts. Seller accounts carry no role.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Audiences identify which collection a session token belongs to.
const (
	AudienceUsers   = "users"
	AudienceSellers = "sellers"
)

// Account represents a user or seller. The two are structurally identical
// and live in separate collections; the service instance decides which.
type Account struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	Name         string        `bson:"name" json:"name" example:"Ada Lovelace"`
	Email        string        `bson:"email" json:"email" example:"ada@example.com"`
	PasswordHash string        `bson:"password_hash" json:"-"`
	Role         string        `bson:"role,omitempty" json:"role,omitempty" example:"customer"`

	// Reset token state: both set while a reset is pending, both absent otherwise.
	ResetPasswordToken  string     `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpire *time.Time `bson:"reset_password_expire,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ProfilePatch is the allow-listed field set for account mutations.
// Role is only ever populated by the admin role-update path; arbitrary
// caller-supplied fields never reach persistence.
type ProfilePatch struct {
	Name  *string
	Email *string
	Role  *string
}
