package accounts

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repo defines the persistence operations for one account collection.
// One implementation is instantiated per collection (users, sellers).
type Repo interface {
	Create(ctx context.Context, a *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*Account, error)
	List(ctx context.Context) ([]*Account, error)

	// UpdateProfile applies the allow-listed patch with full validation
	// (email uniqueness is re-checked by the unique index) and returns the
	// updated document.
	UpdateProfile(ctx context.Context, id bson.ObjectID, patch ProfilePatch) (*Account, error)

	// SetPasswordHash replaces the stored hash, leaving reset state alone.
	SetPasswordHash(ctx context.Context, id bson.ObjectID, hash string) error

	// SetResetToken stores the hashed reset token and its expiry,
	// overwriting any pending one. Persisted without full validation:
	// the fields are server-derived, not user input.
	SetResetToken(ctx context.Context, id bson.ObjectID, tokenHash string, expiresAt time.Time) error

	// ClearResetToken removes any pending reset state.
	ClearResetToken(ctx context.Context, id bson.ObjectID) error

	// FindByResetToken resolves the account whose stored token hash matches
	// and whose expiry is strictly later than now. ErrAccountNotFound when
	// no account matches.
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*Account, error)

	// SetPasswordAndClearReset writes the new hash and removes the reset
	// state as a single update.
	SetPasswordAndClearReset(ctx context.Context, id bson.ObjectID, hash string) error

	Delete(ctx context.Context, id bson.ObjectID) error
}

// Mailer delivers transactional email. Failure must surface as an error.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
