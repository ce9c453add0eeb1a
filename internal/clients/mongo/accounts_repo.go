package mongo

import (
	"context"
	"errors"
	"time"

	"buzzaar/internal/logger"
	"buzzaar/internal/services/accounts"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AccountsRepo implements the accounts.Repo interface for MongoDB.
// Users and sellers live in separate collections with identical shape,
// so one repo type serves both behind a collection name.
type AccountsRepo struct {
	collection *mongo.Collection
}

// NewAccountsRepo creates an accounts repository backed by the named collection
func NewAccountsRepo(db *mongo.Database, collectionName string) *AccountsRepo {
	collection := db.Collection(collectionName)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	ctx, cancel := context.WithTimeout(context.Background(), OpTimeout)
	defer cancel()

	// Ignore error if index already exists
	_, _ = collection.Indexes().CreateOne(ctx, indexModel)

	return &AccountsRepo{
		collection: collection,
	}
}

// translateAccountNotFound maps the driver ErrNoDocuments to the domain-level error.
func translateAccountNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return accounts.ErrAccountNotFound
	}
	return err
}

// Create inserts a new account
func (r *AccountsRepo) Create(ctx context.Context, account *accounts.Account) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return accounts.ErrDuplicate
		}
		return err
	}

	return nil
}

// FindByEmail finds an account by email address
func (r *AccountsRepo) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var account accounts.Account
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		return nil, translateAccountNotFound(err)
	}

	return &account, nil
}

// FindByID finds an account by id
func (r *AccountsRepo) FindByID(ctx context.Context, id bson.ObjectID) (*accounts.Account, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var account accounts.Account
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if err != nil {
		return nil, translateAccountNotFound(err)
	}

	return &account, nil
}

// List returns every account in the collection, newest first
func (r *AccountsRepo) List(ctx context.Context) ([]*accounts.Account, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	var list []*accounts.Account
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}

	return list, nil
}

// UpdateProfile applies the allow-listed patch and returns the updated account
func (r *AccountsRepo) UpdateProfile(ctx context.Context, id bson.ObjectID, patch accounts.ProfilePatch) (*accounts.Account, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated accounts.Account
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, accounts.ErrDuplicate
		}
		return nil, translateAccountNotFound(err)
	}

	return &updated, nil
}

// SetPasswordHash replaces the stored password hash
func (r *AccountsRepo) SetPasswordHash(ctx context.Context, id bson.ObjectID, hash string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"password_hash": hash,
			"updated_at":    time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}

// SetResetToken stores the hashed reset token and its expiry.
// A reissue before the previous token expires simply overwrites it.
func (r *AccountsRepo) SetResetToken(ctx context.Context, id bson.ObjectID, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"reset_password_token":  tokenHash,
			"reset_password_expire": expiresAt.UTC(),
			"updated_at":            time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}

// ClearResetToken removes any pending reset token from the account
func (r *AccountsRepo) ClearResetToken(ctx context.Context, id bson.ObjectID) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	update := bson.M{
		"$unset": bson.M{
			"reset_password_token":  "",
			"reset_password_expire": "",
		},
		"$set": bson.M{
			"updated_at": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}

// FindByResetToken finds the account holding an unexpired reset token hash.
// Expiry is strict: a token whose expire equals now is already stale.
func (r *AccountsRepo) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*accounts.Account, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": bson.M{"$gt": now.UTC()},
	}

	var account accounts.Account
	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		return nil, translateAccountNotFound(err)
	}

	return &account, nil
}

// SetPasswordAndClearReset writes the new password hash and removes the
// reset token in one update, so a redeemed token can never be replayed.
func (r *AccountsRepo) SetPasswordAndClearReset(ctx context.Context, id bson.ObjectID, hash string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"password_hash": hash,
			"updated_at":    time.Now().UTC(),
		},
		"$unset": bson.M{
			"reset_password_token":  "",
			"reset_password_expire": "",
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}

// Delete removes an account
func (r *AccountsRepo) Delete(ctx context.Context, id bson.ObjectID) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}
