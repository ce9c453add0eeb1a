package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"buzzaar/internal/logger"
	"buzzaar/internal/services/catalog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ProductsRepo implements the catalog.Repository interface for MongoDB
type ProductsRepo struct {
	collection *mongo.Collection
}

// translateProductNotFound maps the driver ErrNoDocuments to the domain-level error.
func translateProductNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.ErrProductNotFound
	}
	return err
}

// NewProductsRepo creates a new products repository
func NewProductsRepo(parentCtx context.Context, db *mongo.Database) (*ProductsRepo, error) {
	collection := db.Collection("products")

	indexes := []mongo.IndexModel{
		// Category filter plus default newest-first pagination
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "_id", Value: -1},
			},
		},
		// Price range queries
		{
			Keys: bson.D{{Key: "price", Value: 1}},
		},
		// Owner listings
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, indexModel := range indexes {
		_, err := collection.Indexes().CreateOne(ctx, indexModel)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.L().Debug("index already exists, continuing", "collection", "products")
			} else {
				logger.L().Error("failed to create index", "collection", "products", "error", err)
				return nil, fmt.Errorf("failed to create products collection index: %w", err)
			}
		}
	}

	return &ProductsRepo{
		collection: collection,
	}, nil
}

// Create inserts a new product
func (r *ProductsRepo) Create(ctx context.Context, product *catalog.Product) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, product)
	return err
}

// FindByID finds a product by id
func (r *ProductsRepo) FindByID(ctx context.Context, id bson.ObjectID) (*catalog.Product, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var product catalog.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		return nil, translateProductNotFound(err)
	}

	return &product, nil
}

// List retrieves a filtered page of products with the total match count
func (r *ProductsRepo) List(ctx context.Context, req catalog.ListProductsRequest) ([]*catalog.Product, int64, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := buildProductFilter(req)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (req.Page - 1) * req.Limit
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(req.Limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, total, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	var products []*catalog.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, total, err
	}

	return products, total, nil
}

// buildProductFilter constructs the MongoDB filter for the List query
func buildProductFilter(req catalog.ListProductsRequest) bson.M {
	filter := bson.M{}

	if req.Q != "" {
		pattern := regexp.QuoteMeta(req.Q)
		filter["name"] = bson.M{"$regex": pattern, "$options": "i"}
	}

	if req.Category != "" {
		filter["category"] = req.Category
	}

	price := bson.M{}
	if req.PriceMin > 0 {
		price["$gte"] = req.PriceMin
	}
	if req.PriceMax > 0 {
		price["$lte"] = req.PriceMax
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	return filter
}

// Update applies an allow-listed patch and returns the updated product
func (r *ProductsRepo) Update(ctx context.Context, id bson.ObjectID, patch catalog.ProductPatch) (*catalog.Product, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated catalog.Product
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return nil, translateProductNotFound(err)
	}

	return &updated, nil
}

// Delete removes a product
func (r *ProductsRepo) Delete(ctx context.Context, id bson.ObjectID) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return catalog.ErrProductNotFound
	}

	return nil
}

// ReplaceReviews writes the full review sequence and its derived aggregates
// in a single update so readers never observe the sequence and the
// aggregates out of step.
func (r *ProductsRepo) ReplaceReviews(ctx context.Context, id bson.ObjectID, reviews []catalog.Review, rating float64, numOfReviews int) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"reviews":        reviews,
			"rating":         rating,
			"num_of_reviews": numOfReviews,
			"updated_at":     time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return catalog.ErrProductNotFound
	}

	return nil
}
