package catalog

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repository defines the persistence operations for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id bson.ObjectID) (*Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]*Product, int64, error)
	Update(ctx context.Context, id bson.ObjectID, patch ProductPatch) (*Product, error)
	Delete(ctx context.Context, id bson.ObjectID) error

	// ReplaceReviews persists the review sequence together with its derived
	// aggregates as a single update. The fields are server-derived, so no
	// document validation is re-run.
	ReplaceReviews(ctx context.Context, id bson.ObjectID, reviews []Review, rating float64, numOfReviews int) error
}

// Bus defines the interface for review event broadcasting
type Bus interface {
	Broadcast(ctx context.Context, ev ReviewEvent)
}
