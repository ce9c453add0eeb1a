package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"buzzaar/internal/utils/sanitize"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service handles catalog business logic: product CRUD and the review
// ledger with its derived aggregates.
type Service struct {
	repo Repository
	bus  Bus
	log  *slog.Logger
}

// NewService creates a new catalog service
func NewService(repo Repository, bus Bus, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		log:  log,
	}
}

// CreateProductRequest represents a product creation request
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=128" example:"Mechanical Keyboard"`
	Description string  `json:"description" validate:"required" example:"Tenkeyless, hot-swappable switches"`
	Price       float64 `json:"price" validate:"required,gt=0" example:"89.99"`
	Stock       int     `json:"stock" validate:"gte=0" example:"12"`
	Category    string  `json:"category" validate:"required" example:"electronics"`
}

// UpdateProductRequest represents a product update request
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=2,max=128" example:"Mechanical Keyboard v2"`
	Description *string  `json:"description,omitempty" example:"Now with PBT keycaps"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gt=0" example:"99.99"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,gte=0" example:"30"`
	Category    *string  `json:"category,omitempty" example:"electronics"`
}

// ListProductsRequest represents a product listing request
type ListProductsRequest struct {
	Q        string  `query:"q" validate:"omitempty,min=1,max=256" example:"keyboard"`
	Category string  `query:"category" validate:"omitempty" example:"electronics"`
	PriceMin float64 `query:"price_min" validate:"omitempty,gte=0" example:"10"`
	PriceMax float64 `query:"price_max" validate:"omitempty,gte=0" example:"500"`
	Page     int     `query:"page" validate:"omitempty,min=1" example:"1"`
	Limit    int     `query:"limit" validate:"omitempty,min=1,max=100" example:"10"`
}

// SubmitReviewRequest creates or overwrites the caller's review of a product
type SubmitReviewRequest struct {
	ProductID string `json:"product_id" validate:"required" example:"683cdb8aa96ad71e8e075bd2"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5" example:"4"`
	Comment   string `json:"comment" validate:"max=2048" example:"Fast shipping, works great"`
}

// ProductResponse represents a single product response
type ProductResponse struct {
	Product *Product `json:"product"`
}

// ListProductsResponse represents a page of products
type ListProductsResponse struct {
	Products   []*Product `json:"products"`
	TotalCount int64      `json:"total_count" example:"42"`
	Page       int        `json:"page" example:"1"`
	Limit      int        `json:"limit" example:"10"`
}

const defaultPageSize = 10

// Create creates a new product owned by the given account.
func (s *Service) Create(ctx context.Context, ownerID bson.ObjectID, req CreateProductRequest) (*ProductResponse, error) {
	now := time.Now().UTC()
	product := &Product{
		ID:          bson.NewObjectID(),
		Name:        sanitize.Clean(req.Name),
		Description: sanitize.Clean(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		OwnerID:     ownerID,
		Reviews:     []Review{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		s.log.Error(ErrCreateProduct.Error(), "error", err, "owner_id", ownerID.Hex())
		return nil, ErrCreateProduct
	}

	return &ProductResponse{Product: product}, nil
}

// Get retrieves a single product by id.
func (s *Service) Get(ctx context.Context, id bson.ObjectID) (*ProductResponse, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		s.log.Error("failed to load product", "error", err, "product_id", id.Hex())
		return nil, ErrListProducts
	}
	return &ProductResponse{Product: product}, nil
}

// List retrieves a filtered page of products.
func (s *Service) List(ctx context.Context, req ListProductsRequest) (*ListProductsResponse, error) {
	if req.Limit == 0 {
		req.Limit = defaultPageSize
	}
	if req.Limit > 100 {
		return nil, ErrInvalidLimit
	}
	if req.Page == 0 {
		req.Page = 1
	}

	products, total, err := s.repo.List(ctx, req)
	if err != nil {
		s.log.Error(ErrListProducts.Error(), "error", err)
		return nil, ErrListProducts
	}

	return &ListProductsResponse{
		Products:   products,
		TotalCount: total,
		Page:       req.Page,
		Limit:      req.Limit,
	}, nil
}

// Update applies an allow-listed patch to a product.
func (s *Service) Update(ctx context.Context, id bson.ObjectID, req UpdateProductRequest) (*ProductResponse, error) {
	patch := ProductPatch{
		Name:        sanitizedPtr(req.Name),
		Description: sanitizedPtr(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	}

	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		s.log.Error(ErrUpdateProduct.Error(), "error", err, "product_id", id.Hex())
		return nil, ErrUpdateProduct
	}

	return &ProductResponse{Product: product}, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id bson.ObjectID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		s.log.Error(ErrDeleteProduct.Error(), "error", err, "product_id", id.Hex())
		return ErrDeleteProduct
	}
	return nil
}

// SubmitReview creates or overwrites the reviewing user's entry in the
// product's review sequence, then recomputes the derived aggregates from
// the full sequence. A repeat submission by the same user keeps the
// original review's position and id.
func (s *Service) SubmitReview(ctx context.Context, productID, userID bson.ObjectID, userName string, req SubmitReviewRequest) error {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		s.log.Error(ErrSubmitReview.Error(), "error", err, "product_id", productID.Hex())
		return ErrSubmitReview
	}

	comment := sanitize.Clean(req.Comment)

	reviews, updated := replaceReview(product.Reviews, userID, req.Rating, comment)
	var current *Review
	if updated {
		for i := range reviews {
			if reviews[i].UserID == userID {
				current = &reviews[i]
				break
			}
		}
	} else {
		review := Review{
			ID:        bson.NewObjectID(),
			UserID:    userID,
			UserName:  userName,
			Rating:    req.Rating,
			Comment:   comment,
			CreatedAt: time.Now().UTC(),
		}
		reviews = append(reviews, review)
		current = &reviews[len(reviews)-1]
	}

	rating, count := aggregate(reviews)

	if err := s.repo.ReplaceReviews(ctx, productID, reviews, rating, count); err != nil {
		s.log.Error(ErrSubmitReview.Error(), "error", err, "product_id", productID.Hex(), "user_id", userID.Hex())
		return ErrSubmitReview
	}

	s.bus.Broadcast(ctx, ReviewEvent{
		Type:      ReviewSubmitted,
		ProductID: productID,
		Review:    current,
		Rating:    rating,
		Count:     count,
	})

	return nil
}

// ListReviews returns the product's review sequence verbatim.
func (s *Service) ListReviews(ctx context.Context, productID bson.ObjectID) ([]Review, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		s.log.Error("failed to load product for reviews", "error", err, "product_id", productID.Hex())
		return nil, ErrListProducts
	}
	if product.Reviews == nil {
		return []Review{}, nil
	}
	return product.Reviews, nil
}

// DeleteReview filters the identified review out of the sequence and
// recomputes the aggregates. An absent reviewId is a no-op, not an error.
func (s *Service) DeleteReview(ctx context.Context, productID, reviewID bson.ObjectID) error {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		s.log.Error(ErrDeleteReview.Error(), "error", err, "product_id", productID.Hex())
		return ErrDeleteReview
	}

	reviews := make([]Review, 0, len(product.Reviews))
	for _, rev := range product.Reviews {
		if rev.ID != reviewID {
			reviews = append(reviews, rev)
		}
	}

	rating, count := aggregate(reviews)

	if err := s.repo.ReplaceReviews(ctx, productID, reviews, rating, count); err != nil {
		s.log.Error(ErrDeleteReview.Error(), "error", err, "product_id", productID.Hex(), "review_id", reviewID.Hex())
		return ErrDeleteReview
	}

	s.bus.Broadcast(ctx, ReviewEvent{
		Type:      ReviewDeleted,
		ProductID: productID,
		Rating:    rating,
		Count:     count,
	})

	return nil
}

// replaceReview returns a new sequence with the user's existing review
// overwritten in place (position and id preserved). The second return
// reports whether a replacement happened.
func replaceReview(reviews []Review, userID bson.ObjectID, rating int, comment string) ([]Review, bool) {
	out := make([]Review, len(reviews))
	replaced := false
	for i, rev := range reviews {
		if rev.UserID == userID {
			rev.Rating = rating
			rev.Comment = comment
			replaced = true
		}
		out[i] = rev
	}
	return out, replaced
}

// aggregate recomputes the derived fields from the full sequence. Always
// derived fresh rather than adjusted incrementally: per-product review
// counts are small and this keeps the aggregates immune to drift.
func aggregate(reviews []Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, rev := range reviews {
		sum += rev.Rating
	}
	return float64(sum) / float64(len(reviews)), len(reviews)
}

func sanitizedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := sanitize.Clean(*s)
	return &cleaned
}
