package catalog

import (
	"context"

	"buzzaar/cmd/server/handlers/handlerutil"
	"buzzaar/cmd/server/handlers/httperr"
	"buzzaar/internal/logger"
	"buzzaar/internal/services/catalog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// CatalogService defines the interface for the catalog service
type CatalogService interface {
	Create(ctx context.Context, ownerID bson.ObjectID, req catalog.CreateProductRequest) (*catalog.ProductResponse, error)
	Get(ctx context.Context, id bson.ObjectID) (*catalog.ProductResponse, error)
	List(ctx context.Context, req catalog.ListProductsRequest) (*catalog.ListProductsResponse, error)
	Update(ctx context.Context, id bson.ObjectID, req catalog.UpdateProductRequest) (*catalog.ProductResponse, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	SubmitReview(ctx context.Context, productID, userID bson.ObjectID, userName string, req catalog.SubmitReviewRequest) error
	ListReviews(ctx context.Context, productID bson.ObjectID) ([]catalog.Review, error)
	DeleteReview(ctx context.Context, productID, reviewID bson.ObjectID) error
}

// Handlers contains the catalog HTTP handlers
type Handlers struct {
	svc       CatalogService
	validator *validator.Validate
}

// NewHandlers creates new catalog handlers
func NewHandlers(svc CatalogService, validator *validator.Validate) *Handlers {
	return &Handlers{
		svc:       svc,
		validator: validator,
	}
}

// ProductEnvelope wraps a single product response
type ProductEnvelope struct {
	Success bool             `json:"success" example:"true"`
	Product *catalog.Product `json:"product"`
}

// ProductListEnvelope wraps a page of products
type ProductListEnvelope struct {
	Success    bool               `json:"success" example:"true"`
	Products   []*catalog.Product `json:"products"`
	TotalCount int64              `json:"total_count" example:"42"`
	Page       int                `json:"page" example:"1"`
	Limit      int                `json:"limit" example:"10"`
}

// ReviewListEnvelope wraps a product's review sequence
type ReviewListEnvelope struct {
	Success bool             `json:"success" example:"true"`
	Reviews []catalog.Review `json:"reviews"`
}

// MessageEnvelope wraps a plain informational response
type MessageEnvelope struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Review submitted successfully"`
}

// Create handles product creation
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body catalog.CreateProductRequest true "Product"
// @Success 201 {object} ProductEnvelope
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /products [post]
func (h *Handlers) Create(c *fiber.Ctx) error {
	ownerID, err := handlerutil.GetAccountID(c)
	if err != nil {
		return err
	}

	var req catalog.CreateProductRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "CreateProduct"); err != nil {
		return err
	}

	resp, err := h.svc.Create(c.Context(), ownerID, req)
	if err != nil {
		logger.L().Error("product creation failed", "handler", "CreateProduct", "owner_id", ownerID.Hex(), "error", err)
		return httperr.Fail(httperr.InternalError(err.Error()))
	}

	return c.Status(201).JSON(ProductEnvelope{Success: true, Product: resp.Product})
}

// List handles the public product listing
// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Keyword matched against product names"
// @Param category query string false "Category filter"
// @Param price_min query number false "Minimum price"
// @Param price_max query number false "Maximum price"
// @Param page query int false "Page number (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} ProductListEnvelope
// @Failure 400 {object} httperr.E
// @Router /products [get]
func (h *Handlers) List(c *fiber.Ctx) error {
	var req catalog.ListProductsRequest
	if err := handlerutil.ParseAndValidateQuery(c, &req, h.validator, "ListProducts"); err != nil {
		return err
	}

	resp, err := h.svc.List(c.Context(), req)
	if err != nil {
		if err == catalog.ErrInvalidLimit {
			return httperr.Fail(httperr.E{Status: 400, Message: err.Error()})
		}
		logger.L().Error("product listing failed", "handler", "ListProducts", "error", err)
		return httperr.Fail(httperr.InternalError(err.Error()))
	}

	return c.JSON(ProductListEnvelope{
		Success:    true,
		Products:   resp.Products,
		TotalCount: resp.TotalCount,
		Page:       resp.Page,
		Limit:      resp.Limit,
	})
}

// Get handles a single product lookup
// @Summary Get a product
// @Tags products
// @Produce json
// @Param id path string true "Product id"
// @Success 200 {object} ProductEnvelope
// @Failure 404 {object} httperr.E
// @Router /products/{id} [get]
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractIDParam(c, "id", "GetProduct", catalog.ErrProductNotFound)
	if err != nil {
		return err
	}

	resp, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return handlerutil.HandleServiceError(err, "GetProduct", &id, catalog.ErrProductNotFound)
	}

	return c.JSON(ProductEnvelope{Success: true, Product: resp.Product})
}

// Update handles a product patch
// @Summary Update a product (admin)
// @Tags products
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Product id"
// @Param request body catalog.UpdateProductRequest true "Product patch"
// @Success 200 {object} ProductEnvelope
// @Failure 400 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /products/{id} [put]
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractIDParam(c, "id", "UpdateProduct", catalog.ErrProductNotFound)
	if err != nil {
		return err
	}

	var req catalog.UpdateProductRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "UpdateProduct"); err != nil {
		return err
	}

	resp, err := h.svc.Update(c.Context(), id, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "UpdateProduct", &id, catalog.ErrProductNotFound)
	}

	return c.JSON(ProductEnvelope{Success: true, Product: resp.Product})
}

// Delete handles product removal
// @Summary Delete a product (admin)
// @Tags products
// @Produce json
// @Security Bearer
// @Param id path string true "Product id"
// @Success 200 {object} MessageEnvelope
// @Failure 404 {object} httperr.E
// @Router /products/{id} [delete]
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractIDParam(c, "id", "DeleteProduct", catalog.ErrProductNotFound)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Context(), id); err != nil {
		return handlerutil.HandleServiceError(err, "DeleteProduct", &id, catalog.ErrProductNotFound)
	}

	return c.JSON(MessageEnvelope{Success: true, Message: "Product deleted successfully"})
}

// SubmitReview creates or overwrites the caller's review of a product
// @Summary Submit a review
// @Tags reviews
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body catalog.SubmitReviewRequest true "Review"
// @Success 200 {object} MessageEnvelope
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /products/review [put]
func (h *Handlers) SubmitReview(c *fiber.Ctx) error {
	userID, err := handlerutil.GetAccountID(c)
	if err != nil {
		return err
	}

	var req catalog.SubmitReviewRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "SubmitReview"); err != nil {
		return err
	}

	productID, err := bson.ObjectIDFromHex(req.ProductID)
	if err != nil {
		logger.L().Warn("invalid product id in review", "handler", "SubmitReview", "product_id", req.ProductID, "error", err)
		return handlerutil.NotFoundError(catalog.ErrProductNotFound)
	}

	userName := handlerutil.GetAccountName(c)

	if err := h.svc.SubmitReview(c.Context(), productID, userID, userName, req); err != nil {
		return handlerutil.HandleServiceError(err, "SubmitReview", &productID, catalog.ErrProductNotFound)
	}

	return c.JSON(MessageEnvelope{Success: true, Message: "Review submitted successfully"})
}

// ListReviews returns a product's review sequence
// @Summary List reviews
// @Tags reviews
// @Produce json
// @Param id path string true "Product id"
// @Success 200 {object} ReviewListEnvelope
// @Failure 404 {object} httperr.E
// @Router /products/{id}/reviews [get]
func (h *Handlers) ListReviews(c *fiber.Ctx) error {
	productID, err := handlerutil.ExtractIDParam(c, "id", "ListReviews", catalog.ErrProductNotFound)
	if err != nil {
		return err
	}

	reviews, err := h.svc.ListReviews(c.Context(), productID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "ListReviews", &productID, catalog.ErrProductNotFound)
	}

	return c.JSON(ReviewListEnvelope{Success: true, Reviews: reviews})
}

// DeleteReview removes one review from a product
// @Summary Delete a review
// @Tags reviews
// @Produce json
// @Security Bearer
// @Param id path string true "Product id"
// @Param reviewId path string true "Review id"
// @Success 200 {object} MessageEnvelope
// @Failure 404 {object} httperr.E
// @Router /products/{id}/reviews/{reviewId} [delete]
func (h *Handlers) DeleteReview(c *fiber.Ctx) error {
	productID, err := handlerutil.ExtractIDParam(c, "id", "DeleteReview", catalog.ErrProductNotFound)
	if err != nil {
		return err
	}

	reviewID, err := handlerutil.ExtractIDParam(c, "reviewId", "DeleteReview", catalog.ErrProductNotFound)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteReview(c.Context(), productID, reviewID); err != nil {
		return handlerutil.HandleServiceError(err, "DeleteReview", &productID, catalog.ErrProductNotFound)
	}

	return c.JSON(MessageEnvelope{Success: true, Message: "Review deleted successfully"})
}
