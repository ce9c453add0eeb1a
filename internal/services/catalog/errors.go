package catalog

import "errors"

// ErrProductNotFound - product id does not resolve
var ErrProductNotFound = errors.New("product not found")

// ErrCreateProduct is returned when product creation fails.
var ErrCreateProduct = errors.New("failed to create product")

// ErrUpdateProduct is returned when a product update fails.
var ErrUpdateProduct = errors.New("failed to update product")

// ErrDeleteProduct is returned when product deletion fails.
var ErrDeleteProduct = errors.New("failed to delete product")

// ErrListProducts is returned when product listing fails.
var ErrListProducts = errors.New("failed to list products")

// ErrSubmitReview is returned when persisting a review fails.
var ErrSubmitReview = errors.New("failed to submit review")

// ErrDeleteReview is returned when persisting a review deletion fails.
var ErrDeleteReview = errors.New("failed to delete review")

// ErrInvalidLimit is returned when the page size is out of range.
var ErrInvalidLimit = errors.New("invalid limit")
