//go:build !short

package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"buzzaar/internal/services/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func getTestProductStruct() *catalog.Product {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &catalog.Product{
		ID:          bson.NewObjectID(),
		Name:        "Mechanical Keyboard",
		Description: "Tenkeyless",
		Price:       89.99,
		Stock:       12,
		Category:    "electronics",
		OwnerID:     bson.NewObjectID(),
		Reviews:     []catalog.Review{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestProductsRepoCreateAndFind(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MongoDB integration test")
	}

	ctx := context.Background()
	_, db, cleanup := setupTestDB(t)
	defer cleanup()

	repo, err := NewProductsRepo(ctx, db)
	require.NoError(t, err)

	product := getTestProductStruct()
	require.NoError(t, repo.Create(ctx, product))

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err, msgExpectedNoError)
	assert.Equal(t, product.Name, found.Name)
	assert.Equal(t, product.OwnerID, found.OwnerID)
	assert.Empty(t, found.Reviews)

	_, err = repo.FindByID(ctx, bson.NewObjectID())
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestProductsRepoListFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MongoDB integration test")
	}

	ctx := context.Background()
	_, db, cleanup := setupTestDB(t)
	defer cleanup()

	repo, err := NewProductsRepo(ctx, db)
	require.NoError(t, err)

	seed := []struct {
		name     string
		category string
		price    float64
	}{
		{"Mechanical Keyboard", "electronics", 89.99},
		{"Wireless Mouse", "electronics", 25.50},
		{"Standing Desk", "furniture", 450.00},
		{"Keyboard Cleaning Kit", "accessories", 9.99},
	}
	for _, sp := range seed {
		p := getTestProductStruct()
		p.ID = bson.NewObjectID()
		p.Name = sp.name
		p.Category = sp.category
		p.Price = sp.price
		require.NoError(t, repo.Create(ctx, p))
	}

	tests := []struct {
		name      string
		req       catalog.ListProductsRequest
		wantTotal int64
	}{
		{
			name:      "no filters returns everything",
			req:       catalog.ListProductsRequest{Page: 1, Limit: 10},
			wantTotal: 4,
		},
		{
			name:      "keyword is case-insensitive substring on name",
			req:       catalog.ListProductsRequest{Q: "keyboard", Page: 1, Limit: 10},
			wantTotal: 2,
		},
		{
			name:      "category filter",
			req:       catalog.ListProductsRequest{Category: "electronics", Page: 1, Limit: 10},
			wantTotal: 2,
		},
		{
			name:      "price range",
			req:       catalog.ListProductsRequest{PriceMin: 20, PriceMax: 100, Page: 1, Limit: 10},
			wantTotal: 2,
		},
		{
			name:      "combined filters",
			req:       catalog.ListProductsRequest{Q: "keyboard", Category: "electronics", Page: 1, Limit: 10},
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := repo.List(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, products, int(tt.wantTotal))
		})
	}
}

func TestProductsRepoListPagination(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MongoDB integration test")
	}

	ctx := context.Background()
	_, db, cleanup := setupTestDB(t)
	defer cleanup()

	repo, err := NewProductsRepo(ctx, db)
	require.NoError(t, err)

	for i := range 5 {
		p := getTestProductStruct()
		p.ID = bson.NewObjectID()
		p.Name = fmt.Sprintf("Product %d", i)
		require.NoError(t, repo.Create(ctx, p))
	}

	page1, total, err := repo.List(ctx, catalog.ListProductsRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page1, 2)

	page2, _, err := repo.List(ctx, catalog.ListProductsRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)

	assert.NotEqual(t, page1[0].ID, page2[0].ID, "pages should not overlap")

	page3, _, err := repo.List(ctx, catalog.ListProductsRequest{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestProductsRepoUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MongoDB integration test")
	}

	ctx := context.Background()
	_, db, cleanup := setupTestDB(t)
	defer cleanup()

	repo, err := NewProductsRepo(ctx, db)
	require.NoError(t, err)

	product := getTestProductStruct()
	require.NoError(t, repo.Create(ctx, product))

	newPrice := 99.99
	updated, err := repo.Update(ctx, product.ID, catalog.ProductPatch{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, newPrice, updated.Price)
	assert.Equal(t, product.Name, updated.Name, "untouched fields survive the patch")

	_, err = repo.Update(ctx, bson.NewObjectID(), catalog.ProductPatch{Price: &newPrice})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestProductsRepoReplaceReviews(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MongoDB integration test")
	}

	ctx := context.Background()
	_, db, cleanup := setupTestDB(t)
	defer cleanup()

	repo, err := NewProductsRepo(ctx, db)
	require.NoError(t, err)

	product := getTestProductStruct()
	require.NoError(t, repo.Create(ctx, product))

	reviews := []catalog.Review{
		{ID: bson.NewObjectID(), UserID: bson.NewObjectID(), UserName: "alice", Rating: 4, Comment: "good", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
		{ID: bson.NewObjectID(), UserID: bson.NewObjectID(), UserName: "bob", Rating: 2, Comment: "meh", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
	}

	require.NoError(t, repo.ReplaceReviews(ctx, product.ID, reviews, 3.0, 2))

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, found.Reviews, 2)
	assert.Equal(t, "alice", found.Reviews[0].UserName)
	assert.Equal(t, 3.0, found.Rating)
	assert.Equal(t, 2, found.NumOfReviews)

	// Replacing with an empty sequence resets the aggregates
	require.NoError(t, repo.ReplaceReviews(ctx, product.ID, []catalog.Review{}, 0, 0))

	found, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, found.Reviews)
	assert.Zero(t, found.Rating)
	assert.Zero(t, found.NumOfReviews)

	err = repo.ReplaceReviews(ctx, bson.NewObjectID(), reviews, 3.0, 2)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestProductsRepoDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MongoDB integration test")
	}

	ctx := context.Background()
	_, db, cleanup := setupTestDB(t)
	defer cleanup()

	repo, err := NewProductsRepo(ctx, db)
	require.NoError(t, err)

	product := getTestProductStruct()
	require.NoError(t, repo.Create(ctx, product))

	require.NoError(t, repo.Delete(ctx, product.ID))
	assert.ErrorIs(t, repo.Delete(ctx, product.ID), catalog.ErrProductNotFound)
}
