package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MockRepo is a mock implementation of Repository
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Create(ctx context.Context, product *Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockRepo) FindByID(ctx context.Context, id bson.ObjectID) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepo) List(ctx context.Context, req ListProductsRequest) ([]*Product, int64, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepo) Update(ctx context.Context, id bson.ObjectID, patch ProductPatch) (*Product, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepo) Delete(ctx context.Context, id bson.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepo) ReplaceReviews(ctx context.Context, id bson.ObjectID, reviews []Review, rating float64, numOfReviews int) error {
	args := m.Called(ctx, id, reviews, rating, numOfReviews)
	return args.Error(0)
}

// MockBus is a mock implementation of Bus
type MockBus struct {
	mock.Mock
}

func (m *MockBus) Broadcast(ctx context.Context, ev ReviewEvent) {
	m.Called(ctx, ev)
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo *MockRepo, bus *MockBus) *Service {
	return NewService(repo, bus, silentLogger())
}

func productWithReviews(reviews []Review) *Product {
	rating, count := aggregate(reviews)
	return &Product{
		ID:           bson.NewObjectID(),
		Name:         "Mechanical Keyboard",
		Description:  "Tenkeyless",
		Price:        89.99,
		Stock:        12,
		Category:     "electronics",
		OwnerID:      bson.NewObjectID(),
		Reviews:      reviews,
		Rating:       rating,
		NumOfReviews: count,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestCreateSanitizesInput(t *testing.T) {
	repo := &MockRepo{}
	bus := &MockBus{}
	svc := newTestService(repo, bus)

	var stored *Product
	repo.On("Create", mock.Anything, mock.AnythingOfType("*catalog.Product")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*Product)
		}).
		Return(nil)

	resp, err := svc.Create(context.Background(), bson.NewObjectID(), CreateProductRequest{
		Name:        "Keyboard <script>alert(1)</script>",
		Description: "<b>bold</b> claims",
		Price:       10,
		Stock:       1,
		Category:    "electronics",
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotNil(t, stored)
	assert.NotContains(t, stored.Name, "<script>")
	assert.NotContains(t, stored.Description, "<b>")
	assert.Empty(t, stored.Reviews)
	assert.Zero(t, stored.Rating)
	assert.Zero(t, stored.NumOfReviews)
}

func TestListDefaultsAndLimits(t *testing.T) {
	tests := []struct {
		name      string
		req       ListProductsRequest
		wantErr   error
		wantPage  int
		wantLimit int
	}{
		{
			name:      "defaults applied",
			req:       ListProductsRequest{},
			wantPage:  1,
			wantLimit: defaultPageSize,
		},
		{
			name:      "explicit page and limit kept",
			req:       ListProductsRequest{Page: 3, Limit: 25},
			wantPage:  3,
			wantLimit: 25,
		},
		{
			name:    "limit above cap rejected",
			req:     ListProductsRequest{Limit: 101},
			wantErr: ErrInvalidLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepo{}
			bus := &MockBus{}
			svc := newTestService(repo, bus)

			if tt.wantErr == nil {
				repo.On("List", mock.Anything, mock.MatchedBy(func(req ListProductsRequest) bool {
					return req.Page == tt.wantPage && req.Limit == tt.wantLimit
				})).Return([]*Product{}, int64(0), nil)
			}

			resp, err := svc.List(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, resp.Page)
			assert.Equal(t, tt.wantLimit, resp.Limit)
		})
	}
}

func TestSubmitReviewAppendsAndRecomputesMean(t *testing.T) {
	repo := &MockRepo{}
	bus := &MockBus{}
	svc := newTestService(repo, bus)

	existing := Review{
		ID:       bson.NewObjectID(),
		UserID:   bson.NewObjectID(),
		UserName: "alice",
		Rating:   4,
		Comment:  "good",
	}
	product := productWithReviews([]Review{existing})

	repo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

	var gotReviews []Review
	var gotRating float64
	var gotCount int
	repo.On("ReplaceReviews", mock.Anything, product.ID, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotReviews = args.Get(2).([]Review)
			gotRating = args.Get(3).(float64)
			gotCount = args.Get(4).(int)
		}).
		Return(nil)
	bus.On("Broadcast", mock.Anything, mock.AnythingOfType("catalog.ReviewEvent")).Return()

	bob := bson.NewObjectID()
	err := svc.SubmitReview(context.Background(), product.ID, bob, "bob", SubmitReviewRequest{
		Rating:  2,
		Comment: "meh",
	})

	require.NoError(t, err)
	require.Len(t, gotReviews, 2)
	assert.Equal(t, existing.ID, gotReviews[0].ID)
	assert.Equal(t, bob, gotReviews[1].UserID)
	assert.InDelta(t, 3.0, gotRating, 1e-9)
	assert.Equal(t, 2, gotCount)
	bus.AssertCalled(t, "Broadcast", mock.Anything, mock.MatchedBy(func(ev ReviewEvent) bool {
		return ev.Type == ReviewSubmitted && ev.ProductID == product.ID && ev.Count == 2
	}))
}

func TestSubmitReviewOverwritesSameUser(t *testing.T) {
	repo := &MockRepo{}
	bus := &MockBus{}
	svc := newTestService(repo, bus)

	alice := bson.NewObjectID()
	first := Review{ID: bson.NewObjectID(), UserID: alice, UserName: "alice", Rating: 5, Comment: "great"}
	second := Review{ID: bson.NewObjectID(), UserID: bson.NewObjectID(), UserName: "bob", Rating: 1, Comment: "bad"}
	product := productWithReviews([]Review{first, second})

	repo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

	var gotReviews []Review
	var gotRating float64
	var gotCount int
	repo.On("ReplaceReviews", mock.Anything, product.ID, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotReviews = args.Get(2).([]Review)
			gotRating = args.Get(3).(float64)
			gotCount = args.Get(4).(int)
		}).
		Return(nil)
	bus.On("Broadcast", mock.Anything, mock.Anything).Return()

	err := svc.SubmitReview(context.Background(), product.ID, alice, "alice", SubmitReviewRequest{
		Rating:  3,
		Comment: "changed my mind",
	})

	require.NoError(t, err)
	// Count unchanged, position and id preserved, rating and comment replaced
	require.Len(t, gotReviews, 2)
	assert.Equal(t, first.ID, gotReviews[0].ID)
	assert.Equal(t, alice, gotReviews[0].UserID)
	assert.Equal(t, 3, gotReviews[0].Rating)
	assert.Equal(t, "changed my mind", gotReviews[0].Comment)
	assert.Equal(t, 2, gotCount)
	assert.InDelta(t, 2.0, gotRating, 1e-9)

	// Original product's in-memory slice must not be mutated
	assert.Equal(t, 5, product.Reviews[0].Rating)
}

func TestSubmitReviewProductNotFound(t *testing.T) {
	repo := &MockRepo{}
	bus := &MockBus{}
	svc := newTestService(repo, bus)

	id := bson.NewObjectID()
	repo.On("FindByID", mock.Anything, id).Return(nil, ErrProductNotFound)

	err := svc.SubmitReview(context.Background(), id, bson.NewObjectID(), "alice", SubmitReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, ErrProductNotFound)
	repo.AssertNotCalled(t, "ReplaceReviews", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	bus.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestDeleteReviewRecomputesAggregates(t *testing.T) {
	alice := Review{ID: bson.NewObjectID(), UserID: bson.NewObjectID(), UserName: "alice", Rating: 4}
	bob := Review{ID: bson.NewObjectID(), UserID: bson.NewObjectID(), UserName: "bob", Rating: 2}

	tests := []struct {
		name       string
		reviews    []Review
		deleteID   bson.ObjectID
		wantRating float64
		wantCount  int
	}{
		{
			name:       "delete one of two",
			reviews:    []Review{alice, bob},
			deleteID:   alice.ID,
			wantRating: 2.0,
			wantCount:  1,
		},
		{
			name:       "delete last review resets rating",
			reviews:    []Review{bob},
			deleteID:   bob.ID,
			wantRating: 0,
			wantCount:  0,
		},
		{
			name:       "absent review id is a no-op",
			reviews:    []Review{alice, bob},
			deleteID:   bson.NewObjectID(),
			wantRating: 3.0,
			wantCount:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepo{}
			bus := &MockBus{}
			svc := newTestService(repo, bus)

			product := productWithReviews(tt.reviews)
			repo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

			var gotRating float64
			var gotCount int
			repo.On("ReplaceReviews", mock.Anything, product.ID, mock.Anything, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) {
					gotRating = args.Get(3).(float64)
					gotCount = args.Get(4).(int)
				}).
				Return(nil)
			bus.On("Broadcast", mock.Anything, mock.Anything).Return()

			err := svc.DeleteReview(context.Background(), product.ID, tt.deleteID)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantRating, gotRating, 1e-9)
			assert.Equal(t, tt.wantCount, gotCount)
			bus.AssertCalled(t, "Broadcast", mock.Anything, mock.MatchedBy(func(ev ReviewEvent) bool {
				return ev.Type == ReviewDeleted && ev.Count == tt.wantCount
			}))
		})
	}
}

func TestListReviewsReturnsSequenceVerbatim(t *testing.T) {
	repo := &MockRepo{}
	bus := &MockBus{}
	svc := newTestService(repo, bus)

	reviews := []Review{
		{ID: bson.NewObjectID(), UserID: bson.NewObjectID(), UserName: "alice", Rating: 4, Comment: "good"},
		{ID: bson.NewObjectID(), UserID: bson.NewObjectID(), UserName: "bob", Rating: 2, Comment: "meh"},
	}
	product := productWithReviews(reviews)
	repo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

	got, err := svc.ListReviews(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, reviews, got)
}

func TestListReviewsEmptyProduct(t *testing.T) {
	repo := &MockRepo{}
	bus := &MockBus{}
	svc := newTestService(repo, bus)

	product := productWithReviews(nil)
	repo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

	got, err := svc.ListReviews(context.Background(), product.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		ratings    []int
		wantRating float64
		wantCount  int
	}{
		{"empty", nil, 0, 0},
		{"single", []int{5}, 5, 1},
		{"two reviews", []int{4, 2}, 3, 2},
		{"non-integer mean", []int{5, 4, 4}, 13.0 / 3.0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := make([]Review, len(tt.ratings))
			for i, r := range tt.ratings {
				reviews[i] = Review{ID: bson.NewObjectID(), Rating: r}
			}
			rating, count := aggregate(reviews)
			assert.InDelta(t, tt.wantRating, rating, 1e-9)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestUpdateSanitizesPatch(t *testing.T) {
	repo := &MockRepo{}
	bus := &MockBus{}
	svc := newTestService(repo, bus)

	id := bson.NewObjectID()
	name := "Keyboard <img src=x onerror=alert(1)>"
	repo.On("Update", mock.Anything, id, mock.MatchedBy(func(p ProductPatch) bool {
		return p.Name != nil && *p.Name == "Keyboard" && p.Description == nil
	})).Return(productWithReviews(nil), nil)

	_, err := svc.Update(context.Background(), id, UpdateProductRequest{Name: &name})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDeleteProductNotFound(t *testing.T) {
	repo := &MockRepo{}
	bus := &MockBus{}
	svc := newTestService(repo, bus)

	id := bson.NewObjectID()
	repo.On("Delete", mock.Anything, id).Return(ErrProductNotFound)

	err := svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
