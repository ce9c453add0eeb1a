package catalog

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"buzzaar/internal/config"
	"buzzaar/internal/logger"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func newConnULID() ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
}

func TestHub_ChannelClosedAfterUnsubscribe(t *testing.T) {
	hub := NewHub(256)
	productID := bson.NewObjectID()
	connULID := newConnULID()

	sub, cancel := hub.Subscribe(connULID, productID)
	require.NotNil(t, sub)
	require.NotNil(t, cancel)

	hub.Unsubscribe(connULID)

	// Sending on a closed channel panics
	assert.Panics(t, func() {
		sub.Ch <- ReviewEvent{Type: ReviewSubmitted}
	}, "should panic when sending to closed channel")

	select {
	case <-sub.Done:
		// Expected - channel should be closed
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Done channel should be closed")
	}
}

func TestHub_CancelFunctionWorks(t *testing.T) {
	hub := NewHub(256)
	productID := bson.NewObjectID()
	connULID := newConnULID()

	sub, cancel := hub.Subscribe(connULID, productID)
	require.NotNil(t, sub)
	require.NotNil(t, cancel)

	cancel()

	assert.Panics(t, func() {
		sub.Ch <- ReviewEvent{Type: ReviewSubmitted}
	}, "should panic when sending to closed channel after cancel()")

	select {
	case <-sub.Done:
		// Expected - channel should be closed
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Done channel should be closed after cancel()")
	}
}

func TestHub_ProductBucketCleanup(t *testing.T) {
	hub := NewHub(256)
	productID := bson.NewObjectID()

	connULID := newConnULID()
	_, cancel := hub.Subscribe(connULID, productID)

	hub.mu.RLock()
	_, exists := hub.subscribers[productID]
	hub.mu.RUnlock()
	assert.True(t, exists, "product bucket should exist after subscription")

	cancel()

	hub.mu.RLock()
	_, exists = hub.subscribers[productID]
	hub.mu.RUnlock()
	assert.False(t, exists, "product bucket should be cleaned up after last unsubscribe")
}

func TestHub_MultipleConnectionsPerProduct(t *testing.T) {
	hub := NewHub(256)
	productID := bson.NewObjectID()

	numConnections := 5
	subscribers := make([]*Subscriber, numConnections)
	cancels := make([]func(), numConnections)

	for i := range numConnections {
		sub, cancel := hub.Subscribe(newConnULID(), productID)
		subscribers[i] = sub
		cancels[i] = cancel
	}

	assert.Equal(t, numConnections, hub.GetSubscriberCount())

	review := &Review{
		ID:       bson.NewObjectID(),
		UserID:   bson.NewObjectID(),
		UserName: "alice",
		Rating:   4,
		Comment:  "solid",
	}
	event := ReviewEvent{
		Type:      ReviewSubmitted,
		ProductID: productID,
		Review:    review,
		Rating:    4,
		Count:     1,
	}

	hub.Broadcast(context.Background(), event)

	for i := range numConnections {
		select {
		case receivedEvent := <-subscribers[i].Ch:
			assert.Equal(t, event.Type, receivedEvent.Type)
			assert.Equal(t, event.Review.ID, receivedEvent.Review.ID)
			assert.Equal(t, event.Rating, receivedEvent.Rating)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Connection %d did not receive event", i)
		}
	}

	for _, cancel := range cancels {
		cancel()
	}

	assert.Equal(t, 0, hub.GetSubscriberCount())
}

func TestHub_BroadcastToUnwatchedProduct(t *testing.T) {
	hub := NewHub(256)

	event := ReviewEvent{
		Type:      ReviewDeleted,
		ProductID: bson.NewObjectID(),
		Rating:    0,
		Count:     0,
	}

	assert.NotPanics(t, func() {
		hub.Broadcast(context.Background(), event)
	}, "should not panic or cause issues")
}

func TestHub_BroadcastDoesNotLeakAcrossProducts(t *testing.T) {
	hub := NewHub(256)
	watched := bson.NewObjectID()
	other := bson.NewObjectID()

	sub, cancel := hub.Subscribe(newConnULID(), watched)
	defer cancel()

	hub.Broadcast(context.Background(), ReviewEvent{
		Type:      ReviewSubmitted,
		ProductID: other,
		Rating:    5,
		Count:     1,
	})

	select {
	case ev := <-sub.Ch:
		t.Fatalf("subscriber of %s received event for %s", watched.Hex(), ev.ProductID.Hex())
	case <-time.After(50 * time.Millisecond):
		// Expected - no cross-product delivery
	}
}

func TestHub_RaceConditionDetection(t *testing.T) {
	// This test is designed to be run with -race flag
	if testing.Short() {
		t.Skip("skipping resource-intensive test in short mode")
	}

	cfg := config.Config{LogLevel: "error", LogFormat: "text"}
	_, err := logger.Init(cfg)
	require.NoError(t, err)

	hub := NewHub(256)

	var wg sync.WaitGroup
	numGoroutines := 100

	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			productID := bson.NewObjectID()
			sub, cancel := hub.Subscribe(newConnULID(), productID)

			hub.Broadcast(context.Background(), ReviewEvent{
				Type:      ReviewSubmitted,
				ProductID: productID,
				Rating:    3,
				Count:     1,
			})

			cancel()

			select {
			case <-sub.Done:
				// Expected
			case <-time.After(10 * time.Millisecond):
				// Also fine - may not have received the close signal yet
			}
		}(i)
	}

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(context.Background(), ReviewEvent{
				Type:      ReviewDeleted,
				ProductID: bson.NewObjectID(),
			})
		}()
	}

	wg.Wait()
}

func TestHub_BroadcastAfterUnsubscribe_NoPanic(t *testing.T) {
	hub := NewHub(256)
	productID := bson.NewObjectID()

	event := ReviewEvent{
		Type:      ReviewSubmitted,
		ProductID: productID,
		Rating:    4,
		Count:     2,
	}

	var wg sync.WaitGroup
	numGoroutines := 50

	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			_, cancel := hub.Subscribe(newConnULID(), productID)
			cancel()

			assert.NotPanics(t, func() {
				hub.Broadcast(context.Background(), event)
			}, "broadcasting after unsubscribe should not panic")
		}(i)
	}

	wg.Wait()
}
