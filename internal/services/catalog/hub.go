package catalog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"buzzaar/internal/logger"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Subscriber represents a connection that can receive review events
type Subscriber struct {
	ProductID bson.ObjectID
	Ch        chan ReviewEvent
	Done      chan struct{}
}

// ConnInfo holds connection metadata
type ConnInfo struct {
	ID          ulid.ULID
	ConnectedAt time.Time
	Subscriber  *Subscriber
}

// productSubs holds subscribers watching a specific product
type productSubs struct {
	mu sync.RWMutex
	m  map[ulid.ULID]ConnInfo
}

// Hub manages WebSocket connections and broadcasts review events
type Hub struct {
	mu          sync.RWMutex
	subscribers map[bson.ObjectID]*productSubs
	connIndex   map[ulid.ULID]bson.ObjectID
	bufferSize  int
	dropped     uint64
}

// NewHub creates a new event hub with configurable buffer size
func NewHub(bufferSize int) *Hub {
	return &Hub{
		subscribers: make(map[bson.ObjectID]*productSubs),
		connIndex:   make(map[ulid.ULID]bson.ObjectID),
		bufferSize:  bufferSize,
	}
}

// Subscribe adds a new subscriber watching the given product
func (h *Hub) Subscribe(connULID ulid.ULID, productID bson.ObjectID) (*Subscriber, func()) {
	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("subscribing connection", "conn_id", connULID.String(), "product_id", productID.Hex())
	}

	h.mu.Lock()
	bucket, exists := h.subscribers[productID]
	if !exists {
		bucket = &productSubs{
			m: make(map[ulid.ULID]ConnInfo),
		}
		h.subscribers[productID] = bucket
	}
	h.mu.Unlock()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	sub := &Subscriber{
		ProductID: productID,
		Ch:        make(chan ReviewEvent, h.bufferSize),
		Done:      make(chan struct{}),
	}

	connInfo := ConnInfo{
		ID:          connULID,
		ConnectedAt: time.Now(),
		Subscriber:  sub,
	}

	bucket.m[connULID] = connInfo

	h.mu.Lock()
	h.connIndex[connULID] = productID
	h.mu.Unlock()

	cancel := func() {
		h.Unsubscribe(connULID)
	}
	return sub, cancel
}

// Unsubscribe removes a subscriber from the hub
func (h *Hub) Unsubscribe(connULID ulid.ULID) {
	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("unsubscribing connection", "conn_id", connULID.String())
	}

	h.mu.RLock()
	pid, ok := h.connIndex[connULID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	h.mu.RLock()
	bucket := h.subscribers[pid]
	h.mu.RUnlock()
	if bucket == nil {
		h.mu.Lock()
		delete(h.connIndex, connULID)
		h.mu.Unlock()
		return
	}

	bucket.mu.Lock()
	connInfo, exists := bucket.m[connULID]
	if exists {
		delete(bucket.m, connULID)
	}
	empty := len(bucket.m) == 0
	bucket.mu.Unlock()

	if exists {
		close(connInfo.Subscriber.Ch)
		close(connInfo.Subscriber.Done)
	}

	h.mu.Lock()
	delete(h.connIndex, connULID)
	if empty {
		delete(h.subscribers, pid)
	}
	h.mu.Unlock()
}

// Broadcast delivers ev to every subscriber of ev.ProductID
func (h *Hub) Broadcast(_ context.Context, ev ReviewEvent) {
	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("broadcasting event", "product_id", ev.ProductID.Hex(), "event_type", ev.Type)
	}

	bucket := h.bucket(ev.ProductID)
	if bucket == nil {
		return
	}

	bucket.mu.RLock()
	for _, connInfo := range bucket.m {
		sendOrDrop(connInfo.Subscriber.Ch, ev, func() {
			atomic.AddUint64(&h.dropped, 1)
			if log != nil {
				log.Warn("outbox full, dropping event", "conn_id", connInfo.ID.String(), "product_id", connInfo.Subscriber.ProductID.Hex(), "event_type", ev.Type)
			}
		})
	}
	bucket.mu.RUnlock()
}

// GetSubscriberCount returns the current number of subscribers (for testing)
func (h *Hub) GetSubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalCount := 0
	for _, bucket := range h.subscribers {
		bucket.mu.RLock()
		totalCount += len(bucket.m)
		bucket.mu.RUnlock()
	}
	return totalCount
}

// sendOrDrop is the only place that can decide to drop an event.
func sendOrDrop(ch chan ReviewEvent, ev ReviewEvent, onDrop func()) {
	select {
	case ch <- ev: // hot path, no nesting
	default:
		onDrop()
	}
}

// Stats returns current pointers for observability / tests.
func (h *Hub) Stats() (subscribers int, dropped uint64) {
	return h.GetSubscriberCount(), atomic.LoadUint64(&h.dropped)
}

/// helper: returns bucket or nil (tiny wrapper keeps Broadcast tidy)
func (h *Hub) bucket(pid bson.ObjectID) *productSubs {
	h.mu.RLock()
	b := h.subscribers[pid]
	h.mu.RUnlock()
	return b
}
