package catalog

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"buzzaar/cmd/server/ctxkeys"
	"buzzaar/cmd/server/handlers/httperr"
	"buzzaar/internal/logger"
	"buzzaar/internal/services/catalog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// WSClosePolicyViolation represents WebSocket close code for policy violation
	WSClosePolicyViolation = 1008

	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 25 * time.Second
	wsPingWriteTimeout = 5 * time.Second

	msgFailedToCloseWebSocketConnection = "failed to close WebSocket connection"

	// productIDLocalsKey carries the watched product id across the upgrade.
	productIDLocalsKey = "wsProductID"
)

// Hub interface for WebSocket subscription management
type Hub interface {
	Subscribe(connULID ulid.ULID, productID bson.ObjectID) (*catalog.Subscriber, func())
	Unsubscribe(connULID ulid.ULID)
}

// WebSocketHandlers contains the review stream handlers
type WebSocketHandlers struct {
	hub           Hub
	jwtSecret     string
	maxSessionSec int
}

// NewWebSocketHandlers creates new WebSocket handlers
func NewWebSocketHandlers(hub Hub, jwtSecret string, maxSessionSec int) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub:           hub,
		jwtSecret:     jwtSecret,
		maxSessionSec: maxSessionSec,
	}
}

// WSUpgrade upgrades an HTTP connection to a WebSocket review stream
func (h *WebSocketHandlers) WSUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		logger.L().Warn("websocket upgrade required", "handler", "WSUpgrade", "path", c.Path())
		return httperr.Fail(httperr.E{
			Status:  400,
			Message: "WebSocket upgrade required",
		})
	}

	token := c.Query("token")
	if token == "" {
		logger.L().Warn("missing token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path())
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: "Missing token",
		})
	}

	accountID, err := h.validateJWT(token)
	if err != nil {
		logger.L().Error("invalid token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path(), "error", err)
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: "Invalid token",
		})
	}

	productIDStr := c.Params("id")
	if _, err := bson.ObjectIDFromHex(productIDStr); err != nil {
		logger.L().Warn("invalid product id in websocket upgrade", "handler", "WSUpgrade", "product_id", productIDStr, "error", err)
		return httperr.Fail(httperr.E{
			Status:  404,
			Message: catalog.ErrProductNotFound.Error(),
		})
	}

	c.Locals(ctxkeys.AccountIDKey, accountID.Hex())
	c.Locals(productIDLocalsKey, productIDStr)
	// Use Fiber's request-bound context so the stream gets a *real* context.Context.
	c.Locals(ctxkeys.ParentCtxKey, c.UserContext())

	return c.Next()
}

// WSReviewStream pushes live review events for one product
func (h *WebSocketHandlers) WSReviewStream(c *websocket.Conn) {
	conn, parentCtx, err := h.initializeConnection(c)
	if err != nil {
		h.closeConnection(c)
		return
	}

	ctx, cancelCtx := context.WithCancel(parentCtx)
	defer cancelCtx()

	subscriber, cancel := h.hub.Subscribe(conn.connULID, conn.productID)
	defer cancel()

	logger.L().Info("WebSocket connection established", "product_id", conn.productID.Hex(), "conn_id", conn.connID)

	sessionTimer := h.startSessionTimer(c, conn, cancelCtx)
	defer h.stopSessionTimer(sessionTimer)

	ping := h.startKeepAlive(c, conn)
	defer ping.Stop()

	go h.handleOutgoingMessages(c, conn, subscriber, ctx)

	h.handleIncomingMessages(c, conn)

	logger.L().Info("WebSocket connection closed", "product_id", conn.productID.Hex(), "conn_id", conn.connID)
	cancelCtx()
}

// wsConnection holds connection-specific data
type wsConnection struct {
	accountID bson.ObjectID
	productID bson.ObjectID
	connULID  ulid.ULID
	connID    string
}

// initializeConnection validates and sets up the WebSocket connection
func (h *WebSocketHandlers) initializeConnection(c *websocket.Conn) (*wsConnection, context.Context, error) {
	accountIDStr, ok := c.Locals(ctxkeys.AccountIDKey).(string)
	if !ok {
		logger.L().Error("account id not found in WebSocket context")
		return nil, nil, fmt.Errorf("account id not found")
	}

	accountID, err := bson.ObjectIDFromHex(accountIDStr)
	if err != nil {
		logger.L().Error("invalid account id in WebSocket context", "account_id", accountIDStr, "error", err)
		return nil, nil, fmt.Errorf("invalid account id: %w", err)
	}

	productIDStr, ok := c.Locals(productIDLocalsKey).(string)
	if !ok {
		logger.L().Error("product id not found in WebSocket context")
		return nil, nil, fmt.Errorf("product id not found")
	}

	productID, err := bson.ObjectIDFromHex(productIDStr)
	if err != nil {
		logger.L().Error("invalid product id in WebSocket context", "product_id", productIDStr, "error", err)
		return nil, nil, fmt.Errorf("invalid product id: %w", err)
	}

	parentCtx, ok := c.Locals(ctxkeys.ParentCtxKey).(context.Context)
	if !ok {
		logger.L().Error("parent context not found in WebSocket context")
		return nil, nil, fmt.Errorf("parent context not found")
	}

	connULID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader)

	conn := &wsConnection{
		accountID: accountID,
		productID: productID,
		connULID:  connULID,
		connID:    connULID.String(),
	}

	return conn, parentCtx, nil
}

// closeConnection safely closes the WebSocket connection
func (h *WebSocketHandlers) closeConnection(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		logger.L().Error(msgFailedToCloseWebSocketConnection, "error", err)
	}
}

// startSessionTimer creates and starts the session timeout timer
func (h *WebSocketHandlers) startSessionTimer(c *websocket.Conn, conn *wsConnection, cancelCtx context.CancelFunc) *time.Timer {
	return time.AfterFunc(time.Duration(h.maxSessionSec)*time.Second, func() {
		logger.L().Info("WebSocket session timeout", "product_id", conn.productID.Hex(), "conn_id", conn.connID)
		h.sendCloseMessage(c, conn)
		h.closeConnection(c)
		cancelCtx()
	})
}

// stopSessionTimer safely stops the session timer
func (h *WebSocketHandlers) stopSessionTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}

// sendCloseMessage sends a close frame to the client
func (h *WebSocketHandlers) sendCloseMessage(c *websocket.Conn, conn *wsConnection) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(WSClosePolicyViolation, "session timeout"))
	if err != nil {
		logger.L().Error("failed to send close message", "error", err, "product_id", conn.productID.Hex(), "conn_id", conn.connID)
	}
}

// startKeepAlive starts the keep-alive ping mechanism
func (h *WebSocketHandlers) startKeepAlive(c *websocket.Conn, conn *wsConnection) *time.Ticker {
	ping := time.NewTicker(wsPingInterval)
	go func() {
		for range ping.C {
			if h.sendPing(c, conn) != nil {
				return
			}
		}
	}()
	return ping
}

// sendPing sends a ping message to the client
func (h *WebSocketHandlers) sendPing(c *websocket.Conn, conn *wsConnection) error {
	if err := c.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout)); err != nil {
		logger.L().Error("failed to set write deadline", "error", err, "conn_id", conn.connID)
		return err
	}
	if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
		logger.L().Warn("failed to write ping message", "error", err, "conn_id", conn.connID)
		return err
	}
	return nil
}

// handleOutgoingMessages forwards hub events to the client
func (h *WebSocketHandlers) handleOutgoingMessages(c *websocket.Conn, conn *wsConnection, subscriber *catalog.Subscriber, ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("panic in WebSocket sender", "error", r, "product_id", conn.productID.Hex())
		}
	}()

	for {
		select {
		case event, ok := <-subscriber.Ch:
			if !ok {
				return
			}
			if h.sendEvent(c, conn, event) != nil {
				return
			}
		case <-subscriber.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sendEvent sends a review event to the client
func (h *WebSocketHandlers) sendEvent(c *websocket.Conn, conn *wsConnection, event catalog.ReviewEvent) error {
	message := h.buildEventMessage(event)

	if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		logger.L().Error("failed to set write deadline", "error", err, "conn_id", conn.connID)
		return err
	}
	if err := c.WriteJSON(message); err != nil {
		logger.L().Error("failed to write WebSocket message", "error", err, "conn_id", conn.connID)
		return err
	}
	return nil
}

// buildEventMessage builds the message payload for a review event
func (h *WebSocketHandlers) buildEventMessage(event catalog.ReviewEvent) map[string]any {
	message := map[string]any{
		"type":           event.Type,
		"product_id":     event.ProductID.Hex(),
		"rating":         event.Rating,
		"num_of_reviews": event.Count,
	}
	if event.Review != nil {
		message["review"] = event.Review
	}
	return message
}

// handleIncomingMessages drains client messages until the socket closes
func (h *WebSocketHandlers) handleIncomingMessages(c *websocket.Conn, conn *wsConnection) {
	for {
		messageType, _, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L().Error("WebSocket error", "error", err, "conn_id", conn.connID)
			}
			break
		}

		if messageType == websocket.PingMessage {
			if h.sendPong(c, conn) != nil {
				break
			}
		}
	}
}

// sendPong sends a pong message in response to a ping
func (h *WebSocketHandlers) sendPong(c *websocket.Conn, conn *wsConnection) error {
	if err := c.WriteMessage(websocket.PongMessage, nil); err != nil {
		logger.L().Error("failed to send pong", "error", err, "conn_id", conn.connID)
		return err
	}
	return nil
}

// validateJWT validates the JWT token and extracts the account id
func (h *WebSocketHandlers) validateJWT(tokenString string) (bson.ObjectID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		return bson.ObjectID{}, err
	}

	if !token.Valid {
		return bson.ObjectID{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return bson.ObjectID{}, fmt.Errorf("invalid claims")
	}

	accountIDStr, ok := claims["user_id"].(string)
	if !ok {
		return bson.ObjectID{}, fmt.Errorf("missing user_id")
	}

	accountID, err := bson.ObjectIDFromHex(accountIDStr)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("invalid user_id: %w", err)
	}

	return accountID, nil
}

// LogWSConnections logs every WebSocket upgrade attempt.
// It verifies the token with jwtSecret so the logged account id can't be spoofed.
func LogWSConnections(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			token := c.Query("token")
			accountID := extractAccountIDFromToken(token, jwtSecret)
			logger.L().Info("WebSocket upgrade attempt", "ip", c.IP(), "account", accountID)
		}
		return c.Next()
	}
}

// extractAccountIDFromToken extracts and validates the account id from a JWT
func extractAccountIDFromToken(token, jwtSecret string) string {
	if token == "" {
		return ""
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !parsed.Valid {
		return ""
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}

	accountID, _ := mapClaims["user_id"].(string)
	return accountID
}
