// Package ctxkeys holds the fiber.Ctx locals keys shared between
// middlewares and handlers.
package ctxkeys

const (
	// AccountIDKey is the locals key holding the authenticated account id (hex).
	AccountIDKey = "accountID"
	// AccountEmailKey is the locals key holding the authenticated email.
	AccountEmailKey = "accountEmail"
	// AccountNameKey is the locals key holding the authenticated display name.
	AccountNameKey = "accountName"
	// AccountRoleKey is the locals key holding the account role ("" for sellers).
	AccountRoleKey = "accountRole"
	// AudienceKey is the locals key holding the token audience ("users" or "sellers").
	AudienceKey = "audience"
	// ParentCtxKey carries the request-bound context across a WebSocket upgrade.
	ParentCtxKey = "parentCtx"
)
