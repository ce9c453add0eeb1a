package handlerutil

import (
	"errors"

	"buzzaar/cmd/server/ctxkeys"
	"buzzaar/cmd/server/handlers/httperr"
	"buzzaar/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func NotFoundError(err error) error {
	return httperr.Fail(httperr.E{
		Status:  404,
		Message: err.Error(),
	})
}

// GetAccountID extracts the authenticated account id from fiber context
func GetAccountID(c *fiber.Ctx) (bson.ObjectID, error) {
	idStr, ok := c.Locals(ctxkeys.AccountIDKey).(string)
	if !ok {
		logger.L().Error("account ID not found in context", "handler", "GetAccountID", "path", c.Path())
		return bson.ObjectID{}, httperr.Fail(httperr.ErrUnauthorized)
	}

	id, err := bson.ObjectIDFromHex(idStr)
	if err != nil {
		logger.L().Error("invalid account ID", "handler", "GetAccountID", "accountIDStr", idStr, "path", c.Path(), "error", err)
		return bson.ObjectID{}, httperr.Fail(httperr.ErrUnauthorized)
	}

	return id, nil
}

// GetAccountName extracts the authenticated account's display name from fiber context
func GetAccountName(c *fiber.Ctx) string {
	name, _ := c.Locals(ctxkeys.AccountNameKey).(string)
	return name
}

// ParseAndValidateBody parses request body and validates it
func ParseAndValidateBody(c *fiber.Ctx, req any, validator *validator.Validate, handlerName string) error {
	if err := c.BodyParser(req); err != nil {
		logger.L().Warn("failed to parse request body", "handler", handlerName, "path", c.Path(), "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := validator.Struct(req); err != nil {
		logger.L().Warn("request validation failed", "handler", handlerName, "path", c.Path(), "error", err)
		return httperr.InvalidInput(err)
	}

	return nil
}

// ParseAndValidateQuery parses query parameters and validates them
func ParseAndValidateQuery(c *fiber.Ctx, req any, validator *validator.Validate, handlerName string) error {
	if err := c.QueryParser(req); err != nil {
		logger.L().Warn("failed to parse query params", "handler", handlerName, "path", c.Path(), "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := validator.Struct(req); err != nil {
		logger.L().Warn("query validation failed", "handler", handlerName, "path", c.Path(), "error", err)
		return httperr.InvalidInput(err)
	}

	return nil
}

// ExtractIDParam extracts and validates an ObjectID URL parameter
func ExtractIDParam(c *fiber.Ctx, param, handlerName string, notFoundErr error) (bson.ObjectID, error) {
	idStr := c.Params(param)
	if idStr == "" {
		logger.L().Warn("missing ID parameter", "handler", handlerName, "param", param, "path", c.Path())
		return bson.ObjectID{}, NotFoundError(notFoundErr)
	}

	id, err := bson.ObjectIDFromHex(idStr)
	if err != nil {
		logger.L().Warn("invalid ID parameter", "handler", handlerName, "param", param, "idStr", idStr, "error", err)
		return bson.ObjectID{}, NotFoundError(notFoundErr)
	}

	return id, nil
}

// HandleServiceError handles common service error responses
func HandleServiceError(err error, handlerName string, resourceID *bson.ObjectID, notFoundErr error) error {
	logFields := []any{"handler", handlerName, "error", err}

	if resourceID != nil {
		logFields = append(logFields, "resourceID", resourceID.Hex())
	}

	if errors.Is(err, notFoundErr) {
		logger.L().Info("resource not found", logFields...)
		return NotFoundError(notFoundErr)
	}

	logger.L().Error("service operation failed", logFields...)
	return httperr.Fail(httperr.E{
		Status:  500,
		Message: err.Error(),
	})
}
