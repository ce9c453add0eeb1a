package httperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// E represents an HTTP error with status code and message. Serialized it
// forms the failure half of the response envelope: {"success":false,"error":...}.
type E struct {
	Status  int    `json:"-" example:"400"`
	Success bool   `json:"success" example:"false"`
	Message string `json:"error" example:"Bad Request"`
}

// Error implements the error interface
func (e E) Error() string {
	return e.Message
}

// JSON returns the error as JSON response
func (e E) JSON(c *fiber.Ctx) error {
	e.Success = false
	return c.Status(e.Status).JSON(e)
}

// Fail returns the error for Fiber's global error handler to process
func Fail(err E) error {
	return err
}

// InvalidInput wraps a validation error and returns the standard response.
func InvalidInput(err error) error {
	return Fail(E{
		Status:  400,
		Message: "Invalid input: " + err.Error(),
	})
}

// InternalError returns an internal server error with the given message
func InternalError(message string) E {
	return E{Status: 500, Message: message}
}

// Pre-defined HTTP errors
var (
	ErrBadRequest              = E{Status: 400, Message: "Bad Request"}
	ErrInvalidAccountID        = E{Status: 400, Message: "Invalid account ID"}
	ErrUnauthorized            = E{Status: 401, Message: "Unauthorized"}
	ErrAccountNotAuthenticated = E{Status: 401, Message: "Account not authenticated"}
	ErrForbidden               = E{Status: 403, Message: "Forbidden"}
	ErrTooManyRequests         = E{Status: 429, Message: "Too Many Requests"}
	ErrInternal                = InternalError("Internal Server Error")
)

// Handler is the global error handler for Fiber
func Handler(c *fiber.Ctx, err error) error {
	var e E
	if errors.As(err, &e) {
		return e.JSON(c)
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		return c.Status(fiberError.Code).JSON(E{
			Status:  fiberError.Code,
			Message: fiberError.Message,
		})
	}

	return ErrInternal.JSON(c)
}
