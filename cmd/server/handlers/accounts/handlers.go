package accounts

import (
	"context"
	"errors"

	"buzzaar/cmd/server/handlers/handlerutil"
	"buzzaar/cmd/server/handlers/httperr"
	"buzzaar/internal/logger"
	"buzzaar/internal/services/accounts"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// AccountsService defines the interface for the accounts service
type AccountsService interface {
	Register(ctx context.Context, req accounts.RegisterRequest) (*accounts.AuthResponse, error)
	Login(ctx context.Context, req accounts.LoginRequest) (*accounts.AuthResponse, error)
	Get(ctx context.Context, id bson.ObjectID) (*accounts.Account, error)
	List(ctx context.Context) ([]*accounts.Account, error)
	ForgotPassword(ctx context.Context, req accounts.ForgotPasswordRequest) (string, error)
	ResetPassword(ctx context.Context, rawToken string, req accounts.ResetPasswordRequest) (*accounts.AuthResponse, error)
	ChangePassword(ctx context.Context, id bson.ObjectID, req accounts.ChangePasswordRequest) (*accounts.AuthResponse, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, req accounts.UpdateProfileRequest) (*accounts.Account, error)
	UpdateRole(ctx context.Context, id bson.ObjectID, req accounts.UpdateRoleRequest) (*accounts.Account, error)
	Delete(ctx context.Context, id bson.ObjectID) error
}

// Handlers contains the account HTTP handlers for one audience. The same
// type serves the user and the seller route groups; only the bound
// service differs.
type Handlers struct {
	svc       AccountsService
	validator *validator.Validate
}

// NewHandlers creates new account handlers
func NewHandlers(svc AccountsService, validator *validator.Validate) *Handlers {
	return &Handlers{
		svc:       svc,
		validator: validator,
	}
}

// AuthEnvelope wraps a session-issuing response
type AuthEnvelope struct {
	Success bool              `json:"success" example:"true"`
	Account *accounts.Account `json:"account"`
	Token   string            `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// AccountEnvelope wraps a single account response
type AccountEnvelope struct {
	Success bool              `json:"success" example:"true"`
	Account *accounts.Account `json:"account"`
}

// ListEnvelope wraps an admin listing response
type ListEnvelope struct {
	Success  bool                `json:"success" example:"true"`
	Count    int                 `json:"count" example:"3"`
	Accounts []*accounts.Account `json:"accounts"`
}

// MessageEnvelope wraps a plain informational response
type MessageEnvelope struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Email sent to ada@example.com successfully"`
}

func authEnvelope(resp *accounts.AuthResponse) AuthEnvelope {
	return AuthEnvelope{Success: true, Account: resp.Account, Token: resp.Token}
}

// Register handles account registration
// @Summary Register a new account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body accounts.RegisterRequest true "Registration request"
// @Success 201 {object} AuthEnvelope
// @Failure 400 {object} httperr.E
// @Router /register [post]
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req accounts.RegisterRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Register"); err != nil {
		return err
	}

	resp, err := h.svc.Register(c.Context(), req)
	if err != nil {
		logger.L().Warn("registration failed", "handler", "Register", "email", req.Email, "error", err)
		return httperr.Fail(httperr.E{
			Status:  400,
			Message: err.Error(),
		})
	}

	return c.Status(201).JSON(authEnvelope(resp))
}

// Login handles account authentication
// @Summary Authenticate an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body accounts.LoginRequest true "Login request"
// @Success 200 {object} AuthEnvelope
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Failure 429 {object} httperr.E
// @Router /login [post]
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req accounts.LoginRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Login"); err != nil {
		return err
	}

	resp, err := h.svc.Login(c.Context(), req)
	if err != nil {
		logger.L().Info("login rejected", "handler", "Login", "error", err)
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: err.Error(),
		})
	}

	return c.JSON(authEnvelope(resp))
}

// Logout acknowledges the end of a session. Tokens are stateless; the
// client just discards its copy.
// @Summary Log out
// @Tags accounts
// @Produce json
// @Success 200 {object} MessageEnvelope
// @Router /logout [get]
func (h *Handlers) Logout(c *fiber.Ctx) error {
	return c.JSON(MessageEnvelope{Success: true, Message: "Logged out successfully"})
}

// Me returns the authenticated account
// @Summary Get own account
// @Tags accounts
// @Produce json
// @Security Bearer
// @Success 200 {object} AccountEnvelope
// @Failure 401 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /me [get]
func (h *Handlers) Me(c *fiber.Ctx) error {
	id, err := handlerutil.GetAccountID(c)
	if err != nil {
		return err
	}

	account, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Me", &id, accounts.ErrAccountNotFound)
	}

	return c.JSON(AccountEnvelope{Success: true, Account: account})
}

// ForgotPassword mails out a password reset token
// @Summary Request a password reset
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body accounts.ForgotPasswordRequest true "Forgot password request"
// @Success 200 {object} MessageEnvelope
// @Failure 400 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /password/forgot [post]
func (h *Handlers) ForgotPassword(c *fiber.Ctx) error {
	var req accounts.ForgotPasswordRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "ForgotPassword"); err != nil {
		return err
	}

	message, err := h.svc.ForgotPassword(c.Context(), req)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return handlerutil.NotFoundError(err)
		}
		logger.L().Error("forgot password failed", "handler", "ForgotPassword", "error", err)
		return httperr.Fail(httperr.E{
			Status:  500,
			Message: err.Error(),
		})
	}

	return c.JSON(MessageEnvelope{Success: true, Message: message})
}

// ResetPassword redeems a raw reset token from the URL
// @Summary Redeem a password reset token
// @Tags accounts
// @Accept json
// @Produce json
// @Param token path string true "Raw reset token"
// @Param request body accounts.ResetPasswordRequest true "New password"
// @Success 200 {object} AuthEnvelope
// @Failure 400 {object} httperr.E
// @Router /password/reset/{token} [put]
func (h *Handlers) ResetPassword(c *fiber.Ctx) error {
	rawToken := c.Params("token")
	if rawToken == "" {
		return httperr.Fail(httperr.ErrBadRequest)
	}

	var req accounts.ResetPasswordRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "ResetPassword"); err != nil {
		return err
	}

	resp, err := h.svc.ResetPassword(c.Context(), rawToken, req)
	if err != nil {
		logger.L().Info("password reset rejected", "handler", "ResetPassword", "error", err)
		return httperr.Fail(httperr.E{
			Status:  400,
			Message: err.Error(),
		})
	}

	return c.JSON(authEnvelope(resp))
}

// ChangePassword changes the password of the authenticated account
// @Summary Change own password
// @Tags accounts
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body accounts.ChangePasswordRequest true "Password change request"
// @Success 200 {object} AuthEnvelope
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /password/update [put]
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	id, err := handlerutil.GetAccountID(c)
	if err != nil {
		return err
	}

	var req accounts.ChangePasswordRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "ChangePassword"); err != nil {
		return err
	}

	resp, err := h.svc.ChangePassword(c.Context(), id, req)
	if err != nil {
		logger.L().Info("password change rejected", "handler", "ChangePassword", "account_id", id.Hex(), "error", err)
		return httperr.Fail(httperr.E{
			Status:  400,
			Message: err.Error(),
		})
	}

	return c.JSON(authEnvelope(resp))
}

// UpdateProfile updates the authenticated account's name and email
// @Summary Update own profile
// @Tags accounts
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body accounts.UpdateProfileRequest true "Profile patch"
// @Success 200 {object} AccountEnvelope
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /me/update [put]
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	id, err := handlerutil.GetAccountID(c)
	if err != nil {
		return err
	}

	var req accounts.UpdateProfileRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "UpdateProfile"); err != nil {
		return err
	}

	account, err := h.svc.UpdateProfile(c.Context(), id, req)
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicate) {
			return httperr.Fail(httperr.E{Status: 400, Message: err.Error()})
		}
		return handlerutil.HandleServiceError(err, "UpdateProfile", &id, accounts.ErrAccountNotFound)
	}

	return c.JSON(AccountEnvelope{Success: true, Account: account})
}

// AdminList returns every account in the collection
// @Summary List accounts (admin)
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} ListEnvelope
// @Failure 401 {object} httperr.E
// @Failure 403 {object} httperr.E
// @Router /admin/users [get]
func (h *Handlers) AdminList(c *fiber.Ctx) error {
	list, err := h.svc.List(c.Context())
	if err != nil {
		logger.L().Error("admin list failed", "handler", "AdminList", "error", err)
		return httperr.Fail(httperr.InternalError(err.Error()))
	}

	return c.JSON(ListEnvelope{Success: true, Count: len(list), Accounts: list})
}

// AdminGet returns a single account by id
// @Summary Get an account (admin)
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path string true "Account id"
// @Success 200 {object} AccountEnvelope
// @Failure 404 {object} httperr.E
// @Router /admin/user/{id} [get]
func (h *Handlers) AdminGet(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractIDParam(c, "id", "AdminGet", accounts.ErrAccountNotFound)
	if err != nil {
		return err
	}

	account, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return handlerutil.HandleServiceError(err, "AdminGet", &id, accounts.ErrAccountNotFound)
	}

	return c.JSON(AccountEnvelope{Success: true, Account: account})
}

// AdminUpdate updates an account's name, email and role
// @Summary Update an account (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Account id"
// @Param request body accounts.UpdateRoleRequest true "Account patch"
// @Success 200 {object} AccountEnvelope
// @Failure 400 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /admin/user/{id} [put]
func (h *Handlers) AdminUpdate(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractIDParam(c, "id", "AdminUpdate", accounts.ErrAccountNotFound)
	if err != nil {
		return err
	}

	var req accounts.UpdateRoleRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "AdminUpdate"); err != nil {
		return err
	}

	account, err := h.svc.UpdateRole(c.Context(), id, req)
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicate) {
			return httperr.Fail(httperr.E{Status: 400, Message: err.Error()})
		}
		return handlerutil.HandleServiceError(err, "AdminUpdate", &id, accounts.ErrAccountNotFound)
	}

	return c.JSON(AccountEnvelope{Success: true, Account: account})
}

// AdminDelete removes an account
// @Summary Delete an account (admin)
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path string true "Account id"
// @Success 200 {object} MessageEnvelope
// @Failure 404 {object} httperr.E
// @Router /admin/user/{id} [delete]
func (h *Handlers) AdminDelete(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractIDParam(c, "id", "AdminDelete", accounts.ErrAccountNotFound)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Context(), id); err != nil {
		return handlerutil.HandleServiceError(err, "AdminDelete", &id, accounts.ErrAccountNotFound)
	}

	return c.JSON(MessageEnvelope{Success: true, Message: "Account deleted successfully"})
}
