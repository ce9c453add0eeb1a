package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"buzzaar/internal/config"
	"buzzaar/internal/utils/crypto"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service handles account business logic for one collection (users or
// sellers). Two instances are wired at boot, sharing nothing but config.
type Service struct {
	repo     Repo
	mailer   Mailer
	audience string
	config   config.Config
	log      *slog.Logger
}

// NewService creates an accounts service bound to one audience.
func NewService(repo Repo, mailer Mailer, audience string, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		mailer:   mailer,
		audience: audience,
		config:   cfg,
		log:      log,
	}
}

// RegisterRequest represents an account registration request
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=64" example:"Ada Lovelace"`
	Email    string `json:"email" validate:"required,email" example:"ada@example.com"`
	Password string `json:"password" validate:"required,password" example:"Password123"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ada@example.com"`
	Password string `json:"password" validate:"required" example:"Password123"`
}

// ForgotPasswordRequest asks for a reset token to be mailed out
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email" example:"ada@example.com"`
}

// ResetPasswordRequest redeems a raw reset token
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,password" example:"NewPassword123"`
	ConfirmPassword string `json:"confirm_password" validate:"required" example:"NewPassword123"`
}

// ChangePasswordRequest changes the password of an authenticated account
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required" example:"Password123"`
	NewPassword     string `json:"new_password" validate:"required,password" example:"NewPassword123"`
	ConfirmPassword string `json:"confirm_password" validate:"required" example:"NewPassword123"`
}

// UpdateProfileRequest carries the only two self-service mutable fields
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=64" example:"Ada King"`
	Email *string `json:"email,omitempty" validate:"omitempty,email" example:"ada@newmail.example"`
}

// UpdateRoleRequest is the admin-only variant that may also touch the role
type UpdateRoleRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=64" example:"Ada King"`
	Email *string `json:"email,omitempty" validate:"omitempty,email" example:"ada@newmail.example"`
	Role  *string `json:"role,omitempty" validate:"omitempty,oneof=customer admin" example:"admin"`
}

// AuthResponse is returned whenever an operation issues a session token
type AuthResponse struct {
	Account *Account `json:"account"`
	Token   string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// Register creates a new account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrDuplicate
	}

	hash, err := crypto.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		return nil, errors.New("failed to process password")
	}

	now := time.Now().UTC()
	account := &Account{
		ID:           bson.NewObjectID(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.audience == AudienceUsers {
		account.Role = RoleCustomer
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		s.log.Error("failed to create account", "error", err, "audience", s.audience)
		return nil, errors.New("failed to create account")
	}

	return s.respondWithSession(account)
}

// Login authenticates an account.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.log.Info("login failed: unknown email", "audience", s.audience)
		return nil, ErrInvalidCredentials
	}

	if err := crypto.CheckPassword(req.Password, account.PasswordHash); err != nil {
		s.log.Info("login failed: bad password", "audience", s.audience, "account_id", account.ID.Hex())
		return nil, ErrInvalidCredentials
	}

	return s.respondWithSession(account)
}

// Get loads a single account by id.
func (s *Service) Get(ctx context.Context, id bson.ObjectID) (*Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// List returns every account in the collection (admin listing).
func (s *Service) List(ctx context.Context) ([]*Account, error) {
	return s.repo.List(ctx)
}

// ForgotPassword starts the reset lifecycle: NoPendingReset -> PendingReset.
// Only the one-way hash of the token is stored; the raw token leaves the
// system exclusively through the email channel. A reissue while a reset is
// already pending simply overwrites the stored hash.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (string, error) {
	email := normalizeEmail(req.Email)

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", ErrAccountNotFound
	}

	rawToken, tokenHash, err := crypto.NewResetToken()
	if err != nil {
		s.log.Error("failed to generate reset token", "error", err)
		return "", errors.New("failed to generate reset token")
	}

	expiresAt := time.Now().UTC().Add(time.Duration(s.config.ResetTokenMinutes) * time.Minute)
	if err := s.repo.SetResetToken(ctx, account.ID, tokenHash, expiresAt); err != nil {
		s.log.Error("failed to store reset token", "error", err, "account_id", account.ID.Hex())
		return "", errors.New("failed to store reset token")
	}

	resetURL := s.resetURL(rawToken)
	body := fmt.Sprintf(
		"Your password reset token is:\n\n%s\n\nIf you have not requested this email then please ignore it.",
		resetURL,
	)

	if err := s.mailer.Send(ctx, account.Email, "Buzzaar Password Recovery", body); err != nil {
		// Compensate: roll back to NoPendingReset before surfacing the failure.
		if clearErr := s.repo.ClearResetToken(ctx, account.ID); clearErr != nil {
			s.log.Error("failed to clear reset token after delivery failure", "error", clearErr, "account_id", account.ID.Hex())
		}
		s.log.Error("reset email delivery failed", "error", err, "account_id", account.ID.Hex())
		return "", fmt.Errorf("%w: %s", ErrEmailDelivery, err.Error())
	}

	return fmt.Sprintf("Email sent to %s successfully", account.Email), nil
}

// ResetPassword redeems a raw reset token: PendingReset -> NoPendingReset.
// Expiry is a strict inequality; a token expiring exactly now is stale.
func (s *Service) ResetPassword(ctx context.Context, rawToken string, req ResetPasswordRequest) (*AuthResponse, error) {
	tokenHash := crypto.HashToken(rawToken)

	account, err := s.repo.FindByResetToken(ctx, tokenHash, time.Now().UTC())
	if err != nil {
		return nil, ErrResetTokenInvalid
	}

	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	hash, err := crypto.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		return nil, errors.New("failed to process password")
	}

	if err := s.repo.SetPasswordAndClearReset(ctx, account.ID, hash); err != nil {
		s.log.Error("failed to persist password reset", "error", err, "account_id", account.ID.Hex())
		return nil, errors.New("failed to reset password")
	}

	account.PasswordHash = hash
	account.ResetPasswordToken = ""
	account.ResetPasswordExpire = nil

	return s.respondWithSession(account)
}

// ChangePassword guards a password change behind the old-password check.
// The stored hash is untouched on any failure path.
func (s *Service) ChangePassword(ctx context.Context, id bson.ObjectID, req ChangePasswordRequest) (*AuthResponse, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	if err := crypto.CheckPassword(req.OldPassword, account.PasswordHash); err != nil {
		return nil, ErrWrongPassword
	}

	if req.NewPassword != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	hash, err := crypto.HashPassword(req.NewPassword, s.config.BcryptCost)
	if err != nil {
		return nil, errors.New("failed to process password")
	}

	if err := s.repo.SetPasswordHash(ctx, account.ID, hash); err != nil {
		s.log.Error("failed to persist password change", "error", err, "account_id", account.ID.Hex())
		return nil, errors.New("failed to change password")
	}

	account.PasswordHash = hash
	return s.respondWithSession(account)
}

// UpdateProfile mutates the self-service field set {name, email} only.
func (s *Service) UpdateProfile(ctx context.Context, id bson.ObjectID, req UpdateProfileRequest) (*Account, error) {
	patch := ProfilePatch{Name: req.Name, Email: normalizedEmailPtr(req.Email)}
	return s.applyPatch(ctx, id, patch)
}

// UpdateRole mutates {name, email, role}. Authorization is the caller's
// concern; this service only restricts the field set.
func (s *Service) UpdateRole(ctx context.Context, id bson.ObjectID, req UpdateRoleRequest) (*Account, error) {
	patch := ProfilePatch{Name: req.Name, Email: normalizedEmailPtr(req.Email), Role: req.Role}
	return s.applyPatch(ctx, id, patch)
}

// Delete removes an account (admin operation).
func (s *Service) Delete(ctx context.Context, id bson.ObjectID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		s.log.Error("failed to delete account", "error", err, "account_id", id.Hex())
		return errors.New("failed to delete account")
	}
	return nil
}

func (s *Service) applyPatch(ctx context.Context, id bson.ObjectID, patch ProfilePatch) (*Account, error) {
	account, err := s.repo.UpdateProfile(ctx, id, patch)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		s.log.Error("failed to update account", "error", err, "account_id", id.Hex())
		return nil, errors.New("failed to update account")
	}
	return account, nil
}

func (s *Service) respondWithSession(account *Account) (*AuthResponse, error) {
	token, err := s.issueSession(account)
	if err != nil {
		s.log.Error(ErrGenSessionToken.Error(), "error", err, "account_id", account.ID.Hex())
		return nil, ErrGenSessionToken
	}
	return &AuthResponse{Account: account, Token: token}, nil
}

// issueSession produces the opaque session artifact handed to HTTP callers.
func (s *Service) issueSession(account *Account) (string, error) {
	claims := jwt.MapClaims{
		"user_id": account.ID.Hex(),
		"email":   account.Email,
		"name":    account.Name,
		"role":    account.Role,
		"aud":     s.audience,
		"exp":     time.Now().Add(time.Duration(s.config.SessionTokenMinutes) * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	}

	alg := strings.ToUpper(s.config.JWTAlgorithm)
	var method jwt.SigningMethod
	switch alg {
	case "HS256":
		method = jwt.SigningMethodHS256
	default:
		return "", ErrUnsupportedJWTAlg
	}

	token := jwt.NewWithClaims(method, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// resetURL embeds the raw (unhashed) token into the public redemption URL.
func (s *Service) resetURL(rawToken string) string {
	base := strings.TrimSuffix(s.config.AppBaseURL, "/")
	if s.audience == AudienceSellers {
		return fmt.Sprintf("%s/api/v1/sellers/password/reset/%s", base, rawToken)
	}
	return fmt.Sprintf("%s/api/v1/password/reset/%s", base, rawToken)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizedEmailPtr(email *string) *string {
	if email == nil {
		return nil
	}
	normalized := normalizeEmail(*email)
	return &normalized
}
