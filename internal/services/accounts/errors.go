package accounts

import "errors"

// ErrAccountNotFound is returned when an account id or email doesn't resolve.
var ErrAccountNotFound = errors.New("account not found")

// ErrDuplicate is returned when creating an account with an email that already exists.
var ErrDuplicate = errors.New("account with this email already exists")

// ErrInvalidCredentials is returned on a failed login.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrResetTokenInvalid is returned when a reset token is absent or stale.
var ErrResetTokenInvalid = errors.New("reset password token is invalid or has expired")

// ErrPasswordMismatch is returned when the two supplied secrets disagree.
var ErrPasswordMismatch = errors.New("passwords do not match")

// ErrWrongPassword is returned when the old password check fails.
var ErrWrongPassword = errors.New("old password is incorrect")

// ErrEmailDelivery is returned when the reset email could not be sent.
var ErrEmailDelivery = errors.New("failed to send password reset email")

// ErrGenSessionToken is returned when we cannot create a session JWT.
var ErrGenSessionToken = errors.New("failed to generate session token")

// ErrUnsupportedJWTAlg is returned at boot when JWT_ALGORITHM is not supported.
var ErrUnsupportedJWTAlg = errors.New("unsupported JWT algorithm")

// Token claim errors surfaced by the JWT middleware.
var (
	ErrInvalidTokenMissingUserID = errors.New("invalid token: missing user_id")
	ErrInvalidTokenMissingEmail  = errors.New("invalid token: missing email")
)
