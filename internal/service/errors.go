package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrWrongMethod reports a password login attempt against an
	// account that only has an external identity.
	ErrWrongMethod    = errors.New("account uses an external sign-in method")
	ErrDuplicateEmail = errors.New("email already registered")

	ErrStateMismatch = errors.New("oauth state missing or mismatched")
	// ErrProviderEmailUnverified blocks linking an external identity to
	// an existing account when the provider has not verified the email.
	ErrProviderEmailUnverified = errors.New("provider email not verified")

	ErrInvalidOrExpiredResetToken = errors.New("invalid or expired reset token")
	ErrResetTokenExpired          = errors.New("reset token expired")
	// ErrUnsupportedForProviderAccount rejects password resets for
	// accounts that never had a password.
	ErrUnsupportedForProviderAccount = errors.New("password reset not supported for provider accounts")
)
