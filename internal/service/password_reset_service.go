package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roumel00/skeleton/internal/domain"
	"github.com/roumel00/skeleton/internal/observability"
	"github.com/roumel00/skeleton/internal/repository"
	"github.com/roumel00/skeleton/internal/security"
)

const resetTokenBytes = 32

// PasswordResetService mints and redeems single-use reset tokens.
// Requesting a reset never reveals whether an email is registered.
type PasswordResetService struct {
	users           repository.UserRepository
	tokens          repository.PasswordResetTokenRepository
	notifier        PasswordResetNotifier
	logger          *slog.Logger
	tokenTTL        time.Duration
	frontendBaseURL string
	now             func() time.Time
}

func NewPasswordResetService(
	users repository.UserRepository,
	tokens repository.PasswordResetTokenRepository,
	notifier PasswordResetNotifier,
	logger *slog.Logger,
	tokenTTL time.Duration,
	frontendBaseURL string,
) *PasswordResetService {
	return &PasswordResetService{
		users:           users,
		tokens:          tokens,
		notifier:        notifier,
		logger:          logger,
		tokenTTL:        tokenTTL,
		frontendBaseURL: frontendBaseURL,
		now:             time.Now,
	}
}

// RequestReset issues a fresh token for the account behind email and
// hands it to the notifier. Unknown emails and accounts without a
// password are acknowledged without action, so the response never
// leaks account existence.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordResetTokenEvent(ctx, "request_unknown_email")
			return nil
		}
		return err
	}
	if !user.HasPassword() {
		s.logger.InfoContext(ctx, "reset requested for provider-only account, skipping",
			"user_id", user.ID)
		observability.RecordResetTokenEvent(ctx, "request_provider_account")
		return nil
	}

	// One outstanding token per account: older unused tokens die when
	// a new one is minted.
	if err := s.tokens.DeleteUnusedByUser(user.ID); err != nil {
		return err
	}

	raw, err := security.NewRandomString(resetTokenBytes)
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.tokenTTL)
	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		ExpiresAt: expiresAt,
	}
	if err := s.tokens.Create(token); err != nil {
		return err
	}
	observability.RecordResetTokenEvent(ctx, "issued")

	notification := PasswordResetNotification{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName(),
		Token:       raw,
		ExpiresAt:   expiresAt,
		ResetURL:    fmt.Sprintf("%s/reset-password?token=%s", s.frontendBaseURL, raw),
	}
	// Delivery failure must not change the caller-visible outcome, or a
	// broken mail backend would reveal which emails have accounts.
	if err := s.notifier.SendPasswordReset(ctx, notification); err != nil {
		s.logger.ErrorContext(ctx, "reset notification failed",
			"user_id", user.ID, "error", err)
	}
	return nil
}

// Redeem validates the raw token and replaces the account password in
// one transaction. The token is burned on success; concurrent redeems
// of the same token leave exactly one winner.
func (s *PasswordResetService) Redeem(ctx context.Context, rawToken, newPassword string) error {
	token, err := s.tokens.FindUnusedByHash(security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			observability.RecordResetTokenEvent(ctx, "redeem_invalid")
			return ErrInvalidOrExpiredResetToken
		}
		return err
	}

	now := s.now()
	if now.After(token.ExpiresAt) {
		observability.RecordResetTokenEvent(ctx, "redeem_expired")
		return ErrResetTokenExpired
	}

	user, err := s.users.FindByID(token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidOrExpiredResetToken
		}
		return err
	}
	if !user.HasPassword() {
		observability.RecordResetTokenEvent(ctx, "redeem_provider_account")
		return ErrUnsupportedForProviderAccount
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.tokens.ConsumeAndReplacePassword(token.ID, user.ID, hash, now); err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			observability.RecordResetTokenEvent(ctx, "redeem_raced")
			return ErrInvalidOrExpiredResetToken
		}
		return err
	}

	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	observability.RecordResetTokenEvent(ctx, "redeemed")
	return nil
}
