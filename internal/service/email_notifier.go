package service

import (
	"context"
	"log/slog"
	"time"
)

type PasswordResetNotification struct {
	UserID      string
	Email       string
	DisplayName string
	Token       string
	ExpiresAt   time.Time
	ResetURL    string
}

// PasswordResetNotifier delivers reset instructions to the account
// owner. Token persistence happens before delivery; a failed delivery
// leaves a valid token behind.
type PasswordResetNotifier interface {
	SendPasswordReset(ctx context.Context, notification PasswordResetNotification) error
}

// DevPasswordResetNotifier logs the reset link instead of sending
// email. Useful until an SMTP or provider integration is configured.
type DevPasswordResetNotifier struct {
	logger *slog.Logger
}

func NewDevPasswordResetNotifier(logger *slog.Logger) *DevPasswordResetNotifier {
	return &DevPasswordResetNotifier{logger: logger}
}

func (n *DevPasswordResetNotifier) SendPasswordReset(ctx context.Context, notification PasswordResetNotification) error {
	n.logger.InfoContext(ctx, "password reset token issued",
		"user_id", notification.UserID,
		"email", notification.Email,
		"display_name", notification.DisplayName,
		"expires_at", notification.ExpiresAt,
		"reset_url", notification.ResetURL,
	)
	return nil
}
