package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/roumel00/skeleton/internal/domain"
	"github.com/roumel00/skeleton/internal/observability"
)

var ErrResetTokenNotFound = errors.New("password reset token not found")

type PasswordResetTokenRepository interface {
	Create(token *domain.PasswordResetToken) error
	DeleteUnusedByUser(userID string) error
	FindUnusedByHash(hash string) (*domain.PasswordResetToken, error)
	// ConsumeAndReplacePassword marks the token used and replaces the
	// owner's password hash as one transaction. On failure the token
	// stays unused and the old credential stays in place.
	ConsumeAndReplacePassword(tokenID uint, userID, passwordHash string, now time.Time) error
}

type GormPasswordResetTokenRepository struct{ db *gorm.DB }

func NewPasswordResetTokenRepository(db *gorm.DB) PasswordResetTokenRepository {
	return &GormPasswordResetTokenRepository{db: db}
}

func (r *GormPasswordResetTokenRepository) Create(token *domain.PasswordResetToken) error {
	if err := r.db.Create(token).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "reset_token", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "reset_token", "create", "success")
	return nil
}

func (r *GormPasswordResetTokenRepository) DeleteUnusedByUser(userID string) error {
	err := r.db.Where("user_id = ? AND used_at IS NULL", userID).
		Delete(&domain.PasswordResetToken{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "reset_token", "delete_unused", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "reset_token", "delete_unused", "success")
	return nil
}

func (r *GormPasswordResetTokenRepository) FindUnusedByHash(hash string) (*domain.PasswordResetToken, error) {
	var token domain.PasswordResetToken
	err := r.db.Where("token_hash = ? AND used_at IS NULL", hash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "reset_token", "find_unused", "not_found")
			return nil, ErrResetTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "reset_token", "find_unused", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "reset_token", "find_unused", "success")
	return &token, nil
}

func (r *GormPasswordResetTokenRepository) ConsumeAndReplacePassword(tokenID uint, userID, passwordHash string, now time.Time) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// guarded update: only one concurrent redeemer wins
		res := tx.Model(&domain.PasswordResetToken{}).
			Where("id = ? AND user_id = ? AND used_at IS NULL", tokenID, userID).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrResetTokenNotFound
		}

		res = tx.Model(&domain.User{}).Where("id = ?", userID).Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrResetTokenNotFound) || errors.Is(err, ErrUserNotFound) {
			outcome = "not_found"
		}
		observability.RecordRepositoryOperation(context.Background(), "reset_token", "consume", outcome)
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "reset_token", "consume", "success")
	return nil
}
