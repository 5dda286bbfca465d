package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName      string    `gorm:"size:128" json:"first_name"`
	LastName       string    `gorm:"size:128" json:"last_name"`
	PasswordHash   string    `gorm:"size:128" json:"-"`
	Provider       *string   `gorm:"size:32;index:idx_provider_uid,unique" json:"provider,omitempty"`
	ProviderUserID *string   `gorm:"size:255;index:idx_provider_uid,unique" json:"-"`
	EmailVerified  bool      `gorm:"not null;default:false" json:"email_verified"`
	PictureURL     *string   `gorm:"size:512" json:"picture_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// HasPassword reports whether the account carries a local password
// credential. Provider-only accounts have none.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
