package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/roumel00/skeleton/internal/domain"
	"github.com/roumel00/skeleton/internal/observability"
	"github.com/roumel00/skeleton/internal/provider"
	"github.com/roumel00/skeleton/internal/repository"
	"github.com/roumel00/skeleton/internal/security"
)

// AuthService owns account creation, password login, and the mapping
// of external identities onto local accounts.
type AuthService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, logger: logger}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	hash, err := security.HashPassword(input.Password)
	if err != nil {
		observability.RecordAuthEvent(ctx, "register", "error")
		return nil, err
	}

	user := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordAuthEvent(ctx, "register", "duplicate")
			return nil, ErrDuplicateEmail
		}
		observability.RecordAuthEvent(ctx, "register", "error")
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "email", user.Email)
	observability.RecordAuthEvent(ctx, "register", "success")
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthEvent(ctx, "login", "failure")
			return nil, ErrInvalidCredentials
		}
		observability.RecordAuthEvent(ctx, "login", "error")
		return nil, err
	}

	if !user.HasPassword() {
		observability.RecordAuthEvent(ctx, "login", "wrong_method")
		return nil, ErrWrongMethod
	}
	if err := security.VerifyPassword(user.PasswordHash, password); err != nil {
		observability.RecordAuthEvent(ctx, "login", "failure")
		return nil, ErrInvalidCredentials
	}

	observability.RecordAuthEvent(ctx, "login", "success")
	return user, nil
}

func (s *AuthService) CurrentUser(_ context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(userID)
}

// ResolveOAuth maps a provider-verified profile onto a local account:
// an account already bound to this provider identity wins, then an
// existing account with the same email gets the identity linked, and
// otherwise a fresh account is created. Linking by email requires the
// provider to have verified it.
func (s *AuthService) ResolveOAuth(ctx context.Context, profile *provider.Profile) (*domain.User, error) {
	user, err := s.resolveOAuthOnce(ctx, profile)
	if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
		return user, err
	}
	// A concurrent callback for the same identity or email committed
	// first; the row it created must exist now, so resolve again.
	s.logger.WarnContext(ctx, "oauth resolution raced, retrying",
		"provider", profile.Provider, "email", profile.Email)
	return s.resolveOAuthOnce(ctx, profile)
}

func (s *AuthService) resolveOAuthOnce(ctx context.Context, profile *provider.Profile) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))

	user, err := s.users.FindByProvider(profile.Provider, profile.ProviderUserID)
	switch {
	case err == nil:
		if err := s.refreshProviderProfile(user, profile); err != nil {
			observability.RecordAuthEvent(ctx, "oauth", "error")
			return nil, err
		}
		observability.RecordAuthEvent(ctx, "oauth", "login")
		return s.users.FindByID(user.ID)
	case !errors.Is(err, repository.ErrUserNotFound):
		observability.RecordAuthEvent(ctx, "oauth", "error")
		return nil, err
	}

	user, err = s.users.FindByEmail(email)
	switch {
	case err == nil:
		if !profile.EmailVerified {
			observability.RecordAuthEvent(ctx, "oauth", "unverified_email")
			return nil, ErrProviderEmailUnverified
		}
		if err := s.users.LinkProvider(user.ID, profile.Provider, profile.ProviderUserID, optionalString(profile.PictureURL)); err != nil {
			observability.RecordAuthEvent(ctx, "oauth", "error")
			return nil, err
		}
		s.logger.InfoContext(ctx, "provider identity linked",
			"user_id", user.ID, "provider", profile.Provider)
		observability.RecordAuthEvent(ctx, "oauth", "linked")
		return s.users.FindByID(user.ID)
	case !errors.Is(err, repository.ErrUserNotFound):
		observability.RecordAuthEvent(ctx, "oauth", "error")
		return nil, err
	}

	created := &domain.User{
		Email:          email,
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
		Provider:       &profile.Provider,
		ProviderUserID: &profile.ProviderUserID,
		EmailVerified:  profile.EmailVerified,
		PictureURL:     optionalString(profile.PictureURL),
	}
	if err := s.users.Create(created); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordAuthEvent(ctx, "oauth", "error")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created from provider profile",
		"user_id", created.ID, "provider", profile.Provider)
	observability.RecordAuthEvent(ctx, "oauth", "created")
	return created, nil
}

// refreshProviderProfile keeps locally edited names but picks up name
// fields the account never had, and always takes the latest picture.
func (s *AuthService) refreshProviderProfile(user *domain.User, profile *provider.Profile) error {
	firstName := user.FirstName
	lastName := user.LastName
	if firstName == "" {
		firstName = profile.FirstName
	}
	if lastName == "" {
		lastName = profile.LastName
	}
	return s.users.UpdateProviderProfile(user.ID, firstName, lastName, optionalString(profile.PictureURL))
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
