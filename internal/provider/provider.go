package provider

import (
	"context"
	"errors"
)

var (
	// ErrExchangeFailed covers any failure between receiving an
	// authorization code and obtaining a verified profile.
	ErrExchangeFailed  = errors.New("oauth code exchange failed")
	ErrUnknownProvider = errors.New("unknown oauth provider")
)

// Profile is the normalized identity an external provider vouches for.
// Implementations return identity facts only; account resolution and
// session management happen elsewhere.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	FirstName      string
	LastName       string
	PictureURL     string
}

// OAuthProvider is the contract every external identity provider
// implements.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string

	// AuthorizationURL returns the provider's consent URL carrying the
	// given state value.
	AuthorizationURL(state string) string

	// Exchange trades the authorization code for the provider's view of
	// the user. Failures wrap ErrExchangeFailed.
	Exchange(ctx context.Context, code string) (*Profile, error)
}
