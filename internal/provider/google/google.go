package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/roumel00/skeleton/internal/provider"
)

const (
	providerName       = "google"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Provider implements the Google authorization-code flow: code
// exchange against Google's token endpoint followed by a userinfo
// fetch with the resulting access token.
type Provider struct {
	cfg         *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// Option adjusts endpoints, used by tests to point at fakes.
type Option func(*Provider)

func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(p *Provider) { p.cfg.Endpoint = endpoint }
}

func WithUserInfoURL(url string) Option {
	return func(p *Provider) { p.userInfoURL = url }
}

func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

func New(clientID, clientSecret, redirectURL string, opts ...Option) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	p := &Provider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: defaultUserInfoURL,
		client:      http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) AuthorizationURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (p *Provider) Exchange(ctx context.Context, code string) (*provider.Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google token exchange: %v", provider.ErrExchangeFailed, err)
	}
	return p.fetchProfile(ctx, token.AccessToken)
}

type userInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (p *Provider) fetchProfile(ctx context.Context, accessToken string) (*provider.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build userinfo request: %v", provider.ErrExchangeFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch userinfo: %v", provider.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: userinfo returned %d: %s", provider.ErrExchangeFailed, resp.StatusCode, body)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", provider.ErrExchangeFailed, err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: userinfo missing id or email", provider.ErrExchangeFailed)
	}

	return &provider.Profile{
		Provider:       providerName,
		ProviderUserID: info.ID,
		Email:          info.Email,
		EmailVerified:  info.VerifiedEmail,
		FirstName:      info.GivenName,
		LastName:       info.FamilyName,
		PictureURL:     info.Picture,
	}, nil
}
