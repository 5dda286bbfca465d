package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roumel00/skeleton/internal/http/response"
	"github.com/roumel00/skeleton/internal/observability"
	"github.com/roumel00/skeleton/internal/provider"
	"github.com/roumel00/skeleton/internal/security"
	"github.com/roumel00/skeleton/internal/service"
)

const stateValueBytes = 32

type OAuthHandler struct {
	providers       *provider.Registry
	states          service.OAuthStateStore
	authSvc         *service.AuthService
	tokens          *security.JWTManager
	cookies         *security.CookiePolicy
	stateSecret     string
	stateTTL        time.Duration
	frontendBaseURL string
}

func NewOAuthHandler(
	providers *provider.Registry,
	states service.OAuthStateStore,
	authSvc *service.AuthService,
	tokens *security.JWTManager,
	cookies *security.CookiePolicy,
	stateSecret string,
	stateTTL time.Duration,
	frontendBaseURL string,
) *OAuthHandler {
	return &OAuthHandler{
		providers:       providers,
		states:          states,
		authSvc:         authSvc,
		tokens:          tokens,
		cookies:         cookies,
		stateSecret:     stateSecret,
		stateTTL:        stateTTL,
		frontendBaseURL: frontendBaseURL,
	}
}

// Start mints a signed state, remembers it server-side, and redirects
// the browser to the provider's consent page.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, r, http.StatusNotFound, "UNKNOWN_PROVIDER", "unknown oauth provider")
		return
	}

	raw, err := security.NewRandomString(stateValueBytes)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not start sign-in")
		return
	}
	if err := h.states.Save(r.Context(), raw, h.stateTTL); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not start sign-in")
		return
	}

	signed := security.SignState(raw, h.stateSecret)
	observability.RecordAuthEvent(r.Context(), "oauth", "started")
	http.Redirect(w, r, p.AuthorizationURL(signed), http.StatusFound)
}

// Callback finishes the authorization-code flow. Every failure sends
// the browser back to the frontend login page with an error code; a
// success sets the auth cookie and lands on the dashboard.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		h.redirectLoginError(w, r, "oauth_error")
		return
	}

	query := r.URL.Query()
	if query.Get("error") != "" {
		h.redirectLoginError(w, r, "oauth_error")
		return
	}
	code := query.Get("code")
	if code == "" {
		h.redirectLoginError(w, r, "no_code")
		return
	}

	if err := h.consumeState(r, query.Get("state")); err != nil {
		h.redirectLoginError(w, r, "invalid_state")
		return
	}

	profile, err := p.Exchange(r.Context(), code)
	if err != nil {
		h.redirectLoginError(w, r, "oauth_failed")
		return
	}

	user, err := h.authSvc.ResolveOAuth(r.Context(), profile)
	if err != nil {
		if errors.Is(err, service.ErrProviderEmailUnverified) {
			h.redirectLoginError(w, r, "email_not_verified")
			return
		}
		h.redirectLoginError(w, r, "oauth_failed")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.redirectLoginError(w, r, "oauth_failed")
		return
	}
	h.cookies.SetAuthCookie(w, r, token)
	http.Redirect(w, r, h.frontendBaseURL+"/dashboard", http.StatusFound)
}

// consumeState accepts a callback state only when it carries a valid
// signature AND is still pending server-side; consuming burns it for
// any replay.
func (h *OAuthHandler) consumeState(r *http.Request, signed string) error {
	raw, ok := security.VerifySignedState(signed, h.stateSecret)
	if !ok {
		return service.ErrStateMismatch
	}
	pending, err := h.states.Consume(r.Context(), raw)
	if err != nil {
		return err
	}
	if !pending {
		return service.ErrStateMismatch
	}
	return nil
}

func (h *OAuthHandler) redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	observability.RecordAuthEvent(r.Context(), "oauth", "redirect_"+code)
	http.Redirect(w, r, h.frontendBaseURL+"/login?error="+code, http.StatusFound)
}
