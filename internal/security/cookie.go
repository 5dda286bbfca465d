package security

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const AuthCookieName = "AuthToken"

// CookiePolicy decides outgoing auth-cookie attributes from request
// context alone. It holds no state; Set and Clear share one attribute
// computation so a clear always matches the preceding set (browsers
// silently ignore deletions with mismatched Secure/SameSite).
type CookiePolicy struct {
	TTL time.Duration
}

func NewCookiePolicy(ttl time.Duration) *CookiePolicy {
	return &CookiePolicy{TTL: ttl}
}

type cookieAttributes struct {
	Secure   bool
	SameSite http.SameSite
}

func (p *CookiePolicy) attributesFor(r *http.Request) cookieAttributes {
	https := requestIsHTTPS(r)
	if https && (requestIsCrossOrigin(r) || hostIsProduction(r)) {
		return cookieAttributes{Secure: true, SameSite: http.SameSiteNoneMode}
	}
	return cookieAttributes{Secure: false, SameSite: http.SameSiteLaxMode}
}

func (p *CookiePolicy) SetAuthCookie(w http.ResponseWriter, r *http.Request, token string) {
	attrs := p.attributesFor(r)
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   attrs.Secure,
		SameSite: attrs.SameSite,
		Expires:  time.Now().UTC().Add(p.TTL),
		MaxAge:   int(p.TTL.Seconds()),
	})
}

func (p *CookiePolicy) ClearAuthCookie(w http.ResponseWriter, r *http.Request) {
	attrs := p.attributesFor(r)
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   attrs.Secure,
		SameSite: attrs.SameSite,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	})
}

func GetCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func requestIsHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func requestIsCrossOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return !strings.EqualFold(u.Hostname(), requestHostname(r))
}

func hostIsProduction(r *http.Request) bool {
	host := strings.ToLower(requestHostname(r))
	return host != "localhost" && !strings.HasPrefix(host, "127.0.0.1")
}

func requestHostname(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
