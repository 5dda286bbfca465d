package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/roumel00/skeleton/internal/domain"
)

func testUser() *domain.User {
	provider := "google"
	picture := "https://example.com/p.png"
	return &domain.User{
		ID:             "user-1",
		Email:          "alice@example.com",
		FirstName:      "Alice",
		LastName:       "Smith",
		Provider:       &provider,
		ProviderUserID: &provider,
		PictureURL:     &picture,
	}
}

func TestJWTIssueAndParseRoundTrip(t *testing.T) {
	mgr := NewJWTManager("iss", "aud", strings.Repeat("k", 32), time.Hour)
	raw, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := mgr.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Name != "Alice Smith" {
		t.Fatalf("unexpected display name claim %q", claims.Name)
	}
	if claims.Provider != "google" || claims.Picture == "" {
		t.Fatalf("expected provider and picture claims, got %+v", claims)
	}
}

func TestJWTParseRejectsExpired(t *testing.T) {
	mgr := NewJWTManager("iss", "aud", strings.Repeat("k", 32), -time.Minute)
	raw, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := mgr.Parse(raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTParseRejectsTamperedToken(t *testing.T) {
	mgr := NewJWTManager("iss", "aud", strings.Repeat("k", 32), time.Hour)
	raw, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// flip one byte of the payload
	b := []byte(raw)
	mid := len(b) / 2
	if b[mid] == 'a' {
		b[mid] = 'b'
	} else {
		b[mid] = 'a'
	}
	if _, err := mgr.Parse(string(b)); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for tampered token, got %v", err)
	}
}

func TestJWTParseRejectsWrongSecret(t *testing.T) {
	mgr := NewJWTManager("iss", "aud", strings.Repeat("k", 32), time.Hour)
	other := NewJWTManager("iss", "aud", strings.Repeat("x", 32), time.Hour)
	raw, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Parse(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong secret, got %v", err)
	}
}

func TestJWTParseRejectsIssuerAndAudienceMismatch(t *testing.T) {
	secret := strings.Repeat("k", 32)
	mgr := NewJWTManager("iss", "aud", secret, time.Hour)
	raw, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	wrongIssuer := NewJWTManager("other-iss", "aud", secret, time.Hour)
	if _, err := wrongIssuer.Parse(raw); !errors.Is(err, ErrTokenIssuerMismatch) {
		t.Fatalf("expected ErrTokenIssuerMismatch on issuer, got %v", err)
	}

	wrongAudience := NewJWTManager("iss", "other-aud", secret, time.Hour)
	if _, err := wrongAudience.Parse(raw); !errors.Is(err, ErrTokenIssuerMismatch) {
		t.Fatalf("expected ErrTokenIssuerMismatch on audience, got %v", err)
	}
}

func FuzzJWTParseRobustness(f *testing.F) {
	mgr := NewJWTManager("iss", "aud", strings.Repeat("k", 32), time.Hour)
	valid, _ := mgr.Issue(testUser())

	f.Add(valid)
	f.Add("")
	f.Add("not-a-jwt")
	f.Add("a.b.c")
	f.Add(strings.Repeat("x", 8192))

	f.Fuzz(func(t *testing.T, raw string) {
		if len(raw) > 16384 {
			raw = raw[:16384]
		}
		claims, err := mgr.Parse(raw)
		if err != nil {
			return
		}
		if claims == nil || claims.Subject == "" {
			t.Fatal("successful parse must yield claims with a subject")
		}
	})
}
