package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/roumel00/skeleton/internal/domain"
	"github.com/roumel00/skeleton/internal/http/handler"
	"github.com/roumel00/skeleton/internal/http/middleware"
	"github.com/roumel00/skeleton/internal/http/router"
	"github.com/roumel00/skeleton/internal/provider"
	"github.com/roumel00/skeleton/internal/repository"
	"github.com/roumel00/skeleton/internal/security"
	"github.com/roumel00/skeleton/internal/service"
)

const (
	testStateSecret = "handler-test-state-secret"
	testFrontend    = "https://app.example.com"
)

// stubOAuthProvider answers the exchange locally so handler tests do
// not need a fake provider server.
type stubOAuthProvider struct {
	profile     *provider.Profile
	exchangeErr error
	lastState   string
}

func (s *stubOAuthProvider) Name() string { return "google" }

func (s *stubOAuthProvider) AuthorizationURL(state string) string {
	s.lastState = state
	return "https://provider.example/authorize?state=" + url.QueryEscape(state)
}

func (s *stubOAuthProvider) Exchange(_ context.Context, code string) (*provider.Profile, error) {
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	if code != "good-code" {
		return nil, provider.ErrExchangeFailed
	}
	return s.profile, nil
}

type handlerFixture struct {
	srv      *httptest.Server
	client   *http.Client
	db       *gorm.DB
	users    repository.UserRepository
	tokens   *security.JWTManager
	notifier *captureNotifier
	google   *stubOAuthProvider
	states   *service.MemoryOAuthStateStore
	resets   *service.PasswordResetService
}

type captureNotifier struct {
	sent []service.PasswordResetNotification
	err  error
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, notification service.PasswordResetNotification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.PasswordResetToken{}); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := repository.NewUserRepository(db)
	resetTokens := repository.NewPasswordResetTokenRepository(db)
	notifier := &captureNotifier{}

	authSvc := service.NewAuthService(users, logger)
	resetSvc := service.NewPasswordResetService(users, resetTokens, notifier, logger, 30*time.Minute, testFrontend)

	tokens := security.NewJWTManager("skeleton-api", "skeleton-web", "handler-test-secret-32-bytes-long!!", time.Hour)
	cookies := security.NewCookiePolicy(time.Hour)

	google := &stubOAuthProvider{
		profile: &provider.Profile{
			Provider:       "google",
			ProviderUserID: "google-uid-1",
			Email:          "person@example.com",
			EmailVerified:  true,
			FirstName:      "Ada",
			LastName:       "Lovelace",
			PictureURL:     "https://example.com/pic.jpg",
		},
	}
	states := service.NewMemoryOAuthStateStore()

	authHandler := handler.NewAuthHandler(authSvc, resetSvc, tokens, cookies)
	oauthHandler := handler.NewOAuthHandler(
		provider.NewRegistry(google), states, authSvc, tokens, cookies,
		testStateSecret, 10*time.Minute, testFrontend,
	)
	authMw := middleware.NewAuthMiddleware(tokens)

	srv := httptest.NewServer(router.New(authHandler, oauthHandler, authMw))
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &handlerFixture{
		srv:      srv,
		client:   client,
		db:       db,
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		google:   google,
		states:   states,
		resets:   resetSvc,
	}
}

func (f *handlerFixture) postJSON(t *testing.T, path string, payload any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (f *handlerFixture) get(t *testing.T, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return body
}

func envelopeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := decodeEnvelope(t, resp)
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %v", body)
	}
	return data
}

func envelopeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decodeEnvelope(t, resp)
	apiErr, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	code, _ := apiErr["code"].(string)
	return code
}

func authCookieFrom(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == security.AuthCookieName {
			return c
		}
	}
	t.Fatal("expected auth cookie in response")
	return nil
}
