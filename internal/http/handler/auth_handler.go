package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/roumel00/skeleton/internal/domain"
	"github.com/roumel00/skeleton/internal/http/middleware"
	"github.com/roumel00/skeleton/internal/http/response"
	"github.com/roumel00/skeleton/internal/security"
	"github.com/roumel00/skeleton/internal/service"
)

const minPasswordLength = 8

type AuthHandler struct {
	authSvc  *service.AuthService
	resetSvc *service.PasswordResetService
	tokens   *security.JWTManager
	cookies  *security.CookiePolicy
}

func NewAuthHandler(
	authSvc *service.AuthService,
	resetSvc *service.PasswordResetService,
	tokens *security.JWTManager,
	cookies *security.CookiePolicy,
) *AuthHandler {
	return &AuthHandler{
		authSvc:  authSvc,
		resetSvc: resetSvc,
		tokens:   tokens,
		cookies:  cookies,
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if msg, ok := validateEmail(req.Email); !ok {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", msg)
		return
	}
	if len(req.Password) < minPasswordLength {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", "password must be at least 8 characters")
		return
	}

	user, err := h.authSvc.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			response.Error(w, r, http.StatusConflict, "DUPLICATE_EMAIL", "email already registered")
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed")
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not start session")
		return
	}
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	user, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongMethod):
			response.Error(w, r, http.StatusUnauthorized, "WRONG_METHOD", "this account uses an external sign-in method")
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed")
		}
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not start session")
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	user, err := h.authSvc.CurrentUser(r.Context(), claims.Subject)
	if err != nil {
		// The token outlived the account.
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "account no longer exists")
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearAuthCookie(w, r)
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if msg, ok := validateEmail(req.Email); !ok {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", msg)
		return
	}

	if err := h.resetSvc.RequestReset(r.Context(), req.Email); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not process request")
		return
	}
	// Same answer whether or not the account exists.
	response.JSON(w, r, http.StatusOK, map[string]string{
		"message": "if that email is registered, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Token == "" {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", "token is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION", "password must be at least 8 characters")
		return
	}

	if err := h.resetSvc.Redeem(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrResetTokenExpired):
			response.Error(w, r, http.StatusBadRequest, "TOKEN_EXPIRED", "reset token has expired")
		case errors.Is(err, service.ErrInvalidOrExpiredResetToken):
			response.Error(w, r, http.StatusBadRequest, "TOKEN_INVALID", "invalid or expired reset token")
		case errors.Is(err, service.ErrUnsupportedForProviderAccount):
			response.Error(w, r, http.StatusBadRequest, "WRONG_METHOD", "this account uses an external sign-in method")
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not reset password")
		}
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *domain.User) error {
	token, err := h.tokens.Issue(user)
	if err != nil {
		return err
	}
	h.cookies.SetAuthCookie(w, r, token)
	return nil
}

func validateEmail(email string) (string, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "email is required", false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "email is invalid", false
	}
	return "", true
}
