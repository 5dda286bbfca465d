package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/roumel00/skeleton/internal/http/handler"
	"github.com/roumel00/skeleton/internal/http/middleware"
	"github.com/roumel00/skeleton/internal/http/response"
)

// New assembles the HTTP surface: public auth endpoints, the OAuth
// redirect pair, and the cookie-guarded session endpoints.
func New(
	authHandler *handler.AuthHandler,
	oauthHandler *handler.OAuthHandler,
	authMw *middleware.AuthMiddleware,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authMw.RequireAuth)
			r.Get("/me", authHandler.Me)
		})
	})

	r.Route("/oauth/{provider}", func(r chi.Router) {
		r.Get("/start", oauthHandler.Start)
		r.Get("/callback", oauthHandler.Callback)
	})

	return r
}
