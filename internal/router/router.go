package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/nmateus/go-user-accounts/internal/api/auth"
	"github.com/nmateus/go-user-accounts/internal/api/org"
	"github.com/nmateus/go-user-accounts/internal/api/user"
)

// Config carries the handlers and middleware the router wires together.
// Server-wide middleware (request ID, logging, recovery) is applied in main
// before this router is mounted.
type Config struct {
	AuthHandler            *auth.AuthHandlerImpl
	UserHandler            *user.HandlerImpl
	OrgHandler             *org.HandlerImpl
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter builds the API route tree. Register, login and refresh are
// public; everything else runs behind the authentication guard.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			// Public routes: no access token required. Refresh carries its
			// own credential (the refresh token) and is validated in the
			// handler, not by the guard.
			r.Group(func(r chi.Router) {
				r.Post("/register", cfg.AuthHandler.Register)
				r.Post("/login", cfg.AuthHandler.Login)
				r.Post("/refresh-token", cfg.AuthHandler.RefreshToken)
			})

			r.Group(func(r chi.Router) {
				r.Use(cfg.AuthenticateMiddleware)

				r.Post("/logout", cfg.AuthHandler.Logout)
				r.Post("/change-password", cfg.AuthHandler.ChangePassword)
				r.Get("/current-user", cfg.UserHandler.GetCurrentUser)
				r.Patch("/update-account", cfg.UserHandler.UpdateAccount)
				r.Get("/all-users", cfg.UserHandler.GetAllUsers)

				r.Route("/{userID}", func(r chi.Router) {
					r.Get("/", cfg.UserHandler.GetUserByID)
					r.Patch("/", cfg.UserHandler.UpdateUserByID)
					r.Delete("/", cfg.UserHandler.DeleteUserByID)
				})
			})
		})

		r.Route("/org", func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/companies", cfg.OrgHandler.ListCompanies)
			r.Get("/zones", cfg.OrgHandler.ListZones)
			r.Get("/branches", cfg.OrgHandler.ListBranches)
			r.Get("/divisions", cfg.OrgHandler.ListDivisions)
			r.Get("/lobs", cfg.OrgHandler.ListLinesOfBusiness)
		})
	})

	return r
}
