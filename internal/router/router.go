package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/skyvault/skyvault/internal/api"
	"github.com/skyvault/skyvault/internal/api/auth"
	"github.com/skyvault/skyvault/internal/api/catalog"
	"github.com/skyvault/skyvault/internal/api/favorites"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	AuthHandler            *auth.AuthHandler
	FavoritesHandler       *favorites.FavoritesHandler
	CatalogHandler         *catalog.CatalogHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are applied before
// mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
			"ok":   true,
			"time": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {

		// --- Public routes ---
		r.Group(func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
			// Logout is unauthenticated-safe: it only clears the cookie.
			r.Post("/logout", cfg.AuthHandler.Logout)

			r.Get("/items", cfg.CatalogHandler.Items)
			r.Get("/election", cfg.CatalogHandler.Election)
			r.Get("/players/{name}/profiles", cfg.CatalogHandler.PlayerProfiles)
		})

		// --- Protected routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/favorites", cfg.FavoritesHandler.List)
			r.Post("/favorites", cfg.FavoritesHandler.Add)
			r.Delete("/favorites", cfg.FavoritesHandler.Remove)
		})
	})

	return r
}
