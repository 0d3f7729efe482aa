package routes

import (
	"net/http"
	"time"

	"github.com/avvvet/monopoly-services/internal/gamesvc/handlers"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/jwtauth"
)

// SetRoutes mounts the REST api and the game socket under /v1.
func SetRoutes(r chi.Router, games *handlers.Handler, socket http.HandlerFunc) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", games.HealthHandler)
		r.Get("/ws/{gameID}", socket)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(games.TokenAuth()))
			r.Use(jwtauth.Authenticator)
			r.Use(middleware.Timeout(60 * time.Second))

			r.Post("/games", games.CreateGameHandler)
			r.Post("/games/{gameID}/join", games.JoinGameHandler)
			r.Get("/games/{gameID}", games.GetGameHandler)
		})
	})
}
