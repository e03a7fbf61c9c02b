package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seralis/fableforge/internal/handler/game"
	"github.com/seralis/fableforge/internal/handler/play"
	"github.com/seralis/fableforge/internal/handler/stream"
	middlewarePkg "github.com/seralis/fableforge/internal/middleware"
	"github.com/seralis/fableforge/internal/service/session"
)

// NewRouter wires HTTP routes to the session manager.
func NewRouter(sessions *session.Manager) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	gameHandler := game.New(sessions)
	streamHandler := stream.New(sessions)
	playHandler := play.NewWebSocketHandler(sessions)

	r.Route("/api", func(api chi.Router) {
		gameHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		playHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
