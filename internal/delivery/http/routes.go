package http

import (
	"net/http"
	"time"

	wsDelivery "propchat/internal/delivery/websocket"
	"propchat/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the base router with the middleware every route shares.
func NewRouter(log *logger.Logger, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.RateLimitRequests > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitRequests, opts.RateLimitWindow))
	}
	return r
}

func MapHttpRoutes(r *chi.Mux, httpHandler *HttpHandler, websocketHandler *wsDelivery.WebsocketHandler, authMiddleware *AuthMiddleware) {
	r.Get("/health", httpHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// the websocket handler authenticates the upgrade itself
	r.Get("/ws", websocketHandler.HandleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/me", http.HandlerFunc(httpHandler.Register))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.ResolveParty)

			r.Route("/invitations", func(r chi.Router) {
				r.Post("/", httpHandler.CreateInvitation)
				r.Get("/pending", httpHandler.PendingInvitations)
				r.Post("/{id}/accept", httpHandler.AcceptInvitation)
				r.Post("/{id}/decline", httpHandler.DeclineInvitation)
			})

			r.Route("/blocks", func(r chi.Router) {
				r.Post("/", httpHandler.Block)
				r.Get("/", httpHandler.ListBlocked)
				r.Delete("/{targetId}", httpHandler.Unblock)
			})

			r.Get("/friends", httpHandler.ListFriends)

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", httpHandler.ListConversations)
				r.Post("/{id}/hide", httpHandler.HideConversation)
				r.Post("/{id}/read", httpHandler.MarkConversationRead)
				r.Get("/{id}/messages", httpHandler.GetMessages)
				r.Post("/{id}/messages", httpHandler.SendMessage)
			})
		})
	})
}
