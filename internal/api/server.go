// Package api provides the HTTP API server and handlers for the BookSwap application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookswapapp/bookswap-server/internal/ratelimit"
	"github.com/bookswapapp/bookswap-server/internal/service"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           *store.Store
	authService     *service.AuthService
	bookService     *service.BookService
	exchangeService *service.ExchangeService
	matchService    *service.MatchService
	authLimiter     *ratelimit.KeyedRateLimiter
	router          *chi.Mux
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	store *store.Store,
	authService *service.AuthService,
	bookService *service.BookService,
	exchangeService *service.ExchangeService,
	matchService *service.MatchService,
	authLimiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:           store,
		authService:     authService,
		bookService:     bookService,
		exchangeService: exchangeService,
		matchService:    matchService,
		authLimiter:     authLimiter,
		router:          chi.NewRouter(),
		logger:          logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public, rate limited).
		r.Route("/auth", func(r chi.Router) {
			r.Use(s.rateLimitAuth)
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})

		// Protected user endpoints.
		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleGetCurrentUser)
		})

		// Catalog (require auth).
		r.Route("/books", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleListBooks)
			r.Post("/", s.handleCreateBook)
			r.Get("/user", s.handleListOwnedBooks)
			r.Get("/matches", s.handleGetMatches)
			r.Get("/{id}", s.handleGetBook)
			r.Put("/{id}", s.handleUpdateBook)
			r.Delete("/{id}", s.handleDeleteBook)
		})

		// Exchange requests (require auth).
		r.Route("/exchange-requests", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleProposeExchange)
			r.Get("/", s.handleListIncomingExchanges)
			r.Get("/sent", s.handleListSentExchanges)
			r.Post("/{id}/accept", s.handleAcceptExchange)
			r.Post("/{id}/decline", s.handleDeclineExchange)
		})
	})
}
