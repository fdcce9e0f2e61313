// Package api provides the HTTP server: the huma persistence API under
// /api/v1, the SSE change feed and the /api/chat proxy.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/ratelimit"
	"github.com/storyloom/storyloom-server/internal/sse"
	"github.com/storyloom/storyloom-server/internal/store"
	"github.com/storyloom/storyloom-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg         *config.Config
	backend     store.Backend
	services    *Services
	sseManager  *sse.Manager
	chatLimiter *ratelimit.KeyedRateLimiter
	validator   *validation.Validator
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
	startedAt   time.Time
}

// NewServer creates a new HTTP server with all routes configured.
// chatLimiter may be nil to disable chat rate limiting.
func NewServer(cfg *config.Config, backend store.Backend, services *Services, sseManager *sse.Manager, chatLimiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		cfg:         cfg,
		backend:     backend,
		services:    services,
		sseManager:  sseManager,
		chatLimiter: chatLimiter,
		validator:   validation.New(),
		router:      router,
		logger:      logger,
		startedAt:   time.Now(),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Storyloom API", config.Version)
	humaConfig.Info.Description = "Persistence and AI assist for the Storyloom writing tool"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware() {
	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", sessionHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerInstanceRoutes()
	s.registerBookRoutes()
	s.registerTagRoutes()
	s.registerSlideRoutes()
	s.registerDrawingRoutes()
	s.registerSettingsRoutes()

	// Plain chi routes: the chat proxy keeps its historical bare JSON shape
	// and the event stream is not a JSON API.
	chat := http.Handler(http.HandlerFunc(s.handleChat))
	if s.chatLimiter != nil {
		chat = RateLimitMiddleware(s.chatLimiter, s.logger)(chat)
	}
	s.router.Method(http.MethodPost, "/api/chat", chat)

	if s.sseManager != nil {
		s.router.Method(http.MethodGet, "/api/v1/events", sse.NewHandler(s.sseManager, s.logger))
	}
}
