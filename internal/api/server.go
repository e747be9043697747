// Package api provides the HTTP API for favorites, folders and shared
// folder links.
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

	"github.com/hermanshu/targ-site-sub000/internal/auth"
	"github.com/hermanshu/targ-site-sub000/internal/favorites"
	"github.com/hermanshu/targ-site-sub000/internal/http/response"
	"github.com/hermanshu/targ-site-sub000/internal/ratelimit"
	"github.com/hermanshu/targ-site-sub000/internal/sse"
	"github.com/hermanshu/targ-site-sub000/internal/store"
)

const eventsPath = "/api/v1/events"

// Services groups what the API server serves.
type Services struct {
	Sessions     *favorites.Sessions
	Tokens       *auth.TokenService
	Events       *sse.Manager
	Store        store.Adapter
	ShareLimiter *ratelimit.KeyedRateLimiter
}

// Config holds HTTP-level options.
type Config struct {
	Title          string
	Version        string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	shared   *favorites.SharedFolders
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Title == "" {
		cfg.Title = "Favorites API"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}

	s := &Server{
		services: services,
		shared:   services.Sessions.Shared(),
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig(cfg.Title, cfg.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerFavoriteRoutes()
	s.registerFolderRoutes()
	s.registerSharedRoutes()

	s.router.Get(eventsPath, sse.NewHandler(services.Events, logger, ownerOf).ServeHTTP)
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route not found", logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "Method not allowed", logger)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for OpenAPI export and tests.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if cfg.RequestTimeout > 0 {
		// The event stream is long-lived and must not be cut off.
		timeout := middleware.Timeout(cfg.RequestTimeout)
		s.router.Use(func(next http.Handler) http.Handler {
			timed := timeout(next)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == eventsPath {
					next.ServeHTTP(w, r)
					return
				}
				timed.ServeHTTP(w, r)
			})
		})
	}

	s.router.Use(authMiddleware(s.services.Tokens))
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
