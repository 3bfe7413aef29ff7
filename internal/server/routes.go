package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/contentdeck/apiserver/internal/auth"
	"github.com/contentdeck/apiserver/internal/handlers"
	"github.com/contentdeck/apiserver/internal/logging"
	"github.com/contentdeck/apiserver/internal/ratelimit"
	"github.com/contentdeck/apiserver/internal/services"
)

const requestTimeout = 60 * time.Second

// Deps holds everything the router serves. Exports, AuthLimiter and
// APILimiter are optional.
type Deps struct {
	Users   *services.UserService
	Blogs   *services.BlogService
	Movies  *services.MediaService
	TVShows *services.MediaService
	Exports *services.ExportService
	Guard   *auth.Guard
	DB      handlers.Pinger

	AuthLimiter ratelimit.Allower
	APILimiter  ratelimit.Allower

	CORSOrigins []string
	TrustProxy  bool
	Logger      *zap.Logger
}

// NewRouter builds the HTTP routes under /api/v1 and its /api alias.
func NewRouter(d Deps) *chi.Mux {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if d.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(
		middleware.Recoverer,
		logging.Middleware(logger),
		middleware.Timeout(requestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		securityHeaders,
	)
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	health := handlers.NewHealthHandler(d.DB, logger)
	router.Get("/health", health.Health)
	router.Get("/healthz", handlers.Healthz)

	api := func(r chi.Router) { mountAPI(r, d, health, logger) }
	router.Route("/api/v1", api)
	router.Route("/api", api)

	return router
}

func mountAPI(r chi.Router, d Deps, health *handlers.HealthHandler, logger *zap.Logger) {
	r.Use(ratelimit.Middleware(d.APILimiter, logger))
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", health.Health)

	requireAuth := handlers.RequireAuth(d.Guard, logger)
	authLimit := ratelimit.Middleware(d.AuthLimiter, logger)

	r.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, handlers.NewAuthHandler(d.Users, logger), requireAuth, authLimit)
	})
	r.Route("/blogs", func(r chi.Router) {
		r.Use(requireAuth)
		handlers.BlogRouter(r, handlers.NewBlogHandler(d.Blogs, logger))
	})
	r.Route("/movies", func(r chi.Router) {
		r.Use(requireAuth)
		handlers.MediaRouter(r, handlers.NewMediaHandler(d.Movies, logger))
	})
	r.Route("/tvshows", func(r chi.Router) {
		r.Use(requireAuth)
		handlers.MediaRouter(r, handlers.NewMediaHandler(d.TVShows, logger))
	})

	public := handlers.NewPublicHandler(d.Users, d.Blogs, d.Movies, d.TVShows, logger)
	r.Route("/public", func(r chi.Router) {
		handlers.PublicRouter(r, public)
	})
	r.Route("/profile", func(r chi.Router) {
		handlers.ProfileRouter(r, public, requireAuth)
	})

	if d.Exports != nil {
		r.Route("/exports", func(r chi.Router) {
			r.Use(requireAuth)
			handlers.ExportRouter(r, handlers.NewExportHandler(d.Exports, logger))
		})
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
