package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/contentdeck/apiserver/config"
	"github.com/contentdeck/apiserver/internal/auth"
	"github.com/contentdeck/apiserver/internal/db"
	"github.com/contentdeck/apiserver/internal/mq"
	"github.com/contentdeck/apiserver/internal/ratelimit"
	"github.com/contentdeck/apiserver/internal/services"
	"github.com/contentdeck/apiserver/internal/storage"
	"github.com/contentdeck/apiserver/internal/store"
)

// Server wraps the HTTP server, router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *zap.Logger

	db      *sqlx.DB
	queue   *mq.MQ
	redis   *redis.Client
	objects *storage.Storage
}

// New opens the database and optional broker, cache and object storage, then
// builds the router. Connections opened before a failure are closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (srv *Server, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger}
	defer func() {
		if err != nil {
			s.closeAll()
		}
	}()

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	s.db, err = db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s.queue, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		logger.Info("event publishing disabled")
	}

	s.objects, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var authLimiter, apiLimiter ratelimit.Allower
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		s.redis = redis.NewClient(opts)
		rl := cfg.RateLimit
		authLimiter = ratelimit.NewLimiter(s.redis, rl.RedisPrefix, "auth", rl.AuthLimit, rl.Window)
		apiLimiter = ratelimit.NewLimiter(s.redis, rl.RedisPrefix, "api", rl.APILimit, rl.Window)
	} else {
		logger.Info("rate limiting disabled")
	}

	userRepo := store.NewUserRepository(s.db)
	blogRepo := store.NewBlogRepository(s.db)
	movieRepo := store.NewMovieRepository(s.db)
	tvShowRepo := store.NewTVShowRepository(s.db)

	events := services.NewEvents(s.queue, cfg.MQ.Channel, logger)
	blogService := services.NewBlogService(blogRepo, events)
	movieService := services.NewMediaService(movieRepo, events)
	tvShowService := services.NewMediaService(tvShowRepo, events)
	userService := services.NewUserService(
		userRepo,
		auth.NewPasswordHasher(cfg.Auth.HashCost, cfg.Auth.HashWorkers),
		tokens,
		services.ProfileCounters{Blogs: blogService, Movies: movieService, TVShows: tvShowService},
		events,
	)

	var exportService *services.ExportService
	if s.objects != nil {
		exportService = services.NewExportService(userRepo, blogRepo, movieRepo, tvShowRepo, s.objects)
	} else {
		logger.Info("exports disabled, no storage backend configured")
	}

	s.router = NewRouter(Deps{
		Users:       userService,
		Blogs:       blogService,
		Movies:      movieService,
		TVShows:     tvShowService,
		Exports:     exportService,
		Guard:       auth.NewGuard(tokens),
		DB:          s.db,
		AuthLimiter: authLimiter,
		APILimiter:  apiLimiter,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.RateLimit.TrustProxy,
		Logger:      logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 5001
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the pool, broker, cache
// and storage clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if cerr := s.closeAll(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func (s *Server) closeAll() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.queue != nil {
		errs = append(errs, s.queue.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.objects != nil {
		errs = append(errs, s.objects.Close())
	}
	return errors.Join(errs...)
}
