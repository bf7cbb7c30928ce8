package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"catalog-admin/internal/cache"
	"catalog-admin/internal/config"
	"catalog-admin/internal/database"
	custommiddleware "catalog-admin/internal/middleware"
	"catalog-admin/internal/repository"
	"catalog-admin/internal/service"
	"catalog-admin/internal/storage"
	"catalog-admin/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
	stop   chan struct{}

	closeOnce sync.Once
}

type routeRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// NewServer wires repositories, services and handlers onto a chi router.
// redisClient may be nil, in which case list caching is off and rate limiting
// falls back to an in-process limiter.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, store storage.Store) *Server {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/health", healthHandler(db))

	if local, ok := store.(*storage.LocalStore); ok {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir())))
		router.Handle("/uploads/*", fs)
	}

	var productCache service.ProductListCache = service.NoopCache()
	if redisClient != nil {
		productCache = cache.NewProductCache(redisClient, cfg.Cache.TTL, logger)
	}

	categoryRepo := repository.NewCategoryRepository(db.DB())
	productRepo := repository.NewProductRepository(db.DB())

	categoryService := service.NewCategoryService(categoryRepo, productCache, logger)
	productService := service.NewProductService(productRepo, productCache, cfg.Inventory.LowStockThreshold, logger)
	uploader := storage.NewUploader(store, cfg.Storage.MaxBytes, logger)

	handlers := []routeRegistrar{
		transport.NewCategoryHandler(categoryService, logger),
		transport.NewProductHandler(productService, logger),
		transport.NewUploadHandler(uploader, logger),
	}

	stop := make(chan struct{})
	limitConfig := custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "catalog:ratelimit",
	}

	router.Route("/api/admin", func(r chi.Router) {
		if redisClient != nil {
			r.Use(custommiddleware.RateLimitMiddleware(redisClient, limitConfig, logger))
		} else {
			limiter := custommiddleware.NewLocalRateLimiter(limitConfig)
			go limiter.Run(time.Minute, stop)
			r.Use(limiter.Middleware(logger))
		}
		for _, h := range handlers {
			h.RegisterRoutes(r)
		}
	})

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		stop:   stop,
	}
}

func healthHandler(db database.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := db.Health(r.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, stats)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")
	s.closeOnce.Do(func() { close(s.stop) })

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
