package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the external resources the server is built on. Redis is
// optional.
type Dependencies struct {
	DB       *sql.DB
	Redis    *redis.Client
	Notifier service.OrderNotifier
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) (*Server, error) {
	adminAuth, err := service.NewAdminAuthenticator(cfg.Admin)
	if err != nil {
		return nil, fmt.Errorf("failed to configure admin auth: %w", err)
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(deps.DB)
	orderRepo := repository.NewOrderRepository(deps.DB)
	txManager := repository.NewTransactionManager(deps.DB)

	productCache := cache.NewNoopProductCache()
	var limiter custommiddleware.Limiter
	rateLimit := custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Max,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit",
	}
	if deps.Redis != nil {
		productCache = cache.NewRedisProductCache(deps.Redis, cfg.Cache.CatalogTTL, logger)
		limiter = custommiddleware.NewRedisLimiter(deps.Redis, rateLimit)
	} else {
		limiter = custommiddleware.NewMemoryLimiter(rateLimit)
	}

	// Initialize services
	catalogService := service.NewCatalogService(productRepo, productCache)
	checkoutService := service.NewCheckoutService(productRepo, orderRepo, deps.Notifier, service.DefaultEmailTimeout, logger)
	productService := service.NewProductService(productRepo, txManager, productCache, logger)
	orderService := service.NewOrderService(orderRepo)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, logger)
	adminHandler := transport.NewAdminHandler(adminAuth, productService, orderService, logger)

	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.SecurityHeaders(cfg.IsDevelopment()))
	router.Use(custommiddleware.CORSMiddleware(custommiddleware.OriginPolicy{
		Origins:        cfg.CORS.AllowedOrigins,
		AllowLocalhost: cfg.CORS.AllowLocalhost,
		Suffixes:       cfg.CORS.AllowedSuffixes,
	}))
	router.Use(custommiddleware.RateLimitMiddleware(limiter, logger))
	router.Use(middleware.Compress(5))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register routes
	catalogHandler.RegisterRoutes(router)
	checkoutHandler.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router, custommiddleware.AdminAuthMiddleware(adminAuth, logger))

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     deps.DB,
		redis:  deps.Redis,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
