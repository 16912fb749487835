package server

import (
	"fmt"
	"net/http"
	"time"

	"stock-pos/internal/config"
	custommiddleware "stock-pos/internal/middleware"
	"stock-pos/internal/service"
	"stock-pos/internal/telemetry"
	"stock-pos/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	logger *zap.Logger
	store  *Store
	redis  *redis.Client
}

// NewServer wires services and handlers over store. redisClient backs the sale
// endpoint rate limit.
func NewServer(cfg *config.Config, logger *zap.Logger, store *Store, redisClient *redis.Client) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, store, redisClient),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		logger: logger,
		store:  store,
		redis:  redisClient,
	}
}

// NewRouter builds the HTTP handler tree
func NewRouter(cfg *config.Config, logger *zap.Logger, store *Store, redisClient redis.Cmdable) http.Handler {
	router := chi.NewRouter()

	router.Use(telemetry.Middleware(cfg.Telemetry.ServiceName))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := store.Health(r.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})

	productService := service.NewProductService(store.Products, cfg.Catalog.UpdatableFields, logger)
	stockService := service.NewStockService(store.Products, logger)
	saleService := service.NewSaleService(store.Products, store.Sales, logger)

	productHandler := transport.NewProductHandler(productService, stockService, logger)
	saleHandler := transport.NewSaleHandler(saleService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)
	saleRateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit:sales",
	}, logger)

	router.Route("/products", func(r chi.Router) {
		saleHandler.RegisterRoutes(r, authMiddleware, adminMiddleware, saleRateLimit)
		productHandler.RegisterRoutes(r, authMiddleware, adminMiddleware)
	})

	return router
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Failed to close store", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
