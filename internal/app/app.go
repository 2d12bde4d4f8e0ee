package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vinumavintel/ums-with-admin-ui/internal/auth"
	"github.com/vinumavintel/ums-with-admin-ui/internal/cache"
	"github.com/vinumavintel/ums-with-admin-ui/internal/config"
	"github.com/vinumavintel/ums-with-admin-ui/internal/database"
	"github.com/vinumavintel/ums-with-admin-ui/internal/handlers"
	"github.com/vinumavintel/ums-with-admin-ui/internal/keycloak"
	"github.com/vinumavintel/ums-with-admin-ui/internal/metrics"
	"github.com/vinumavintel/ums-with-admin-ui/internal/middleware"
	"github.com/vinumavintel/ums-with-admin-ui/internal/routing"
	"github.com/vinumavintel/ums-with-admin-ui/internal/services"
)

type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	keycloak *keycloak.Client
	version  string
}

func New(cfg *config.Config, logger *zap.Logger, version string) *Application {
	return &Application{
		config:  cfg,
		logger:  logger,
		version: version,
	}
}

func (app *Application) Initialize(ctx context.Context) error {
	app.logger.Info("Initializing database connection",
		zap.String("host", app.config.Database.Host),
		zap.Int("port", app.config.Database.Port),
		zap.String("database", app.config.Database.DBName))

	db, err := database.Connect(app.config.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	app.logger.Info("Database ready")

	// Redis is optional; without it the guard reads the directory on
	// every scoped request.
	var redisClient *redis.Client
	if app.config.Redis.Host != "" {
		redisClient, err = database.ConnectRedis(app.config.Redis)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		app.logger.Info("Redis connected")
	} else {
		app.logger.Warn("Redis not configured, client-id cache disabled")
	}

	if app.config.Keycloak.URL == "" {
		return fmt.Errorf("keycloak URL is required (UMS_KEYCLOAK_URL)")
	}

	app.keycloak = keycloak.NewClient(
		app.config.Keycloak.URL,
		app.config.Keycloak.Realm,
		app.config.Keycloak.AdminClientID,
		app.config.Keycloak.AdminClientSecret,
		app.logger,
	)

	verifier, err := auth.NewVerifier(ctx, app.config.Keycloak.IssuerURL(), app.logger)
	if err != nil {
		return fmt.Errorf("OIDC discovery failed: %w", err)
	}

	serviceContainer := services.NewContainer(db, app.keycloak, app.logger)

	resolver := cache.NewClientIDResolver(serviceContainer.App, redisClient, app.config.Redis.Prefix, app.logger)
	guard := middleware.NewGuard(resolver, app.config.Keycloak.APIClientID, app.logger)

	handlerContainer := handlers.NewContainer(db, serviceContainer, app.keycloak, resolver, app.logger, app.version)

	router := app.setupRouter(verifier, guard, handlerContainer)

	app.server = &http.Server{
		Addr:         ":" + app.config.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(app.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(app.config.Server.IdleTimeout) * time.Second,
	}

	app.logger.Info("Application initialized",
		zap.String("server_address", app.server.Addr),
		zap.Int("routes_configured", len(router.Routes())))

	return nil
}

func (app *Application) setupRouter(verifier middleware.TokenVerifier, guard *middleware.Guard, h *handlers.Container) *gin.Engine {
	if app.config.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	m := metrics.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(app.logger))
	router.Use(middleware.Recovery(app.logger))
	router.Use(middleware.CORS(app.config.CORS.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(m.Middleware())

	apiRouter := routing.NewAPIRouter(guard, verifier, m, app.logger)
	apiRouter.SetupRoutes(router, h)

	return router
}

func (app *Application) Start() error {
	app.logger.Info("Server ready",
		zap.String("port", app.config.Server.Port),
		zap.String("environment", app.config.Environment))

	if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error("Server failed to start", zap.Error(err))
		return err
	}
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.logger.Info("HTTP server shutting down gracefully")
	err := app.server.Shutdown(ctx)
	if err != nil {
		app.logger.Error("Error during server shutdown", zap.Error(err))
	} else {
		app.logger.Info("HTTP server shutdown completed")
	}
	return err
}
