// @title UMS API
// @version 1.0
// @description Multi-tenant user management in front of Keycloak
// @host localhost:8080
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vinumavintel/ums-with-admin-ui/internal/app"
	"github.com/vinumavintel/ums-with-admin-ui/internal/config"
	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
)

var version = "dev"

func main() {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.LoadWithConfigFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("UMS API starting",
		zap.String("version", version),
		zap.String("environment", cfg.Environment))

	application := app.New(cfg, logger, version)

	if err := application.Initialize(context.Background()); err != nil {
		logger.Fatal("Initialization failed", zap.Error(err))
	}

	go func() {
		if err := application.Start(); err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		os.Exit(1)
	}
}
