package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/adapters/registry"
	"github.com/arkadion/campfire/internal/api"
	"github.com/arkadion/campfire/internal/auth"
	"github.com/arkadion/campfire/internal/config"
	"github.com/arkadion/campfire/internal/gateway"
	"github.com/arkadion/campfire/internal/hub"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Validate configured default providers up front; an unknown name
	// is a startup fault, not something to discover per request.
	reg := registry.New(logger)
	if _, err := reg.STT(cfg.DefaultSTTProvider); err != nil {
		logger.Fatal("invalid default STT provider", zap.Error(err))
	}
	if _, err := reg.TTS(cfg.DefaultTTSProvider); err != nil {
		logger.Fatal("invalid default TTS provider", zap.Error(err))
	}

	broadcastHub := hub.New()
	gw := gateway.New(broadcastHub, gateway.Config{
		HeartbeatInterval: cfg.HeartbeatInterval(),
		RatePerSecond:     cfg.RatePerSecond,
	}, logger)
	go gw.Run()
	defer gw.Stop()

	authManager := auth.NewManager(cfg.JWTSecret)

	api.InitRoutes(e, api.NewHandler(gw, broadcastHub, reg, authManager, cfg, logger))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
