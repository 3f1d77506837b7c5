package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/internal/handler"
	"storefront-service/internal/mail"
	"storefront-service/internal/middleware"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"
	"storefront-service/internal/upload"
	"storefront-service/pkg/config"
	"storefront-service/pkg/database"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting storefront service...", cfg.LogFields()...)

	// Initialize database and run migrations
	db, err := database.InitDB(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.Database.Host),
		zap.String("db_name", cfg.Database.Name))

	store := repository.NewGormStore(db)
	dispatcher := mail.NewDispatcher(mail.NewSender(cfg.Mail), cfg.Mail.SendTimeout)
	links := service.NewLinks(cfg)
	auth := service.NewAuthenticator(store, cfg.JWT)
	images := upload.NewIngestor(cfg.Upload.ImagePath(), cfg.Upload.Width, cfg.Upload.Height)
	log.Info("Storing uploaded images", zap.String("dir", images.Dir()),
		zap.Int("width", cfg.Upload.Width), zap.Int("height", cfg.Upload.Height))

	h := handler.New(handler.Dependencies{
		Auth:           auth,
		Accounts:       service.NewAccounts(store, auth, dispatcher, links),
		Catalog:        service.NewCatalog(store, images),
		Links:          links,
		PingDB:         func() error { return database.Ping(db) },
		StaticDir:      cfg.Upload.StaticDir,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	handler.RegisterRoutes(e, h)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		port := cfg.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	// Let in-flight verification emails finish
	dispatcher.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server stopped")
}
