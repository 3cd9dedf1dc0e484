package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hostel-management-backend/config"
	"hostel-management-backend/internal/api"
	"hostel-management-backend/internal/db"
	"hostel-management-backend/internal/enrollment"
	"hostel-management-backend/internal/identity"
	"hostel-management-backend/internal/logging"
	"hostel-management-backend/internal/media"
	"hostel-management-backend/internal/notification"
	"hostel-management-backend/internal/payment"
	"hostel-management-backend/internal/store"
)

func main() {
	logger := logging.Logger

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logging.Init("hosteld", cfg.Log.Level)
	logger.WithField("path", configPath).Info("Configuration loaded")
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accounts := identity.NewProvider(appStore, cfg.Auth.BcryptCost)
	if err := accounts.EnsureAdmin(ctx, cfg.Auth.BootstrapAdmin.Email, cfg.Auth.BootstrapAdmin.Password); err != nil {
		logger.Fatalf("failed to ensure bootstrap admin: %v", err)
	}

	var revoker identity.Revoker = identity.NewMemoryRevoker()
	if cfg.Redis.URL != "" {
		redisRevoker, err := identity.NewRedisRevoker(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("failed to configure redis: %v", err)
		}
		if err := redisRevoker.Ping(ctx); err != nil {
			logger.Fatalf("failed to reach redis: %v", err)
		}
		defer redisRevoker.Close()
		revoker = redisRevoker
		logger.Info("Token revocation backed by Redis")
	}

	gateway, err := payment.New(cfg.Payment)
	if err != nil {
		logger.Fatalf("failed to configure payment gateway: %v", err)
	}
	logger.WithField("provider", cfg.Payment.Provider).Info("Payment gateway ready")

	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	var mailer notification.Mailer
	if cfg.Mail.Host != "" {
		smtpMailer, err := notification.NewSMTPMailer(cfg.Mail)
		if err != nil {
			logger.Fatalf("failed to configure mail: %v", err)
		}
		mailer = smtpMailer
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, mailer)
	pool.Start(ctx)

	workflow := enrollment.NewWorkflow(appStore, accounts, gateway, pool, cfg.Enrollment)

	reconciler, err := enrollment.NewReconciler(appStore, cfg.Enrollment.ReconcileInterval)
	if err != nil {
		logger.Fatalf("failed to create reconciler: %v", err)
	}
	if err := reconciler.Start(ctx); err != nil {
		logger.Fatalf("failed to start reconciler: %v", err)
	}

	var avatars api.AvatarUploader
	if cfg.Storage.Bucket != "" {
		s3Avatars, err := media.NewS3AvatarStore(ctx, cfg.Storage)
		if err != nil {
			logger.Fatalf("failed to configure avatar storage: %v", err)
		}
		avatars = s3Avatars
	}

	handler := api.NewHandler(api.Options{
		Store:          appStore,
		Enroller:       workflow,
		Accounts:       accounts,
		Tokens:         identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Revoker:        revoker,
		Notifier:       pool,
		Avatars:        avatars,
		WebPush:        webpushOptions,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	router := api.NewRouter(handler, cfg.Server)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server Shutdown")
	}
	if err := reconciler.Stop(); err != nil {
		logger.WithError(err).Warn("Reconciler did not stop cleanly")
	}
	cancel()

	logger.Info("Server gracefully stopped")
}
