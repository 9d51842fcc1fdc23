package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/config"
	"github.com/hmaged/signfleet/internal/database"
	"github.com/hmaged/signfleet/internal/handlers"
	"github.com/hmaged/signfleet/internal/realtime"
	"github.com/hmaged/signfleet/internal/repositories"
	"github.com/hmaged/signfleet/internal/services"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to create postgres pool", zap.Error(err))
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to create redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// Repositories
	deviceRepo := repositories.NewPostgresDeviceRepository(postgresPool)
	setupRepo := repositories.NewPostgresSetupRepository(postgresPool)
	adminRepo := repositories.NewPostgresAdminRepository(postgresPool)

	// Realtime core
	broker := realtime.NewBroker(redisClient)
	presence := realtime.NewPresence(redisClient, broker, log)
	codes := realtime.NewCodeIssuer(redisClient)
	sessions := realtime.NewSessionManager(broker, presence, deviceRepo, cfg.HeartbeatInterval, log)
	activation := realtime.NewActivation(broker, deviceRepo, cfg.HeartbeatInterval, cfg.ActivationTimeout, log)
	statusFeed := realtime.NewStatusFeed(broker, presence, cfg.HeartbeatInterval, log)
	sender := realtime.NewInstructionSender(broker, deviceRepo, log)

	// Services
	authService := services.NewAuthService(adminRepo, deviceRepo, cfg.JWTSecret, cfg.JWTExpiry, log)
	setupService := services.NewSetupService(setupRepo, deviceRepo, sender, log)

	var uploadService *services.UploadService
	if cfg.AWSRegion != "" && cfg.AWSBucket != "" {
		uploadService, err = services.NewUploadService(ctx, cfg.AWSRegion, cfg.AWSBucket)
		if err != nil {
			log.Fatal("Failed to create upload service", zap.Error(err))
		}
	} else {
		log.Warn("AWS not configured, upload URL minting disabled")
	}

	if err := authService.EnsureRootAdmin(ctx, cfg.RootAdminPassword); err != nil {
		log.Fatal("Failed to bootstrap root admin", zap.Error(err))
	}

	api := handlers.NewAPI(
		authService,
		setupService,
		uploadService,
		deviceRepo,
		sessions,
		statusFeed,
		activation,
		sender,
		codes,
		log,
	)

	// Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: api.Routes(cfg.CORSOrigins),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info("Starting server", zap.String("port", cfg.ServerPort))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Server error", zap.Error(err))
	}

	log.Info("Server stopped gracefully")
}
