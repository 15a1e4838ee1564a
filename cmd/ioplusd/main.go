package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KevinKickass/ioplusd/internal/auth"
	"github.com/KevinKickass/ioplusd/internal/config"
	"github.com/KevinKickass/ioplusd/internal/i2cbus"
	"github.com/KevinKickass/ioplusd/internal/storage"
	"github.com/KevinKickass/ioplusd/internal/system"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	hashPassword := flag.String("hash-password", "", "print the argon2id hash of a password for auth.users and exit")
	flag.Parse()

	if *hashPassword != "" {
		encoded, err := auth.NewPasswordHasher().HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(encoded)
		return
	}

	// Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Logger
	var logger *zap.Logger
	if cfg.Log.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Config loaded successfully", zap.String("path", *configPath))

	ctx := context.Background()

	// Storage: PostgreSQL or in-memory
	var store storage.Store
	if cfg.Database.Enabled {
		db, err := storage.NewPostgresClient(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database connected successfully", zap.String("host", cfg.Database.Host))
		store = db
	} else {
		logger.Info("Database disabled, unit values are kept in memory")
		store = storage.NewMemoryStore()
	}

	transport := i2cbus.New(cfg.I2C.Bus, cfg.I2C.KeepOpen, logger)

	// Lifecycle Manager
	lifecycle, err := system.NewLifecycleManager(store, transport, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create lifecycle manager", zap.Error(err))
	}

	// Start
	if err := lifecycle.Start(ctx); err != nil {
		logger.Fatal("Failed to start system", zap.Error(err))
	}

	logger.Info("ioplusd started successfully")

	// Graceful shutdown on signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-lifecycle.Errors():
		logger.Error("Server failed", zap.Error(err))
	case <-lifecycle.Done():
		// shutdown requested over the API
		logger.Info("ioplusd stopped")
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := lifecycle.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("ioplusd stopped successfully")
}
