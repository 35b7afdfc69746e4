// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/feedmarket-backend/internal/infrastructure/database/redis"
	"github.com/your-org/feedmarket-backend/internal/interfaces/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)
	logger.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting application")

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	if err := db.Health(); err != nil {
		logger.WithError(err).Fatal("Database health check failed")
	}
	if err := redisClient.Health(); err != nil {
		logger.WithError(err).Fatal("Redis health check failed")
	}

	migration := postgres.NewMigration(db.GetDB())
	if err := migration.RunAutoMigrations(); err != nil {
		logger.WithError(err).Fatal("Database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		logger.WithError(err).Warn("Index creation failed")
	}

	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			logger.WithError(err).Warn("Data seeding failed")
		}
	}

	server := http.NewServer(cfg, db.GetDB(), redisClient.GetClient(), logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	logger.Info("Server shutdown completed")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
