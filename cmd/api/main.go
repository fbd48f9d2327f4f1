package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/api"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/config"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/mercadopago"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database", zap.String("db", cfg.Database.DBName))

	repos := postgres.NewRepositories(db, logger)
	mpClient := mercadopago.NewClient(cfg.MercadoPago, logger)

	router := api.NewRouter(cfg, repos, mpClient, logger)

	logger.Info("Starting server", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
