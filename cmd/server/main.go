package main

import (
	"strings"

	"learnsphere/internal/config"
	"learnsphere/internal/core"
	logpkg "learnsphere/internal/log"
	"learnsphere/internal/server"
	"learnsphere/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	dotenvErr := godotenv.Load()

	logger := logpkg.CreateLogger()
	defer func() { _ = logger.Close() }()

	if dotenvErr != nil {
		logger.Warn("No .env file found, using system environment variables")
	}
	logger.Info("Logger initialized")

	storageInstance := storage.InitStorage(storage.OptionsFromEnv(), logger)
	defer func() { _ = storageInstance.Close() }()

	cfg, err := config.LoadServerConfigFromEnv(logger)
	if err != nil {
		logger.Fatal("Failed to load server configuration: %v", err)
	}

	cfg.Storage = storageInstance
	cfg.Logger = logger

	logBanner(logger, cfg)

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Failed to create server: %v", err)
	}
	defer func() { _ = srv.Close() }()

	if err := srv.Run(); err != nil {
		logger.Error("Server error: %v", err)
	}
}

func logBanner(logger core.Logger, cfg config.ServerConfig) {
	logger.Info("Starting LearnSphere on http://localhost:%s", cfg.Port)
	logger.Info("Primary model: %s", cfg.Models[0])
	if len(cfg.Models) > 1 {
		logger.Info("Fallback models: %s", strings.Join(cfg.Models[1:], ", "))
	}
	if cfg.APIKey == "" {
		logger.Warn("OPENROUTER_API_KEY is not set. Add it to your .env file to enable generation.")
	}
}
