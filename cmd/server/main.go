package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/archgraph/internal/app"
	"github.com/agenthands/archgraph/internal/config"
	"github.com/agenthands/archgraph/internal/logger"
	"github.com/agenthands/archgraph/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		log.Printf("No configuration at %s, using defaults", cfgPath)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	logg, err := logger.New(cfg.Log.Mode, cfg.Log.File)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("Failed to initialize", "error", err)
	}
	defer a.Close(ctx)

	srv := server.NewServer(a.Ingestor, cfg, logg)
	r := srv.SetupRouter()

	logg.Info("Starting server", "port", cfg.Server.Port, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logg.Fatal("Server stopped", "error", err)
	}
}
