package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/internal/catalog"
	"github.com/labelwise/insightd/internal/insight"
	"github.com/labelwise/insightd/internal/server"
	"github.com/labelwise/insightd/pkg/telemetry"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup logging
	logger := setupLogger()

	logger.Info().
		Str("config", *configPath).
		Msg("Starting insightd")

	config, err := insight.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Info().
		Str("storage", config.Storage.Backend).
		Str("default_provider", config.DefaultProvider).
		Int("port", config.Port).
		Msg("Configuration loaded")

	ctx := context.Background()
	st, err := insight.OpenStore(ctx, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage backend")
	}
	defer st.Close()

	// The memory backend starts empty, so ship it with the built-in prompts
	if config.Storage.Backend == "memory" {
		if err := insight.SeedPrompts(ctx, st); err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed built-in prompts")
		}
		logger.Info().Msg("Seeded built-in prompts into memory store")
	}

	// Catalog lookup is optional; without it unknown UPCs are 404s
	var cat *catalog.Client
	if config.Catalog.BaseURL != "" {
		cat, err = catalog.NewClient(config.Catalog, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create catalog client")
		}
		logger.Info().Str("base_url", config.Catalog.BaseURL).Msg("Catalog lookup enabled")
	}

	costs := telemetry.NewCostTracker(
		config.CostLimits.DailyMaxUSD,
		config.CostLimits.AlertThresholdUSD,
		logger,
	)

	service := insight.NewService(config, st, costs, logger)

	srv := server.New(service, st, cat, costs, config.Port, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// setupLogger configures zerolog
func setupLogger() zerolog.Logger {
	// Pretty console output
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Logger()

	// Set log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}
