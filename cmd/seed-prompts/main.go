// Command seed-prompts loads the built-in prompt templates into the
// configured storage backend. Safe to re-run; existing prompts are updated
// in place.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/labelwise/insightd/internal/insight"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	config, err := insight.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	st, err := insight.OpenStore(ctx, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage backend")
	}
	defer st.Close()

	prompts := insight.BuiltinPrompts()
	if err := insight.SeedPrompts(ctx, st); err != nil {
		logger.Fatal().Err(err).Msg("Prompt seeding failed")
	}
	for _, p := range prompts {
		logger.Info().
			Str("prompt", p.Name).
			Str("query_type", p.QueryType).
			Bool("active", p.IsActive).
			Msg("Seeded prompt")
	}

	logger.Info().Int("count", len(prompts)).Msg("Prompt seeding complete")
}
