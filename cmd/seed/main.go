package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kstielfps/VATImposter/internal/app"
	"github.com/kstielfps/VATImposter/internal/config"
	"github.com/kstielfps/VATImposter/internal/repository"
)

// Seeds the sample word groups into the configured backend. Groups that
// already exist by name are left alone.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg := config.Load()
	if cfg.StoreBackend == config.BackendMemory {
		log.Fatal().Msg("STORE_BACKEND=memory has nothing to seed, pick mongo, postgres or sqlite")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer a.Close(context.Background())

	created, err := repository.SeedWordGroups(ctx, a.WordRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed word groups")
	}

	groups, err := a.WordRepo.ListWithWords(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list word groups")
	}
	for _, g := range groups {
		log.Info().Str("group", g.Name).Int("words", len(g.Words)).Msg("word group")
	}
	log.Info().Int("created", created).Int("total", len(groups)).Str("backend", cfg.StoreBackend).Msg("seed complete")
}
