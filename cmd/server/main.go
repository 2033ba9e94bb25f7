package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kstielfps/VATImposter/internal/app"
	"github.com/kstielfps/VATImposter/internal/config"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/repository"
	"github.com/kstielfps/VATImposter/internal/service"
	"github.com/kstielfps/VATImposter/internal/transport/rest"
	"github.com/kstielfps/VATImposter/internal/transport/ws"
)

// @title VATImposter API
// @version 1.0
// @description Rooms, roles and rounds for the impostor word game
// @host localhost:8080
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	setupLogger(cfg)

	ctx := context.Background()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer a.Close(context.Background())

	// Seed reference words so a fresh store can start games
	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	created, err := repository.SeedWordGroups(seedCtx, a.WordRepo)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed word groups")
	}
	if created > 0 {
		log.Info().Int("groups", created).Msg("seeded word groups")
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Info().Msg("websocket hub started")

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	lifecycle := service.NewLifecycle(a.RoomRepo, a.RoomCache, a.NudgeLimiter, cfg.AutoDeleteAfter)
	gateway := service.NewGateway(service.Deps{
		Rooms:     a.RoomRepo,
		Words:     a.WordRepo,
		RoomCache: a.RoomCache,
		Limiter:   a.NudgeLimiter,
		Lifecycle: lifecycle,
	})
	roomSvc := service.NewRoomService(gateway, authSvc)
	gameSvc := service.NewGameService(gateway)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	gateway.SetBroadcaster(wsHub)
	lifecycle.SetBroadcaster(wsHub)

	// Finished rooms from a previous run still get their countdown
	if err := lifecycle.Resume(ctx); err != nil {
		log.Error().Err(err).Msg("failed to resume room cleanup")
	}

	defaults := model.DefaultRoomConfig()
	defaults.HintTimeoutSeconds = cfg.HintTimeout

	// Create router with container
	container := &rest.Container{
		RoomService:    roomSvc,
		GameService:    gameSvc,
		WSHub:          wsHub,
		RoomDefaults:   defaults,
		AllowedOrigins: cfg.AllowedOrigins,
		PublicBaseURL:  cfg.PublicBaseURL,
		Debug:          cfg.Debug,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("backend", cfg.StoreBackend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen and serve")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	lifecycle.Stop()
	wsHub.Close()

	log.Info().Msg("server exited")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	if cfg.Debug {
		log.Warn().Msg("debug mode: internal errors are exposed to clients")
	}
}
