package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/adapters/auth"
	router "github.com/dkeye/debatehub/internal/adapters/http"
	redispresence "github.com/dkeye/debatehub/internal/adapters/presence"
	"github.com/dkeye/debatehub/internal/adapters/storage"
	"github.com/dkeye/debatehub/internal/adapters/ws"
	"github.com/dkeye/debatehub/internal/app"
	"github.com/dkeye/debatehub/internal/config"
	"github.com/dkeye/debatehub/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}

	// Presence lives in Redis when an address is configured so a fleet
	// of processes shares one membership set per room.
	var presence core.Presence
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
		}
		presence = redispresence.NewRedisPresence(client)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis presence registry")
	} else {
		presence = core.NewMemoryPresence()
		log.Info().Msg("using in-memory presence registry")
	}

	supervisor := app.NewSupervisor(presence, core.NewRoomBroadcaster())
	handler := &ws.Handler{
		Auth:     auth.NewJWTAuthenticator(cfg.Secret, store),
		Rooms:    store,
		Messages: store,
		Sessions: supervisor,
	}

	r := router.SetupRouter(ctx, cfg, handler, supervisor)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("debatehub server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	supervisor.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
