package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-relay-bot/internal/config"
	"github.com/tbourn/go-relay-bot/internal/discord"
	httpapi "github.com/tbourn/go-relay-bot/internal/http"
	"github.com/tbourn/go-relay-bot/internal/observability"
	"github.com/tbourn/go-relay-bot/internal/relay"
	"github.com/tbourn/go-relay-bot/internal/repo"
	"github.com/tbourn/go-relay-bot/internal/services"
	"github.com/tbourn/go-relay-bot/internal/tickets"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the gateway and relay tickets (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, stop, a.cfg)
		},
	}
}

// serve runs until ctx is cancelled. stop cancels ctx; the admin server
// calls it when it cannot listen.
func serve(ctx context.Context, stop context.CancelFunc, cfg config.Config) error {
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeDB(db)
	if err := os.MkdirAll(cfg.TicketDir, 0o755); err != nil {
		return fmt.Errorf("ticket dir: %w", err)
	}

	perms := services.NewPermissionService(db, cfg.Bot.OwnerIDs...)
	store := tickets.NewStore(cfg.TicketDir, nil)

	session, err := discord.NewSession(cfg.Bot.Token)
	if err != nil {
		return err
	}
	platform := discord.NewPlatform(session)
	router := relay.New(platform, store, perms, relay.Options{
		AckReaction:        cfg.Bot.AckReaction,
		InteractionTimeout: cfg.Bot.InteractionTimeout,
	})
	bot := discord.NewBot(session, platform, router, perms, cfg.Bot.Presence)

	var srv *http.Server
	if cfg.AdminEnabled {
		srv = httpapi.NewServer(httpapi.Deps{Perms: perms, Relay: router, Tickets: store}, cfg)
		go func() {
			log.Info().Str("addr", srv.Addr).Bool("api", cfg.AdminToken != "").Msg("admin http listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("admin http server")
				stop()
			}
		}()
	}

	log.Info().
		Str("version", version).
		Str("ticket_dir", cfg.TicketDir).
		Int("owners", len(cfg.Bot.OwnerIDs)).
		Msg("relaybot starting")
	runErr := bot.Run(ctx)

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("admin http shutdown")
		}
	}
	log.Info().Msg("relaybot stopped")
	return runErr
}

// closeDB releases the database on the way out; a failure is only logged.
func closeDB(db *gorm.DB) {
	if err := repo.Close(db); err != nil {
		log.Warn().Err(err).Msg("close database")
	}
}
