package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobby-server/internal/config"
	"github.com/vovakirdan/lobby-server/internal/core"
	"github.com/vovakirdan/lobby-server/internal/store"
	"github.com/vovakirdan/lobby-server/internal/store/mongostore"
	"github.com/vovakirdan/lobby-server/internal/store/redisstore"
	"github.com/vovakirdan/lobby-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/lobby-server/internal/transport/http"
)

const storeOpenTimeout = 10 * time.Second

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
// It fails if the configured store cannot be opened and pinged.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("driver", cfg.Store.Driver).Msg("store initialized")

	hub := core.NewHub(st, st, core.Options{
		JoinAttempts:      cfg.JoinAttempts,
		MaxUsernameLength: cfg.MaxUsernameLength,
		MaxContentLength:  cfg.MaxContentLength,
		StoreTimeout:      cfg.StoreTimeout,
	}, logger)
	server := transporthttp.NewServer(hub, st, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpenTimeout)
	defer cancel()

	switch cfg.Driver {
	case config.DriverSQLite, "":
		return sqlite.New(cfg.SQLitePath)
	case config.DriverRedis:
		return redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisDB)
	case config.DriverMongo:
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Int("connections", a.hub.ConnectionCount()).Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
