package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/lobby-server/internal/app"
	"github.com/vovakirdan/lobby-server/internal/config"
	logpkg "github.com/vovakirdan/lobby-server/internal/log"
)

type flags struct {
	configPath  string
	addr        string
	logLevel    string
	storeDriver string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "lobby-server",
		Short:        "Single-room chat server over WebSocket",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", "", "path to config.yaml (created with defaults if missing)")
	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&f.storeDriver, "store", "", "store driver: sqlite, redis, mongo")

	return cmd
}

// overrides returns the flag values as a partial config; unset flags stay zero.
func (f flags) overrides() config.Config {
	return config.Config{
		Addr:     f.addr,
		LogLevel: f.logLevel,
		Store:    config.StoreConfig{Driver: f.storeDriver},
	}
}

func run(ctx context.Context, f flags) error {
	bootLog := logpkg.New("info")

	cfg, path, err := config.Load(bootLog, f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(f.overrides())
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logpkg.New(cfg.LogLevel)
	logger.Info().Str("config", path).Str("addr", cfg.Addr).Str("store", cfg.Store.Driver).Msg("starting lobby server")

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
