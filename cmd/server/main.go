package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	router "github.com/dkeye/Conclave/internal/adapters/http"
	wssignal "github.com/dkeye/Conclave/internal/adapters/signal"
	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/app/orch"
	"github.com/dkeye/Conclave/internal/app/sfu"
	"github.com/dkeye/Conclave/internal/chatstore"
	"github.com/dkeye/Conclave/internal/config"
	"github.com/dkeye/Conclave/internal/providers"
	"github.com/dkeye/Conclave/internal/syncobj"
)

var env string

func main() {
	rootCmd := &cobra.Command{
		Use:          "conclave",
		Short:        "Conference server with synchronized shared state",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env != "" {
				if err := os.Setenv("CONFIG_ENV", env); err != nil {
					return err
				}
			}
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&env, "env", "", "config environment (loads config/config.<env>.yaml)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.ChatDBPath), 0o755); err != nil {
		return fmt.Errorf("create chat db directory: %w", err)
	}
	chat, err := chatstore.Open(cfg.ChatDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := chat.Close(); err != nil {
			log.Error().Err(err).Msg("close chat store")
		}
	}()

	conferences := app.NewConferenceManager()
	registry := app.NewRegistry()
	notifier := wssignal.NewWSNotifier(registry, app.SimplePolicy{})
	engine := syncobj.NewEngine(
		syncobj.NewRegistry(providers.All(conferences, chat, cfg.ChatHistoryLimit)...),
		notifier,
	)

	o := &orch.Orchestrator{
		Conferences: conferences,
		Registry:    registry,
		Engine:      engine,
		Relays:      sfu.NewRelayManager(),
		Chat:        chat,
		AutoCreate:  cfg.AutoCreateConferences,
	}
	limiter := wssignal.NewJoinRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval)
	go limiter.Run(ctx, cfg.JoinRateInterval)
	ctrl := wssignal.NewSignalWSController(o, notifier, limiter,
		wssignal.Options{
			SendBuffer: cfg.SignalBuffer,
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
			ICEServers: cfg.ICEServers,
		})

	r := router.SetupRouter(ctx, cfg, o, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Conclave server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
