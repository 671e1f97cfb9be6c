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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/livestage/internal/adapters/auth"
	"github.com/dkeye/livestage/internal/adapters/bus"
	router "github.com/dkeye/livestage/internal/adapters/http"
	wsgateway "github.com/dkeye/livestage/internal/adapters/signal"
	"github.com/dkeye/livestage/internal/adapters/store"
	"github.com/dkeye/livestage/internal/app"
	"github.com/dkeye/livestage/internal/config"
	"github.com/dkeye/livestage/internal/core"
	transport "github.com/dkeye/livestage/internal/transport/http"
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
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	policy := app.SimplePolicy{
		CoHostCanSwitchMode: cfg.CoHostCanSwitchMode,
		ChatHostsOnly:       cfg.ChatHostsOnly,
	}

	groupBus, closeBus, err := openBus(ctx, cfg, policy)
	if err != nil {
		return err
	}
	defer closeBus()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	authn, err := auth.NewJWT(cfg.Secret)
	if err != nil {
		return err
	}

	reg := app.NewRegistry(app.Deps{
		Bus:          groupBus,
		Store:        st,
		Policy:       policy,
		ChatLimit:    cfg.ChatRateLimit,
		ChatInterval: cfg.ChatRateInterval,
		SampleRate:   cfg.SampleRate,
	})
	gw := wsgateway.NewGateway(reg, authn, st, groupBus, wsgateway.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
		PublicURL:  cfg.PublicURL,
	})
	r := router.SetupRouter(ctx, cfg, gw, &transport.StreamHandlers{Store: st, Live: reg})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("livestage server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := reg.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("ending sessions")
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		return nil
	})
	return g.Wait()
}

func openBus(ctx context.Context, cfg *config.Config, policy core.BackpressurePolicy) (core.GroupBus, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info().Str("module", "main").Msg("using in-process group bus")
		return bus.NewMemory(policy), func() {}, nil
	}
	b, err := bus.NewRedis(ctx, bus.RedisConfig{
		Addr:          cfg.RedisAddr,
		Password:      cfg.RedisPassword,
		ChannelPrefix: cfg.RedisChannelPrefix,
	}, policy)
	if err != nil {
		return nil, nil, fmt.Errorf("open redis bus: %w", err)
	}
	return b, func() {
		if err := b.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis bus")
		}
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Info().Str("module", "main").Msg("using in-memory store")
		return store.NewMemory(), func() {}, nil
	}
	pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres store: %w", err)
	}
	return pg, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pg.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("close postgres store")
		}
	}, nil
}
