package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-system/internal/config"
	"parking-system/internal/logging"
	"parking-system/internal/parking"
	"parking-system/internal/server"
	"parking-system/internal/storage/memory"
	"parking-system/internal/storage/mysql"
	"parking-system/internal/storage/postgres"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (overrides PORT)")
)

// store is what every storage backend provides to the service and the API.
type store interface {
	parking.SpotStore
	parking.TicketStore
	server.Store
}

type app struct {
	cfg       *config.Config
	store     store
	lifecycle parking.Lifecycle
	telemetry *parking.TelemetryProvider
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	logging.Init(cfg.IsDevelopment())
	log := logging.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := parking.NewTelemetryProvider(ctx, parking.TelemetryConfig{
		ServiceName: cfg.OTelServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Environment: cfg.Environment,
		StoreDriver: cfg.StoreDriver,
		CarSpots:    cfg.CarSpots,
		BikeSpots:   cfg.BikeSpots,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to initialize telemetry")
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("error closing store")
		}
	}()

	service := parking.NewService(st, st, parking.SystemClock,
		parking.WithLogger(logging.Component("parking")),
		parking.WithReleaseOnAbort(cfg.ReleaseOnAbort),
	)
	lifecycle, err := parking.NewInstrumentedService(service, telemetryProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create instrumented service")
	}

	a := &app{
		cfg:       cfg,
		store:     st,
		lifecycle: lifecycle,
		telemetry: telemetryProvider,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		a.runCLI(ctx, cancel, sigChan)
	case "server":
		a.runServer(ctx, cancel, sigChan)
	case "both":
		a.runBoth(ctx, cancel, sigChan)
	default:
		log.Error().Str("mode", *mode).Msg("invalid mode, must be cli, server, or both")
	}

	a.shutdownTelemetry()
}

func openStore(ctx context.Context, cfg *config.Config) (store, func() error, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			return nil, nil, err
		}
		st := postgres.NewStore(db)
		if err := prepare(ctx, st, cfg); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.DriverMySQL:
		db, err := mysql.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		st := mysql.NewStore(db)
		if err := prepare(ctx, st, cfg); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		st := memory.New(cfg.CarSpots, cfg.BikeSpots)
		return st, func() error { return nil }, nil
	}
}

type migrator interface {
	Migrate(ctx context.Context) error
	Seed(ctx context.Context, carSpots, bikeSpots int) error
}

func prepare(ctx context.Context, m migrator, cfg *config.Config) error {
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Seed(ctx, cfg.CarSpots, cfg.BikeSpots); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

func (a *app) runCLI(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Logger().Info().Msg("shutting down")
		cancel()
	}()

	shell := parking.NewInstrumentedShell(a.lifecycle, os.Stdin, os.Stdout, a.telemetry)
	shell.Run(ctx)
}

func (a *app) runServer(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	srv := server.NewServer(a.cfg.Port, a.lifecycle, a.store, a.cfg.OTelServiceName)

	go func() {
		<-sigChan
		logging.Logger().Info().Msg("received shutdown signal")
		a.shutdownServer(srv)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Logger().Error().Err(err).Msg("server error")
	}
}

func (a *app) runBoth(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	srv := server.NewServer(a.cfg.Port, a.lifecycle, a.store, a.cfg.OTelServiceName)
	log := logging.Logger()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		shell := parking.NewInstrumentedShell(a.lifecycle, os.Stdin, os.Stdout, a.telemetry)
		shell.Run(ctx)
		close(cliDone)
	}()

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	case <-cliDone:
		log.Info().Msg("CLI exited")
	case <-ctx.Done():
		log.Info().Msg("context cancelled")
	}

	a.shutdownServer(srv)
}

func (a *app) shutdownServer(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger().Error().Err(err).Msg("server shutdown error")
	}
}

func (a *app) shutdownTelemetry() {
	logging.Logger().Info().Msg("shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		logging.Logger().Error().Err(err).Msg("error shutting down telemetry")
	}
}
