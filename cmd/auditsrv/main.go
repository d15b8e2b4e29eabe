package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/auditsrv/auditcommon"
	"github.com/attestra/attestra/internal/auditsrv/config"
	"github.com/attestra/attestra/internal/auditsrv/objectstore"
	"github.com/attestra/attestra/internal/auditsrv/provisioner"
	"github.com/attestra/attestra/internal/auditsrv/registry"
	"github.com/attestra/attestra/internal/auditsrv/server"
	"github.com/attestra/attestra/internal/auditsrv/tenantpool"
)

func init() {
	auditcommon.InitLogger()
}

type cmdoptions struct {
	configFile string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog := log.With().Str("state", "init").Logger()

	opt := parseFlags()

	slog.Info().Str("config_file", opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(opt.configFile); err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}

	db, err := registry.Open()
	if err != nil {
		return fmt.Errorf("opening control-plane database: %w", err)
	}
	defer db.Close()

	if aerr := registry.EnsureSchema(ctx, db); aerr != nil {
		return fmt.Errorf("ensuring registry schema: %w", aerr)
	}

	reg := registry.New(db)

	buckets, err := objectstore.New(ctx, config.Config().ObjectStore)
	if err != nil {
		return fmt.Errorf("creating object store client: %w", err)
	}

	cache := tenantpool.NewCache(reg)
	defer cache.CloseAll()

	prov := provisioner.New(reg, db, buckets, cache)

	serverErrors, shutdownServer, err := createAuditServer(ctx, reg, db, cache, prov)
	if err != nil {
		return fmt.Errorf("creating audit server: %w", err)
	}

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	}

	slog.Info().Msg("server stopped")
	return nil
}

func createAuditServer(ctx context.Context, reg registry.Store, db *sql.DB, cache *tenantpool.Cache, prov *provisioner.Provisioner) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()

	s, err := server.CreateNewServer(reg, db, cache, prov)
	if err != nil {
		return nil, nil, fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              config.Config().ServerHostName + ":" + config.Config().ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info().Str("port", config.Config().ServerPort).Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	return serverErrors, shutdown, nil
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.configFile, "config", auditcommon.DefaultConfigFile, "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
