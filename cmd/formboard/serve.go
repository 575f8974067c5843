package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/creamcroissant/formboard/internal/api"
	"github.com/creamcroissant/formboard/internal/bootstrap"
	"github.com/creamcroissant/formboard/internal/job"
	"github.com/creamcroissant/formboard/internal/migrations"
	"github.com/creamcroissant/formboard/internal/repository/sqlite"
	"github.com/creamcroissant/formboard/internal/service"
	"github.com/creamcroissant/formboard/internal/support/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})

	db, err := bootstrap.OpenSQLite(ctx, cfg.DB.Path, cfg.DB.PingTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := migrations.Up(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	infra, err := bootstrap.BuildInfrastructure(cfg)
	if err != nil {
		return err
	}

	store := sqlite.NewStore(db)
	forms := service.NewFormService(store, infra.Cache, nil, logger)
	services := api.Services{
		Accounts:    service.NewAccountService(store, nil),
		Forms:       forms,
		Submissions: service.NewSubmissionService(store, nil),
	}

	scheduler := job.NewScheduler(logger)
	if cfg.Jobs.RecountSpec != "" {
		if _, err := scheduler.Register(cfg.Jobs.RecountSpec, job.NewSubmissionCountJob(forms, logger)); err != nil {
			return fmt.Errorf("register recount job: %w", err)
		}
	}

	opts := []api.RouterOption{
		api.WithETag(cfg.ETag.Enabled, cfg.ETag.ConditionalGet),
		api.WithResolver(infra.Resolver),
		api.WithCORS(cfg.HTTP.AllowedOrigins),
		api.WithBodyLimit(cfg.HTTP.MaxBodyBytes),
		api.WithReadiness(db.PingContext),
	}
	if infra.Metrics != nil {
		opts = append(opts, api.WithMetrics(infra.Metrics, infra.Registry))
	}
	if infra.RateLimiter != nil {
		opts = append(opts, api.WithRateLimiter(infra.RateLimiter))
	}
	server := bootstrap.NewHTTPServer(cfg, api.NewRouter(logger, services, opts...))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		return err
	}
	logger.Info("server exited cleanly")
	return nil
}
