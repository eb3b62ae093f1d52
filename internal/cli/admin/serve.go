package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/msassist/internal/api/handlers"
	"github.com/cloo-solutions/msassist/internal/database"
	"github.com/cloo-solutions/msassist/internal/jobs"
	"github.com/cloo-solutions/msassist/internal/logger"
	"github.com/cloo-solutions/msassist/internal/server"
	"github.com/cloo-solutions/msassist/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the msassist API server and the background ingestion worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides MSASSIST_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not start the ingestion worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, log := rt.cfg, rt.log

	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate(),
		Debug:            cfg.Debug,
	}, log)
	if err != nil {
		log.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
	} else {
		defer shutdownTelemetry()
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		result, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath, database.Up)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations applied", zap.Uint("version", result.Version), zap.Bool("changed", result.Changed))
	}

	a, err := buildApp(ctx, rt)
	if err != nil {
		return err
	}
	defer a.Close()

	var worker *jobs.Worker
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker && cfg.IngestionWorker && a.objects != nil {
		processor := jobs.NewIngestionWorker(a.jobs, a.objects, a.ingestion)
		worker = jobs.NewWorker(processor, cfg.IngestionPollInterval)
		go worker.Start(logger.ToContext(context.Background(), log.Named("ingestion_worker")))
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:          log,
		TokenValidator:  a.auth,
		AuthHandler:     handlers.NewAuthHandler(a.auth),
		SessionHandler:  handlers.NewSessionHandler(a.sessions, a.chat, a.exporter),
		SymptomHandler:  handlers.NewSymptomHandler(a.symptoms, a.chat),
		DocumentHandler: handlers.NewDocumentHandler(a.ingestion, a.uploads),
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port), zap.Int("symptoms", a.symptoms.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

