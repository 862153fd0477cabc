package main

import (
	"context"
	"customer-service/internal/api"
	"customer-service/internal/batch"
	"customer-service/internal/config"
	"customer-service/internal/domain/customer"
	"customer-service/internal/event"
	"customer-service/internal/infrastructure/database/migrations"
	"customer-service/internal/infrastructure/database/orm"
	"customer-service/internal/infrastructure/database/postgres"
	"customer-service/internal/infrastructure/logging"
	"customer-service/internal/infrastructure/monitoring"
	"customer-service/internal/infrastructure/seed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

const rabbitMQConnectAttempts = 5

// @title Customer Service API
// @version 1.0
// @description This is the API documentation for the Customer Service.

// @contact.name API Support
// @contact.email support@customer-service.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /
func main() {
	cfg, logger := initializeApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runMigrations(ctx, cfg, logger)
	customerRepo, closeStore := initializeRepository(ctx, cfg, logger)
	defer closeStore()

	seedCustomers(ctx, cfg, customerRepo, logger)

	publisher := initializePublisher(cfg, logger)
	customerService := customer.NewCustomerService(customerRepo, publisher, logger)

	statsJob := batch.NewCustomerStatsJob(
		customerService,
		monitoring.Business.CustomersTotal,
		monitoring.Business.StatsJobDuration,
		logger,
	)
	cronScheduler := startBatchJobs(cfg, logger, statsJob)
	router := api.SetupRouter(ctx, customerService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, publisher, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	logger.Info("Application starting...", "backend", cfg.Database.Backend)

	return cfg, logger
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	if !cfg.Database.Migrate {
		logger.Info("Database migrations disabled")
		return
	}
	logger.Info("Applying database migrations...")
	if err := migrations.Apply(ctx, cfg.Database.URL, logger); err != nil {
		logger.Error("Failed to apply database migrations", "error", err)
		os.Exit(1)
	}
}

// initializeRepository builds the customer store for the configured backend.
// The returned func releases its connections.
func initializeRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (customer.Repository, func()) {
	switch cfg.Database.Backend {
	case config.BackendBun:
		logger.Info("Initializing bun customer repository...")
		db, err := orm.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("Failed to initialize bun database handle", "error", err)
			os.Exit(1)
		}
		return orm.NewCustomerRepository(db, logger), func() {
			logger.Info("Closing bun database handle...")
			if err := db.Close(); err != nil {
				logger.Error("Failed to close bun database handle", "error", err)
			}
		}
	default:
		logger.Info("Initializing database connection pool...")
		dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("Failed to initialize database connection pool", "error", err)
			os.Exit(1)
		}
		return postgres.NewCustomerRepository(dbPool, logger), func() {
			logger.Info("Closing database connection pool...")
			dbPool.Close()
		}
	}
}

func seedCustomers(ctx context.Context, cfg *config.Config, repo customer.Repository, logger *slog.Logger) {
	if !cfg.Seed.Enabled || cfg.Seed.Count == 0 {
		return
	}
	seed.NewSeeder(repo, logger).Seed(ctx, cfg.Seed.Count)
}

func initializePublisher(cfg *config.Config, logger *slog.Logger) event.Publisher {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled, customer events will not be published")
		return event.NoopPublisher{}
	}

	pub, err := event.DialRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.ExchangeName, rabbitMQConnectAttempts, logger)
	if err != nil {
		logger.Error("Failed to set up RabbitMQ publisher, continuing without events", "error", err)
		return event.NoopPublisher{}
	}
	return pub
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, publisher event.Publisher,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	closePublisher(publisher, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func closePublisher(publisher event.Publisher, logger *slog.Logger) {
	if publisher == nil {
		return
	}
	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close event publisher gracefully", slog.Any("error", err))
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, statsJob *batch.CustomerStatsJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	if _, err := batch.Schedule(c, cfg.Batch.StatsSchedule, cfg.Batch.StatsTimeout, statsJob, logger); err != nil {
		logger.Error("Customer statistics job not scheduled", slog.Any("error", err))
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
