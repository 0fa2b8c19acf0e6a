package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/platform/database"
	"github.com/Ramsey-B/fern/pkg/dedup"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
)

// databaseDependency verifies connectivity and applies pending migrations.
type databaseDependency struct {
	cfg    config.Config
	db     *sqlx.DB
	logger ectologger.Logger
}

func (d *databaseDependency) GetName() string {
	return "database"
}

func (d *databaseDependency) DependsOn() []string {
	return nil
}

func (d *databaseDependency) Start(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := migratepg.WithInstance(d.db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationService := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		Force:               d.cfg.DatabaseMigrationForce,
		AutoRollback:        d.cfg.DatabaseMigrationAutoRollback,
	})
	return migrationService.Migrate(d.cfg.DatabaseName, driver)
}

func (d *databaseDependency) Stop(ctx context.Context) error {
	return d.db.Close()
}

// consumerDependency runs the Kafka consumer loop for extracted documents.
type consumerDependency struct {
	consumer *kafka.Consumer
}

func (d *consumerDependency) GetName() string {
	return "kafka-consumer"
}

func (d *consumerDependency) DependsOn() []string {
	return []string{"database"}
}

func (d *consumerDependency) Start(ctx context.Context) error {
	return d.consumer.Start(ctx)
}

func (d *consumerDependency) Stop(ctx context.Context) error {
	return d.consumer.Stop()
}

// sweeperDependency periodically expires resolved duplicate groups.
type sweeperDependency struct {
	groups    *dedup.GroupManager
	logger    ectologger.Logger
	interval  time.Duration
	retention time.Duration
	done      chan struct{}
	stopped   chan struct{}
}

func newSweeperDependency(cfg config.Config, groups *dedup.GroupManager, logger ectologger.Logger) *sweeperDependency {
	return &sweeperDependency{
		groups:    groups,
		logger:    logger,
		interval:  cfg.GroupSweepInterval,
		retention: time.Duration(cfg.GroupRetentionDays) * 24 * time.Hour,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (d *sweeperDependency) GetName() string {
	return "group-sweeper"
}

func (d *sweeperDependency) DependsOn() []string {
	return nil
}

func (d *sweeperDependency) Start(ctx context.Context) error {
	go func() {
		defer close(d.stopped)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-d.done:
				return
			case <-ticker.C:
				removed := d.groups.Sweep(context.Background(), d.retention)
				if removed > 0 {
					d.logger.WithField("removed", removed).Info("Swept expired duplicate groups")
				}
				metrics.DuplicateGroupsPending.Set(float64(d.groups.PendingCount()))
			}
		}
	}()
	return nil
}

func (d *sweeperDependency) Stop(ctx context.Context) error {
	close(d.done)
	select {
	case <-d.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// httpDependency serves the HTTP API.
type httpDependency struct {
	cfg    config.Config
	echo   *echo.Echo
	logger ectologger.Logger
}

func (d *httpDependency) GetName() string {
	return "http-server"
}

func (d *httpDependency) DependsOn() []string {
	return []string{"database"}
}

func (d *httpDependency) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", d.cfg.Port),
		ReadTimeout:    time.Duration(d.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(d.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:    time.Duration(d.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes: d.cfg.MaxHeaderBytes,
	}

	go func() {
		if err := d.echo.StartServer(server); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	return nil
}

func (d *httpDependency) Stop(ctx context.Context) error {
	return d.echo.Shutdown(ctx)
}
