package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/platform/database"
	"github.com/Ramsey-B/fern/internal/platform/middleware"
	"github.com/Ramsey-B/fern/internal/platform/startup"
	"github.com/Ramsey-B/fern/internal/platform/tracing"
	"github.com/Ramsey-B/fern/internal/platform/tracing/exporters"
	documentrepo "github.com/Ramsey-B/fern/internal/repositories/document"
	entityrepo "github.com/Ramsey-B/fern/internal/repositories/entity"
	"github.com/Ramsey-B/fern/internal/repositories/matchaudit"
	"github.com/Ramsey-B/fern/pkg/dedup"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/processor"
	"github.com/Ramsey-B/fern/pkg/resolver"
	documentroutes "github.com/Ramsey-B/fern/pkg/routes/document"
	"github.com/Ramsey-B/fern/pkg/routes/duplicates"
	entityroutes "github.com/Ramsey-B/fern/pkg/routes/entity"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/resolution"
)

const serviceVersion = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := newZapLogger(cfg)
	defer zapLogger.Sync() //nolint:errcheck
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to set up tracing")
		os.Exit(1)
	}
	defer shutdownTracing()

	sqlxDB, err := openDatabase(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	db := database.NewDatabaseInstance(sqlxDB, logger)

	entityRepo := entityrepo.NewRepository(db, logger)
	documentRepo := documentrepo.NewRepository(db, logger)
	auditRepo := matchaudit.NewRepository(db, logger)

	res := resolver.New(entityRepo, resolver.Config{
		FuzzyMatchThreshold:  cfg.FuzzyMatchThreshold,
		AutoCreateConfidence: cfg.AutoCreateConfidence,
		CandidateScanLimit:   cfg.CandidateScanLimit,
	}, logger)

	dedupConfig := dedup.Config{
		LowThreshold:    cfg.DuplicateLowThreshold,
		MediumThreshold: cfg.DuplicateMediumThreshold,
		HighThreshold:   cfg.DuplicateHighThreshold,
	}
	detector := dedup.NewDetector(dedupConfig)
	groups := dedup.NewGroupManager(dedupConfig, logger)

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	emitter := events.NewEmitter(producer, logger)

	proc := processor.NewProcessor(cfg, logger, documentRepo, entityRepo, auditRepo, res, detector, groups, emitter)
	consumer := kafka.NewConsumer(cfg, logger, proc.HandleMessage)

	if err := registerDependencies(logger, entityRepo, documentRepo, auditRepo, res, detector, groups); err != nil {
		logger.WithError(err).Error("Failed to register dependencies")
		os.Exit(1)
	}

	checker := health.NewChecker(sqlxDB, consumer, serviceVersion)
	e := newEcho(cfg, logger, checker)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&databaseDependency{cfg: cfg, db: sqlxDB, logger: logger})
	if cfg.KafkaConsumerEnabled {
		boot.AddDependency(&consumerDependency{consumer: consumer})
	}
	boot.AddDependency(newSweeperDependency(cfg, groups, logger))
	boot.AddDependency(&httpDependency{cfg: cfg, echo: e, logger: logger})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	checker.SetReady(true)
	logger.WithField("port", cfg.Port).Info("Fern started")

	<-ctx.Done()
	checker.SetReady(false)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := boot.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Error("Failed to close producer")
	}
}

func newZapLogger(cfg config.Config) *zap.Logger {
	var zapConfig zap.Config
	if cfg.PrettyLogs {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapConfig.Level = level
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	return zapLogger
}

func setupTracing(ctx context.Context, cfg config.Config) (func(), error) {
	if !cfg.TracingEnabled {
		return func() {}, nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.TracingOTLPEndpoint,
		Protocol: cfg.TracingOTLPProtocol,
		Insecure: cfg.TracingInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.AppName),
			semconv.ServiceVersion(serviceVersion),
		)),
	)
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}

func openDatabase(cfg config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	db, err := sqlx.Open(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	return db, nil
}

func registerDependencies(
	logger ectologger.Logger,
	entityRepo *entityrepo.Repository,
	documentRepo *documentrepo.Repository,
	auditRepo *matchaudit.Repository,
	res *resolver.Resolver,
	detector *dedup.Detector,
	groups *dedup.GroupManager,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*entityrepo.Repository](container, entityRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*documentrepo.Repository](container, documentRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*matchaudit.Repository](container, auditRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*resolver.Resolver](container, res); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*dedup.Detector](container, detector); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*dedup.GroupManager](container, groups)
}

func newEcho(cfg config.Config, logger ectologger.Logger, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	resolution.Register(api.Group("/resolution"))
	duplicates.Register(api.Group("/duplicates"))
	entityroutes.Register(api.Group("/entities"))
	documentroutes.Register(api.Group("/documents"))

	return e
}
