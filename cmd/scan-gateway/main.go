package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/scan-gateway/internal/application"
	"github.com/wms-platform/scan-gateway/internal/config"
	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/internal/gate"
	kafkaInfra "github.com/wms-platform/scan-gateway/internal/infrastructure/kafka"
	"github.com/wms-platform/scan-gateway/internal/infrastructure/keyboard"
	mongoRepo "github.com/wms-platform/scan-gateway/internal/infrastructure/mongodb"
	"github.com/wms-platform/scan-gateway/internal/infrastructure/serialport"
	"github.com/wms-platform/scan-gateway/internal/notify"
	"github.com/wms-platform/scan-gateway/internal/pairing"
	"github.com/wms-platform/scan-gateway/internal/remote"
	"github.com/wms-platform/scan-gateway/pkg/cloudevents"
	"github.com/wms-platform/scan-gateway/pkg/kafka"
	"github.com/wms-platform/scan-gateway/pkg/logging"
	"github.com/wms-platform/scan-gateway/pkg/metrics"
	"github.com/wms-platform/scan-gateway/pkg/middleware"
	"github.com/wms-platform/scan-gateway/pkg/mongodb"
	"github.com/wms-platform/scan-gateway/pkg/tracing"
)

const serviceName = "scan-gateway"

func main() {
	// Load configuration first; the log level comes from it
	cfg, err := config.Load(getEnv("CONFIG_PATH", ""))
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(cfg.Log.Level)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting scan-gateway", "stationId", cfg.Service.StationID, "mode", cfg.Routing.Mode)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = cfg.Tracing.Endpoint
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = cfg.Tracing.Enabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// Remote WMS client serves classification, tag lookup and linking
	remoteClient := remote.New(&remote.Config{
		BaseURL:        cfg.Remote.BaseURL,
		RequestTimeout: 10 * time.Second,
	}, logger, m)

	// Keystroke wedge. Stdout stands in for the platform injector; hosts
	// with a real HID wedge swap the writer here.
	wedge := keyboard.New(keyboard.Config{
		InterKeyDelay:    cfg.Keyboard.InterKeyDelay.Std(),
		AppendTerminator: cfg.Keyboard.AppendTerminator,
	}, os.Stdout, logger, m)

	notifier := notify.New(logger)

	singleFlight := gate.New(gate.Config{
		LookupPrefix:  cfg.Routing.LookupPrefix,
		LookupTimeout: cfg.Remote.LookupTimeout.Std(),
	}, remoteClient, wedge, notifier, logger)

	pairingMachine := pairing.New(pairing.Config{
		TagPrefix:       cfg.Routing.TagPrefix,
		ClassifyTimeout: cfg.Remote.ClassifyTimeout.Std(),
		LinkTimeout:     cfg.Remote.LinkTimeout.Std(),
	}, remoteClient, remoteClient, wedge, notifier, logger)
	pairingMachine.Start(ctx)
	defer pairingMachine.Stop()

	scanService, err := application.NewScanService(
		domain.Mode(cfg.Routing.Mode),
		singleFlight,
		pairingMachine,
		wedge,
		notifier,
		logger,
		m,
	)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize scan service")
		os.Exit(1)
	}

	// Optional Kafka event publishing
	var eventPublisher *kafkaInfra.EventPublisher
	if cfg.Kafka.Enabled {
		producerConfig := kafka.DefaultConfig()
		producerConfig.Brokers = cfg.Kafka.Brokers
		producer := kafka.NewProducer(producerConfig)
		defer producer.Close()

		eventFactory := cloudevents.NewEventFactory("/"+serviceName, cfg.Service.StationID)
		eventPublisher = kafkaInfra.NewEventPublisher(producer, eventFactory, cfg.Kafka.Topic, logger, m)
		logger.Info("Kafka publisher initialized", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// Optional MongoDB assignment history
	var history domain.AssignmentHistory
	var mongoClient *mongodb.Client
	if cfg.Mongo.Enabled {
		mongoConfig := mongodb.DefaultConfig()
		mongoConfig.URI = cfg.Mongo.URI
		mongoConfig.Database = cfg.Mongo.Database

		mongoClient, err = mongodb.NewClient(ctx, mongoConfig)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		defer mongoClient.Close(ctx)

		history = mongoRepo.NewAssignmentRepository(mongoClient.Database())
		logger.Info("Connected to MongoDB", "database", cfg.Mongo.Database)
	}

	// Bridge pipeline events to metrics, Kafka and the audit trail
	unsubscribe := notifier.Subscribe(newPipelineObserver(pairingMachine, eventPublisher, history, logger, m))
	defer unsubscribe()

	// Serial scanner intake
	reader := serialport.New(serialport.Config{
		Port:        cfg.Serial.Port,
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout.Std(),
	}, scanService.OnScanLine, notifier, logger, m)

	if cfg.Serial.AutoConnect && cfg.Serial.Port != "" {
		if err := reader.Connect(ctx); err != nil {
			logger.WithError(err).Error("Failed to connect scanner", "port", cfg.Serial.Port)
			os.Exit(1)
		}
		defer reader.Disconnect()
	}

	// Setup Gin router with middleware
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, readinessChecks(ctx, mongoClient)...))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	{
		api.GET("/status", statusHandler(scanService, reader))
		api.PUT("/mode", setModeHandler(scanService))
		api.POST("/counters/reset", resetCountersHandler(scanService, logger))
		api.POST("/scan", injectScanHandler(scanService))
		api.POST("/scanner/connect", connectScannerHandler(reader))
		api.POST("/scanner/disconnect", disconnectScannerHandler(reader))
		api.GET("/assignments", listAssignmentsHandler(history, logger))
	}

	// Start server
	srv := &http.Server{
		Addr:         cfg.Service.ListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", cfg.Service.ListenAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

func readinessChecks(ctx context.Context, mongoClient *mongodb.Client) []func() error {
	if mongoClient == nil {
		return nil
	}
	return []func() error{
		func() error { return mongoClient.HealthCheck(ctx) },
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
