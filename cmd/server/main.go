package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"order_syncer/internal/channel/carrier"
	"order_syncer/internal/channel/marketa"
	"order_syncer/internal/channel/marketb"
	"order_syncer/internal/channel/sheet"
	"order_syncer/internal/config"
	"order_syncer/internal/credentials"
	"order_syncer/internal/enrich"
	"order_syncer/internal/metrics"
	"order_syncer/internal/runlock"
	"order_syncer/internal/server"
	"order_syncer/internal/service"
	"order_syncer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)
	metrics.RegisterDefault()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	orderStore := postgres.NewOrderStore(db)
	watermarkStore := postgres.NewWatermarkStore(db)
	credentialStore := postgres.NewCredentialStore(db)
	txManager := postgres.NewTransactionManager(db)

	creds := credentials.NewService(credentialStore, logger)

	var locker service.RunLocker
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		locker = runlock.NewLocker(rdb, cfg.Redis.LeaseTTL)
	}

	var enricher *enrich.Publisher
	if cfg.RabbitMQ.URL != "" {
		enricher, err = enrich.NewPublisher(enrich.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer enricher.Close()
	}

	var svcEnricher service.Enricher
	var srvEnricher server.Enricher
	if enricher != nil {
		svcEnricher = enricher
		srvEnricher = enricher
	}

	timeout := cfg.Channels.Timeout
	var syncers []server.Syncer

	if cfg.Channels.Carrier.Configured() {
		creds.Register(carrier.ServiceID, credentials.NewPasswordRefresher(
			cfg.Channels.Carrier.AuthURL,
			cfg.Channels.Carrier.Email,
			cfg.Channels.Carrier.Password,
			timeout,
		))
		connector := carrier.New(carrier.Config{
			BaseURL: cfg.Channels.Carrier.BaseURL,
			Timeout: timeout,
		}, creds, logger)
		syncers = append(syncers, service.NewSyncService(connector, orderStore, watermarkStore, txManager, locker, svcEnricher, logger))
	}

	if cfg.Channels.MarketA.Configured() {
		creds.Register(marketa.ServiceID, credentials.NewAppKeyRefresher(
			cfg.Channels.MarketA.AuthURL,
			cfg.Channels.MarketA.AppID,
			cfg.Channels.MarketA.AppSecret,
			timeout,
		))
		connector := marketa.New(marketa.Config{
			BaseURL:    cfg.Channels.MarketA.BaseURL,
			Timeout:    timeout,
			TaxDivisor: cfg.Channels.MarketA.TaxDivisor,
		}, creds, logger)
		syncers = append(syncers, service.NewSyncService(connector, orderStore, watermarkStore, txManager, locker, svcEnricher, logger))
	}

	if cfg.Channels.MarketB.Configured() {
		creds.Register(marketb.ServiceID, credentials.NewAppKeyRefresher(
			cfg.Channels.MarketB.AuthURL,
			cfg.Channels.MarketB.AppID,
			cfg.Channels.MarketB.AppSecret,
			timeout,
		))
		connector := marketb.New(marketb.Config{
			BaseURL: cfg.Channels.MarketB.BaseURL,
			Timeout: timeout,
		}, creds, logger)
		syncers = append(syncers, service.NewSyncService(connector, orderStore, watermarkStore, txManager, locker, svcEnricher, logger))
	}

	if cfg.Channels.Sheet.Configured() {
		source := sheet.New(sheet.Config{Path: cfg.Channels.Sheet.Path}, logger)
		syncers = append(syncers, service.NewSyncService(source, orderStore, watermarkStore, txManager, locker, svcEnricher, logger))
	}

	srv := server.New(syncers, creds, orderStore, srvEnricher, cfg.Server.TriggerSecret, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("starting trigger server", "addr", cfg.Server.Addr, "channels", len(syncers))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
