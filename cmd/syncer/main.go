package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

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
	"order_syncer/internal/scheduler"
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
		logger.Info("run leases enabled", "addr", cfg.Redis.Addr)
	}

	var enricher service.Enricher
	if cfg.RabbitMQ.URL != "" {
		publisher, err := enrich.NewPublisher(enrich.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		enricher = publisher
	}

	timeout := cfg.Channels.Timeout
	newSyncService := func(source service.Source) *service.SyncService {
		return service.NewSyncService(source, orderStore, watermarkStore, txManager, locker, enricher, logger)
	}

	var schedulers []*scheduler.Scheduler

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
		svc := newSyncService(connector)

		schedulers = append(schedulers,
			scheduler.New("carrier", scheduler.RunnerFunc(svc.Sync), cfg.Sync.Interval, cfg.Sync.RunTimeout, logger),
			scheduler.New("carrier-cancellations", scheduler.RunnerFunc(svc.PurgeCancelled), cfg.Sync.CancellationInterval, cfg.Sync.RunTimeout, logger),
		)
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
		svc := newSyncService(connector)

		schedulers = append(schedulers,
			scheduler.New("marketa", scheduler.RunnerFunc(svc.Sync), cfg.Sync.Interval, cfg.Sync.RunTimeout, logger))
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
		svc := newSyncService(connector)

		schedulers = append(schedulers,
			scheduler.New("marketb", scheduler.RunnerFunc(svc.Sync), cfg.Sync.Interval, cfg.Sync.RunTimeout, logger))
	}

	if cfg.Channels.Sheet.Configured() {
		source := sheet.New(sheet.Config{Path: cfg.Channels.Sheet.Path}, logger)
		svc := newSyncService(source)

		schedulers = append(schedulers,
			scheduler.New("sheet", scheduler.RunnerFunc(svc.Sync), cfg.Sync.Interval, cfg.Sync.RunTimeout, logger))
	}

	if len(schedulers) == 0 {
		logger.Error("no channels configured")
		os.Exit(1)
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

	logger.Info("starting order syncer",
		"channels", len(schedulers),
		"interval", cfg.Sync.Interval,
	)

	var wg sync.WaitGroup
	for _, sched := range schedulers {
		wg.Add(1)
		go func(sched *scheduler.Scheduler) {
			defer wg.Done()
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler error", "error", err)
			}
		}(sched)
	}
	wg.Wait()
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
