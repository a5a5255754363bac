package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zhima-Mochi/minishop-inventory/internal/application"
	appinventory "github.com/Zhima-Mochi/minishop-inventory/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-inventory/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-inventory/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-inventory/internal/config"
	domorder "github.com/Zhima-Mochi/minishop-inventory/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/mysql"
	infraobs "github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-inventory/internal/infrastructure/redisguard"
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-inventory/internal/presentation/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(getenvDefault("CONFIG_DIR", "configs"), getenvDefault("APP_ENV", "dev"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := zaplogger.New(
		zaplogger.Options{Level: cfg.Log.Level, File: cfg.Log.File},
		observability.F("service", cfg.App.Name),
		observability.F("env", cfg.App.Env),
	)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = zaplogger.Sync(logger) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := oteltrace.Setup(ctx, oteltrace.SetupOptions{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	counters, histograms := prometrics.Instruments(prometrics.New("", "", prometheus.DefaultRegisterer))
	tel := infraobs.New(oteltrace.New(cfg.App.Name), logger, counters, histograms)

	// --- Store
	var (
		store  application.Store
		health func(context.Context) error
	)
	switch cfg.Store.Driver {
	case config.StoreMySQL:
		db, err := mysql.Open(ctx, mysql.Config{
			DSN:             cfg.Store.MySQL.DSN,
			MaxOpenConns:    cfg.Store.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.MySQL.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		store, health = db, db.Ping
	default:
		store = memory.NewStore()
	}
	logger.Info("store_ready", observability.F("driver", cfg.Store.Driver))

	// --- Event bus and its subscribers
	bus := outbox.NewBus(logger, outbox.Options{})
	events := application.NewEventPublisher(bus, tel)

	apporder.NewLowStockWorker(bus, cfg.Inventory.LowStockThreshold, tel).Start()

	var relay *kafka.Relay
	if len(cfg.Kafka.Brokers) > 0 {
		relay = kafka.NewRelay(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), tel)
		relay.Register(bus,
			domorder.OrderCreatedEvent{}.EventName(),
			domorder.OrderCanceledEvent{}.EventName(),
			domorder.OrderPaidEvent{}.EventName(),
			domorder.OrderShippedEvent{}.EventName(),
		)
		logger.Info("kafka_relay_enabled", observability.F("topic", cfg.Kafka.Topic))
	}
	bus.Start(ctx)

	// --- Payment webhook
	var paymentOpts []apppayment.Option
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		paymentOpts = append(paymentOpts, apppayment.WithInflightGuard(redisguard.New(rdb, cfg.Redis.InflightTTL)))
	}
	confirmPayment := apppayment.NewConfirmPaymentUseCase(store, events, apppayment.Config{
		Secret:    []byte(cfg.Webhook.Secret),
		Retention: cfg.Webhook.Retention,
	}, tel, paymentOpts...)

	sweeper := apppayment.NewSweeper(store, cfg.Webhook.Retention, cfg.Webhook.SweepInterval, tel)
	go sweeper.Run(ctx)

	// --- Use cases
	ids := id.NewUUIDGenerator()
	ledger := appinventory.NewLedger(tel)
	policy := apporder.Policy{ReleaseOnPaidCancel: cfg.Orders.ReleaseOnPaidCancel}

	handler := httppresentation.NewHandler(httppresentation.UseCases{
		CreateProduct: appinventory.NewCreateProductUseCase(store, ids, tel),
		GetProduct:    appinventory.NewGetProductUseCase(store, tel),
		ListProducts:  appinventory.NewListProductsUseCase(store, tel),
		UpdateProduct: appinventory.NewUpdateProductUseCase(store, tel),
		DeleteProduct: appinventory.NewDeleteProductUseCase(store, tel),

		CreateOrder:    apporder.NewCreateOrderUseCase(store, ledger, ids, events, tel),
		GetOrder:       apporder.NewGetOrderUseCase(store, tel),
		ListOrders:     apporder.NewListOrdersUseCase(store, tel),
		SetOrderStatus: apporder.NewSetOrderStatusUseCase(store, ledger, policy, events, tel),
		CancelOrder:    apporder.NewCancelOrderUseCase(store, ledger, policy, events, tel),

		ConfirmPayment: confirmPayment,

		Health: health,
	}, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("http_server_error",
				observability.F("error", err.Error()),
			)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error",
			observability.F("error", err.Error()),
		)
	} else {
		logger.Info("http_server_stopped")
	}

	// Drain the bus before closing the relay it feeds.
	bus.Stop(shutdownCtx)
	if relay != nil {
		if err := relay.Close(); err != nil {
			logger.Warn("kafka_relay_close_error", observability.F("error", err.Error()))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing_shutdown_error", observability.F("error", err.Error()))
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
