package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	apporder "github.com/Zhima-Mochi/kiosk-orders/internal/application/order"
	apppayment "github.com/Zhima-Mochi/kiosk-orders/internal/application/payment"
	appsolicitation "github.com/Zhima-Mochi/kiosk-orders/internal/application/solicitation"
	"github.com/Zhima-Mochi/kiosk-orders/internal/config"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/customer"
	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/product"
	domsolicitation "github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/kitchen"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/payment"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/kiosk-orders/internal/presentation/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

type storage struct {
	orders        domorder.Repository
	solicitations domsolicitation.Repository
	catalog       product.Catalog
	customers     customer.Directory
	db            *sql.DB
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("config_load_failed", zap.Error(err))
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Level:   cfg.Service.LogLevel,
		File:    cfg.Service.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)
	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	decimal.MarshalJSONWithoutQuotes = true
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	tel := infraobs.Standard(
		prometrics.New("", ""),
		oteltrace.New(cfg.Service.Name, attribute.String("deployment.environment", cfg.Service.Env)),
		zaplogger.New(baseLogger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Database, tel.Logger())
	if err != nil {
		systemLogger.Fatal("storage_open_failed", zap.Error(err))
	}
	if store.db != nil {
		defer func() { _ = store.db.Close() }()
	}

	dispatchMode, err := apporder.ParseDispatchMode(cfg.Kitchen.DispatchMode)
	if err != nil {
		systemLogger.Fatal("config_invalid", zap.Error(err))
	}

	client := httpclient.New(httpclient.Options{
		Timeout:             cfg.HTTPClient.Timeout,
		MaxIdleConns:        cfg.HTTPClient.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPClient.MaxIdleConnsPerHost,
	})
	gateway := payment.NewGateway(client, cfg.Payment.RemittanceURL, cfg.Payment.WebhookCallbackURL)
	kitchenClient := kitchen.NewClient(client, cfg.Kitchen.IntakeURL)

	bus := outbox.NewBus(tel.Logger())

	solicitationService := appsolicitation.NewService(store.solicitations, store.catalog, store.customers, tel)
	orderService := apporder.NewService(store.orders, solicitationService, kitchenClient, bus, dispatchMode, tel,
		apporder.WithDispatchLease(cfg.Kitchen.DispatchLease),
	)

	paymentWorker := apppayment.NewWorker(bus, apppayment.NewRequestPaymentUseCase(gateway, tel), tel)
	paymentWorker.Start()

	var relay *kafka.Relay
	if brokers := kafka.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		relay = kafka.NewRelay(kafka.NewWriter(brokers, cfg.Kafka.Topic), tel)
		relay.Start(bus, kafka.OrderEvents()...)
		systemLogger.Info("kafka_relay_enabled",
			zap.Strings("brokers", brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	bus.Start(ctx)

	var workers sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	if dispatchMode == apporder.DispatchTwoPhase {
		reconciler := apporder.NewDispatchReconciler(store.orders, orderService, cfg.Kitchen.ReconcileInterval, tel)
		workers.Add(1)
		go func() {
			defer workers.Done()
			reconciler.Run(workerCtx)
		}()
	}

	handler := httppresentation.NewHandler(solicitationService, orderService, promhttp.Handler(), tel)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("kitchen_dispatch_mode", string(dispatchMode)),
			zap.Bool("postgres", store.db != nil),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("http_server_stopped")
	}

	cancelWorkers()
	workers.Wait()

	if err := bus.Stop(shutdownCtx); err != nil {
		systemLogger.Warn("event_bus_stop_error", zap.Error(err))
	}
	if relay != nil {
		if err := relay.Close(); err != nil {
			systemLogger.Warn("kafka_relay_close_error", zap.Error(err))
		}
	}
}

// openStorage uses PostgreSQL when a URL is configured and falls back to the
// in-memory repositories with the default menu otherwise.
func openStorage(ctx context.Context, cfg config.DatabaseConfig, log observability.Logger) (*storage, error) {
	if cfg.URL == "" {
		log.Info("storage_in_memory")
		return &storage{
			orders:        memory.NewOrderRepository(),
			solicitations: memory.NewSolicitationRepository(),
			catalog:       memory.NewCatalog(memory.DefaultProducts()...),
			customers:     memory.NewCustomerDirectory(),
		}, nil
	}

	db, err := postgres.Open(ctx, postgres.Options{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	catalog := postgres.NewCatalog(db)
	if err := catalog.Seed(ctx, memory.DefaultProducts()...); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("storage_postgres")
	return &storage{
		orders:        postgres.NewOrderRepository(db),
		solicitations: postgres.NewSolicitationRepository(db),
		catalog:       catalog,
		customers:     postgres.NewCustomerDirectory(db),
		db:            db,
	}, nil
}
