package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/openelect/basis/modules"
	mdoutbox "github.com/openelect/basis/modules/masterdata/infrastructure/outbox"
	mdservices "github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/application"
	"github.com/openelect/basis/pkg/configuration"
	"github.com/openelect/basis/pkg/eventbus"
	"github.com/openelect/basis/pkg/metrics"
	"github.com/openelect/basis/pkg/middleware"
	"github.com/openelect/basis/pkg/outbox"
	"github.com/openelect/basis/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.ApplySchema(context.Background()); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	app.RegisterMiddleware(
		middleware.Recover(logger),
		middleware.RequestID(),
		middleware.WithLogger(logger),
	)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Outbox.RelayEnabled {
		startOutboxRelay(runCtx, conf, pool, logger, app.EventPublisher())
	}

	srv := &http.Server{
		Addr:              conf.SocketAddress,
		Handler:           server.NewHTTPServer(app).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithField("address", conf.SocketAddress).Info("server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

func startOutboxRelay(
	ctx context.Context,
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	bus eventbus.EventBusWithError,
) {
	relay, err := outbox.NewRelay(pool, mdservices.OutboxTable, mdoutbox.NewDispatcher(bus), outbox.RelayOptions{
		PollInterval:    conf.Outbox.RelayPollInterval,
		BatchSize:       conf.Outbox.RelayBatchSize,
		MaxAttempts:     conf.Outbox.RelayMaxAttempts,
		SingleActive:    conf.Outbox.RelaySingleActive,
		DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
		Logger:          logger.WithField("component", "outbox"),
	})
	if err != nil {
		logger.WithError(err).Warn("outbox: relay disabled")
		return
	}
	go func() {
		if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("outbox: relay stopped")
		}
	}()
}
