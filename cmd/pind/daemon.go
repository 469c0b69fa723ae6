// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"net"
	"os"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/pinmanager/apiserver"
	"github.com/canonical/pinmanager/core/logger"
	"github.com/canonical/pinmanager/domain/pin/service"
	"github.com/canonical/pinmanager/domain/pin/state"
	"github.com/canonical/pinmanager/domain/schema"
	"github.com/canonical/pinmanager/internal/auth"
	"github.com/canonical/pinmanager/internal/config"
	"github.com/canonical/pinmanager/internal/database"
	internallogger "github.com/canonical/pinmanager/internal/logger"
	"github.com/canonical/pinmanager/internal/metrics"
	"github.com/canonical/pinmanager/internal/pool"
	"github.com/canonical/pinmanager/version"
	"github.com/canonical/pinmanager/worker/httpserver"
	"github.com/canonical/pinmanager/worker/pinsweeper"
	"github.com/canonical/pinmanager/worker/signalwatcher"
	"github.com/canonical/pinmanager/worker/tracer"
)

// metricsPath is where the prometheus metrics are served.
const metricsPath = "/metrics"

type daemonConfig struct {
	config.Config

	Logger  logger.Logger
	Clock   clock.Clock
	Signals <-chan os.Signal

	// NewExporter is passed to the tracer worker when tracing is enabled.
	NewExporter tracer.NewExporterFunc
}

// daemon runs the workers of the pin manager. It dies with the first
// error of any of them, and closes the database once they all stopped.
type daemon struct {
	catacomb catacomb.Catacomb
	server   *httpserver.Worker
	closeDB  func() error
	logger   logger.Logger
}

func newDaemon(ctx context.Context, cfg daemonConfig) (_ *daemon, err error) {
	log := cfg.Logger

	db, closeDB, err := openDatabase(ctx, cfg.DatabasePath, log.Child("database"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer func() {
		if err != nil {
			_ = closeDB()
		}
	}()
	runner := database.NewTxnRunner(db)
	if err := database.ApplyDDL(ctx, runner, schema.PinDDL(), log.Child("schema")); err != nil {
		return nil, errors.Annotate(err, "applying schema")
	}

	pools, err := pool.NewClient(pool.Config{
		Pools:     cfg.Pools,
		RateLimit: cfg.PoolRateLimit,
		Burst:     cfg.PoolBurst,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	var workers []worker.Worker
	stopAll := func() {
		for _, w := range workers {
			w.Kill()
			_ = w.Wait()
		}
	}
	defer func() {
		if err != nil {
			stopAll()
		}
	}()

	var tr trace.Tracer
	if cfg.TraceEndpoint != "" {
		otel.SetLogger(internallogger.NewLogr(log.Child("otel")))
		hostname, _ := os.Hostname()
		tw, err := tracer.New(ctx, tracer.Config{
			Endpoint:    cfg.TraceEndpoint,
			Insecure:    cfg.TraceInsecure,
			Logger:      log.Child("tracer"),
			InstanceID:  hostname,
			NewExporter: cfg.NewExporter,
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		workers = append(workers, tw)
		tr = tw.Tracer(service.TracerName)
	}

	collector := metrics.NewCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := service.NewService(service.Config{
		State:           state.NewState(database.TxnRunnerFactory(runner), log.Child("state")),
		Pools:           pools,
		Authorizer:      auth.NewPolicy(cfg.Admins),
		Clock:           cfg.Clock,
		Logger:          log.Child("service"),
		Metrics:         collector,
		Tracer:          tr,
		RemoteTimeout:   cfg.RemoteTimeout,
		MaxLifetime:     cfg.MaxLifetime,
		MoveParallelism: cfg.MoveParallelism,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	sweeper, err := pinsweeper.New(pinsweeper.Config{
		PinService: svc,
		Logger:     log.Child("sweeper"),
		Clock:      cfg.Clock,
		Interval:   cfg.SweepInterval,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	workers = append(workers, sweeper)

	router, err := apiserver.NewRouter(apiserver.Config{
		Handler: svc,
		Logger:  log.Child("apiserver"),
		Tracker: collector,
		Version: version.String(),
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	router.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return nil, errors.Annotatef(err, "listening on %q", cfg.ListenAddress)
	}
	server, err := httpserver.NewWorker(httpserver.Config{
		Listener:       listener,
		Handler:        router,
		Logger:         log.Child("httpserver"),
		MaxConnections: cfg.MaxConnections,
	})
	if err != nil {
		_ = listener.Close()
		return nil, errors.Trace(err)
	}
	workers = append(workers, server)

	signals, err := signalwatcher.New(log.Child("signals"), cfg.Signals, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	workers = append(workers, signals)

	d := &daemon{
		server:  server,
		closeDB: closeDB,
		logger:  log,
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Name: "pind",
		Site: &d.catacomb,
		Work: d.loop,
		Init: workers,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return d, nil
}

// Addr returns the address the API is served on.
func (d *daemon) Addr() net.Addr {
	return d.server.Addr()
}

// Kill is part of the worker.Worker interface.
func (d *daemon) Kill() {
	d.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface. The database is closed
// before it returns.
func (d *daemon) Wait() error {
	err := d.catacomb.Wait()
	if closeErr := d.closeDB(); closeErr != nil {
		d.logger.Warningf(context.Background(), "closing database: %v", closeErr)
	}
	return err
}

func (d *daemon) loop() error {
	<-d.catacomb.Dying()
	return d.catacomb.ErrDying()
}
