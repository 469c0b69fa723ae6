// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package tracer

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/pinmanager/core/logger"
	"github.com/canonical/pinmanager/version"
)

// ServiceName identifies the daemon in exported spans.
const ServiceName = "pinmanager"

// NewExporterFunc creates the exporter spans are batched to.
type NewExporterFunc func(ctx context.Context, endpoint string, insecure bool) (sdktrace.SpanExporter, error)

// Config holds the configuration of the tracer worker.
type Config struct {
	Endpoint string
	Insecure bool
	Logger   logger.Logger

	// InstanceID tells apart daemons sharing a collector.
	InstanceID string

	// NewExporter defaults to NewOTLPExporter.
	NewExporter NewExporterFunc
}

// Validate returns an error if the config cannot be used to start a
// tracer.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.NotValidf("empty Endpoint")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// NewOTLPExporter exports spans over gRPC to an OTLP collector.
func NewOTLPExporter(ctx context.Context, endpoint string, insecure bool) (sdktrace.SpanExporter, error) {
	options := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
	}
	if insecure {
		options = append(options, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(options...))
	return exporter, errors.Trace(err)
}

// Worker owns a tracer provider. Spans still buffered when it is killed are
// flushed before it stops.
type Worker struct {
	catacomb catacomb.Catacomb
	logger   logger.Logger
	provider *sdktrace.TracerProvider
}

// New starts a tracer worker exporting to config.Endpoint.
func New(ctx context.Context, config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	newExporter := config.NewExporter
	if newExporter == nil {
		newExporter = NewOTLPExporter
	}
	exporter, err := newExporter(ctx, config.Endpoint, config.Insecure)
	if err != nil {
		return nil, errors.Annotatef(err, "creating exporter for %q", config.Endpoint)
	}

	w := &Worker{
		logger: config.Logger,
		provider: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(newResource(config.InstanceID)),
		),
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Name: "tracer",
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Tracer returns a named tracer of the provider.
func (w *Worker) Tracer(name string) trace.Tracer {
	return w.provider.Tracer(name)
}

// Provider returns the tracer provider, to be installed globally.
func (w *Worker) Provider() trace.TracerProvider {
	return w.provider
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

func (w *Worker) loop() error {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := w.provider.ForceFlush(ctx); err != nil {
			w.logger.Infof(ctx, "failed to flush spans: %v", err)
		}
		if err := w.provider.Shutdown(ctx); err != nil {
			w.logger.Infof(ctx, "failed to shutdown provider: %v", err)
		}
	}()

	<-w.catacomb.Dying()
	return w.catacomb.ErrDying()
}

func newResource(instanceID string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version.Current.String()),
		semconv.ServiceInstanceID(instanceID),
	)
}
