// Package otel sets up the [OpenTelemetry] tracing pipeline of the
// recorder, and instruments the served handler, so that the trace sink
// finds a span in every request.
//
// [OpenTelemetry]: https://opentelemetry.io/
package otel

import (
	"context"
	"net/http"
	"os"
	"sync"

	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/bombsimon/logrusr/v4"
	"github.com/sirupsen/logrus"
)

// DebugExporterName selects the exporter writing the spans to the
// application log at DEBUG level, e.g. OTEL_TRACES_EXPORTER=recorder-debug.
const DebugExporterName = "recorder-debug"

var (
	log = logrus.WithField("package", "otel")

	registerDebugExporter sync.Once
)

// Options configure the OpenTelemetry pipeline.
type Options struct {

	// Initialized tells that the pipeline was set up externally. Init
	// does nothing then.
	Initialized bool `yaml:"initialized"`

	// DebugExporter makes the debug exporter the default when
	// OTEL_TRACES_EXPORTER is not set.
	DebugExporter bool `yaml:"debug-exporter"`
}

// Init bootstraps the OpenTelemetry pipeline from the standard
// environment variables, like OTEL_TRACES_EXPORTER, OTEL_PROPAGATORS
// or OTEL_RESOURCE_ATTRIBUTES. When err is nil, shutdown must be called
// to flush the pending spans.
func Init(ctx context.Context, o *Options) (shutdown func(context.Context) error, err error) {
	if o == nil || o.Initialized {
		log.Debug("OpenTelemetry pipeline initialized externally")
		return func(context.Context) error { return nil }, nil
	}

	for _, name := range []string{
		"OTEL_TRACES_EXPORTER",
		"OTEL_EXPORTER_OTLP_PROTOCOL",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_RESOURCE_ATTRIBUTES",
		"OTEL_PROPAGATORS",
	} {
		log.Debugf("%s: %s", name, os.Getenv(name))
	}

	// autoexport panics on a second registration of the same name
	registerDebugExporter.Do(func() {
		autoexport.RegisterSpanExporter(DebugExporterName, newDebugExporter)
	})

	var exporterOpts []autoexport.SpanOption
	if o.DebugExporter {
		exporterOpts = append(exporterOpts, autoexport.WithFallbackSpanExporter(newDebugExporter))
	}

	spanExporter, err := autoexport.NewSpanExporter(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(spanExporter),
		trace.WithResource(resource.Environment()),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) { log.Error(err) }))
	otel.SetLogger(logrusr.New(log))
	return tracerProvider.Shutdown, nil
}

// newDebugExporter logs the spans at DEBUG level. The exporter is shut
// down with the tracer provider.
func newDebugExporter(context.Context) (trace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(writerFunc(func(p []byte) (int, error) {
		log.Debugf("Span: %s", p)
		return len(p), nil
	})))
}

// Handler starts a server span for every request, with the global
// tracer provider.
func Handler(operation string, h http.Handler) http.Handler {
	return otelhttp.NewHandler(h, operation)
}

type writerFunc func([]byte) (int, error)

func (wf writerFunc) Write(p []byte) (int, error) {
	return wf(p)
}
