package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	promNamespace        = "recorder"
	promRequestSubsystem = "request"
	promSinkSubsystem    = "sink"
	promCaptureSubsystem = "capture"
)

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	recordedM     prometheus.Counter
	skippedM      prometheus.Counter
	sinkErrorsM   prometheus.Counter
	configErrorsM prometheus.Counter
	capturedM     *prometheus.HistogramVec
	flowedM       *prometheus.CounterVec
	truncatedM    *prometheus.CounterVec

	opts     Options
	registry *prometheus.Registry
	handler  http.Handler
}

// NewPrometheus returns a new Prometheus metric backend.
func NewPrometheus(opts Options) *Prometheus {
	namespace := promNamespace
	if opts.Prefix != "" {
		namespace = strings.TrimSuffix(opts.Prefix, ".")
	}

	if len(opts.CaptureSizeBuckets) == 0 {
		opts.CaptureSizeBuckets = DefaultCaptureSizeBuckets
	}

	p := &Prometheus{
		recordedM: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promRequestSubsystem,
			Name:      "recorded_total",
			Help:      "Total number of requests delivered to the sink.",
		}),
		skippedM: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promRequestSubsystem,
			Name:      "skipped_total",
			Help:      "Total number of requests without any capture.",
		}),
		sinkErrorsM: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promSinkSubsystem,
			Name:      "errors_total",
			Help:      "Total number of failed sink calls.",
		}),
		configErrorsM: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promRequestSubsystem,
			Name:      "config_errors_total",
			Help:      "Total number of invalid capture decisions.",
		}),
		capturedM: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: promCaptureSubsystem,
			Name:      "retained_bytes",
			Help:      "Size in bytes of the captured data.",
			Buckets:   opts.CaptureSizeBuckets,
		}, []string{"channel"}),
		flowedM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promCaptureSubsystem,
			Name:      "observed_bytes_total",
			Help:      "Total number of bytes that flowed through intercepted channels.",
		}, []string{"channel"}),
		truncatedM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promCaptureSubsystem,
			Name:      "truncated_total",
			Help:      "Total number of truncated captures.",
		}, []string{"channel"}),
		opts:     opts,
		registry: prometheus.NewRegistry(),
	}

	p.registerMetrics()
	return p
}

func (p *Prometheus) registerMetrics() {
	p.registry.MustRegister(p.recordedM)
	p.registry.MustRegister(p.skippedM)
	p.registry.MustRegister(p.sinkErrorsM)
	p.registry.MustRegister(p.configErrorsM)
	p.registry.MustRegister(p.capturedM)
	p.registry.MustRegister(p.flowedM)
	p.registry.MustRegister(p.truncatedM)

	// Register prometheus runtime collectors if required.
	if p.opts.EnableRuntimeMetrics {
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p.registry.MustRegister(collectors.NewGoCollector())
	}
}

// CreateHandler returns the handler serving the collected metrics.
func (p *Prometheus) CreateHandler() http.Handler {
	if p.handler == nil {
		p.handler = promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	}

	return p.handler
}

// RegisterHandler registers the metrics handler on path.
func (p *Prometheus) RegisterHandler(path string, mux *http.ServeMux) {
	mux.Handle(path, p.CreateHandler())
}

func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

func (p *Prometheus) IncRecorded()     { p.recordedM.Inc() }
func (p *Prometheus) IncSkipped()      { p.skippedM.Inc() }
func (p *Prometheus) IncSinkErrors()   { p.sinkErrorsM.Inc() }
func (p *Prometheus) IncConfigErrors() { p.configErrorsM.Inc() }

func (p *Prometheus) ObserveCapture(channel string, retained int, total int64, truncated bool) {
	p.capturedM.WithLabelValues(channel).Observe(float64(retained))
	p.flowedM.WithLabelValues(channel).Add(float64(total))
	if truncated {
		p.truncatedM.WithLabelValues(channel).Inc()
	}
}
