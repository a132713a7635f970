package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zalando/recorder/capture"
	"github.com/zalando/recorder/logging"
	"github.com/zalando/recorder/metrics"
	"github.com/zalando/recorder/otel"
	"github.com/zalando/recorder/policy"
	"github.com/zalando/recorder/record"
	"github.com/zalando/recorder/sink"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultOperation       = "recorder"
)

// Options to start the recorder.
type Options struct {

	// Network address that the recorder listens on.
	Address string

	// Absolute URL of the backend that the requests are forwarded to.
	Backend string

	// Network address of the /metrics and /healthz endpoints. When
	// empty, the support endpoints are disabled.
	SupportListener string

	// When set, the Host header of the incoming requests is sent to
	// the backend.
	ProxyPreserveHost bool

	// Flush interval of the backend responses. A negative value
	// flushes after every write.
	FlushInterval time.Duration

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration

	// Maximum time to wait for the open requests on shutdown.
	ShutdownTimeout time.Duration

	// YAML file with the capture rules.
	PolicyFile string

	// Default decisions overriding the defaults of the policy file. A
	// nil decision keeps the default of the policy file.
	CaptureInput    *capture.Decision
	CaptureErrors   *capture.Decision
	CaptureResponse *capture.Decision

	// Policy is used instead of the policy file when set.
	Policy record.Policy

	// Log every recorded request to the application log.
	RecordLog bool

	// Captured bytes logged per channel at DEBUG level.
	RecordLogMaxBody int

	// File that the recorded requests are appended to, as JSON lines.
	// "-" means stdout.
	RecordJSONFile        string
	RecordJSONCompression sink.Compression

	// Add an event to the request span of every recorded request.
	RecordTrace bool

	// Headers removed from the request and response headers passed to
	// the sinks.
	RedactHeaders []string

	// Sinks receiving the recorded requests in addition to the ones
	// created from the options.
	CustomSinks []record.Sink

	// Output file for the application log. When empty, stderr.
	ApplicationLogOutput      string
	ApplicationLogLevel       log.Level
	ApplicationLogPrefix      string
	ApplicationLogJSONEnabled bool

	EnablePrometheusMetrics bool
	MetricsPrefix           string
	EnableRuntimeMetrics    bool
	CaptureSizeBuckets      []float64

	// When set, the OpenTelemetry pipeline is initialized, and a server
	// span is started for every request.
	OpenTelemetry *otel.Options
}

// Server holds the wired components of a recorder.
type Server struct {
	options  Options
	handler  http.Handler
	support  http.Handler
	shutdown []func(context.Context) error
}

func newPolicy(o Options) (record.Policy, error) {
	if o.Policy != nil {
		return o.Policy, nil
	}

	rules := &policy.Rules{}
	if o.PolicyFile != "" {
		var err error
		if rules, err = policy.LoadFile(o.PolicyFile); err != nil {
			return nil, err
		}
	}

	rules.Override(policy.Channels{
		Input:    o.CaptureInput,
		Errors:   o.CaptureErrors,
		Response: o.CaptureResponse,
	})

	return rules, nil
}

func openJSONFile(o Options) (io.Writer, func(context.Context) error, error) {
	if o.RecordJSONFile == "-" {
		return os.Stdout, func(context.Context) error { return nil }, nil
	}

	f, err := os.OpenFile(o.RecordJSONFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open record file: %w", err)
	}

	return f, func(context.Context) error { return f.Close() }, nil
}

func (s *Server) newSink() (record.Sink, error) {
	o := s.options
	var sinks []record.Sink
	if o.RecordLog {
		sinks = append(sinks, sink.NewLog(log.WithField("component", "recorder"), sink.LogOptions{MaxBody: o.RecordLogMaxBody}))
	}

	if o.RecordJSONFile != "" {
		w, closeFile, err := openJSONFile(o)
		if err != nil {
			return nil, err
		}

		js, err := sink.NewJSON(w, sink.JSONOptions{Compression: o.RecordJSONCompression})
		if err != nil {
			closeFile(context.Background())
			return nil, err
		}

		s.shutdown = append(s.shutdown, func(ctx context.Context) error {
			return errors.Join(js.Close(), closeFile(ctx))
		})

		sinks = append(sinks, js)
	}

	if o.RecordTrace {
		sinks = append(sinks, sink.NewTrace())
	}

	sinks = append(sinks, o.CustomSinks...)
	if len(sinks) == 0 {
		log.Warn("No sink configured, the captured data is discarded")
		return record.NopSink{}, nil
	}

	return sink.Redact(sink.Multi(sinks...), o.RedactHeaders...), nil
}

func newProxy(o Options) (*httputil.ReverseProxy, error) {
	backend, err := url.Parse(o.Backend)
	if err != nil {
		return nil, fmt.Errorf("invalid backend: %w", err)
	}

	if backend.Scheme == "" || backend.Host == "" {
		return nil, fmt.Errorf("invalid backend: %q, expected an absolute URL", o.Backend)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(backend)
			pr.SetXForwarded()
			if o.ProxyPreserveHost {
				pr.Out.Host = pr.In.Host
			}
		},
		FlushInterval: o.FlushInterval,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			fmt.Fprintf(record.ErrorStream(r), "backend request failed: %v\n", err)

			status := http.StatusBadGateway
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}

			record.StartError(w, r, status, err)
		},
	}, nil
}

// New creates the components of a recorder without starting to listen.
// Close releases them.
func New(o Options) (*Server, error) {
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{options: o}
	p, err := newPolicy(o)
	if err != nil {
		return nil, err
	}

	proxy, err := newProxy(o)
	if err != nil {
		return nil, err
	}

	var m metrics.Metrics = metrics.Void
	supportMux := http.NewServeMux()
	supportMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if o.EnablePrometheusMetrics {
		pm := metrics.NewPrometheus(metrics.Options{
			Prefix:               o.MetricsPrefix,
			CaptureSizeBuckets:   o.CaptureSizeBuckets,
			EnableRuntimeMetrics: o.EnableRuntimeMetrics,
		})

		pm.RegisterHandler("/metrics", supportMux)
		m = pm
	}

	s.support = supportMux

	if o.OpenTelemetry != nil {
		shutdown, err := otel.Init(context.Background(), o.OpenTelemetry)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}

		s.shutdown = append(s.shutdown, shutdown)
	}

	sk, err := s.newSink()
	if err != nil {
		s.Close(context.Background())
		return nil, err
	}

	s.handler = record.New(proxy, record.Options{
		Policy:  p,
		Sink:    sk,
		Metrics: m,
		Log:     log.WithField("component", "recorder"),
	})

	if o.OpenTelemetry != nil {
		s.handler = otel.Handler(defaultOperation, s.handler)
	}

	return s, nil
}

// Handler returns the recording proxy handler.
func (s *Server) Handler() http.Handler { return s.handler }

// SupportHandler returns the handler of the /metrics and /healthz
// endpoints.
func (s *Server) SupportHandler() http.Handler { return s.support }

// Close flushes and closes the sinks, and shuts down the tracing
// pipeline.
func (s *Server) Close(ctx context.Context) error {
	var err error
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		err = errors.Join(err, s.shutdown[i](ctx))
	}

	s.shutdown = nil
	return err
}

// initLog configures the application log. The returned function closes
// the log file, after switching the log back to stderr.
func initLog(o Options) (func() error, error) {
	lo := logging.Options{
		ApplicationLogPrefix:      o.ApplicationLogPrefix,
		ApplicationLogLevel:       o.ApplicationLogLevel,
		ApplicationLogJSONEnabled: o.ApplicationLogJSONEnabled,
	}

	if o.ApplicationLogOutput != "" {
		f, err := os.OpenFile(o.ApplicationLogOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open application log: %w", err)
		}

		lo.ApplicationLogOutput = f
		logging.Init(lo)
		return func() error {
			log.SetOutput(os.Stderr)
			return f.Close()
		}, nil
	}

	logging.Init(lo)
	return func() error { return nil }, nil
}

func listenAndServe(ctx context.Context, g *errgroup.Group, srv *http.Server, timeout time.Duration) {
	g.Go(func() error {
		log.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
}

// RunContext starts the recorder, and blocks until ctx is done or one of
// the listeners fails. On return, the open requests are drained and the
// sinks are closed.
func RunContext(ctx context.Context, o Options) (err error) {
	closeLog, err := initLog(o)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, closeLog())
	}()

	s, err := New(o)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	listenAndServe(gctx, g, &http.Server{
		Addr:              o.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: o.ReadHeaderTimeout,
		IdleTimeout:       o.IdleTimeout,
	}, s.options.ShutdownTimeout)

	if o.SupportListener != "" {
		listenAndServe(gctx, g, &http.Server{
			Addr:              o.SupportListener,
			Handler:           s.SupportHandler(),
			ReadHeaderTimeout: o.ReadHeaderTimeout,
		}, s.options.ShutdownTimeout)
	}

	err = g.Wait()

	cctx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, s.Close(cctx))
}

// Run starts the recorder, and blocks until it receives SIGINT or
// SIGTERM.
func Run(o Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, o)
}
