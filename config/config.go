package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/zalando/recorder"
	"github.com/zalando/recorder/capture"
	"github.com/zalando/recorder/metrics"
	"github.com/zalando/recorder/otel"
	"github.com/zalando/recorder/sink"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// generic:
	Address           string        `yaml:"address"`
	Backend           string        `yaml:"backend"`
	SupportListener   string        `yaml:"support-listener"`
	ProxyPreserveHost bool          `yaml:"proxy-preserve-host"`
	FlushInterval     time.Duration `yaml:"flush-interval"`
	ReadHeaderTimeout time.Duration `yaml:"read-header-timeout-server"`
	IdleTimeout       time.Duration `yaml:"idle-timeout-server"`
	ShutdownTimeout   time.Duration `yaml:"shutdown-timeout"`

	// capture:
	PolicyFile      string            `yaml:"policy-file"`
	CaptureInput    *capture.Decision `yaml:"capture-input"`
	CaptureErrors   *capture.Decision `yaml:"capture-errors"`
	CaptureResponse *capture.Decision `yaml:"capture-response"`

	// recording:
	RecordLog             bool      `yaml:"record-log"`
	RecordLogMaxBody      int       `yaml:"record-log-max-body"`
	RecordJSONFile        string    `yaml:"record-json-file"`
	RecordJSONCompression string    `yaml:"record-json-compression"`
	RecordTrace           bool      `yaml:"record-trace"`
	RedactHeaders         multiFlag `yaml:"redact-header"`

	// logging, metrics, tracing:
	ApplicationLog            string        `yaml:"application-log"`
	ApplicationLogLevel       log.Level     `yaml:"-"`
	ApplicationLogLevelString string        `yaml:"application-log-level"`
	ApplicationLogPrefix      string        `yaml:"application-log-prefix"`
	ApplicationLogJSONEnabled bool          `yaml:"application-log-json-enabled"`
	EnablePrometheusMetrics   bool          `yaml:"enable-prometheus-metrics"`
	MetricsPrefix             string        `yaml:"metrics-prefix"`
	EnableRuntimeMetrics      bool          `yaml:"runtime-metrics"`
	CaptureSizeBucketsString  string        `yaml:"capture-size-buckets"`
	CaptureSizeBuckets        []float64     `yaml:"-"`
	OpenTelemetry             *otel.Options `yaml:"open-telemetry"`
}

const (
	defaultAddress           = ":9090"
	defaultSupportListener   = ":9911"
	defaultFlushInterval     = 20 * time.Millisecond
	defaultReadHeaderTimeout = 60 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultMaxLogBody        = 1024
	defaultApplicationLevel  = "INFO"
	defaultApplicationPrefix = "[APP]"
)

func NewConfig() *Config {
	cfg := new(Config)
	cfg.RedactHeaders = multiFlag{"Authorization", "Cookie", "Set-Cookie"}

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// generic:
	flag.StringVar(&cfg.Address, "address", defaultAddress, "network address that the recorder should listen on")
	flag.StringVar(&cfg.Backend, "backend", "", "URL of the backend that the requests are forwarded to")
	flag.StringVar(&cfg.SupportListener, "support-listener", defaultSupportListener, "network address used for exposing the /metrics endpoint. An empty value disables support endpoint.")
	flag.BoolVar(&cfg.ProxyPreserveHost, "proxy-preserve-host", false, "flag indicating to preserve the incoming request 'Host' header in the outgoing requests")
	flag.DurationVar(&cfg.FlushInterval, "flush-interval", defaultFlushInterval, "flush interval for the responses of the backend, -1 flushes after every write")
	flag.DurationVar(&cfg.ReadHeaderTimeout, "read-header-timeout-server", defaultReadHeaderTimeout, "set ReadHeaderTimeout for http server connections")
	flag.DurationVar(&cfg.IdleTimeout, "idle-timeout-server", defaultIdleTimeout, "set IdleTimeout for http server connections")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "maximum time to wait for the open requests on shutdown")

	// capture:
	flag.StringVar(&cfg.PolicyFile, "policy-file", "", "YAML file with the capture policy rules")
	flag.Var(newDecisionFlag(&cfg.CaptureInput), "capture-input", "default capture of the request bodies: all, none, head:N or tail:N, overrides the default of the policy file")
	flag.Var(newDecisionFlag(&cfg.CaptureErrors), "capture-errors", "default capture of the diagnostic output: all, none, head:N or tail:N, overrides the default of the policy file")
	flag.Var(newDecisionFlag(&cfg.CaptureResponse), "capture-response", "default capture of the response bodies: all, none, head:N or tail:N, overrides the default of the policy file")

	// recording:
	flag.BoolVar(&cfg.RecordLog, "record-log", true, "log every recorded request to the application log")
	flag.IntVar(&cfg.RecordLogMaxBody, "record-log-max-body", defaultMaxLogBody, "maximum bytes of the captured data logged at DEBUG level per channel, -1 logs everything")
	flag.StringVar(&cfg.RecordJSONFile, "record-json-file", "", "file that the recorded requests are appended to as JSON lines, - for stdout")
	flag.StringVar(&cfg.RecordJSONCompression, "record-json-compression", "none", "compression of the JSON lines: none, gzip or br")
	flag.BoolVar(&cfg.RecordTrace, "record-trace", false, "add an event with the capture sizes to the span of every recorded request")
	flag.Var(&cfg.RedactHeaders, "redact-header", "header removed from the recorded requests and responses, can be repeated. Authorization, Cookie and Set-Cookie are always removed")

	// logging, metrics, tracing:
	flag.StringVar(&cfg.ApplicationLog, "application-log", "", "output file for the application log. When not set, /dev/stderr is used")
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", defaultApplicationLevel, "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", defaultApplicationPrefix, "prefix for each log entry")
	flag.BoolVar(&cfg.ApplicationLogJSONEnabled, "application-log-json-enabled", false, "when this flag is set, log in JSON format is used")
	flag.BoolVar(&cfg.EnablePrometheusMetrics, "enable-prometheus-metrics", true, "expose the capture metrics in Prometheus format on the support listener")
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", "", "namespace of the metrics, defaults to recorder")
	flag.BoolVar(&cfg.EnableRuntimeMetrics, "runtime-metrics", true, "enables Go runtime and process metrics")
	flag.StringVar(&cfg.CaptureSizeBucketsString, "capture-size-buckets", "", "use custom buckets for the retained bytes histogram, comma separated list of byte counts")
	flag.Var(newYamlFlag(&cfg.OpenTelemetry), "open-telemetry", "OpenTelemetry configuration in YAML format, use flow-style for convenience, e.g. {debug-exporter: true}")

	cfg.Flags = flag
	return cfg
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	if c.Backend == "" {
		return fmt.Errorf("missing backend")
	}

	u, err := url.Parse(c.Backend)
	if err != nil {
		return fmt.Errorf("invalid backend: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid backend: %q, expected an absolute http or https URL", c.Backend)
	}

	compression, err := sink.ParseCompression(c.RecordJSONCompression)
	if err != nil {
		return err
	}

	if compression != sink.NoCompression && c.RecordJSONFile == "" {
		return fmt.Errorf("record-json-compression requires record-json-file")
	}

	_, err = c.parseHistogramBuckets(c.CaptureSizeBucketsString, metrics.DefaultCaptureSizeBuckets)
	return err
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, c.Flags.ErrorHandling())
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// check if arguments were correctly parsed.
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.Unmarshal(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}
	}

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.CaptureSizeBuckets, _ = c.parseHistogramBuckets(c.CaptureSizeBucketsString, metrics.DefaultCaptureSizeBuckets)
	return nil
}

func (c *Config) ToOptions() recorder.Options {
	compression, _ := sink.ParseCompression(c.RecordJSONCompression)
	return recorder.Options{
		Address:           c.Address,
		Backend:           c.Backend,
		SupportListener:   c.SupportListener,
		ProxyPreserveHost: c.ProxyPreserveHost,
		FlushInterval:     c.FlushInterval,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
		IdleTimeout:       c.IdleTimeout,
		ShutdownTimeout:   c.ShutdownTimeout,

		PolicyFile:      c.PolicyFile,
		CaptureInput:    c.CaptureInput,
		CaptureErrors:   c.CaptureErrors,
		CaptureResponse: c.CaptureResponse,

		RecordLog:             c.RecordLog,
		RecordLogMaxBody:      c.RecordLogMaxBody,
		RecordJSONFile:        c.RecordJSONFile,
		RecordJSONCompression: compression,
		RecordTrace:           c.RecordTrace,
		RedactHeaders:         []string(c.RedactHeaders),

		ApplicationLogOutput:      c.ApplicationLog,
		ApplicationLogLevel:       c.ApplicationLogLevel,
		ApplicationLogPrefix:      c.ApplicationLogPrefix,
		ApplicationLogJSONEnabled: c.ApplicationLogJSONEnabled,
		EnablePrometheusMetrics:   c.EnablePrometheusMetrics,
		MetricsPrefix:             c.MetricsPrefix,
		EnableRuntimeMetrics:      c.EnableRuntimeMetrics,
		CaptureSizeBuckets:        c.CaptureSizeBuckets,
		OpenTelemetry:             c.OpenTelemetry,
	}
}

func (c *Config) parseHistogramBuckets(bucketString string, defaultBuckets []float64) ([]float64, error) {
	if bucketString == "" {
		return defaultBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(bucketString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse capture-size-buckets: %w", err)
		}

		result = append(result, bucket)
	}

	sort.Float64s(result)
	return result, nil
}
