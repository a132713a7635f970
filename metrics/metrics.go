/*
Package metrics implements the collection of capture metrics.

The collected metrics include the number of recorded and skipped
requests, the failures of the sink, the invalid capture decisions, and,
per channel, the number of captured and observed bytes and the number of
truncated captures.

The Prometheus implementation exposes the values on its own registry,
to be served e.g. on a support listener:

	m := metrics.NewPrometheus(metrics.Options{})
	http.Handle("/metrics", m.CreateHandler())
*/
package metrics

// Channel names used as label values.
const (
	ChannelInput  = "input"
	ChannelErrors = "errors"
	ChannelOutput = "output"
)

// Metrics is the interface used by the recorder to report its
// activity. Implementations must be safe for concurrent use.
type Metrics interface {

	// IncRecorded counts a request delivered to the sink.
	IncRecorded()

	// IncSkipped counts a request without any capture.
	IncSkipped()

	// IncSinkErrors counts failed sink calls.
	IncSinkErrors()

	// IncConfigErrors counts invalid capture decisions.
	IncConfigErrors()

	// ObserveCapture reports the bytes retained in a channel's
	// buffer, the bytes that flowed through the channel, and
	// whether the capture was truncated.
	ObserveCapture(channel string, retained int, total int64, truncated bool)
}

// Options for initializing metrics collection.
type Options struct {

	// Common prefix of the metrics names. When empty, "recorder" is
	// used.
	Prefix string

	// Buckets of the captured bytes histogram. When empty,
	// DefaultCaptureSizeBuckets are used.
	CaptureSizeBuckets []float64

	// If set, Go runtime and process metrics are collected in
	// addition to the capture metrics.
	EnableRuntimeMetrics bool
}

var DefaultCaptureSizeBuckets = []float64{0, 64, 256, 1024, 4096, 16384, 65536, 262144, 1048576}

type void struct{}

// Void discards every metric.
var Void Metrics = void{}

func (void) IncRecorded()                            {}
func (void) IncSkipped()                             {}
func (void) IncSinkErrors()                          {}
func (void) IncConfigErrors()                        {}
func (void) ObserveCapture(string, int, int64, bool) {}
