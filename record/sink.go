package record

import (
	"net/http"
	"time"
)

// Result holds the captured data of one request. A nil Input, Errors or
// Output means that the channel was not captured. A captured but empty
// channel is an empty, non-nil slice.
type Result struct {

	// Unique ID of the exchange.
	ID string

	Input  []byte
	Errors []byte
	Output []byte

	// StatusCode is 0, Status is empty and Header is nil when the
	// response was never started.
	StatusCode int
	Status     string
	Header     http.Header

	// Number of bytes that flowed through each captured channel,
	// including the ones that were not retained.
	InputTotal  int64
	ErrorsTotal int64
	OutputTotal int64

	InputTruncated  bool
	ErrorsTruncated bool
	OutputTruncated bool

	// Err is set when the request did not complete normally.
	Err error

	Start    time.Time
	Duration time.Duration
}

// Sink receives the captured data. It is called at most once per request,
// and may be called concurrently for different requests.
type Sink interface {
	Recorded(r *http.Request, res *Result) error
}

type SinkFunc func(*http.Request, *Result) error

func (f SinkFunc) Recorded(r *http.Request, res *Result) error { return f(r, res) }

// NopSink discards all results.
type NopSink struct{}

func (NopSink) Recorded(*http.Request, *Result) error { return nil }
