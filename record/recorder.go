package record

import (
	"errors"
	"io"
	"iter"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/recorder/logging"
	"github.com/zalando/recorder/metrics"
)

var (
	// ErrAborted is set as the result error when the handler or the
	// body panicked.
	ErrAborted = errors.New("request terminated abnormally")

	// ErrBodyAbandoned is set as the result error when the response
	// body was not consumed until its end.
	ErrBodyAbandoned = errors.New("response body abandoned")
)

// Body is a response body produced chunk by chunk. A non-nil error ends
// the body.
type Body = iter.Seq2[[]byte, error]

// HandlerFunc produces the response of a request. It can write the
// response directly to w, return a Body, or both. The returned body is
// streamed after the handler returned.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (Body, error)

// Adapt turns an http.Handler into a HandlerFunc.
func Adapt(h http.Handler) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) (Body, error) {
		h.ServeHTTP(w, r)
		return nil, nil
	}
}

// Options of the recorder.
type Options struct {

	// Policy decides what is captured. Defaults to DefaultPolicy,
	// capturing everything.
	Policy Policy

	// Sink receives the captured data. Defaults to NopSink.
	Sink Sink

	// ErrorStream returns the diagnostic stream of a request, that
	// is returned by the ErrorStream function to the handlers.
	// Defaults to a stream logging to the application log.
	ErrorStream func(*http.Request) io.Writer

	// Metrics defaults to metrics.Void.
	Metrics metrics.Metrics

	// Log is used for the errors of the recorder itself. Defaults
	// to the standard logger.
	Log *log.Entry
}

// Recorder is the capturing middleware.
type Recorder struct {
	next    HandlerFunc
	policy  Policy
	sink    Sink
	errors  func(*http.Request) io.Writer
	metrics metrics.Metrics
	log     *log.Entry
}

// New creates a recorder wrapping an http.Handler.
func New(next http.Handler, o Options) *Recorder {
	return NewFunc(Adapt(next), o)
}

// NewFunc creates a recorder wrapping a HandlerFunc.
func NewFunc(next HandlerFunc, o Options) *Recorder {
	rec := &Recorder{
		next:    next,
		policy:  o.Policy,
		sink:    o.Sink,
		errors:  o.ErrorStream,
		metrics: o.Metrics,
		log:     o.Log,
	}

	if rec.policy == nil {
		rec.policy = DefaultPolicy{}
	}

	if rec.sink == nil {
		rec.sink = NopSink{}
	}

	if rec.metrics == nil {
		rec.metrics = metrics.Void
	}

	if rec.log == nil {
		rec.log = log.NewEntry(log.StandardLogger())
	}

	if rec.errors == nil {
		rec.errors = func(r *http.Request) io.Writer {
			return logging.NewErrorStream(rec.log.WithFields(log.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}))
		}
	}

	return rec
}

// ServeHTTP serves a request with the wrapped handler. Errors are
// logged. When the response was not started yet, the client receives
// 500 Internal Server Error. The error response is not captured.
func (rec *Recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	x, err := rec.serve(w, r, rec.next)
	if err == nil {
		return
	}

	rec.log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Errorf("Failed to serve request: %v", err)

	if x == nil || !x.responseStarted() && !x.hijacked {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Serve drives one request through h: it installs the capture, invokes
// the handler, streams the returned body to w and finalizes the capture.
// The errors of the handler and of the body are returned unchanged, after
// the captured data was delivered to the sink. Panics are propagated in
// the same way.
func (rec *Recorder) Serve(w http.ResponseWriter, r *http.Request, h HandlerFunc) error {
	_, err := rec.serve(w, r, h)
	return err
}

func (rec *Recorder) serve(w http.ResponseWriter, r *http.Request, h HandlerFunc) (x *Exchange, err error) {
	x, err = rec.Begin(w, r)
	if err != nil {
		return nil, err
	}

	completed := false
	defer func() {
		if !completed {
			x.fail(ErrAborted)
		}

		cerr := x.Close()
		if !completed {
			if cerr != nil {
				rec.log.Errorf("Failed to record aborted request: %v", cerr)
			}

			return
		}

		err = joinErrors(err, cerr, x.configErr)
	}()

	var body Body
	body, err = x.Invoke(h)
	if err == nil {
		err = x.drain(w, body)
	}

	completed = true
	return x, err
}

// joinErrors keeps a single error unchanged.
func joinErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return errors.Join(nonNil...)
	}
}

// ErrorStream returns the diagnostic stream of a request served by a
// recorder. Outside of a recorder, it returns io.Discard.
func ErrorStream(r *http.Request) io.Writer {
	if x, ok := FromContext(r.Context()); ok {
		return x.errorStream
	}

	return io.Discard
}

// StartError starts the response with an error status, and passes err
// to the response decision of the policy. Outside of a recorder, or when
// the response was already started, it is equivalent to
// w.WriteHeader(statusCode).
func StartError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	x, ok := FromContext(r.Context())
	if !ok || x.responseStarted() || x.finalized() {
		w.WriteHeader(statusCode)
		return
	}

	x.startResponse(x.original.WriteHeader, statusCode, err)
}
