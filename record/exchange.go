package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zalando/recorder/capture"
	recio "github.com/zalando/recorder/io"
	"github.com/zalando/recorder/metrics"
)

type state int

const (
	stateStarted state = iota
	stateHandlerInvoked
	stateResponseStarted
	stateStreaming
	stateFinalized
)

type exchangeKey struct{}

// errStopped tells that the consumer of the body stopped the iteration.
var errStopped = errors.New("body iteration stopped")

// Exchange controls the capture of a single request. It is created by
// Recorder.Begin, and it is not safe for concurrent use. Recorder.Serve
// and Recorder.ServeHTTP drive an exchange through all its steps. Custom
// transports can drive it directly:
//
//	x, err := rec.Begin(w, r)
//	if err != nil {
//		return err
//	}
//
//	defer x.Close()
//	body, err := x.Invoke(handler)
//	if err != nil {
//		return err
//	}
//
//	for chunk, err := range x.Body(body) {
//		...
//	}
type Exchange struct {
	rec   *Recorder
	id    string
	start time.Time
	state state

	request     *http.Request
	original    http.ResponseWriter
	writer      http.ResponseWriter
	errorStream io.Writer

	input  *recio.ReadProxy
	errors *recio.WriteProxy
	output capture.Buffer

	statusCode int
	header     http.Header
	hijacked   bool

	err       error
	configErr error
}

// FromContext returns the exchange of the request that the context
// belongs to.
func FromContext(ctx context.Context) (*Exchange, bool) {
	x, ok := ctx.Value(exchangeKey{}).(*Exchange)
	return x, ok
}

// Begin resolves the input and error decisions of a request and installs
// the intercepting streams. Channels that are not captured are left
// untouched. An invalid decision is returned as an error, without
// installing anything.
func (rec *Recorder) Begin(w http.ResponseWriter, r *http.Request) (*Exchange, error) {
	inputBuffer, err := capture.Resolve(rec.policy.DecideInput(r))
	if err != nil {
		rec.metrics.IncConfigErrors()
		return nil, fmt.Errorf("input capture: %w", err)
	}

	errorsBuffer, err := capture.Resolve(rec.policy.DecideErrors(r))
	if err != nil {
		if inputBuffer != nil {
			inputBuffer.Release()
		}

		rec.metrics.IncConfigErrors()
		return nil, fmt.Errorf("errors capture: %w", err)
	}

	x := &Exchange{
		rec:      rec,
		id:       uuid.NewString(),
		start:    time.Now(),
		state:    stateStarted,
		original: w,
	}

	x.errorStream = rec.errors(r)
	if errorsBuffer != nil {
		x.errors = recio.NewWriteProxy(x.errorStream, errorsBuffer)
		x.errorStream = x.errors
	}

	x.request = r.WithContext(context.WithValue(r.Context(), exchangeKey{}, x))
	if inputBuffer != nil {
		body := r.Body
		if body == nil {
			body = http.NoBody
		}

		x.input = recio.NewReadProxy(body, inputBuffer)
		x.request.Body = x.input
	}

	x.writer = x.wrap(w)
	return x, nil
}

func (x *Exchange) ID() string { return x.id }

// advance moves the exchange forward. The state never goes back.
func (x *Exchange) advance(next state) {
	if x.state < next {
		x.state = next
	}
}

// responseStarted tells whether the final status was recorded.
func (x *Exchange) responseStarted() bool { return x.statusCode != 0 }

func (x *Exchange) finalized() bool { return x.state == stateFinalized }

// Request returns the request passed to the handler.
func (x *Exchange) Request() *http.Request { return x.request }

// ResponseWriter returns the response writer passed to the handler.
func (x *Exchange) ResponseWriter() http.ResponseWriter { return x.writer }

// Invoke calls the handler with the request and response writer of the
// exchange. The error of the handler is recorded and returned unchanged.
func (x *Exchange) Invoke(h HandlerFunc) (Body, error) {
	x.advance(stateHandlerInvoked)
	body, err := h(x.writer, x.request)
	if err != nil {
		x.fail(err)
	}

	return body, err
}

func (x *Exchange) fail(err error) {
	if x.err == nil {
		x.err = err
	}
}

// startResponse records the status and the header, and resolves the
// output decision. Informational responses and the calls after the
// first one are only passed through.
func (x *Exchange) startResponse(next func(int), statusCode int, err error) {
	if x.responseStarted() || x.finalized() || x.hijacked ||
		statusCode >= 100 && statusCode < 200 && statusCode != http.StatusSwitchingProtocols {
		next(statusCode)
		return
	}

	x.advance(stateResponseStarted)
	x.statusCode = statusCode
	x.header = x.original.Header().Clone()
	if x.header == nil {
		x.header = make(http.Header)
	}

	buf, cerr := capture.Resolve(x.rec.policy.DecideResponse(x.request, statusCode, x.header, err))
	if cerr != nil {
		x.rec.metrics.IncConfigErrors()
		x.configErr = fmt.Errorf("response capture: %w", cerr)
	}

	x.output = buf
	next(statusCode)
}

func (x *Exchange) ensureStarted() {
	if !x.responseStarted() && !x.hijacked {
		x.startResponse(x.original.WriteHeader, http.StatusOK, nil)
	}
}

func (x *Exchange) mirror(p []byte) {
	if x.output != nil && len(p) > 0 {
		x.output.Write(p)
	}
}

// Body returns the body of the handler, mirroring every chunk into the
// output capture before yielding it. The end of the body, an error of
// the body, the cancellation of the request context, or stopping the
// iteration early finalizes the exchange. At the end of the body, the
// error of the sink, if any, is yielded as the last element. The returned
// body can be iterated only once. A nil body is treated as empty.
func (x *Exchange) Body(b Body) Body {
	return func(yield func([]byte, error) bool) {
		if x.state >= stateStreaming {
			return
		}

		x.advance(stateStreaming)

		defer func() {
			if !x.finalized() {
				x.fail(ErrAborted)
				x.closeLogged()
			}
		}()

		err := x.stream(b, yield)
		if errors.Is(err, errStopped) {
			x.fail(ErrBodyAbandoned)
			x.closeLogged()
			return
		}

		if err != nil {
			x.fail(err)
		} else {
			x.ensureStarted()
		}

		if err = joinErrors(err, x.Close()); err != nil {
			yield(nil, err)
		}
	}
}

func (x *Exchange) stream(b Body, yield func([]byte, error) bool) error {
	if b == nil {
		return nil
	}

	ctx := x.request.Context()
	for chunk, err := range b {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		x.ensureStarted()
		x.mirror(chunk)
		if !yield(chunk, nil) {
			return errStopped
		}
	}

	return nil
}

// drain streams the body to w.
func (x *Exchange) drain(w http.ResponseWriter, b Body) error {
	for chunk, err := range x.Body(b) {
		if err != nil {
			return err
		}

		if _, err := w.Write(chunk); err != nil {
			x.fail(err)
			return err
		}
	}

	return nil
}

func (x *Exchange) closeLogged() {
	if err := x.Close(); err != nil {
		x.rec.log.Errorf("Failed to record request: %v", err)
	}
}

// Close finalizes the exchange: it delivers the captured data to the sink,
// and releases the capture buffers, even when the sink fails. When
// nothing was captured, the sink is not called. Only the first call has
// an effect, it returns the error of the sink.
func (x *Exchange) Close() error {
	if x.finalized() {
		return nil
	}

	x.advance(stateFinalized)
	if x.input == nil && x.errors == nil && x.output == nil {
		x.rec.metrics.IncSkipped()
		return nil
	}

	defer x.release()

	res := x.result()
	if err := x.rec.sink.Recorded(x.request, res); err != nil {
		x.rec.metrics.IncSinkErrors()
		return fmt.Errorf("sink: %w", err)
	}

	x.rec.metrics.IncRecorded()
	return nil
}

func (x *Exchange) result() *Result {
	res := &Result{
		ID:       x.id,
		Err:      x.err,
		Start:    x.start,
		Duration: time.Since(x.start),
	}

	if x.responseStarted() {
		res.StatusCode = x.statusCode
		res.Status = strings.TrimSpace(fmt.Sprintf("%d %s", x.statusCode, http.StatusText(x.statusCode)))
		res.Header = x.header
	}

	m := x.rec.metrics
	if x.input != nil {
		b := x.input.Buffer()
		res.Input, res.InputTotal, res.InputTruncated = b.Bytes(), b.Total(), b.Truncated()
		m.ObserveCapture(metrics.ChannelInput, len(res.Input), res.InputTotal, res.InputTruncated)
	}

	if x.errors != nil {
		b := x.errors.Buffer()
		res.Errors, res.ErrorsTotal, res.ErrorsTruncated = b.Bytes(), b.Total(), b.Truncated()
		m.ObserveCapture(metrics.ChannelErrors, len(res.Errors), res.ErrorsTotal, res.ErrorsTruncated)
	}

	if x.output != nil {
		b := x.output
		res.Output, res.OutputTotal, res.OutputTruncated = b.Bytes(), b.Total(), b.Truncated()
		m.ObserveCapture(metrics.ChannelOutput, len(res.Output), res.OutputTotal, res.OutputTruncated)
	}

	return res
}

func (x *Exchange) release() {
	if x.input != nil {
		x.input.Release()
		x.input = nil
	}

	if x.errors != nil {
		x.errors.Release()
		x.errors = nil
	}

	if x.output != nil {
		x.output.Release()
		x.output = nil
	}
}
