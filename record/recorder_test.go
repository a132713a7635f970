package record_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/zalando/recorder/capture"
	"github.com/zalando/recorder/io/iotest"
	"github.com/zalando/recorder/metrics/metricstest"
	"github.com/zalando/recorder/record"
)

type collector struct {
	mu       sync.Mutex
	results  []*record.Result
	requests []*http.Request
}

func (c *collector) Recorded(r *http.Request, res *record.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
	c.requests = append(c.requests, r)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func (c *collector) only(t *testing.T) *record.Result {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.results, 1, "expected exactly one recorded result")
	return c.results[0]
}

func chunks(s ...string) record.Body {
	return func(yield func([]byte, error) bool) {
		for _, c := range s {
			if !yield([]byte(c), nil) {
				return
			}
		}
	}
}

func discardErrors(*http.Request) io.Writer { return io.Discard }

func origin(w http.ResponseWriter, r *http.Request) (record.Body, error) {
	if _, err := io.ReadAll(r.Body); err != nil {
		return nil, err
	}

	io.WriteString(record.ErrorStream(r), "none to report")
	content := `{"ya": "ah"}`
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	return chunks(content[:2], content[2:]), nil
}

func TestCaptureWithData(t *testing.T) {
	c := &collector{}
	rec := record.NewFunc(origin, record.Options{Sink: c, ErrorStream: discardErrors})

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"nothing": "special"}`))
	rsp := httptest.NewRecorder()
	rec.ServeHTTP(rsp, req)

	assert.Equal(t, http.StatusOK, rsp.Code)
	assert.Equal(t, `{"ya": "ah"}`, rsp.Body.String())

	res := c.only(t)
	assert.Equal(t, `{"nothing": "special"}`, string(res.Input))
	assert.Equal(t, "none to report", string(res.Errors))
	assert.Equal(t, `{"ya": "ah"}`, string(res.Output))
	assert.Equal(t, "200 OK", res.Status)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, http.Header{
		"Content-Type":   []string{"application/json"},
		"Content-Length": []string{"12"},
	}, res.Header)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.ID)
}

func TestCaptureWithoutData(t *testing.T) {
	c := &collector{}
	rec := record.NewFunc(origin, record.Options{Sink: c, ErrorStream: discardErrors})

	rec.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	res := c.only(t)
	assert.NotNil(t, res.Input, "captured empty input is not absent")
	assert.Empty(t, res.Input)
	assert.Equal(t, "none to report", string(res.Errors))
	assert.Equal(t, `{"ya": "ah"}`, string(res.Output))
}

func TestResponseCaptureDecisions(t *testing.T) {
	for _, tt := range []struct {
		name     string
		decision capture.Decision
		expected []byte
	}{
		{name: "head", decision: capture.Head(3), expected: []byte("abc")},
		{name: "tail", decision: capture.Tail(3), expected: []byte("fgh")},
		{name: "tail larger than the body", decision: capture.Tail(10), expected: []byte("abcdefgh")},
		{name: "all", decision: capture.All(), expected: []byte("abcdefgh")},
		{name: "none", decision: capture.None(), expected: nil},
	} {
		for mode, h := range map[string]record.HandlerFunc{
			"body": func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
				return chunks("ab", "cdef", "gh"), nil
			},
			"write": func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
				for _, s := range []string{"ab", "cdef", "gh"} {
					if _, err := w.Write([]byte(s)); err != nil {
						return nil, err
					}
				}

				return nil, nil
			},
			"mixed": func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
				w.Write([]byte("ab"))
				return chunks("cdef", "gh"), nil
			},
		} {
			t.Run(tt.name+"/"+mode, func(t *testing.T) {
				c := &collector{}
				rec := record.NewFunc(h, record.Options{
					Sink:        c,
					ErrorStream: discardErrors,
					Policy: record.PolicyFuncs{
						Response: func(*http.Request, int, http.Header, error) capture.Decision {
							return tt.decision
						},
					},
				})

				rsp := httptest.NewRecorder()
				rec.ServeHTTP(rsp, httptest.NewRequest("GET", "/", nil))
				assert.Equal(t, "abcdefgh", rsp.Body.String(), "the response must not change")

				res := c.only(t)
				assert.Equal(t, tt.expected, res.Output)
				assert.Equal(t, "200 OK", res.Status)
				if tt.expected != nil {
					assert.Equal(t, int64(8), res.OutputTotal)
					assert.Equal(t, len(tt.expected) < 8, res.OutputTruncated)
				}
			})
		}
	}
}

type trackedBody struct {
	io.Reader
}

func (*trackedBody) Close() error { return nil }

func TestDeclinedCaptureIsNotIntercepted(t *testing.T) {
	var (
		seenBody   io.ReadCloser
		seenErrors io.Writer
	)

	body := &trackedBody{Reader: strings.NewReader("payload")}
	errorStream := &bytes.Buffer{}
	c := &collector{}
	m := &metricstest.MockMetrics{}
	rec := record.NewFunc(func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		seenBody = r.Body
		seenErrors = record.ErrorStream(r)
		io.WriteString(seenErrors, "diagnostics")
		w.WriteHeader(http.StatusAccepted)
		return chunks("done"), nil
	}, record.Options{
		Policy:      record.Static(capture.None(), capture.None(), capture.None()),
		Sink:        c,
		Metrics:     m,
		ErrorStream: func(*http.Request) io.Writer { return errorStream },
	})

	req := httptest.NewRequest("POST", "/", nil)
	req.Body = body
	rsp := httptest.NewRecorder()
	rec.ServeHTTP(rsp, req)

	assert.Same(t, body, seenBody)
	assert.Same(t, errorStream, seenErrors)
	assert.Equal(t, "diagnostics", errorStream.String())
	assert.Equal(t, http.StatusAccepted, rsp.Code)
	assert.Equal(t, "done", rsp.Body.String())
	assert.Zero(t, c.count(), "the sink must not be called")
	assert.Equal(t, 1, m.Skipped())
	assert.Zero(t, m.Recorded())
}

func TestPartialPolicy(t *testing.T) {
	c := &collector{}
	rec := record.NewFunc(origin, record.Options{
		Policy:      record.Static(capture.Tail(5), capture.None(), capture.None()),
		Sink:        c,
		ErrorStream: discardErrors,
	})

	rec.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader("0123456789")))

	res := c.only(t)
	assert.Equal(t, "56789", string(res.Input))
	assert.True(t, res.InputTruncated)
	assert.Equal(t, int64(10), res.InputTotal)
	assert.Nil(t, res.Errors)
	assert.Nil(t, res.Output)
	assert.Equal(t, "200 OK", res.Status, "status and headers are recorded regardless of the output decision")
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
}

func TestHandlerErrorBeforeResponse(t *testing.T) {
	errHandler := errors.New("handler failed")
	h := func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		if _, err := io.ReadAll(r.Body); err != nil {
			return nil, err
		}

		io.WriteString(record.ErrorStream(r), "about to fail")
		return nil, errHandler
	}

	t.Run("serve", func(t *testing.T) {
		c := &collector{}
		rec := record.NewFunc(h, record.Options{Sink: c, ErrorStream: discardErrors})

		err := rec.Serve(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader("payload")), h)
		assert.True(t, err == errHandler, "the handler error must propagate unchanged, got: %v", err)

		res := c.only(t)
		assert.Equal(t, "payload", string(res.Input))
		assert.Equal(t, "about to fail", string(res.Errors))
		assert.Zero(t, res.StatusCode)
		assert.Empty(t, res.Status)
		assert.Nil(t, res.Header)
		assert.Nil(t, res.Output)
		assert.Same(t, errHandler, res.Err)
	})

	t.Run("serve http", func(t *testing.T) {
		c := &collector{}
		rec := record.NewFunc(h, record.Options{Sink: c, ErrorStream: discardErrors})

		rsp := httptest.NewRecorder()
		rec.ServeHTTP(rsp, httptest.NewRequest("POST", "/", strings.NewReader("payload")))

		assert.Equal(t, http.StatusInternalServerError, rsp.Code)
		res := c.only(t)
		assert.Zero(t, res.StatusCode, "the error response is not recorded")
		assert.Nil(t, res.Output)
	})
}

func TestHandlerErrorAfterResponse(t *testing.T) {
	errHandler := errors.New("handler failed")
	c := &collector{}
	h := func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("partial"))
		return nil, errHandler
	}

	rec := record.NewFunc(h, record.Options{Sink: c, ErrorStream: discardErrors})
	rsp := httptest.NewRecorder()
	rec.ServeHTTP(rsp, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusCreated, rsp.Code, "a started response must not be replaced")
	assert.Equal(t, "partial", rsp.Body.String())

	res := c.only(t)
	assert.Equal(t, "201 Created", res.Status)
	assert.Equal(t, "partial", string(res.Output))
	assert.Same(t, errHandler, res.Err)
}

func TestHandlerPanic(t *testing.T) {
	c := &collector{}
	rec := record.New(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.ReadAll(r.Body)
		panic("boom")
	}), record.Options{Sink: c, ErrorStream: discardErrors})

	assert.PanicsWithValue(t, "boom", func() {
		rec.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader("payload")))
	})

	res := c.only(t)
	assert.Equal(t, "payload", string(res.Input))
	assert.Zero(t, res.StatusCode)
	assert.ErrorIs(t, res.Err, record.ErrAborted)
}

func TestBodyError(t *testing.T) {
	errBody := errors.New("body failed")
	c := &collector{}
	h := func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		return func(yield func([]byte, error) bool) {
			if !yield([]byte("ab"), nil) {
				return
			}

			yield(nil, errBody)
		}, nil
	}

	rec := record.NewFunc(h, record.Options{Sink: c, ErrorStream: discardErrors})
	rsp := httptest.NewRecorder()
	err := rec.Serve(rsp, httptest.NewRequest("GET", "/", nil), h)

	assert.True(t, err == errBody, "the body error must propagate unchanged, got: %v", err)
	assert.Equal(t, "ab", rsp.Body.String())

	res := c.only(t)
	assert.Equal(t, "ab", string(res.Output))
	assert.Same(t, errBody, res.Err)
}

func TestClientWriteFailure(t *testing.T) {
	c := &collector{}
	h := func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		return chunks("abc", "def", "ghi"), nil
	}

	rec := record.NewFunc(h, record.Options{Sink: c, ErrorStream: discardErrors})
	rsp := httptest.NewRecorder()
	err := rec.Serve(iotest.NewFailingResponseWriter(rsp, 4), httptest.NewRequest("GET", "/", nil), h)

	assert.ErrorIs(t, err, iotest.ErrWriteFailed)
	assert.Equal(t, "abcd", rsp.Body.String())

	res := c.only(t)
	assert.ErrorIs(t, res.Err, iotest.ErrWriteFailed)
	assert.Equal(t, "abcdef", string(res.Output), "a chunk is captured before it is written")
}

func TestFlushPassesThrough(t *testing.T) {
	c := &collector{}
	h := func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		io.WriteString(w, "ab")
		http.NewResponseController(w).Flush()
		return nil, nil
	}

	rec := record.NewFunc(h, record.Options{Sink: c, ErrorStream: discardErrors})
	rsp := httptest.NewRecorder()
	fw := iotest.NewFailingResponseWriter(rsp, 1<<10)
	rec.ServeHTTP(fw, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, 1, fw.Flushed)
	assert.Equal(t, "ab", rsp.Body.String())

	res := c.only(t)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ab", string(res.Output), "io.WriteString is captured through Write")
}

func TestSinkError(t *testing.T) {
	errSink := errors.New("sink failed")
	m := &metricstest.MockMetrics{}
	var calls int
	rec := record.NewFunc(origin, record.Options{
		Sink: record.SinkFunc(func(*http.Request, *record.Result) error {
			calls++
			return errSink
		}),
		Metrics:     m,
		ErrorStream: discardErrors,
	})

	rsp := httptest.NewRecorder()
	err := rec.Serve(rsp, httptest.NewRequest("GET", "/", nil), origin)
	assert.ErrorIs(t, err, errSink)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, m.SinkErrors())
	assert.Equal(t, `{"ya": "ah"}`, rsp.Body.String())
}

func TestResponseDecisionError(t *testing.T) {
	c := &collector{}
	m := &metricstest.MockMetrics{}
	rec := record.NewFunc(origin, record.Options{
		Sink:        c,
		Metrics:     m,
		ErrorStream: discardErrors,
		Policy: record.PolicyFuncs{
			Response: func(*http.Request, int, http.Header, error) capture.Decision {
				return capture.Head(-1)
			},
		},
	})

	rsp := httptest.NewRecorder()
	err := rec.Serve(rsp, httptest.NewRequest("GET", "/", nil), origin)

	var cerr *capture.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, `{"ya": "ah"}`, rsp.Body.String())
	assert.Equal(t, 1, m.ConfigErrors())

	res := c.only(t)
	assert.Nil(t, res.Output)
	assert.Equal(t, "200 OK", res.Status)
}

func TestInputDecisionError(t *testing.T) {
	c := &collector{}
	var called bool
	rec := record.NewFunc(func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		called = true
		return nil, nil
	}, record.Options{
		Sink:        c,
		ErrorStream: discardErrors,
		Policy:      record.Static(capture.Tail(-3), capture.All(), capture.All()),
	})

	rsp := httptest.NewRecorder()
	rec.ServeHTTP(rsp, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rsp.Code)
	assert.False(t, called)
	assert.Zero(t, c.count())
}

func TestStartError(t *testing.T) {
	errBackend := errors.New("backend unavailable")
	var decided error
	c := &collector{}
	rec := record.NewFunc(func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		record.StartError(w, r, http.StatusServiceUnavailable, errBackend)
		w.Write([]byte("unavailable"))
		return nil, nil
	}, record.Options{
		Sink:        c,
		ErrorStream: discardErrors,
		Policy: record.PolicyFuncs{
			Response: func(r *http.Request, code int, h http.Header, err error) capture.Decision {
				decided = err
				return capture.All()
			},
		},
	})

	rsp := httptest.NewRecorder()
	rec.ServeHTTP(rsp, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rsp.Code)
	assert.Same(t, errBackend, decided)

	res := c.only(t)
	assert.Equal(t, "503 Service Unavailable", res.Status)
	assert.Equal(t, "unavailable", string(res.Output))
}

func TestStartErrorOutsideRecorder(t *testing.T) {
	rsp := httptest.NewRecorder()
	record.StartError(rsp, httptest.NewRequest("GET", "/", nil), http.StatusBadGateway, errors.New("failed"))
	assert.Equal(t, http.StatusBadGateway, rsp.Code)
	assert.Equal(t, io.Discard, record.ErrorStream(httptest.NewRequest("GET", "/", nil)))
}

func TestInformationalResponse(t *testing.T) {
	c := &collector{}
	var codes []int
	rec := record.NewFunc(func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		w.Header().Set("Link", "</style.css>; rel=preload")
		w.WriteHeader(http.StatusEarlyHints)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusConflict)
		return chunks("created"), nil
	}, record.Options{
		Sink:        c,
		ErrorStream: discardErrors,
		Policy: record.PolicyFuncs{
			Response: func(r *http.Request, code int, h http.Header, err error) capture.Decision {
				codes = append(codes, code)
				return capture.All()
			},
		},
	})

	rec.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, []int{http.StatusCreated}, codes)
	res := c.only(t)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "text/plain", res.Header.Get("Content-Type"))
	assert.Equal(t, "created", string(res.Output))
}

func TestImplicitStatus(t *testing.T) {
	c := &collector{}
	rec := record.New(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), record.Options{
		Sink:        c,
		ErrorStream: discardErrors,
	})

	rec.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	res := c.only(t)
	assert.Equal(t, "200 OK", res.Status)
	assert.NotNil(t, res.Output)
	assert.Empty(t, res.Output)
}

func TestRequestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &collector{}
	h := func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		return func(yield func([]byte, error) bool) {
			if !yield([]byte("ab"), nil) {
				return
			}

			cancel()
			if !yield([]byte("cd"), nil) {
				return
			}

			t.Error("the body must be stopped after cancellation")
		}, nil
	}

	rec := record.NewFunc(h, record.Options{Sink: c, ErrorStream: discardErrors})
	rsp := httptest.NewRecorder()
	err := rec.Serve(rsp, httptest.NewRequest("GET", "/", nil).WithContext(ctx), h)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "ab", rsp.Body.String())

	res := c.only(t)
	assert.Equal(t, "ab", string(res.Output))
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestExchangeAbandonedBody(t *testing.T) {
	c := &collector{}
	rec := record.NewFunc(nil, record.Options{Sink: c, ErrorStream: discardErrors})

	rsp := httptest.NewRecorder()
	x, err := rec.Begin(rsp, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	body, err := x.Invoke(func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		return chunks("ab", "cd", "ef"), nil
	})
	require.NoError(t, err)

	for chunk, err := range x.Body(body) {
		require.NoError(t, err)
		rsp.Write(chunk)
		break
	}

	require.Equal(t, 1, c.count(), "abandoning the body finalizes the exchange")
	assert.NoError(t, x.Close())
	assert.NoError(t, x.Close())

	for range x.Body(body) {
		t.Fatal("the body must not be iterated again")
	}

	res := c.only(t)
	assert.Equal(t, "ab", string(res.Output))
	assert.ErrorIs(t, res.Err, record.ErrBodyAbandoned)
	assert.Equal(t, "ab", rsp.Body.String())
}

func TestExchangeCloseWithoutBody(t *testing.T) {
	c := &collector{}
	rec := record.NewFunc(nil, record.Options{Sink: c, ErrorStream: discardErrors})

	x, err := rec.Begin(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader("abc")))
	require.NoError(t, err)

	io.ReadAll(x.Request().Body)
	x.ResponseWriter().WriteHeader(http.StatusNoContent)

	require.NoError(t, x.Close())
	require.NoError(t, x.Close())

	res := c.only(t)
	assert.Equal(t, "abc", string(res.Input))
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, x.ID(), res.ID)

	sinkRequest := c.requests[0]
	ex, ok := record.FromContext(sinkRequest.Context())
	require.True(t, ok)
	assert.Same(t, x, ex)
}

func TestDefaultErrorStream(t *testing.T) {
	c := &collector{}
	rec := record.NewFunc(func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		fmt.Fprintln(record.ErrorStream(r), "logged and captured")
		return nil, nil
	}, record.Options{Sink: c})

	rec.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "logged and captured\n", string(c.only(t).Errors))
}

func TestPassThroughOverNetwork(t *testing.T) {
	c := &collector{}
	m := &metricstest.MockMetrics{}
	rec := record.New(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		// hides io.WriterTo, so that io.ReaderFrom of the response writer is used
		io.Copy(w, struct{ io.Reader }{bytes.NewReader(payload)})
	}), record.Options{
		Sink:        c,
		Metrics:     m,
		ErrorStream: discardErrors,
		Policy: record.PolicyFuncs{
			Input: func(r *http.Request) capture.Decision { return capture.Head(16) },
			Response: func(*http.Request, int, http.Header, error) capture.Decision {
				return capture.Tail(16)
			},
		},
	})

	s := httptest.NewServer(rec)
	defer s.Close()

	g := &errgroup.Group{}
	for i := 0; i < 16; i++ {
		payload := strings.Repeat(fmt.Sprintf("request %d;", i), 1000+i)
		g.Go(func() error {
			rsp, err := http.Post(s.URL, "application/octet-stream", strings.NewReader(payload))
			if err != nil {
				return err
			}

			defer rsp.Body.Close()
			got, err := io.ReadAll(rsp.Body)
			if err != nil {
				return err
			}

			if string(got) != payload {
				return fmt.Errorf("response body changed, got %d bytes, want %d", len(got), len(payload))
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, 16, c.count())
	assert.Equal(t, 16, m.Recorded())

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, res := range c.results {
		in, out := string(res.Input), string(res.Output)
		require.Len(t, in, 16)
		require.Len(t, out, 16)

		var n int
		_, err := fmt.Sscanf(in, "request %d;", &n)
		require.NoError(t, err)

		payload := strings.Repeat(fmt.Sprintf("request %d;", n), 1000+n)
		assert.Equal(t, payload[:16], in)
		assert.Equal(t, payload[len(payload)-16:], out)
		assert.Equal(t, int64(len(payload)), res.InputTotal)
		assert.Equal(t, int64(len(payload)), res.OutputTotal)
		assert.Equal(t, "application/octet-stream", res.Header.Get("Content-Type"))
	}
}
