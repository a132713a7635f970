package record

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseOnSinkFailure(t *testing.T) {
	for _, tt := range []struct {
		name string
		sink SinkFunc
	}{{
		name: "error",
		sink: func(*http.Request, *Result) error { return errors.New("failed") },
	}, {
		name: "panic",
		sink: func(*http.Request, *Result) error { panic("sink") },
	}} {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewFunc(nil, Options{Sink: tt.sink})
			x, err := rec.Begin(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader("abc")))
			require.NoError(t, err)

			x.ResponseWriter().Write([]byte("response"))
			require.NotNil(t, x.input)
			require.NotNil(t, x.errors)
			require.NotNil(t, x.output)

			func() {
				defer func() { recover() }()
				x.Close()
			}()

			assert.True(t, x.finalized())
			assert.Nil(t, x.input)
			assert.Nil(t, x.errors)
			assert.Nil(t, x.output)
			assert.NoError(t, x.Close())
		})
	}
}

func TestExchangeStates(t *testing.T) {
	for _, tt := range []struct {
		name    string
		handler HandlerFunc
	}{{
		name: "response started by the handler",
		handler: func(w http.ResponseWriter, r *http.Request) (Body, error) {
			w.WriteHeader(http.StatusAccepted)
			return func(yield func([]byte, error) bool) {
				yield([]byte("ab"), nil)
			}, nil
		},
	}, {
		name: "response started by the body",
		handler: func(w http.ResponseWriter, r *http.Request) (Body, error) {
			return func(yield func([]byte, error) bool) {
				yield([]byte("ab"), nil)
			}, nil
		},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewFunc(nil, Options{})
			x, err := rec.Begin(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, stateStarted, x.state)

			body, err := x.Invoke(tt.handler)
			require.NoError(t, err)
			assert.LessOrEqual(t, x.state, stateResponseStarted)
			assert.GreaterOrEqual(t, x.state, stateHandlerInvoked)

			var chunks int
			for range x.Body(body) {
				chunks++
				assert.Equal(t, stateStreaming, x.state, "starting the response while streaming must not move the state back")
				assert.True(t, x.responseStarted())
			}

			assert.Equal(t, 1, chunks)
			assert.Equal(t, stateFinalized, x.state)

			for range x.Body(body) {
				t.Fatal("a finalized exchange must not stream again")
			}

			x.advance(stateHandlerInvoked)
			assert.Equal(t, stateFinalized, x.state)
		})
	}
}

func TestResponseStartedState(t *testing.T) {
	rec := NewFunc(nil, Options{})
	x, err := rec.Begin(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	_, err = x.Invoke(func(w http.ResponseWriter, r *http.Request) (Body, error) {
		w.WriteHeader(http.StatusEarlyHints)
		assert.Equal(t, stateHandlerInvoked, x.state, "informational responses do not start the response")
		w.WriteHeader(http.StatusCreated)
		assert.Equal(t, stateResponseStarted, x.state)
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, x.statusCode)
	require.NoError(t, x.Close())
	assert.Equal(t, stateFinalized, x.state)
}

func TestWrittenAfterFinalization(t *testing.T) {
	rsp := httptest.NewRecorder()
	rec := NewFunc(nil, Options{})
	x, err := rec.Begin(rsp, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	require.NoError(t, x.Close())
	n, err := x.ResponseWriter().Write([]byte("late"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "late", rsp.Body.String())
	assert.Nil(t, x.output)
}

func TestJoinErrors(t *testing.T) {
	err1, err2 := errors.New("one"), errors.New("two")
	assert.NoError(t, joinErrors(nil, nil))
	assert.Same(t, err1, joinErrors(nil, err1, nil))

	err := joinErrors(err1, nil, err2)
	assert.ErrorIs(t, err, err1)
	assert.ErrorIs(t, err, err2)
}
