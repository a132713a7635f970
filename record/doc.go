/*
Package record implements a pass-through HTTP middleware that captures the
bytes of a request and its response, without changing them.

Four channels are captured for every request:

	input     the request body
	errors    the diagnostic stream of the request, see ErrorStream
	output    the response body
	status    the response status and headers

A Policy decides per request and per channel whether to capture
everything, nothing, only the first N bytes or only the last N bytes of a
channel. A channel that is not captured is not intercepted at all. When
the request is done, the captured data is handed to a Sink exactly once,
also when the handler failed, panicked, or the response body was
abandoned, e.g. because the client disconnected. The buffers are always
released after the sink returned.

Handlers may write the response directly, as any http.Handler does, or
return a Body that is streamed to the client by the recorder, or both:

	rec := record.NewFunc(func(w http.ResponseWriter, r *http.Request) (record.Body, error) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		return func(yield func([]byte, error) bool) {
			for _, s := range []string{"Hello", ", ", "world!"} {
				if !yield([]byte(s), nil) {
					return
				}
			}
		}, nil
	}, record.Options{Sink: sink})

The recorder does not synchronize the calls to the sink. Sinks need to be
safe for concurrent use.
*/
package record
