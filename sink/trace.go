package sink

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zalando/recorder/record"
)

// RecordedEventName is the name of the span event added by the trace
// sink.
const RecordedEventName = "capture.recorded"

type traceSink struct{}

// NewTrace creates a sink that adds an event to the span found in the
// request context, with the sizes of the captured channels. Requests
// without a recording span are ignored.
func NewTrace() record.Sink { return traceSink{} }

func channelAttributes(name string, p []byte, total int64, truncated bool) []attribute.KeyValue {
	if p == nil {
		return nil
	}

	return []attribute.KeyValue{
		attribute.Int("capture."+name+".retained", len(p)),
		attribute.Int64("capture."+name+".total", total),
		attribute.Bool("capture."+name+".truncated", truncated),
	}
}

func (traceSink) Recorded(r *http.Request, res *record.Result) error {
	span := trace.SpanFromContext(r.Context())
	if !span.IsRecording() {
		return nil
	}

	attrs := []attribute.KeyValue{attribute.String("capture.id", res.ID)}
	if res.StatusCode != 0 {
		attrs = append(attrs, attribute.Int("http.status_code", res.StatusCode))
	}

	attrs = append(attrs, channelAttributes("input", res.Input, res.InputTotal, res.InputTruncated)...)
	attrs = append(attrs, channelAttributes("errors", res.Errors, res.ErrorsTotal, res.ErrorsTruncated)...)
	attrs = append(attrs, channelAttributes("output", res.Output, res.OutputTotal, res.OutputTruncated)...)
	if res.Err != nil {
		attrs = append(attrs, attribute.String("capture.error", res.Err.Error()))
	}

	span.AddEvent(RecordedEventName, trace.WithAttributes(attrs...))
	return nil
}
