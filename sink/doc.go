/*
Package sink provides ready made destinations for the data captured by
a record.Recorder.

A log sink writes one structured entry per request to a logrus logger.
A JSON sink writes one JSON document per line, optionally gzip or
brotli compressed.
A trace sink adds an event to the span of the request. Multi combines
sinks:

	s := sink.Multi(
		sink.NewLog(log.WithField("component", "recorder"), sink.LogOptions{MaxBody: 1024}),
		sink.NewTrace(),
	)

	rec := record.New(handler, record.Options{Sink: s})

All sinks in this package are safe for concurrent use.
*/
package sink
