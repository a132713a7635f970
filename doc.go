/*
Package recorder provides a recording reverse proxy. Every request is
forwarded to a single backend, while the request body, the diagnostic
output and the response body are captured within configurable bounds
and passed to one or more sinks.

The capture itself is implemented by the record package, and it can be
used as an HTTP middleware without this package. This package wires it
with a reverse proxy, a policy file, the ready made sinks, Prometheus
metrics and OpenTelemetry tracing.

# Quickstart

Forward the requests to a local service, and log the first kilobyte of
every request body and the last kilobyte of every response body:

	recorder -backend http://localhost:8080 \
		-capture-input head:1024 -capture-response tail:1024 \
		-application-log-level DEBUG

Append the captured data to a gzip compressed file of JSON lines:

	recorder -backend http://localhost:8080 \
		-record-json-file records.json.gz -record-json-compression gzip

# Policy file

The capture can depend on the request and on the response status:

	default:
	  input: none
	  errors: all
	  response: none
	rules:
	- name: failures
	  status: [500, 599]
	  response: tail:4096
	- name: uploads
	  methods: [POST]
	  path-prefix: /upload
	  input: head:1024

See the policy package for the details.

# Embedding

Custom sinks can be added when running the recorder from Go:

	err := recorder.Run(recorder.Options{
		Address:     ":9090",
		Backend:     "http://localhost:8080",
		CustomSinks: []record.Sink{mySink},
	})
*/
package recorder
