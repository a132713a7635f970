package sink

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/recorder/record"
)

type LogOptions struct {

	// MaxBody limits the captured data included in the debug entry
	// per channel. Zero omits the data, a negative value includes it
	// entirely.
	MaxBody int
}

type logSink struct {
	entry   *log.Entry
	maxBody int
}

// NewLog creates a sink that logs one entry per request at INFO level, or
// at WARN level when the request did not complete normally. When the
// logger is at DEBUG level, the captured data is logged in a separate
// entry.
func NewLog(entry *log.Entry, o LogOptions) record.Sink {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}

	return &logSink{entry: entry, maxBody: o.MaxBody}
}

func limit(p []byte, n int) string {
	if n >= 0 && len(p) > n {
		p = p[:n]
	}

	return string(p)
}

func (s *logSink) Recorded(r *http.Request, res *record.Result) error {
	fields := log.Fields{
		"id":       res.ID,
		"method":   r.Method,
		"path":     r.URL.Path,
		"duration": res.Duration.String(),
	}

	if res.StatusCode != 0 {
		fields["status"] = res.StatusCode
	}

	if res.Input != nil {
		fields["input_bytes"] = res.InputTotal
		fields["input_truncated"] = res.InputTruncated
	}

	if res.Errors != nil {
		fields["errors_bytes"] = res.ErrorsTotal
		fields["errors_truncated"] = res.ErrorsTruncated
	}

	if res.Output != nil {
		fields["output_bytes"] = res.OutputTotal
		fields["output_truncated"] = res.OutputTruncated
	}

	e := s.entry.WithFields(fields)
	if res.Err != nil {
		e.WithError(res.Err).Warn("Recorded request")
	} else {
		e.Info("Recorded request")
	}

	if s.maxBody == 0 || !s.entry.Logger.IsLevelEnabled(log.DebugLevel) {
		return nil
	}

	data := log.Fields{"id": res.ID}
	if res.Input != nil {
		data["input"] = limit(res.Input, s.maxBody)
	}

	if res.Errors != nil {
		data["errors"] = limit(res.Errors, s.maxBody)
	}

	if res.Output != nil {
		data["output"] = limit(res.Output, s.maxBody)
	}

	s.entry.WithFields(data).Debug("Recorded data")
	return nil
}
