package sink

import (
	"net/http"

	"github.com/zalando/recorder/record"
)

type redact struct {
	next    record.Sink
	headers []string
}

// Redact creates a sink that removes the given headers from the request
// and from the recorded response header before passing them to next.
// The original request and result are not changed.
func Redact(next record.Sink, headers ...string) record.Sink {
	if len(headers) == 0 {
		return next
	}

	return &redact{next: next, headers: headers}
}

func (s *redact) Recorded(r *http.Request, res *record.Result) error {
	r = r.Clone(r.Context())
	for _, h := range s.headers {
		r.Header.Del(h)
	}

	if res.Header != nil {
		rc := *res
		rc.Header = res.Header.Clone()
		for _, h := range s.headers {
			rc.Header.Del(h)
		}

		res = &rc
	}

	return s.next.Recorded(r, res)
}
