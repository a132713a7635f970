package sink

import (
	"errors"
	"net/http"

	"github.com/zalando/recorder/record"
)

type multi []record.Sink

// Multi creates a sink that passes every result to all the sinks, even
// when some of them fail. The errors are joined.
func Multi(sinks ...record.Sink) record.Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}

	if len(m) == 1 {
		return m[0]
	}

	return m
}

func (m multi) Recorded(r *http.Request, res *record.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Recorded(r, res); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
