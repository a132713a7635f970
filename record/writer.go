package record

import (
	"bufio"
	"io"
	"net"
	"net/http"

	"github.com/felixge/httpsnoop"
)

// wrap returns a response writer that starts the response of the
// exchange on the first WriteHeader, Write, ReadFrom or Flush, and
// mirrors the written bytes into the output capture. The optional
// interfaces of w are preserved, except io.StringWriter, so that
// io.WriteString goes through Write.
func (x *Exchange) wrap(w http.ResponseWriter) http.ResponseWriter {
	return httpsnoop.Wrap(w, httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				x.startResponse(next, code, nil)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(p []byte) (int, error) {
				x.ensureStarted()
				x.mirror(p)
				return next(p)
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				x.ensureStarted()
				if x.output == nil {
					return next(src)
				}

				return next(io.TeeReader(src, x.output))
			}
		},
		Flush: func(next httpsnoop.FlushFunc) httpsnoop.FlushFunc {
			return func() {
				x.ensureStarted()
				next()
			}
		},
		Hijack: func(next httpsnoop.HijackFunc) httpsnoop.HijackFunc {
			return func() (net.Conn, *bufio.ReadWriter, error) {
				conn, rw, err := next()
				if err == nil {
					x.hijacked = true
				}

				return conn, rw, err
			}
		},
	})
}
