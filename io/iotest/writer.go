package iotest

import (
	"errors"
	"net/http"
)

var ErrWriteFailed = errors.New("write failed")

// FailingResponseWriter accepts a limited number of bytes, and fails
// the writes after that with ErrWriteFailed. It counts the flushes.
type FailingResponseWriter struct {
	rw      http.ResponseWriter
	left    int
	Flushed int
}

var (
	_ http.ResponseWriter = &FailingResponseWriter{}
	_ http.Flusher        = &FailingResponseWriter{}
)

func NewFailingResponseWriter(rw http.ResponseWriter, accept int) *FailingResponseWriter {
	return &FailingResponseWriter{rw: rw, left: accept}
}

func (fw *FailingResponseWriter) Header() http.Header { return fw.rw.Header() }

func (fw *FailingResponseWriter) WriteHeader(code int) { fw.rw.WriteHeader(code) }

func (fw *FailingResponseWriter) Write(p []byte) (int, error) {
	if len(p) > fw.left {
		n, _ := fw.rw.Write(p[:fw.left])
		fw.left = 0
		return n, ErrWriteFailed
	}

	fw.left -= len(p)
	return fw.rw.Write(p)
}

func (fw *FailingResponseWriter) Flush() {
	fw.Flushed++
	if f, ok := fw.rw.(http.Flusher); ok {
		f.Flush()
	}
}

func (fw *FailingResponseWriter) Unwrap() http.ResponseWriter { return fw.rw }
