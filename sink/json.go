package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"

	"github.com/zalando/recorder/record"
)

// Compression of the JSON output.
type Compression string

const (
	NoCompression Compression = ""
	Gzip          Compression = "gzip"
	Brotli        Compression = "br"
)

// ParseCompression accepts none, gzip and br.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case NoCompression, Gzip, Brotli:
		return c, nil
	case "none":
		return NoCompression, nil
	default:
		return "", fmt.Errorf("unsupported compression: %q", s)
	}
}

type JSONOptions struct {

	// Compression of the output. Every document is flushed, so a
	// truncated stream can be decompressed up to the last complete
	// document.
	Compression Compression

	// Compression level. Zero means the default level of the
	// compression.
	Level int
}

type compressor interface {
	io.Writer
	Flush() error
	Close() error
}

// JSON writes one document per recorded request.
type JSON struct {
	mu         sync.Mutex
	compressor compressor
	enc        *json.Encoder
	closed     bool
}

type channelDoc struct {
	Text      string `json:"text,omitempty"`
	Binary    []byte `json:"binary,omitempty"`
	Total     int64  `json:"total"`
	Truncated bool   `json:"truncated,omitempty"`
}

type resultDoc struct {
	ID       string              `json:"id"`
	Time     time.Time           `json:"time"`
	Duration string              `json:"duration"`
	Method   string              `json:"method"`
	Host     string              `json:"host,omitempty"`
	Path     string              `json:"path"`
	Query    string              `json:"query,omitempty"`
	Request  map[string][]string `json:"requestHeader,omitempty"`
	Status   int                 `json:"status,omitempty"`
	Header   map[string][]string `json:"header,omitempty"`
	Input    *channelDoc         `json:"input,omitempty"`
	Errors   *channelDoc         `json:"errors,omitempty"`
	Output   *channelDoc         `json:"output,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// NewJSON creates a JSON sink writing to w. Captured data is stored as
// text when it is valid UTF-8, and base64 encoded otherwise.
func NewJSON(w io.Writer, o JSONOptions) (*JSON, error) {
	s := &JSON{}
	switch o.Compression {
	case NoCompression:
	case Gzip:
		level := o.Level
		if level == 0 {
			level = gzip.DefaultCompression
		}

		gz, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, err
		}

		s.compressor = gz
	case Brotli:
		level := o.Level
		if level == 0 {
			level = brotli.DefaultCompression
		}

		if level < brotli.BestSpeed || level > brotli.BestCompression {
			return nil, fmt.Errorf("invalid brotli level: %d", level)
		}

		s.compressor = brotli.NewWriterLevel(w, level)
	default:
		return nil, fmt.Errorf("unsupported compression: %q", o.Compression)
	}

	if s.compressor != nil {
		w = s.compressor
	}

	s.enc = json.NewEncoder(w)
	return s, nil
}

func newChannelDoc(p []byte, total int64, truncated bool) *channelDoc {
	if p == nil {
		return nil
	}

	d := &channelDoc{Total: total, Truncated: truncated}
	if utf8.Valid(p) {
		d.Text = string(p)
	} else {
		d.Binary = p
	}

	return d
}

func (s *JSON) Recorded(r *http.Request, res *record.Result) error {
	doc := resultDoc{
		ID:       res.ID,
		Time:     res.Start.UTC(),
		Duration: res.Duration.String(),
		Method:   r.Method,
		Host:     r.Host,
		Path:     r.URL.Path,
		Query:    r.URL.RawQuery,
		Request:  r.Header,
		Status:   res.StatusCode,
		Header:   res.Header,
		Input:    newChannelDoc(res.Input, res.InputTotal, res.InputTruncated),
		Errors:   newChannelDoc(res.Errors, res.ErrorsTotal, res.ErrorsTruncated),
		Output:   newChannelDoc(res.Output, res.OutputTotal, res.OutputTruncated),
	}

	if res.Err != nil {
		doc.Error = res.Err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}

	if err := s.enc.Encode(doc); err != nil {
		return err
	}

	if s.compressor != nil {
		return s.compressor.Flush()
	}

	return nil
}

// Close terminates the compressed stream. It does not close the
// underlying writer.
func (s *JSON) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.compressor != nil {
		return s.compressor.Close()
	}

	return nil
}
