package logging

import (
	"bytes"
	"io"

	"github.com/sirupsen/logrus"
)

type errorStream struct {
	entry *logrus.Entry
}

// NewErrorStream returns a diagnostic stream that logs every line
// written to it at ERROR level. A write without a trailing newline is
// logged as a line of its own.
func NewErrorStream(entry *logrus.Entry) io.Writer {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}

	return &errorStream{entry: entry}
}

func (es *errorStream) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) > 0 {
			es.entry.Error(string(line))
		}
	}

	return len(p), nil
}
