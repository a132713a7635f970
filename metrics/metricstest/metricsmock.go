package metricstest

import (
	"sync"

	"github.com/zalando/recorder/metrics"
)

// Capture is one reported channel capture.
type Capture struct {
	Channel   string
	Retained  int
	Total     int64
	Truncated bool
}

// MockMetrics records the reported values for inspection in tests.
type MockMetrics struct {
	mu sync.Mutex

	recorded     int
	skipped      int
	sinkErrors   int
	configErrors int
	captures     []Capture
}

var _ metrics.Metrics = (*MockMetrics)(nil)

func (m *MockMetrics) IncRecorded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded++
}

func (m *MockMetrics) IncSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped++
}

func (m *MockMetrics) IncSinkErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinkErrors++
}

func (m *MockMetrics) IncConfigErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configErrors++
}

func (m *MockMetrics) ObserveCapture(channel string, retained int, total int64, truncated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures = append(m.captures, Capture{Channel: channel, Retained: retained, Total: total, Truncated: truncated})
}

func (m *MockMetrics) Recorded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorded
}

func (m *MockMetrics) Skipped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skipped
}

func (m *MockMetrics) SinkErrors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sinkErrors
}

func (m *MockMetrics) ConfigErrors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configErrors
}

// Captures returns a copy of the reported captures.
func (m *MockMetrics) Captures() []Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Capture(nil), m.captures...)
}
