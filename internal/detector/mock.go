package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/swingcoach/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It returns queued frames in order, one per Detect call.
type MockDetector struct {
	mu     sync.Mutex
	frames []pose.Frame
	next   int
	loop   bool
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrames replaces the queued frames. With loop set, playback wraps around.
func (m *MockDetector) SetFrames(frames []pose.Frame, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.next = 0
	m.loop = loop
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued frame, or nil once the queue is exhausted.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	if m.next >= len(m.frames) {
		if !m.loop || len(m.frames) == 0 {
			return nil, nil
		}
		m.next = 0
	}

	f := m.frames[m.next]
	m.next++
	return &f, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
