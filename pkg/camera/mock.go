package camera

import (
	"context"
	"sync"
	"time"
)

// Mock implements Driver for testing.
// All methods can be customized via function fields.
type Mock struct {
	// GetFunc is called when Get is invoked.
	// If nil, returns a small fake JPEG frame.
	GetFunc func(ctx context.Context) (*FrameBuffer, error)

	// ReturnFunc is called after a frame has been recorded as returned.
	ReturnFunc func(fb *FrameBuffer)

	// Tracking
	mu      sync.Mutex
	gets    int
	returns int
	held    map[*FrameBuffer]bool
	doubles int
	closed  bool
	seq     uint64
}

// NewMock creates a mock driver that serves the given frame template.
// Each Get returns a fresh copy so returned frames can be told apart.
func NewMock(template FrameBuffer) *Mock {
	m := &Mock{}
	m.GetFunc = func(ctx context.Context) (*FrameBuffer, error) {
		fb := template
		fb.Buf = append([]byte(nil), template.Buf...)
		fb.Timestamp = time.Now()
		return &fb, nil
	}
	return m
}

// Get calls GetFunc and records the frame as held.
func (m *Mock) Get(ctx context.Context) (*FrameBuffer, error) {
	m.mu.Lock()
	m.gets++
	fn := m.GetFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, ErrNoFrame
	}
	fb, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = make(map[*FrameBuffer]bool)
	}
	m.seq++
	fb.Seq = m.seq
	m.held[fb] = true
	return fb, nil
}

// Return records the frame as returned and calls ReturnFunc.
func (m *Mock) Return(fb *FrameBuffer) {
	m.mu.Lock()
	m.returns++
	if !m.held[fb] {
		m.doubles++
	}
	delete(m.held, fb)
	fn := m.ReturnFunc
	m.mu.Unlock()

	if fn != nil {
		fn(fb)
	}
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Outstanding returns the number of frames handed out and not yet returned.
func (m *Mock) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}

// Gets returns how many times Get was called.
func (m *Mock) Gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// Returns returns how many times Return was called.
func (m *Mock) Returns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.returns
}

// BadReturns counts Return calls for frames that were not held:
// double returns or frames the mock never handed out.
func (m *Mock) BadReturns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doubles
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
