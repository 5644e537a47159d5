package camera

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultGrabTimeout is how long Get waits for a free frame buffer.
const DefaultGrabTimeout = 4 * time.Second

// Slots bounds the number of frame buffers a driver has handed out.
// Drivers call Acquire in Get and Release in Return.
type Slots struct {
	sem     chan struct{}
	timeout time.Duration
	held    atomic.Int64
}

// NewSlots creates a pool of n buffers. n < 1 is treated as 1.
func NewSlots(n int, timeout time.Duration) *Slots {
	if n < 1 {
		n = 1
	}
	if timeout <= 0 {
		timeout = DefaultGrabTimeout
	}
	return &Slots{
		sem:     make(chan struct{}, n),
		timeout: timeout,
	}
}

// Acquire takes one buffer, waiting up to the grab timeout.
// It returns ErrNoFrame on timeout and ctx.Err() on cancellation.
func (s *Slots) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		s.held.Add(1)
		return nil
	default:
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case s.sem <- struct{}{}:
		s.held.Add(1)
		return nil
	case <-timer.C:
		return ErrNoFrame
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release gives one buffer back. Releasing more than was acquired panics,
// since it means a frame was returned twice.
func (s *Slots) Release() {
	select {
	case <-s.sem:
		s.held.Add(-1)
	default:
		panic("camera: frame buffer returned twice")
	}
}

// Outstanding reports how many buffers are currently held.
func (s *Slots) Outstanding() int {
	return int(s.held.Load())
}

// Cap returns the total number of buffers.
func (s *Slots) Cap() int {
	return cap(s.sem)
}
