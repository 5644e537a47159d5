// Package replay plays back a directory of JPEG files as a camera.
// Files are served in name order, so a recording written as
// 000000.jpg, 000001.jpg, ... replays in capture order.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
)

// ErrEndOfRecording is returned by Get once every file has been served
// and looping is disabled.
var ErrEndOfRecording = errors.New("replay: end of recording")

// Driver serves JPEG files from a directory.
type Driver struct {
	dir   string
	files []string

	mu       sync.Mutex
	next     int
	loop     bool
	free     [][]byte
	held     map[*camera.FrameBuffer]struct{}
	seq      uint64
	closed   bool
	interval time.Duration
	lastShot time.Time

	fbCount int
	timeout time.Duration
	slots   *camera.Slots
}

// Option configures a Driver.
type Option func(*Driver)

// WithLoop controls whether playback restarts after the last file.
// Looping is on by default.
func WithLoop(loop bool) Option {
	return func(d *Driver) {
		d.loop = loop
	}
}

// WithGrabTimeout sets how long Get waits for a free frame buffer.
func WithGrabTimeout(t time.Duration) Option {
	return func(d *Driver) {
		d.timeout = t
	}
}

// WithFBCount sets how many frames may be held at once.
func WithFBCount(n int) Option {
	return func(d *Driver) {
		d.fbCount = n
	}
}

// WithFrameInterval paces playback to one frame per interval.
func WithFrameInterval(t time.Duration) Option {
	return func(d *Driver) {
		d.interval = t
	}
}

// New scans dir for *.jpg and *.jpeg files.
func New(dir string, opts ...Option) (*Driver, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("replay: no JPEG files in %s", dir)
	}
	sort.Strings(files)

	d := &Driver{
		dir:     dir,
		files:   files,
		loop:    true,
		held:    make(map[*camera.FrameBuffer]struct{}),
		fbCount: 2,
		timeout: camera.DefaultGrabTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.slots = camera.NewSlots(d.fbCount, d.timeout)
	return d, nil
}

// Len returns the number of frames in the recording.
func (d *Driver) Len() int {
	return len(d.files)
}

// Get reads the next file.
func (d *Driver) Get(ctx context.Context) (*camera.FrameBuffer, error) {
	if err := d.slots.Acquire(ctx); err != nil {
		return nil, err
	}

	fb, err := d.read(ctx)
	if err != nil {
		d.slots.Release()
		return nil, err
	}
	return fb, nil
}

func (d *Driver) read(ctx context.Context) (*camera.FrameBuffer, error) {
	if err := d.pace(ctx); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, camera.ErrClosed
	}
	if d.next >= len(d.files) {
		if !d.loop {
			return nil, ErrEndOfRecording
		}
		d.next = 0
	}
	path := d.files[d.next]
	d.next++

	var buf []byte
	if n := len(d.free); n > 0 {
		buf = d.free[n-1]
		d.free = d.free[:n-1]
	}

	buf, err := readFile(path, buf)
	if err != nil {
		return nil, err
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		d.free = append(d.free, buf)
		return nil, fmt.Errorf("replay: %s: %w", filepath.Base(path), err)
	}

	d.seq++
	fb := &camera.FrameBuffer{
		Buf:       buf,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    camera.PixelFormatJPEG,
		Timestamp: time.Now(),
		Seq:       d.seq,
	}
	d.held[fb] = struct{}{}
	return fb, nil
}

// Return recycles fb's memory. Unknown or already returned frames are ignored.
func (d *Driver) Return(fb *camera.FrameBuffer) {
	if fb == nil {
		return
	}

	d.mu.Lock()
	if _, ok := d.held[fb]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.held, fb)
	d.free = append(d.free, fb.Buf)
	fb.Buf = nil
	d.mu.Unlock()

	d.slots.Release()
}

// Outstanding reports how many frames are held by callers.
func (d *Driver) Outstanding() int {
	return d.slots.Outstanding()
}

// Close stops playback.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Driver) pace(ctx context.Context) error {
	if d.interval <= 0 {
		return nil
	}

	d.mu.Lock()
	next := d.lastShot.Add(d.interval)
	if now := time.Now(); next.Before(now) {
		next = now
	}
	d.lastShot = next
	d.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readFile reads path into buf, reusing its capacity.
func readFile(path string, buf []byte) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	size := int(st.Size())
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("replay: read %s: %w", filepath.Base(path), err)
	}
	return buf, nil
}
