// Package testpattern is a synthetic camera driver. It renders moving colour
// bars in any pixel format, which makes it useful for demos and for
// exercising the transcode path without hardware.
package testpattern

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
)

var bars = []color.RGBA{
	{0xff, 0xff, 0xff, 0xff},
	{0xff, 0xff, 0x00, 0xff},
	{0x00, 0xff, 0xff, 0xff},
	{0x00, 0xff, 0x00, 0xff},
	{0xff, 0x00, 0xff, 0xff},
	{0xff, 0x00, 0x00, 0xff},
	{0x00, 0x00, 0xff, 0xff},
	{0x10, 0x10, 0x10, 0xff},
}

// Driver renders colour bars into a fixed set of frame buffers.
type Driver struct {
	mu       sync.Mutex
	settings camera.Settings
	width    int
	height   int
	format   camera.PixelFormat
	free     [][]byte
	held     map[*camera.FrameBuffer]struct{}
	seq      uint64
	closed   bool
	lastShot time.Time

	slots    *camera.Slots
	interval time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithGrabTimeout sets how long Get waits for a free frame buffer.
func WithGrabTimeout(d time.Duration) Option {
	return func(drv *Driver) {
		drv.slots = camera.NewSlots(drv.settings.FBCount, d)
	}
}

// WithFrameInterval simulates a sensor that produces one frame per interval.
func WithFrameInterval(d time.Duration) Option {
	return func(drv *Driver) {
		drv.interval = d
	}
}

// New creates a driver producing frames as described by s.
func New(s camera.Settings, opts ...Option) (*Driver, error) {
	d := &Driver{
		held:  make(map[*camera.FrameBuffer]struct{}),
		slots: camera.NewSlots(s.FBCount, camera.DefaultGrabTimeout),
	}
	if err := d.Apply(s); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Apply switches frame size, pixel format and image tuning. Frames already
// handed out keep their old layout. The buffer count is fixed at New.
func (d *Driver) Apply(s camera.Settings) error {
	w, h, err := s.Size()
	if err != nil {
		return err
	}
	f, err := s.Format()
	if err != nil {
		return err
	}
	if f == camera.PixelFormatYUV422 && w%2 != 0 {
		return fmt.Errorf("testpattern: yuv422 needs an even width, got %d", w)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = s
	d.width, d.height, d.format = w, h, f
	return nil
}

// Get renders the next frame.
func (d *Driver) Get(ctx context.Context) (*camera.FrameBuffer, error) {
	if err := d.slots.Acquire(ctx); err != nil {
		return nil, err
	}

	if err := d.waitForSensor(ctx); err != nil {
		d.slots.Release()
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.slots.Release()
		return nil, camera.ErrClosed
	}

	var buf []byte
	if n := len(d.free); n > 0 {
		buf = d.free[n-1][:0]
		d.free = d.free[:n-1]
	}

	d.seq++
	buf, err := d.render(buf)
	if err != nil {
		d.slots.Release()
		return nil, err
	}

	fb := &camera.FrameBuffer{
		Buf:       buf,
		Width:     d.width,
		Height:    d.height,
		Format:    d.format,
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

// Close stops the driver. Held frames may still be returned.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Driver) waitForSensor(ctx context.Context) error {
	if d.interval <= 0 {
		return nil
	}

	d.mu.Lock()
	next := d.lastShot.Add(d.interval)
	now := time.Now()
	if next.Before(now) {
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

// pixel returns the colour at (x, y) for the current frame.
func (d *Driver) pixel(x, y int) color.RGBA {
	if d.settings.HMirror {
		x = d.width - 1 - x
	}
	if d.settings.VFlip {
		y = d.height - 1 - y
	}

	shift := int(d.seq*4) % d.width
	bar := ((x + shift) % d.width) * len(bars) / d.width
	c := bars[bar]

	// Bottom eighth is a luma ramp so gradients show compression artefacts.
	if y >= d.height-d.height/8 {
		v := uint8(x * 255 / max(d.width-1, 1))
		c = color.RGBA{v, v, v, 0xff}
	}

	if b := d.settings.Brightness; b != 0 {
		c.R, c.G, c.B = adjust(c.R, b), adjust(c.G, b), adjust(c.B, b)
	}
	return c
}

func adjust(v uint8, brightness int) uint8 {
	n := int(v) + brightness*24
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	}
	return uint8(n)
}

// render draws the current frame into buf, growing it if needed.
func (d *Driver) render(buf []byte) ([]byte, error) {
	w, h := d.width, d.height

	if d.format == camera.PixelFormatJPEG {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, y, d.pixel(x, y))
			}
		}
		out := bytes.NewBuffer(buf)
		if err := jpeg.Encode(out, img, &jpeg.Options{Quality: d.settings.Quality}); err != nil {
			return nil, fmt.Errorf("testpattern: sensor jpeg: %w", err)
		}
		return out.Bytes(), nil
	}

	size := w * h * d.format.BytesPerPixel()
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]

	switch d.format {
	case camera.PixelFormatGrayscale:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := d.pixel(x, y)
				yy, _, _ := color.RGBToYCbCr(c.R, c.G, c.B)
				buf[y*w+x] = yy
			}
		}
	case camera.PixelFormatRGB565:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := d.pixel(x, y)
				v := uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
				i := (y*w + x) * 2
				buf[i], buf[i+1] = byte(v>>8), byte(v)
			}
		}
	case camera.PixelFormatRGB888, camera.PixelFormatBGR888:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := d.pixel(x, y)
				i := (y*w + x) * 3
				if d.format == camera.PixelFormatRGB888 {
					buf[i], buf[i+1], buf[i+2] = c.R, c.G, c.B
				} else {
					buf[i], buf[i+1], buf[i+2] = c.B, c.G, c.R
				}
			}
		}
	case camera.PixelFormatYUV422:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x += 2 {
				c0, c1 := d.pixel(x, y), d.pixel(x+1, y)
				y0, u0, v0 := color.RGBToYCbCr(c0.R, c0.G, c0.B)
				y1, u1, v1 := color.RGBToYCbCr(c1.R, c1.G, c1.B)
				i := (y*w + x) * 2
				buf[i] = y0
				buf[i+1] = uint8((int(u0) + int(u1)) / 2)
				buf[i+2] = y1
				buf[i+3] = uint8((int(v0) + int(v1)) / 2)
			}
		}
	default:
		return nil, fmt.Errorf("testpattern: cannot render %s", d.format)
	}

	return buf, nil
}
