// Package opencv drives a V4L2/USB camera through gocv and provides a JPEG
// encoder backed by OpenCV's codec.
package opencv

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
)

// Driver captures frames from a gocv.VideoCapture. Each frame is backed by
// a Mat (or a native JPEG buffer) that is freed on Return.
type Driver struct {
	mu       sync.Mutex
	vc       *gocv.VideoCapture
	settings camera.Settings
	format   camera.PixelFormat
	held     map[*camera.FrameBuffer]func()
	seq      uint64
	closed   bool

	slots   *camera.Slots
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithGrabTimeout sets how long Get waits for a free frame buffer.
func WithGrabTimeout(t time.Duration) Option {
	return func(d *Driver) {
		d.timeout = t
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// Open opens device, which is either a numeric index ("0") or a path or
// URL understood by OpenCV.
func Open(device string, s camera.Settings, opts ...Option) (*Driver, error) {
	var src interface{} = device
	if id, err := strconv.Atoi(device); err == nil {
		src = id
	}

	vc, err := gocv.OpenVideoCapture(src)
	if err != nil {
		return nil, fmt.Errorf("opencv: open %s: %w", device, err)
	}

	d := &Driver{
		vc:      vc,
		held:    make(map[*camera.FrameBuffer]func()),
		timeout: camera.DefaultGrabTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.slots = camera.NewSlots(s.FBCount, d.timeout)

	if err := d.Apply(s); err != nil {
		vc.Close()
		return nil, err
	}
	return d, nil
}

// Apply pushes frame size and rate to the device. RGB565 and YUV422 output
// are not offered; OpenCV always delivers BGR.
func (d *Driver) Apply(s camera.Settings) error {
	w, h, err := s.Size()
	if err != nil {
		return err
	}
	f, err := s.Format()
	if err != nil {
		return err
	}
	if err := supported(f); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.vc.Set(gocv.VideoCaptureFrameWidth, float64(w))
	d.vc.Set(gocv.VideoCaptureFrameHeight, float64(h))
	if s.Framerate > 0 {
		d.vc.Set(gocv.VideoCaptureFPS, float64(s.Framerate))
	}

	gotW := int(d.vc.Get(gocv.VideoCaptureFrameWidth))
	gotH := int(d.vc.Get(gocv.VideoCaptureFrameHeight))
	if gotW != w || gotH != h {
		d.logger.Warn("camera does not support requested size",
			"want", fmt.Sprintf("%dx%d", w, h),
			"got", fmt.Sprintf("%dx%d", gotW, gotH))
	}

	d.settings = s
	d.format = f
	return nil
}

func supported(f camera.PixelFormat) error {
	switch f {
	case camera.PixelFormatJPEG, camera.PixelFormatBGR888,
		camera.PixelFormatRGB888, camera.PixelFormatGrayscale:
		return nil
	}
	return fmt.Errorf("%w: opencv cannot deliver %s", camera.ErrUnknownPixelFormat, f)
}

// Get reads the next frame from the device.
func (d *Driver) Get(ctx context.Context) (*camera.FrameBuffer, error) {
	if err := d.slots.Acquire(ctx); err != nil {
		return nil, err
	}

	fb, release, err := d.grab()
	if err != nil {
		d.slots.Release()
		return nil, err
	}

	d.mu.Lock()
	d.held[fb] = release
	d.mu.Unlock()
	return fb, nil
}

func (d *Driver) grab() (*camera.FrameBuffer, func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, nil, camera.ErrClosed
	}

	mat := gocv.NewMat()
	if ok := d.vc.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, nil, camera.ErrNoFrame
	}

	if code, ok := flipCode(d.settings); ok {
		gocv.Flip(mat, &mat, code)
	}

	fb := &camera.FrameBuffer{
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Format:    d.format,
		Timestamp: time.Now(),
	}

	switch d.format {
	case camera.PixelFormatJPEG:
		nb, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat,
			[]int{int(gocv.IMWriteJpegQuality), clamp(d.settings.Quality)})
		mat.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("opencv: sensor jpeg: %w", err)
		}
		d.seq++
		fb.Buf, fb.Seq = nb.GetBytes(), d.seq
		return fb, func() { nb.Close() }, nil

	case camera.PixelFormatRGB888:
		gocv.CvtColor(mat, &mat, gocv.ColorBGRToRGB)
	case camera.PixelFormatGrayscale:
		gocv.CvtColor(mat, &mat, gocv.ColorBGRToGray)
	}

	buf, err := mat.DataPtrUint8()
	if err != nil {
		mat.Close()
		return nil, nil, fmt.Errorf("opencv: frame data: %w", err)
	}
	d.seq++
	fb.Buf, fb.Seq = buf, d.seq
	return fb, func() { mat.Close() }, nil
}

func flipCode(s camera.Settings) (int, bool) {
	switch {
	case s.HMirror && s.VFlip:
		return -1, true
	case s.HMirror:
		return 1, true
	case s.VFlip:
		return 0, true
	}
	return 0, false
}

// Return frees fb's native memory. Unknown or already returned frames are ignored.
func (d *Driver) Return(fb *camera.FrameBuffer) {
	if fb == nil {
		return
	}

	d.mu.Lock()
	release, ok := d.held[fb]
	delete(d.held, fb)
	d.mu.Unlock()
	if !ok {
		return
	}

	fb.Buf = nil
	release()
	d.slots.Release()
}

// Outstanding reports how many frames are held by callers.
func (d *Driver) Outstanding() int {
	return d.slots.Outstanding()
}

// Close releases the device. Frames still held are freed on Return.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.vc.Close()
}
