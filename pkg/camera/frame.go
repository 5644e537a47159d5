// Package camera defines the frame-buffer driver API used by the HTTP server,
// plus runtime-configurable camera settings.
//
// A Driver hands out FrameBuffers with Get and takes them back with Return.
// Between the two calls the buffer belongs to the caller; after Return its
// bytes may be reused for the next capture.
package camera

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PixelFormat describes the layout of FrameBuffer.Buf.
type PixelFormat int

const (
	// PixelFormatJPEG means Buf already holds a complete JPEG image.
	PixelFormatJPEG PixelFormat = iota
	// PixelFormatRGB565 is 16 bits per pixel, big-endian, as emitted by the sensor.
	PixelFormatRGB565
	// PixelFormatYUV422 is packed YUYV: Y0 U Y1 V for every pixel pair.
	PixelFormatYUV422
	// PixelFormatGrayscale is one luma byte per pixel.
	PixelFormatGrayscale
	// PixelFormatRGB888 is three bytes per pixel in R, G, B order.
	PixelFormatRGB888
	// PixelFormatBGR888 is three bytes per pixel in B, G, R order (OpenCV native).
	PixelFormatBGR888
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatJPEG:      "jpeg",
	PixelFormatRGB565:    "rgb565",
	PixelFormatYUV422:    "yuv422",
	PixelFormatGrayscale: "grayscale",
	PixelFormatRGB888:    "rgb888",
	PixelFormatBGR888:    "bgr888",
}

// String returns the lower-case name used in config files and the API.
func (f PixelFormat) String() string {
	if s, ok := pixelFormatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("pixelformat(%d)", int(f))
}

// BytesPerPixel returns the raw pixel size, or 0 for JPEG.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGB565, PixelFormatYUV422:
		return 2
	case PixelFormatGrayscale:
		return 1
	case PixelFormatRGB888, PixelFormatBGR888:
		return 3
	default:
		return 0
	}
}

// ParsePixelFormat parses a name produced by PixelFormat.String.
func ParsePixelFormat(s string) (PixelFormat, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "gray" {
		name = "grayscale"
	}
	for f, n := range pixelFormatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPixelFormat, s)
}

// FrameBuffer is one captured image, owned by the driver that produced it.
type FrameBuffer struct {
	Buf       []byte
	Width     int
	Height    int
	Format    PixelFormat
	Timestamp time.Time

	// Seq increases by one for every frame a driver hands out.
	Seq uint64
}

// Len returns the number of valid bytes in Buf.
func (fb *FrameBuffer) Len() int {
	return len(fb.Buf)
}

// Driver is the frame-buffer API of a camera.
type Driver interface {
	// Get blocks until a frame is available. It fails with ErrNoFrame when
	// the sensor produced nothing in time or every buffer is held.
	Get(ctx context.Context) (*FrameBuffer, error)

	// Return gives fb back to the driver. fb must not be used afterwards.
	Return(fb *FrameBuffer)

	// Close releases the device.
	Close() error
}

// Configurable is implemented by drivers that can apply Settings at runtime.
type Configurable interface {
	Apply(s Settings) error
}
