// Package transcode converts raw camera frames into JPEG buffers.
package transcode

import (
	"fmt"
	"image/jpeg"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
)

// Encoder turns a non-JPEG frame into a newly allocated JPEG buffer.
// The caller owns the returned Buffer and must Release it.
type Encoder interface {
	Encode(fb *camera.FrameBuffer, quality int) (*Buffer, error)
}

// JPEGEncoder encodes with image/jpeg into pooled byte buffers.
type JPEGEncoder struct {
	pool bytebufferpool.Pool
	live atomic.Int64
}

// NewJPEGEncoder creates an encoder with its own buffer pool.
func NewJPEGEncoder() *JPEGEncoder {
	return &JPEGEncoder{}
}

// Encode converts fb to JPEG at the given quality (clamped to 1-100).
func (e *JPEGEncoder) Encode(fb *camera.FrameBuffer, quality int) (*Buffer, error) {
	img, err := ToImage(fb)
	if err != nil {
		return nil, err
	}

	bb := e.pool.Get()
	if err := jpeg.Encode(bb, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		e.pool.Put(bb)
		return nil, fmt.Errorf("transcode: encode %s %dx%d: %w", fb.Format, fb.Width, fb.Height, err)
	}

	e.live.Add(1)
	return NewBuffer(bb.B, func() {
		e.live.Add(-1)
		e.pool.Put(bb)
	}), nil
}

// Outstanding reports how many encoded buffers have not been released yet.
func (e *JPEGEncoder) Outstanding() int {
	return int(e.live.Load())
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}
