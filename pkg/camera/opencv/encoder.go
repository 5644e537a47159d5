package opencv

import (
	"fmt"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
	"github.com/teslashibe/go-camhttpd/pkg/transcode"
)

// Encoder compresses raw frames with OpenCV's JPEG codec. The encoded bytes
// live in native memory until the returned buffer is released.
// RGB565 frames go through transcode.JPEGEncoder, since OpenCV only reads
// little-endian 565.
type Encoder struct {
	fallback *transcode.JPEGEncoder
	live     atomic.Int64
}

// NewEncoder creates an OpenCV-backed encoder.
func NewEncoder() *Encoder {
	return &Encoder{fallback: transcode.NewJPEGEncoder()}
}

// Encode converts fb to JPEG at the given quality.
func (e *Encoder) Encode(fb *camera.FrameBuffer, quality int) (*transcode.Buffer, error) {
	if err := transcode.Check(fb); err != nil {
		return nil, err
	}
	if fb.Format == camera.PixelFormatRGB565 {
		return e.fallback.Encode(fb, quality)
	}

	mat, err := toBGR(fb)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	nb, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), clamp(quality)})
	if err != nil {
		return nil, fmt.Errorf("opencv: encode %s %dx%d: %w", fb.Format, fb.Width, fb.Height, err)
	}

	e.live.Add(1)
	return transcode.NewBuffer(nb.GetBytes(), func() {
		nb.Close()
		e.live.Add(-1)
	}), nil
}

// Outstanding reports how many encoded buffers have not been released yet.
func (e *Encoder) Outstanding() int {
	return int(e.live.Load()) + e.fallback.Outstanding()
}

// toBGR wraps fb in a Mat OpenCV can encode directly: 8-bit gray or BGR.
func toBGR(fb *camera.FrameBuffer) (gocv.Mat, error) {
	w, h := fb.Width, fb.Height
	n := w * h * fb.Format.BytesPerPixel()

	var mt gocv.MatType
	switch fb.Format {
	case camera.PixelFormatGrayscale:
		mt = gocv.MatTypeCV8UC1
	case camera.PixelFormatYUV422:
		mt = gocv.MatTypeCV8UC2
	case camera.PixelFormatRGB888, camera.PixelFormatBGR888:
		mt = gocv.MatTypeCV8UC3
	default:
		return gocv.Mat{}, fmt.Errorf("%w: %s", transcode.ErrUnsupportedFormat, fb.Format)
	}

	src, err := gocv.NewMatFromBytes(h, w, mt, fb.Buf[:n])
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("opencv: wrap frame: %w", err)
	}

	var code gocv.ColorConversionCode
	switch fb.Format {
	case camera.PixelFormatYUV422:
		code = gocv.ColorYUVToBGRYUY2
	case camera.PixelFormatRGB888:
		code = gocv.ColorRGBToBGR
	default:
		return src, nil
	}

	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, code)
	src.Close()
	if dst.Empty() {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("opencv: convert %s failed", fb.Format)
	}
	return dst, nil
}

func clamp(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}
