package transcode

import (
	"fmt"
	"image"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
)

// ToImage wraps or converts a raw frame into an image.Image.
// Grayscale frames are wrapped without copying; every other format is
// converted into a freshly allocated image.
func ToImage(fb *camera.FrameBuffer) (image.Image, error) {
	if err := Check(fb); err != nil {
		return nil, err
	}
	w, h := fb.Width, fb.Height

	rect := image.Rect(0, 0, w, h)

	switch fb.Format {
	case camera.PixelFormatGrayscale:
		return &image.Gray{Pix: fb.Buf[:w*h], Stride: w, Rect: rect}, nil

	case camera.PixelFormatRGB565:
		img := image.NewRGBA(rect)
		for i, j := 0, 0; i < w*h*2; i, j = i+2, j+4 {
			v := uint16(fb.Buf[i])<<8 | uint16(fb.Buf[i+1])
			r := uint8(v >> 11)
			g := uint8(v>>5) & 0x3f
			b := uint8(v) & 0x1f
			img.Pix[j] = r<<3 | r>>2
			img.Pix[j+1] = g<<2 | g>>4
			img.Pix[j+2] = b<<3 | b>>2
			img.Pix[j+3] = 0xff
		}
		return img, nil

	case camera.PixelFormatRGB888, camera.PixelFormatBGR888:
		ri, bi := 0, 2
		if fb.Format == camera.PixelFormatBGR888 {
			ri, bi = 2, 0
		}
		img := image.NewRGBA(rect)
		for i, j := 0, 0; i < w*h*3; i, j = i+3, j+4 {
			img.Pix[j] = fb.Buf[i+ri]
			img.Pix[j+1] = fb.Buf[i+1]
			img.Pix[j+2] = fb.Buf[i+bi]
			img.Pix[j+3] = 0xff
		}
		return img, nil

	case camera.PixelFormatYUV422:
		img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio422)
		for y := 0; y < h; y++ {
			row := fb.Buf[y*w*2 : (y+1)*w*2]
			for x := 0; x < w/2; x++ {
				p := row[x*4 : x*4+4]
				img.Y[y*img.YStride+2*x] = p[0]
				img.Cb[y*img.CStride+x] = p[1]
				img.Y[y*img.YStride+2*x+1] = p[2]
				img.Cr[y*img.CStride+x] = p[3]
			}
		}
		return img, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fb.Format)
}

// Check reports whether fb is a raw frame whose buffer matches its size and
// format.
func Check(fb *camera.FrameBuffer) error {
	w, h := fb.Width, fb.Height
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadDimensions, w, h)
	}

	bpp := fb.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, fb.Format)
	}
	if fb.Format == camera.PixelFormatYUV422 && w%2 != 0 {
		return fmt.Errorf("%w: yuv422 needs an even width, got %d", ErrBadDimensions, w)
	}
	if need := w * h * bpp; len(fb.Buf) < need {
		return fmt.Errorf("%w: have %d bytes, %s %dx%d needs %d",
			ErrShortFrame, len(fb.Buf), fb.Format, w, h, need)
	}
	return nil
}
