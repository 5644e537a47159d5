package transcode

import (
	"bytes"
	"errors"
	"image/jpeg"
	"testing"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
)

func rawFrame(f camera.PixelFormat, w, h int, fill byte) *camera.FrameBuffer {
	buf := make([]byte, w*h*f.BytesPerPixel())
	for i := range buf {
		buf[i] = fill
	}
	return &camera.FrameBuffer{Buf: buf, Width: w, Height: h, Format: f}
}

func TestJPEGEncoder_AllRawFormats(t *testing.T) {
	formats := []camera.PixelFormat{
		camera.PixelFormatRGB565,
		camera.PixelFormatYUV422,
		camera.PixelFormatGrayscale,
		camera.PixelFormatRGB888,
		camera.PixelFormatBGR888,
	}
	enc := NewJPEGEncoder()

	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			buf, err := enc.Encode(rawFrame(f, 32, 16, 0x80), 80)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			defer buf.Release()

			img, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("output is not a JPEG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
				t.Errorf("decoded size %dx%d, want 32x16", b.Dx(), b.Dy())
			}
		})
	}
}

func TestJPEGEncoder_ReleaseReturnsBuffer(t *testing.T) {
	enc := NewJPEGEncoder()

	for i := 0; i < 5; i++ {
		buf, err := enc.Encode(rawFrame(camera.PixelFormatGrayscale, 16, 16, byte(i)), 50)
		if err != nil {
			t.Fatal(err)
		}
		if enc.Outstanding() != 1 {
			t.Fatalf("iteration %d: Outstanding = %d, want 1", i, enc.Outstanding())
		}
		buf.Release()
		buf.Release()
		if enc.Outstanding() != 0 {
			t.Fatalf("iteration %d: Outstanding = %d after release, want 0", i, enc.Outstanding())
		}
		if buf.Bytes() != nil {
			t.Error("Bytes should be nil after Release")
		}
	}
}

func TestJPEGEncoder_Errors(t *testing.T) {
	enc := NewJPEGEncoder()

	short := rawFrame(camera.PixelFormatRGB565, 8, 8, 0)
	short.Buf = short.Buf[:10]
	if _, err := enc.Encode(short, 80); !errors.Is(err, ErrShortFrame) {
		t.Errorf("short frame: got %v", err)
	}

	odd := rawFrame(camera.PixelFormatYUV422, 7, 4, 0)
	if _, err := enc.Encode(odd, 80); !errors.Is(err, ErrBadDimensions) {
		t.Errorf("odd yuv width: got %v", err)
	}

	if _, err := enc.Encode(&camera.FrameBuffer{Buf: []byte{0xff, 0xd8}, Width: 1, Height: 1, Format: camera.PixelFormatJPEG}, 80); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("jpeg input: got %v", err)
	}

	if _, err := enc.Encode(&camera.FrameBuffer{}, 80); !errors.Is(err, ErrBadDimensions) {
		t.Errorf("empty frame: got %v", err)
	}

	if enc.Outstanding() != 0 {
		t.Errorf("failed encodes leaked %d buffers", enc.Outstanding())
	}
}

func TestToImage_RGB565(t *testing.T) {
	// Pure red in big-endian RGB565 is 0xF800.
	fb := &camera.FrameBuffer{Buf: []byte{0xf8, 0x00}, Width: 1, Height: 1, Format: camera.PixelFormatRGB565}
	img, err := ToImage(fb)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 0xff || g != 0 || b != 0 {
		t.Errorf("got r=%x g=%x b=%x, want pure red", r>>8, g>>8, b>>8)
	}
}

func TestToImage_BGRSwapsChannels(t *testing.T) {
	fb := &camera.FrameBuffer{Buf: []byte{0x10, 0x20, 0x30}, Width: 1, Height: 1, Format: camera.PixelFormatBGR888}
	img, err := ToImage(fb)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 0x30 || g>>8 != 0x20 || b>>8 != 0x10 {
		t.Errorf("got %x %x %x", r>>8, g>>8, b>>8)
	}
}

func TestClampQuality(t *testing.T) {
	for in, want := range map[int]int{-5: 1, 0: 1, 1: 1, 80: 80, 100: 100, 250: 100} {
		if got := clampQuality(in); got != want {
			t.Errorf("clampQuality(%d) = %d, want %d", in, got, want)
		}
	}
}
