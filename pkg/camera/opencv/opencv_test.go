package opencv

import (
	"bytes"
	"errors"
	"image/jpeg"
	"testing"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
	"github.com/teslashibe/go-camhttpd/pkg/transcode"
)

func raw(f camera.PixelFormat, w, h int) *camera.FrameBuffer {
	buf := make([]byte, w*h*f.BytesPerPixel())
	for i := range buf {
		buf[i] = byte(i)
	}
	return &camera.FrameBuffer{Buf: buf, Width: w, Height: h, Format: f}
}

// TestEncoder_AllRawFormats checks every raw format comes out as a decodable JPEG
func TestEncoder_AllRawFormats(t *testing.T) {
	enc := NewEncoder()
	for _, f := range []camera.PixelFormat{
		camera.PixelFormatGrayscale,
		camera.PixelFormatBGR888,
		camera.PixelFormatRGB888,
		camera.PixelFormatYUV422,
		camera.PixelFormatRGB565,
	} {
		t.Run(f.String(), func(t *testing.T) {
			buf, err := enc.Encode(raw(f, 64, 32), 70)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			defer buf.Release()

			img, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("not a JPEG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
				t.Errorf("decoded %dx%d, want 64x32", b.Dx(), b.Dy())
			}
		})
	}
	if enc.Outstanding() != 0 {
		t.Errorf("Outstanding = %d after releasing everything", enc.Outstanding())
	}
}

// TestEncoder_ReleaseFreesNativeBuffer tests buffer accounting
func TestEncoder_ReleaseFreesNativeBuffer(t *testing.T) {
	enc := NewEncoder()
	buf, err := enc.Encode(raw(camera.PixelFormatBGR888, 16, 16), 80)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Outstanding() != 1 {
		t.Fatalf("Outstanding = %d, want 1", enc.Outstanding())
	}
	buf.Release()
	buf.Release()
	if enc.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", enc.Outstanding())
	}
}

// TestEncoder_RejectsBadFrames tests validation before touching OpenCV
func TestEncoder_RejectsBadFrames(t *testing.T) {
	enc := NewEncoder()

	short := raw(camera.PixelFormatBGR888, 8, 8)
	short.Buf = short.Buf[:5]
	if _, err := enc.Encode(short, 80); !errors.Is(err, transcode.ErrShortFrame) {
		t.Errorf("short: got %v", err)
	}
	if _, err := enc.Encode(&camera.FrameBuffer{Buf: []byte{0xff}, Width: 1, Height: 1, Format: camera.PixelFormatJPEG}, 80); !errors.Is(err, transcode.ErrUnsupportedFormat) {
		t.Errorf("jpeg: got %v", err)
	}
	if enc.Outstanding() != 0 {
		t.Errorf("failed encodes leaked %d buffers", enc.Outstanding())
	}
}

func TestFlipCode(t *testing.T) {
	tests := []struct {
		hmirror, vflip bool
		code           int
		ok             bool
	}{
		{false, false, 0, false},
		{true, false, 1, true},
		{false, true, 0, true},
		{true, true, -1, true},
	}
	for _, tt := range tests {
		code, ok := flipCode(camera.Settings{HMirror: tt.hmirror, VFlip: tt.vflip})
		if code != tt.code || ok != tt.ok {
			t.Errorf("hmirror=%v vflip=%v: got (%d, %v), want (%d, %v)",
				tt.hmirror, tt.vflip, code, ok, tt.code, tt.ok)
		}
	}
}

func TestSupported(t *testing.T) {
	if err := supported(camera.PixelFormatRGB565); !errors.Is(err, camera.ErrUnknownPixelFormat) {
		t.Errorf("rgb565: got %v", err)
	}
	if err := supported(camera.PixelFormatYUV422); err == nil {
		t.Error("yuv422 should be rejected")
	}
	for _, f := range []camera.PixelFormat{camera.PixelFormatJPEG, camera.PixelFormatBGR888, camera.PixelFormatRGB888, camera.PixelFormatGrayscale} {
		if err := supported(f); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
}

// TestOpen_MissingDevice tests error handling for a device that does not exist
func TestOpen_MissingDevice(t *testing.T) {
	if _, err := Open("/nonexistent/video99", camera.DefaultSettings()); err == nil {
		t.Error("expected error opening a missing device")
	}
}
