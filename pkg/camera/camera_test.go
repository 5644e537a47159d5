package camera

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPixelFormat_RoundTrip(t *testing.T) {
	for f, name := range pixelFormatNames {
		got, err := ParsePixelFormat(name)
		if err != nil {
			t.Fatalf("ParsePixelFormat(%q): %v", name, err)
		}
		if got != f {
			t.Errorf("ParsePixelFormat(%q) = %v, want %v", name, got, f)
		}
	}

	if got, _ := ParsePixelFormat("GRAY"); got != PixelFormatGrayscale {
		t.Errorf("gray alias: got %v", got)
	}
	if _, err := ParsePixelFormat("webp"); !errors.Is(err, ErrUnknownPixelFormat) {
		t.Errorf("expected ErrUnknownPixelFormat, got %v", err)
	}
}

func TestPixelFormat_BytesPerPixel(t *testing.T) {
	tests := map[PixelFormat]int{
		PixelFormatJPEG:      0,
		PixelFormatRGB565:    2,
		PixelFormatYUV422:    2,
		PixelFormatGrayscale: 1,
		PixelFormatRGB888:    3,
		PixelFormatBGR888:    3,
	}
	for f, want := range tests {
		if got := f.BytesPerPixel(); got != want {
			t.Errorf("%v.BytesPerPixel() = %d, want %d", f, got, want)
		}
	}
}

func TestSlots_ExhaustionFailsWithNoFrame(t *testing.T) {
	s := NewSlots(2, 20*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if got := s.Outstanding(); got != 2 {
		t.Fatalf("Outstanding = %d, want 2", got)
	}

	start := time.Now()
	err := s.Acquire(ctx)
	if !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Errorf("Acquire returned before the grab timeout")
	}

	s.Release()
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestSlots_ContextCancel(t *testing.T) {
	s := NewSlots(1, time.Minute)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSlots_DoubleReleasePanics(t *testing.T) {
	s := NewSlots(1, time.Second)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on double release")
		}
	}()
	s.Release()
}

func TestSettings_Validate(t *testing.T) {
	s := DefaultSettings()
	if errs := s.Validate(); len(errs) != 0 {
		t.Fatalf("default settings invalid: %v", errs)
	}

	s.Quality = 0
	s.FrameSize = "8k"
	s.FBCount = 9
	s.Brightness = 3
	if errs := s.Validate(); len(errs) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(errs), errs)
	}
}

func TestSettings_Size(t *testing.T) {
	s := DefaultSettings()
	w, h, err := s.Size()
	if err != nil {
		t.Fatal(err)
	}
	if w != 640 || h != 480 {
		t.Errorf("got %dx%d, want 640x480", w, h)
	}
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		p := GetPreset(name)
		if p == nil {
			t.Fatalf("preset %q missing", name)
		}
		if errs := p.Validate(); len(errs) != 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestManager_UpdateAppliesCallback(t *testing.T) {
	m := NewManager(DefaultSettings())

	var applied Settings
	m.OnChange = func(s Settings) error {
		applied = s
		return nil
	}

	err := m.Update(map[string]interface{}{
		"quality":      float64(42),
		"pixel_format": "rgb565",
		"vflip":        true,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got := m.Settings()
	if got.Quality != 42 || got.PixelFormat != "rgb565" || !got.VFlip {
		t.Errorf("unexpected settings: %+v", got)
	}
	if applied != got {
		t.Errorf("callback got %+v, want %+v", applied, got)
	}
}

func TestManager_PresetThenOverride(t *testing.T) {
	m := NewManager(DefaultSettings())
	if err := m.Update(map[string]interface{}{"preset": PresetLow, "quality": float64(70)}); err != nil {
		t.Fatal(err)
	}
	got := m.Settings()
	if got.FrameSize != "qvga" || got.Quality != 70 {
		t.Errorf("got %+v", got)
	}
}

func TestManager_RejectsInvalid(t *testing.T) {
	m := NewManager(DefaultSettings())
	before := m.Settings()

	err := m.Update(map[string]interface{}{"quality": float64(500)})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if m.Settings() != before {
		t.Error("settings changed after a rejected update")
	}

	if err := m.Update(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestMock_TracksOutstanding(t *testing.T) {
	m := NewMock(FrameBuffer{Buf: []byte{1, 2, 3}, Format: PixelFormatJPEG})
	ctx := context.Background()

	a, _ := m.Get(ctx)
	b, _ := m.Get(ctx)
	if m.Outstanding() != 2 {
		t.Fatalf("Outstanding = %d, want 2", m.Outstanding())
	}
	if a.Seq == b.Seq {
		t.Error("frames should have distinct sequence numbers")
	}

	m.Return(a)
	m.Return(a)
	m.Return(b)
	if m.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", m.Outstanding())
	}
	if m.BadReturns() != 1 {
		t.Errorf("BadReturns = %d, want 1", m.BadReturns())
	}
}

func TestManager_DriverRejectionKeepsOldSettings(t *testing.T) {
	m := NewManager(DefaultSettings())
	m.OnChange = func(Settings) error { return errors.New("sensor busy") }

	err := m.Update(map[string]interface{}{"frame_size": "qvga"})
	if err == nil || errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("got %v, want an apply failure", err)
	}
	if m.Settings().FrameSize != "vga" {
		t.Errorf("FrameSize = %s, want vga", m.Settings().FrameSize)
	}
}
