package camera

import (
	"fmt"
	"strings"
)

// FrameSize is a named sensor output resolution.
type FrameSize struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Frame sizes supported by the drivers, smallest first.
var frameSizes = []FrameSize{
	{"qqvga", 160, 120},
	{"qvga", 320, 240},
	{"cif", 400, 296},
	{"vga", 640, 480},
	{"svga", 800, 600},
	{"xga", 1024, 768},
	{"hd", 1280, 720},
	{"sxga", 1280, 1024},
	{"uxga", 1600, 1200},
}

// FrameSizes returns every supported frame size.
func FrameSizes() []FrameSize {
	out := make([]FrameSize, len(frameSizes))
	copy(out, frameSizes)
	return out
}

// LookupFrameSize finds a frame size by name (case-insensitive).
func LookupFrameSize(name string) (FrameSize, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, fs := range frameSizes {
		if fs.Name == n {
			return fs, nil
		}
	}
	return FrameSize{}, fmt.Errorf("%w: %q", ErrUnknownFrameSize, name)
}

// Settings holds all camera parameters.
// These can be modified via the camera API at runtime.
type Settings struct {
	// === Output ===
	FrameSize   string `json:"frame_size" yaml:"frame_size"`     // One of FrameSizes()
	PixelFormat string `json:"pixel_format" yaml:"pixel_format"` // jpeg, rgb565, yuv422, grayscale, rgb888, bgr888
	Quality     int    `json:"quality" yaml:"quality"`           // JPEG quality 1-100 used when transcoding
	Framerate   int    `json:"framerate" yaml:"framerate"`       // Stream cap in FPS, 0 = unlimited

	// === Image tuning (-2 to +2) ===
	Brightness int `json:"brightness" yaml:"brightness"`
	Contrast   int `json:"contrast" yaml:"contrast"`
	Saturation int `json:"saturation" yaml:"saturation"`

	// === Orientation ===
	HMirror bool `json:"hmirror" yaml:"hmirror"`
	VFlip   bool `json:"vflip" yaml:"vflip"`

	// FBCount is how many frame buffers the driver owns (1 to 4).
	FBCount int `json:"fb_count" yaml:"fb_count"`
}

// Limits
const (
	MaxFramerate       = 120
	MaxFBCount         = 4
	DefaultJPEGQuality = 80
)

// DefaultSettings returns a VGA JPEG configuration capped at 60 FPS.
func DefaultSettings() Settings {
	return Settings{
		FrameSize:   "vga",
		PixelFormat: PixelFormatJPEG.String(),
		Quality:     DefaultJPEGQuality,
		Framerate:   60,
		FBCount:     2,
	}
}

// Size resolves FrameSize to pixel dimensions.
func (s Settings) Size() (width, height int, err error) {
	fs, err := LookupFrameSize(s.FrameSize)
	if err != nil {
		return 0, 0, err
	}
	return fs.Width, fs.Height, nil
}

// Format resolves PixelFormat.
func (s Settings) Format() (PixelFormat, error) {
	return ParsePixelFormat(s.PixelFormat)
}

// Validate checks if the settings are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (s *Settings) Validate() []string {
	var errs []string

	if _, err := LookupFrameSize(s.FrameSize); err != nil {
		errs = append(errs, "frame_size must be one of "+strings.Join(frameSizeNames(), ", "))
	}
	if _, err := ParsePixelFormat(s.PixelFormat); err != nil {
		errs = append(errs, "pixel_format must be jpeg, rgb565, yuv422, grayscale, rgb888 or bgr888")
	}
	if s.Quality < 1 || s.Quality > 100 {
		errs = append(errs, "quality must be between 1 and 100")
	}
	if s.Framerate < 0 || s.Framerate > MaxFramerate {
		errs = append(errs, "framerate must be between 0 (unlimited) and 120")
	}
	if s.Brightness < -2 || s.Brightness > 2 {
		errs = append(errs, "brightness must be between -2 and 2")
	}
	if s.Contrast < -2 || s.Contrast > 2 {
		errs = append(errs, "contrast must be between -2 and 2")
	}
	if s.Saturation < -2 || s.Saturation > 2 {
		errs = append(errs, "saturation must be between -2 and 2")
	}
	if s.FBCount < 1 || s.FBCount > MaxFBCount {
		errs = append(errs, "fb_count must be between 1 and 4")
	}

	return errs
}

func frameSizeNames() []string {
	names := make([]string, len(frameSizes))
	for i, fs := range frameSizes {
		names[i] = fs.Name
	}
	return names
}
