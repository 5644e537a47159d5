package transcode

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrShortFrame is returned when a frame holds fewer bytes than its size and format need.
	ErrShortFrame = errors.New("transcode: frame buffer too short")

	// ErrBadDimensions is returned for zero or negative frame sizes, or odd widths in YUV422.
	ErrBadDimensions = errors.New("transcode: bad frame dimensions")

	// ErrUnsupportedFormat is returned for pixel formats the encoder cannot read.
	ErrUnsupportedFormat = errors.New("transcode: unsupported pixel format")
)
