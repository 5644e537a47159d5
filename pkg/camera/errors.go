package camera

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrNoFrame is returned by Get when no frame could be captured in time.
	ErrNoFrame = errors.New("camera: no frame available")

	// ErrClosed is returned when using a driver after Close.
	ErrClosed = errors.New("camera: driver closed")

	// ErrUnknownPixelFormat is returned when parsing an unsupported pixel format name.
	ErrUnknownPixelFormat = errors.New("camera: unknown pixel format")

	// ErrUnknownFrameSize is returned when parsing an unsupported frame size name.
	ErrUnknownFrameSize = errors.New("camera: unknown frame size")

	// ErrInvalidSettings is returned when settings fail validation.
	ErrInvalidSettings = errors.New("camera: invalid settings")
)
