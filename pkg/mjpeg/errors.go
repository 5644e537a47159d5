package mjpeg

import "errors"

// Sentinel errors for the two failure kinds of a request plus disconnects.
var (
	// ErrCapture is returned when the camera driver produced no frame.
	ErrCapture = errors.New("mjpeg: capture failed")

	// ErrTranscode is returned when a raw frame could not be encoded as JPEG.
	ErrTranscode = errors.New("mjpeg: transcode failed")

	// ErrClientGone is returned when a chunk write fails, usually because the client disconnected.
	ErrClientGone = errors.New("mjpeg: client disconnected")
)
