// Package mjpeg serves camera frames as Motion-JPEG.
//
// A Streamer pulls frames from a camera.Driver, transcodes non-JPEG frames
// and hands each JPEG to a Sink until the sink fails. The multipart sink
// frames every JPEG as
//
//	--frame\r\n
//	Content-Type: image/jpeg\r\n\r\n
//	<jpeg bytes>\r\n
//
// using four separate chunk writes, for use with a
// "multipart/x-mixed-replace; boundary=frame" response.
//
// Each iteration returns the frame buffer and releases the transcode buffer
// before the next frame is acquired, on success and on every failure path.
package mjpeg
