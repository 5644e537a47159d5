package mjpeg

import "io"

// Boundary is the multipart boundary used by the stream.
const Boundary = "frame"

// ContentType is the response content type of an MJPEG stream.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

var (
	partBoundary = []byte("--" + Boundary + "\r\n")
	partHeader   = []byte("Content-Type: image/jpeg\r\n\r\n")
	partTrailer  = []byte("\r\n")
)

// Sink receives encoded frames. A non-nil error ends the stream.
type Sink interface {
	WriteFrame(jpg []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(jpg []byte) error

// WriteFrame calls f.
func (f SinkFunc) WriteFrame(jpg []byte) error { return f(jpg) }

// ChunkWriter sends one chunk of a chunked HTTP response.
type ChunkWriter interface {
	WriteChunk(p []byte) error
}

// ChunkWriterFunc adapts a function to ChunkWriter.
type ChunkWriterFunc func(p []byte) error

// WriteChunk calls f.
func (f ChunkWriterFunc) WriteChunk(p []byte) error { return f(p) }

// MultipartWriter frames JPEGs as multipart parts over a ChunkWriter.
type MultipartWriter struct {
	w ChunkWriter
}

// NewMultipartWriter creates a multipart sink.
func NewMultipartWriter(w ChunkWriter) *MultipartWriter {
	return &MultipartWriter{w: w}
}

// WriteFrame writes boundary, part header, JPEG and trailing CRLF as four chunks,
// stopping at the first failure.
func (m *MultipartWriter) WriteFrame(jpg []byte) error {
	if err := m.w.WriteChunk(partBoundary); err != nil {
		return err
	}
	if err := m.w.WriteChunk(partHeader); err != nil {
		return err
	}
	if err := m.w.WriteChunk(jpg); err != nil {
		return err
	}
	return m.w.WriteChunk(partTrailer)
}

// FlushWriter is a buffered writer such as *bufio.Writer.
type FlushWriter interface {
	io.Writer
	Flush() error
}

// FlushingChunkWriter writes each chunk and flushes it to the connection
// immediately, so a dead peer surfaces as an error on that chunk.
type FlushingChunkWriter struct {
	w FlushWriter
}

// NewFlushingChunkWriter wraps w.
func NewFlushingChunkWriter(w FlushWriter) *FlushingChunkWriter {
	return &FlushingChunkWriter{w: w}
}

// WriteChunk writes p and flushes.
func (f *FlushingChunkWriter) WriteChunk(p []byte) error {
	if _, err := f.w.Write(p); err != nil {
		return err
	}
	return f.w.Flush()
}
