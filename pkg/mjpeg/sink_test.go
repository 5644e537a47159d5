package mjpeg

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

type failAfterWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *failAfterWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.limit {
		return 0, errBrokenPipe
	}
	return w.buf.Write(p)
}

func TestFlushingChunkWriter_FlushesEveryChunk(t *testing.T) {
	var out bytes.Buffer
	bw := bufio.NewWriterSize(&out, 4096)
	cw := NewFlushingChunkWriter(bw)

	if err := cw.WriteChunk([]byte("--frame\r\n")); err != nil {
		t.Fatal(err)
	}
	if out.String() != "--frame\r\n" {
		t.Errorf("chunk not flushed: %q", out.String())
	}
}

func TestFlushingChunkWriter_ReportsDeadPeer(t *testing.T) {
	dst := &failAfterWriter{limit: 12}
	mw := NewMultipartWriter(NewFlushingChunkWriter(bufio.NewWriter(dst)))

	err := mw.WriteFrame([]byte{0xff, 0xd8, 0xff, 0xd9})
	if !errors.Is(err, errBrokenPipe) {
		t.Fatalf("got %v, want broken pipe", err)
	}
	if dst.buf.String() != "--frame\r\n" {
		t.Errorf("only the boundary should have reached the peer, got %q", dst.buf.String())
	}
}

func TestContentType(t *testing.T) {
	if ContentType != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("ContentType = %q", ContentType)
	}
}
