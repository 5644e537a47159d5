package main

import (
	"bytes"
	"context"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-camhttpd/internal/log"
	"github.com/teslashibe/go-camhttpd/pkg/camera"
	"github.com/teslashibe/go-camhttpd/pkg/mjpeg"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCmd_FlagsOverrideFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "camhttpd.yaml")
	os.WriteFile(file, []byte("server:\n  port: 9000\ncamera:\n  quality: 50\n"), 0o644)

	out, err := execute(t, "config", "--config", file, "--port", "8081", "--frame-size", "qvga")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"port: 8081", "quality: 50", "frame_size: qvga", "status_interval: 1s"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestConfigCmd_Invalid(t *testing.T) {
	_, err := execute(t, "config", "--camera", "replay")
	if err == nil || !strings.Contains(err.Error(), "camera.dir") {
		t.Fatalf("got %v, want camera.dir error", err)
	}
}

func TestSnap_RecordThenReplay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rec")
	if _, err := execute(t, "snap", "--frame-size", "qqvga", "--count", "3", "-o", dir); err != nil {
		t.Fatalf("record: %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if len(files) != 3 || filepath.Base(files[0]) != "000000.jpg" {
		t.Fatalf("recorded %v", files)
	}

	still := filepath.Join(t.TempDir(), "still.jpg")
	if _, err := execute(t, "snap", "--camera", "replay", "--dir", dir, "-o", still); err != nil {
		t.Fatalf("replay: %v", err)
	}
	f, err := os.Open(still)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("not a jpeg: %v", err)
	}
	if cfg.Width != 160 || cfg.Height != 120 {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSnap_CountToStdoutRejected(t *testing.T) {
	if _, err := execute(t, "snap", "--count", "2", "-o", "-"); err == nil {
		t.Error("expected error")
	}
}

func TestLogStats_StopsWithContext(t *testing.T) {
	s := mjpeg.New(camera.NewMock(camera.FrameBuffer{}))
	s.Stats().ActiveStreams.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		logStats(ctx, log.Discard(), s, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("logStats did not return")
	}
}
