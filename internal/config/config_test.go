package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 80 {
		t.Errorf("port = %d, want 80", cfg.Server.Port)
	}
	if cfg.Server.MaxHandlers != 16 {
		t.Errorf("max handlers = %d, want 16", cfg.Server.MaxHandlers)
	}
	if cfg.Camera.Driver != DriverTestPattern || cfg.Camera.Quality != 80 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("defaults invalid: %v", errs)
	}
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "camhttpd.yaml")
	data := `
server:
  port: 8080
  status_interval: 250ms
camera:
  driver: replay
  dir: /var/lib/frames
  frame_size: qvga
  pixel_format: rgb565
  quality: 60
log:
  format: json
`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 || time.Duration(cfg.Server.StatusInterval) != 250*time.Millisecond {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Camera.Driver != DriverReplay || cfg.Camera.Dir != "/var/lib/frames" {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.FrameSize != "qvga" || cfg.Camera.PixelFormat != "rgb565" || cfg.Camera.Quality != 60 {
		t.Errorf("settings = %+v", cfg.Camera.Settings)
	}
	// Unset keys keep their defaults.
	if cfg.Server.MaxHandlers != 16 || cfg.Camera.FBCount != 2 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "camhttpd.json")
	data := `{"server": {"port": 9000, "shutdown_timeout": "2s"}, "camera": {"framerate": 30, "vflip": true}}`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 || time.Duration(cfg.Server.ShutdownTimeout) != 2*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Camera.Framerate != 30 || !cfg.Camera.VFlip {
		t.Errorf("camera = %+v", cfg.Camera)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	file := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(file, []byte("server:\n  status_interval: soon\n"), 0o644)
	if _, err := Load(file); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CAMHTTPD_PORT", "8081")
	t.Setenv("CAMHTTPD_CAMERA", "opencv")
	t.Setenv("CAMHTTPD_DEVICE", "/dev/video2")
	t.Setenv("CAMHTTPD_FPS", "25")
	t.Setenv("CAMHTTPD_HMIRROR", "true")
	t.Setenv("CAMHTTPD_GRAB_TIMEOUT", "1s")
	t.Setenv("CAMHTTPD_QUALITY", "not-a-number")

	cfg := Default()
	FromEnv(&cfg)

	if cfg.Server.Port != 8081 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Camera.Driver != DriverOpenCV || cfg.Camera.Device != "/dev/video2" {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.Framerate != 25 || !cfg.Camera.HMirror {
		t.Errorf("settings = %+v", cfg.Camera.Settings)
	}
	if time.Duration(cfg.Camera.GrabTimeout) != time.Second {
		t.Errorf("grab timeout = %v", cfg.Camera.GrabTimeout)
	}
	if cfg.Camera.Quality != 80 {
		t.Errorf("unparseable quality should be ignored, got %d", cfg.Camera.Quality)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Camera.Driver = "webcam"
	cfg.Camera.Encoder = "hw"
	cfg.Camera.Quality = 0
	cfg.Server.MaxHandlers = 0

	errs := cfg.Validate()
	if len(errs) != 4 {
		t.Fatalf("got %d errors, want 4: %v", len(errs), errs)
	}
	joined := strings.Join(errs, "\n")
	for _, want := range []string{"max_handlers", "camera.driver", "camera.encoder", "quality"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %v", want, errs)
		}
	}

	cfg = Default()
	cfg.Camera.Driver = DriverReplay
	if errs := cfg.Validate(); len(errs) != 1 {
		t.Errorf("replay without dir: %v", errs)
	}
}

func TestServerConfigWeb(t *testing.T) {
	cfg := Default()
	cfg.Server.AccessLog = true
	w := cfg.Server.Web()
	if w.Port != 80 || w.StatusInterval != time.Second || !w.AccessLog {
		t.Errorf("web config = %+v", w)
	}
}

func TestYAMLRoundTripKeepsDurations(t *testing.T) {
	cfg := Default()
	cfg.Server.StatusInterval = Duration(1500 * time.Millisecond)

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "status_interval: 1.5s") {
		t.Errorf("durations should be written as strings:\n%s", out)
	}

	var back Config
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Server.StatusInterval != cfg.Server.StatusInterval || back.Camera.Settings != cfg.Camera.Settings {
		t.Errorf("round trip = %+v", back)
	}
}
