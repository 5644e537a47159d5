// Package config loads camhttpd configuration from a file and the
// environment. Precedence is defaults, then file, then CAMHTTPD_* variables,
// then command-line flags (applied by the caller).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
	"github.com/teslashibe/go-camhttpd/pkg/web"
)

// Camera driver names.
const (
	DriverTestPattern = "testpattern"
	DriverReplay      = "replay"
	DriverOpenCV      = "opencv"
)

// Encoder names.
const (
	EncoderGo     = "go"
	EncoderOpenCV = "opencv"
)

// Config is the top-level configuration.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Camera CameraConfig `json:"camera" yaml:"camera"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `json:"port" yaml:"port"`
	MaxHandlers     int      `json:"max_handlers" yaml:"max_handlers"`
	StatusInterval  Duration `json:"status_interval" yaml:"status_interval"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	AccessLog       bool     `json:"access_log" yaml:"access_log"`
}

// CameraConfig selects and configures the camera driver.
type CameraConfig struct {
	Driver      string   `json:"driver" yaml:"driver"`   // testpattern, replay or opencv
	Device      string   `json:"device" yaml:"device"`   // opencv device index or path
	Dir         string   `json:"dir" yaml:"dir"`         // replay directory
	Loop        bool     `json:"loop" yaml:"loop"`       // replay restarts at the end
	Encoder     string   `json:"encoder" yaml:"encoder"` // go or opencv
	GrabTimeout Duration `json:"grab_timeout" yaml:"grab_timeout"`
	SensorFPS   int      `json:"sensor_fps" yaml:"sensor_fps"` // testpattern/replay frame production rate

	camera.Settings `yaml:",inline"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	w := web.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Port:            w.Port,
			MaxHandlers:     w.MaxHandlers,
			StatusInterval:  Duration(w.StatusInterval),
			ShutdownTimeout: Duration(w.ShutdownTimeout),
		},
		Camera: CameraConfig{
			Driver:      DriverTestPattern,
			Device:      "0",
			Loop:        true,
			Encoder:     EncoderGo,
			GrabTimeout: Duration(camera.DefaultGrabTimeout),
			SensorFPS:   30,
			Settings:    camera.DefaultSettings(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML or JSON file (by extension) on top of
// the defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		err = yaml.Unmarshal(b, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration and returns any errors found.
func (c Config) Validate() []string {
	var errs []string

	errs = append(errs, c.Server.Web().Validate()...)

	switch c.Camera.Driver {
	case DriverTestPattern, DriverOpenCV:
	case DriverReplay:
		if c.Camera.Dir == "" {
			errs = append(errs, "camera.dir is required for the replay driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("camera.driver must be %s, %s or %s, got %q",
			DriverTestPattern, DriverReplay, DriverOpenCV, c.Camera.Driver))
	}

	switch c.Camera.Encoder {
	case EncoderGo, EncoderOpenCV:
	default:
		errs = append(errs, fmt.Sprintf("camera.encoder must be %s or %s, got %q",
			EncoderGo, EncoderOpenCV, c.Camera.Encoder))
	}

	if c.Camera.SensorFPS < 0 {
		errs = append(errs, "camera.sensor_fps must not be negative")
	}

	errs = append(errs, c.Camera.Settings.Validate()...)
	return errs
}

// Web converts the server section to web.Config.
func (s ServerConfig) Web() web.Config {
	return web.Config{
		Port:            s.Port,
		MaxHandlers:     s.MaxHandlers,
		StatusInterval:  time.Duration(s.StatusInterval),
		ShutdownTimeout: time.Duration(s.ShutdownTimeout),
		AccessLog:       s.AccessLog,
	}
}

// Duration is a time.Duration written as "1s", "250ms" in config files.
type Duration time.Duration

// String formats d like time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON writes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "1s" style strings or integer nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("duration must be a string like \"1s\": %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes d as a duration string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts "1s" style strings.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}
