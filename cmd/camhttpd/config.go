package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-camhttpd/internal/config"
	"github.com/teslashibe/go-camhttpd/internal/log"
)

// addCameraFlags registers the flags shared by serve and snap.
func addCameraFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("camera", "", "camera driver: testpattern, replay or opencv")
	f.String("device", "", "opencv device index or path")
	f.String("dir", "", "replay directory of JPEG files")
	f.String("encoder", "", "raw frame encoder: go or opencv")
	f.String("frame-size", "", "frame size name (qvga, vga, hd, ...)")
	f.String("pixel-format", "", "pixel format: jpeg, rgb565, yuv422, grayscale, rgb888")
	f.Int("quality", 0, "JPEG quality 1-100")
	f.Int("fps", 0, "maximum stream framerate, 0 for unlimited")
}

// loadConfig builds the effective configuration: defaults, config file,
// CAMHTTPD_* environment, then explicitly set flags. It also configures
// the global logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	config.FromEnv(&cfg)

	str := func(name string, dst *string) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}

	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	num("port", &cfg.Server.Port)
	str("camera", &cfg.Camera.Driver)
	str("device", &cfg.Camera.Device)
	str("dir", &cfg.Camera.Dir)
	str("encoder", &cfg.Camera.Encoder)
	str("frame-size", &cfg.Camera.FrameSize)
	str("pixel-format", &cfg.Camera.PixelFormat)
	num("quality", &cfg.Camera.Quality)
	num("fps", &cfg.Camera.Framerate)

	if errs := cfg.Validate(); len(errs) > 0 {
		return config.Config{}, nil, errors.New("invalid config:\n  " + strings.Join(errs, "\n  "))
	}

	// stdout may carry image data (snap -o -), so logs go to stderr.
	logger := log.Configure(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})
	return cfg, logger, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().Int("port", 0, "HTTP listen port")
	addCameraFlags(cmd)
	return cmd
}
