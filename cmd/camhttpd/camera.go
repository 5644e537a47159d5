package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-camhttpd/internal/config"
	"github.com/teslashibe/go-camhttpd/pkg/camera"
	"github.com/teslashibe/go-camhttpd/pkg/camera/opencv"
	"github.com/teslashibe/go-camhttpd/pkg/camera/replay"
	"github.com/teslashibe/go-camhttpd/pkg/camera/testpattern"
	"github.com/teslashibe/go-camhttpd/pkg/mjpeg"
	"github.com/teslashibe/go-camhttpd/pkg/transcode"
)

// pipeline is an opened camera with its settings manager and streamer.
type pipeline struct {
	cam      camera.Driver
	settings *camera.Manager
	streamer *mjpeg.Streamer
}

func (p *pipeline) Close() error {
	return p.cam.Close()
}

// openPipeline opens the configured driver and wires the settings manager to
// it, so a settings change is applied to the hardware before it is stored.
func openPipeline(cc config.CameraConfig, logger *slog.Logger) (*pipeline, error) {
	cam, err := openCamera(cc, logger)
	if err != nil {
		return nil, err
	}

	settings := camera.NewManager(cc.Settings)
	if c, ok := cam.(camera.Configurable); ok {
		settings.OnChange = c.Apply
	}

	streamer := mjpeg.New(cam,
		mjpeg.WithEncoder(newEncoder(cc.Encoder)),
		mjpeg.WithTuning(settings),
		mjpeg.WithLogger(logger),
	)

	return &pipeline{cam: cam, settings: settings, streamer: streamer}, nil
}

func openCamera(cc config.CameraConfig, logger *slog.Logger) (camera.Driver, error) {
	timeout := time.Duration(cc.GrabTimeout)
	var interval time.Duration
	if cc.SensorFPS > 0 {
		interval = time.Second / time.Duration(cc.SensorFPS)
	}

	switch cc.Driver {
	case config.DriverTestPattern:
		d, err := testpattern.New(cc.Settings,
			testpattern.WithGrabTimeout(timeout),
			testpattern.WithFrameInterval(interval),
		)
		if err != nil {
			return nil, err
		}
		return d, nil

	case config.DriverReplay:
		d, err := replay.New(cc.Dir,
			replay.WithLoop(cc.Loop),
			replay.WithGrabTimeout(timeout),
			replay.WithFBCount(cc.FBCount),
			replay.WithFrameInterval(interval),
		)
		if err != nil {
			return nil, err
		}
		logger.Info("replaying recording", "dir", cc.Dir, "frames", d.Len(), "loop", cc.Loop)
		return d, nil

	case config.DriverOpenCV:
		d, err := opencv.Open(cc.Device, cc.Settings,
			opencv.WithGrabTimeout(timeout),
			opencv.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown camera driver %q", cc.Driver)
}

func newEncoder(name string) transcode.Encoder {
	if name == config.EncoderOpenCV {
		return opencv.NewEncoder()
	}
	return transcode.NewJPEGEncoder()
}
