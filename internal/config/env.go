package config

import (
	"os"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable FromEnv reads.
const EnvPrefix = "CAMHTTPD_"

// FromEnv overlays CAMHTTPD_* environment variables onto cfg.
// Unparseable values are ignored.
func FromEnv(cfg *Config) {
	envInt("PORT", &cfg.Server.Port)
	envInt("MAX_HANDLERS", &cfg.Server.MaxHandlers)
	envBool("ACCESS_LOG", &cfg.Server.AccessLog)
	envDuration("STATUS_INTERVAL", &cfg.Server.StatusInterval)

	envString("CAMERA", &cfg.Camera.Driver)
	envString("DEVICE", &cfg.Camera.Device)
	envString("DIR", &cfg.Camera.Dir)
	envBool("LOOP", &cfg.Camera.Loop)
	envString("ENCODER", &cfg.Camera.Encoder)
	envDuration("GRAB_TIMEOUT", &cfg.Camera.GrabTimeout)
	envInt("SENSOR_FPS", &cfg.Camera.SensorFPS)

	envString("FRAME_SIZE", &cfg.Camera.FrameSize)
	envString("PIXEL_FORMAT", &cfg.Camera.PixelFormat)
	envInt("QUALITY", &cfg.Camera.Quality)
	envInt("FPS", &cfg.Camera.Framerate)
	envInt("FB_COUNT", &cfg.Camera.FBCount)
	envBool("HMIRROR", &cfg.Camera.HMirror)
	envBool("VFLIP", &cfg.Camera.VFlip)

	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FORMAT", &cfg.Log.Format)
}

func envString(key string, dst *string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
