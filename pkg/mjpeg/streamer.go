package mjpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
	"github.com/teslashibe/go-camhttpd/pkg/transcode"
)

// Tuning supplies the values a stream reads on every frame.
// camera.Manager implements it.
type Tuning interface {
	Quality() int
	Framerate() int
}

type fixedTuning struct{ quality, fps int }

func (f fixedTuning) Quality() int   { return f.quality }
func (f fixedTuning) Framerate() int { return f.fps }

// Streamer produces JPEG frames from a camera driver.
type Streamer struct {
	cam    camera.Driver
	enc    transcode.Encoder
	tuning Tuning
	logger *slog.Logger
	stats  *Stats
}

// Option is a functional option for configuring a Streamer.
type Option func(*Streamer)

// WithEncoder sets the encoder used for non-JPEG frames.
func WithEncoder(enc transcode.Encoder) Option {
	return func(s *Streamer) {
		s.enc = enc
	}
}

// WithTuning sets where quality and frame-rate cap are read from.
func WithTuning(t Tuning) Option {
	return func(s *Streamer) {
		s.tuning = t
	}
}

// WithQuality fixes the JPEG quality and disables the frame-rate cap.
func WithQuality(q int) Option {
	return func(s *Streamer) {
		s.tuning = fixedTuning{quality: q}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Streamer) {
		s.logger = logger
	}
}

// WithStats shares a stats collector between streamers.
func WithStats(stats *Stats) Option {
	return func(s *Streamer) {
		s.stats = stats
	}
}

// New creates a Streamer for cam. By default it transcodes with
// transcode.JPEGEncoder at camera.DefaultJPEGQuality and has no frame-rate cap.
func New(cam camera.Driver, opts ...Option) *Streamer {
	s := &Streamer{
		cam:    cam,
		tuning: fixedTuning{quality: camera.DefaultJPEGQuality},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.enc == nil {
		s.enc = transcode.NewJPEGEncoder()
	}
	if s.stats == nil {
		s.stats = &Stats{}
	}
	return s
}

// Stats returns the streamer's counters.
func (s *Streamer) Stats() *Stats {
	return s.stats
}

// Camera returns the driver frames are pulled from.
func (s *Streamer) Camera() camera.Driver {
	return s.cam
}

// Framerate returns the current frame-rate cap (0 = unlimited).
func (s *Streamer) Framerate() int {
	return s.tuning.Framerate()
}

// Stream sends frames to sink until the sink fails, capture or transcode
// fails, or ctx is done. It never returns nil.
func (s *Streamer) Stream(ctx context.Context, sink Sink) error {
	s.stats.ActiveStreams.Add(1)
	defer s.stats.ActiveStreams.Add(-1)

	log := s.logger.With("stream", uuid.NewString())
	log.Debug("stream started")

	var (
		limiter *rate.Limiter
		fps     int
		frames  int
	)

	for {
		if err := ctx.Err(); err != nil {
			log.Debug("stream cancelled", "frames", frames)
			return err
		}

		if cur := s.tuning.Framerate(); cur != fps {
			fps = cur
			switch {
			case fps <= 0:
				limiter = nil
			case limiter == nil:
				limiter = rate.NewLimiter(rate.Limit(fps), 1)
			default:
				limiter.SetLimit(rate.Limit(fps))
			}
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := s.withJPEG(ctx, log, func(jpg []byte) error {
			if err := sink.WriteFrame(jpg); err != nil {
				return fmt.Errorf("%w: %w", ErrClientGone, err)
			}
			s.stats.FramesSent.Add(1)
			s.stats.BytesSent.Add(int64(len(jpg)))
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrClientGone) {
				s.stats.Disconnects.Add(1)
				log.Info("client disconnected", "frames", frames, "error", err)
			}
			return err
		}
		frames++
	}
}

// Capture takes one still. fn receives the JPEG bytes, which are only valid
// during the call; the frame and any transcode buffer are released afterwards.
func (s *Streamer) Capture(ctx context.Context, fn func(jpg []byte) error) error {
	err := s.withJPEG(ctx, s.logger, fn)
	if err == nil {
		s.stats.Stills.Add(1)
	}
	return err
}

// withJPEG acquires one frame, transcodes it when needed and calls fn.
// The frame is returned and the transcode buffer released on every path.
func (s *Streamer) withJPEG(ctx context.Context, log *slog.Logger, fn func(jpg []byte) error) error {
	fb, err := s.cam.Get(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.stats.CaptureErrors.Add(1)
		log.Error("camera capture failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCapture, err)
	}
	defer s.cam.Return(fb)

	if fb.Format == camera.PixelFormatJPEG {
		return fn(fb.Buf)
	}

	buf, err := s.enc.Encode(fb, s.tuning.Quality())
	if err != nil {
		s.stats.TranscodeErrors.Add(1)
		log.Error("JPEG compression failed", "format", fb.Format.String(), "error", err)
		return fmt.Errorf("%w: %w", ErrTranscode, err)
	}
	defer buf.Release()
	s.stats.Transcoded.Add(1)

	return fn(buf.Bytes())
}
