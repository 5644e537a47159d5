package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-camhttpd/pkg/mjpeg"
	"github.com/teslashibe/go-camhttpd/pkg/web"
)

// statsInterval is how often serve logs stream counters.
const statsInterval = time.Minute

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the camera HTTP server",
		Aliases: []string{"run"},
		RunE:    runServe,
	}
	cmd.Flags().Int("port", 0, "HTTP listen port")
	addCameraFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p, err := openPipeline(cfg.Camera, logger)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer p.Close()

	srv, err := web.NewServer(cfg.Server.Web(), p.streamer, p.settings,
		web.WithLogger(logger),
		web.WithCameraName(cfg.Camera.Driver),
	)
	if err != nil {
		return err
	}

	fmt.Printf("📷 camhttpd %s\n", version)
	fmt.Printf("   Camera:  %s (%s %s)\n", cfg.Camera.Driver, cfg.Camera.FrameSize, cfg.Camera.PixelFormat)
	fmt.Printf("   Stream:  http://localhost:%d/stream\n", cfg.Server.Port)
	fmt.Printf("   Still:   http://localhost:%d/jpg\n", cfg.Server.Port)
	fmt.Println()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		logStats(gctx, logger, p.streamer, statsInterval)
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped", "stats", p.streamer.Stats().Snapshot())
	return err
}

// logStats logs stream counters every interval while streams are active.
func logStats(ctx context.Context, logger *slog.Logger, s *mjpeg.Streamer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.Stats().Snapshot()
			if snap.ActiveStreams == 0 {
				continue
			}
			logger.Info("stream stats",
				"active", snap.ActiveStreams,
				"frames", snap.FramesSent,
				"bytes", snap.BytesSent,
				"capture_errors", snap.CaptureErrors,
			)
		}
	}
}
