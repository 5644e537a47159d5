package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-camhttpd/pkg/mjpeg"
)

func newSnapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snap",
		Short: "Capture JPEG stills without starting the server",
		Long: `Capture one still to a file (or stdout with -o -), or with --count N
record a numbered sequence into a directory that the replay driver can play back.`,
		RunE: runSnap,
	}
	cmd.Flags().StringP("output", "o", "capture.jpg", "output file, directory when --count > 1, - for stdout")
	cmd.Flags().Int("count", 1, "number of stills to capture")
	cmd.Flags().Duration("interval", 0, "delay between stills")
	cmd.Flags().Duration("timeout", 10*time.Second, "timeout per still")
	addCameraFlags(cmd)
	return cmd
}

func runSnap(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("output")
	count, _ := cmd.Flags().GetInt("count")
	interval, _ := cmd.Flags().GetDuration("interval")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	p, err := openPipeline(cfg.Camera, logger)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer p.Close()

	if count <= 1 {
		return snapOne(cmd.Context(), p.streamer, out, timeout)
	}

	if out == "-" {
		return fmt.Errorf("--count > 1 needs a directory, not stdout")
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if i > 0 && interval > 0 {
			time.Sleep(interval)
		}
		name := filepath.Join(out, fmt.Sprintf("%06d.jpg", i))
		if err := snapOne(cmd.Context(), p.streamer, name, timeout); err != nil {
			return err
		}
	}
	logger.Info("recorded stills", "dir", out, "count", count)
	return nil
}

func snapOne(ctx context.Context, s *mjpeg.Streamer, path string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.Capture(ctx, func(jpg []byte) error {
		if path == "-" {
			_, err := os.Stdout.Write(jpg)
			return err
		}
		return os.WriteFile(path, jpg, 0o644)
	})
}
