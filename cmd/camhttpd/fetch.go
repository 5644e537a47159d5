package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-camhttpd/internal/httpc"
	"github.com/teslashibe/go-camhttpd/internal/log"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a still from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			out, _ := cmd.Flags().GetString("output")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			logger := log.Configure(log.Options{Level: level, Format: format, Output: os.Stderr})

			var w io.Writer = os.Stdout
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, ct, err := httpc.Download(cmd.Context(), httpc.NewClient(timeout), url, w)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", url, err)
			}
			logger.Info("fetched", "url", url, "bytes", n, "content_type", ct, "output", out)
			return nil
		},
	}
	cmd.Flags().String("url", "http://localhost/jpg", "still URL")
	cmd.Flags().StringP("output", "o", "capture.jpg", "output file, - for stdout")
	cmd.Flags().Duration("timeout", httpc.DefaultTimeout, "request timeout")
	return cmd
}
