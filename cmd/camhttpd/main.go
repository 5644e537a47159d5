// Command camhttpd serves a camera over HTTP as single JPEG stills, an MJPEG
// multipart stream and WebSocket feeds.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "camhttpd",
		Short:         "Camera HTTP streaming server",
		Long:          "camhttpd captures frames from a camera and serves them as JPEG stills and MJPEG streams.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (.yaml or .json)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")

	rootCmd.AddCommand(newServeCmd(), newSnapCmd(), newFetchCmd(), newConfigCmd())
	return rootCmd
}
