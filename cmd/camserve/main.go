// Camserve - headless camera streaming server
//
// Captures one camera and serves it over HTTP: an MJPEG stream for
// browsers, a WebSocket frame feed, and snapshot endpoints. Shuts down
// cleanly on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/capture"
	"github.com/camtk/stereocam/pkg/web"
)

func main() {
	capCfg, webCfg, debug := parseFlags()

	level := "info"
	if debug {
		level = "debug"
	}
	log.Init(level)

	src, err := capture.New(capCfg)
	if err != nil {
		log.Error("source setup failed", "error", err)
		os.Exit(1)
	}
	runner := capture.NewRunner(src, capCfg)

	srv, err := web.NewServer(webCfg, runner)
	if err != nil {
		log.Error("server setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runnerErr := make(chan error, 1)
	go func() {
		runnerErr <- runner.Run(ctx)
		cancel()
	}()

	srvErr := srv.Run(ctx)

	failed := false
	if err := <-runnerErr; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("capture ended", "error", err)
		failed = true
	}
	if srvErr != nil && !errors.Is(srvErr, context.Canceled) {
		log.Error("server ended", "error", srvErr)
		failed = true
	}
	if failed {
		os.Exit(1)
	}
}

func parseFlags() (capture.Config, web.Config, bool) {
	source := flag.String("source", "", "Camera source: device index, /dev/videoN or http/ws/webrtc URL")
	preset := flag.String("preset", "", "Capture preset: "+strings.Join(capture.PresetNames(), ", "))
	width := flag.Int("width", 0, "Requested frame width")
	height := flag.Int("height", 0, "Requested frame height")
	fps := flag.Float64("fps", 0, "Requested capture rate")
	gray := flag.Bool("gray", false, "Capture grayscale frames")
	port := flag.String("port", "", "HTTP listen port")
	quality := flag.Int("quality", 0, "JPEG stream quality (1-100)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for saved snapshots")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	capCfg := capture.DefaultConfig()
	if *preset != "" {
		if p := capture.GetPreset(*preset); p != nil {
			capCfg = *p
		} else {
			fmt.Fprintf(os.Stderr, "unknown preset %q (available: %s)\n", *preset, strings.Join(capture.PresetNames(), ", "))
			os.Exit(2)
		}
	}
	capCfg = capCfg.FromEnv()
	if *source != "" {
		capCfg.Device = *source
	}
	if *width > 0 {
		capCfg.Width = *width
	}
	if *height > 0 {
		capCfg.Height = *height
	}
	if *fps > 0 {
		capCfg.FPS = *fps
	}
	if *gray {
		capCfg.Grayscale = true
	}

	webCfg := web.DefaultConfig().FromEnv()
	webCfg.Debug = *debug
	if *port != "" {
		webCfg.Port = *port
	}
	if *quality > 0 {
		webCfg.Quality = *quality
	}
	if *snapshotDir != "" {
		webCfg.SnapshotDir = *snapshotDir
	}

	return capCfg, webCfg, *debug
}
