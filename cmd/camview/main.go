// Camview - desktop live view for a single camera
//
// Opens a camera (USB index, V4L2 device, MJPEG/WebSocket/WebRTC URL)
// in a window. Escape closes. With -overlay the detected chessboard is
// drawn on each frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/calib"
	"github.com/camtk/stereocam/pkg/capture"
	"github.com/camtk/stereocam/pkg/viewer"
)

func main() {
	capCfg, viewCfg, debug := parseFlags()

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

	view, err := viewer.New(viewCfg, runner)
	if err != nil {
		log.Error("viewer setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := view.Run(ctx); err != nil {
		log.Error("viewer ended", "error", err)
		os.Exit(1)
	}
}

func parseFlags() (capture.Config, viewer.Config, bool) {
	source := flag.String("source", "", "Camera source: device index, /dev/videoN or http/ws/webrtc URL")
	preset := flag.String("preset", "", "Capture preset: "+strings.Join(capture.PresetNames(), ", "))
	width := flag.Int("width", 0, "Requested frame width")
	height := flag.Int("height", 0, "Requested frame height")
	fps := flag.Float64("fps", 0, "Requested capture rate")
	gray := flag.Bool("gray", false, "Capture grayscale frames")
	overlay := flag.Bool("overlay", false, "Draw detected chessboard corners")
	rows := flag.Int("rows", 15, "Chessboard rows for -overlay")
	cols := flag.Int("cols", 10, "Chessboard columns for -overlay")
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

	viewCfg := viewer.DefaultConfig()
	viewCfg.Title = "camview - " + capCfg.Device
	viewCfg.Overlay = *overlay
	viewCfg.Board = calib.Board{Rows: *rows, Cols: *cols, SquareSize: 1.0}

	return capCfg, viewCfg, *debug
}
