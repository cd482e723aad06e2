// Stereocam - camera calibration toolkit
//
// Captures stereo cameras live, calibrates single cameras and stereo
// rigs from chessboard images, and undistorts images with the saved
// calibrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/calib"
	"github.com/camtk/stereocam/pkg/capture"
	"github.com/camtk/stereocam/pkg/store"
	"github.com/camtk/stereocam/pkg/viewer"
)

func main() {
	o := parseFlags()
	level := "info"
	if o.debug {
		level = "debug"
	}
	log.Init(level)

	var err error
	switch {
	case o.live:
		err = runLive(o)
	case o.mono != "":
		err = runMono(o)
	case o.stereo:
		err = runStereo(o)
	case o.undistort:
		err = runUndistort(o)
	case o.undistortStereo:
		err = runUndistortStereo(o)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	live            bool
	rows            int
	cols            int
	debug           bool
	mono            string
	stereo          bool
	output          bool
	left            bool
	right           bool
	undistort       bool
	undistortStereo bool

	square      float64
	dir         string
	json        bool
	images      string
	source      string
	source2     string
	overlay     bool
	snapshotDir string
}

func parseFlags() options {
	var o options

	flag.BoolVar(&o.live, "live", false, "Stereo camera live display")
	flag.IntVar(&o.rows, "rows", 15, "Number of rows in the chessboard pattern")
	flag.IntVar(&o.cols, "cols", 10, "Number of columns in the chessboard pattern")
	flag.BoolVar(&o.debug, "debug", false, "Save the detected chessboard for each image")
	flag.StringVar(&o.mono, "mono", "", "Image files for mono camera calibration (glob)")
	flag.BoolVar(&o.stereo, "stereo", false, "Stereo camera calibration")
	flag.BoolVar(&o.output, "output", false, "Save camera calibration results")
	flag.BoolVar(&o.left, "left", false, "Save left camera calibration results")
	flag.BoolVar(&o.right, "right", false, "Save right camera calibration results")
	flag.BoolVar(&o.undistort, "undistort", false, "Image undistortion")
	flag.BoolVar(&o.undistortStereo, "undistort_stereo", false, "Stereo image undistortion")

	flag.Float64Var(&o.square, "square", 1.0, "Chessboard square size in world units")
	flag.StringVar(&o.dir, "dir", ".", "Directory for calibration files")
	flag.BoolVar(&o.json, "json", false, "Also export calibration results as JSON")
	flag.StringVar(&o.images, "images", "", "Image files for undistortion (glob, defaults to the calibration images)")
	flag.StringVar(&o.source, "source", "0", "Left camera source for -live")
	flag.StringVar(&o.source2, "source2", "1", "Right camera source for -live")
	flag.BoolVar(&o.overlay, "overlay", false, "Start -live with the chessboard overlay enabled")
	flag.StringVar(&o.snapshotDir, "snapshot-dir", ".", "Directory for -live snapshot pairs")
	flag.Parse()

	return o
}

func (o options) board() calib.Board {
	return calib.Board{Rows: o.rows, Cols: o.cols, SquareSize: o.square}
}

// runLive opens both cameras in the stereo viewer. Space saves a
// snapshot pair, escape quits.
func runLive(o options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	left, err := sideRunner(o.source)
	if err != nil {
		return err
	}
	right, err := sideRunner(o.source2)
	if err != nil {
		return err
	}

	cfg := viewer.DefaultConfig()
	cfg.Title = "stereocam - live"
	cfg.Overlay = o.overlay
	cfg.Board = o.board()
	cfg.SnapshotDir = o.snapshotDir

	view, err := viewer.NewStereo(cfg, left, right)
	if err != nil {
		return err
	}
	return view.Run(ctx)
}

func sideRunner(device string) (*capture.Runner, error) {
	cfg := capture.DefaultConfig()
	cfg.Device = device

	src, err := capture.New(cfg)
	if err != nil {
		return nil, err
	}
	return capture.NewRunner(src, cfg), nil
}

// runMono calibrates a single camera from chessboard images and saves
// the result under the role selected by -output, -left or -right.
func runMono(o options) error {
	files, err := globImages(o.mono)
	if err != nil {
		return err
	}

	cal, err := calib.Calibrate(files, o.board(), o.debug)
	if err != nil {
		return err
	}
	fmt.Printf("Calibrated %d views, RMS error %.4f px\n", len(cal.Views), cal.RMS)

	role := store.RoleDefault
	switch {
	case o.output:
	case o.left:
		role = store.RoleLeft
	case o.right:
		role = store.RoleRight
	default:
		return nil
	}

	st, err := store.NewFileStore(o.dir)
	if err != nil {
		return err
	}
	if err := st.SaveCamera(role, cal); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", st.CameraPath(role))

	if o.json {
		if err := st.ExportCameraJSON(role, cal); err != nil {
			return err
		}
	}
	return nil
}

// runStereo combines the saved left and right calibrations into a
// stereo calibration and saves it when -output is set.
func runStereo(o options) error {
	st, err := store.NewFileStore(o.dir)
	if err != nil {
		return err
	}

	left, err := st.LoadCamera(store.RoleLeft)
	if err != nil {
		return err
	}
	right, err := st.LoadCamera(store.RoleRight)
	if err != nil {
		return err
	}

	sc, err := calib.CalibrateStereo(left, right)
	if err != nil {
		return err
	}
	fmt.Printf("Stereo calibration: baseline %.4f, alignment error %.6f\n", sc.Baseline(), sc.AlignmentError)

	if !o.output {
		return nil
	}
	if err := st.SaveStereo(sc); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", st.StereoPath())

	if o.json {
		if err := st.ExportStereoJSON(sc); err != nil {
			return err
		}
	}
	return nil
}

// runUndistort corrects the calibration images (or the -images glob)
// with the saved single-camera calibration.
func runUndistort(o options) error {
	st, err := store.NewFileStore(o.dir)
	if err != nil {
		return err
	}
	cal, err := st.LoadCamera(store.RoleDefault)
	if err != nil {
		return err
	}

	var files []string
	if o.images != "" {
		if files, err = globImages(o.images); err != nil {
			return err
		}
	}
	return calib.Undistort(cal, files)
}

// runUndistortStereo rectifies the left and right calibration images
// with the saved stereo calibration.
func runUndistortStereo(o options) error {
	st, err := store.NewFileStore(o.dir)
	if err != nil {
		return err
	}

	left, err := st.LoadCamera(store.RoleLeft)
	if err != nil {
		return err
	}
	right, err := st.LoadCamera(store.RoleRight)
	if err != nil {
		return err
	}
	sc, err := st.LoadStereo()
	if err != nil {
		return err
	}

	return calib.UndistortStereo(left, right, sc, nil, nil)
}

// globImages expands a glob pattern into a sorted file list.
func globImages(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad image pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images match %q", pattern)
	}
	sort.Strings(files)
	return files, nil
}
