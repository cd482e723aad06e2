package calib

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/camtk/stereocam/internal/log"
)

// Calibrate runs chessboard calibration over a set of image files,
// sorted order preserved. Images where the pattern is not detected are
// skipped with a warning. With debug set, a preview with the drawn
// pattern is written next to each detected image.
func Calibrate(files []string, board Board, debug bool) (*Calibration, error) {
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	if errs := board.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("calib: invalid board: %s", strings.Join(errs, "; "))
	}

	object := board.ObjectPoints()

	objPts := gocv.NewPoints3fVector()
	defer objPts.Close()
	imgPts := gocv.NewPoints2fVector()
	defer imgPts.Close()

	var (
		size  image.Point
		views []View
	)
	for _, file := range files {
		img := gocv.IMRead(file, gocv.IMReadGrayScale)
		if img.Empty() {
			img.Close()
			return nil, &FileError{File: file, Err: fmt.Errorf("unreadable image")}
		}
		if size == (image.Point{}) {
			size = image.Pt(img.Cols(), img.Rows())
		} else if size.X != img.Cols() || size.Y != img.Rows() {
			img.Close()
			return nil, &FileError{File: file, Err: ErrSizeMismatch}
		}

		corners, found := DetectCorners(img, board)
		if !found {
			log.Warn("chessboard not found, skipping", "file", file)
			corners.Close()
			img.Close()
			continue
		}

		if debug {
			writeDebugImage(file, img, board, corners)
		}

		ov := gocv.NewPoint3fVectorFromPoints(toPoint3f(object))
		objPts.Append(ov)
		ov.Close()

		iv := gocv.NewPoint2fVectorFromMat(corners)
		imgPts.Append(iv)
		pts := make([]Point2, 0, iv.Size())
		for _, p := range iv.ToPoints() {
			pts = append(pts, Point2{X: float64(p.X), Y: float64(p.Y)})
		}
		iv.Close()

		views = append(views, View{File: file, Corners: pts})
		corners.Close()
		img.Close()
	}

	if len(views) == 0 {
		return nil, ErrNoPatternFound
	}
	if len(views) < 10 {
		log.Warn("few usable calibration images, accuracy will suffer",
			"usable", len(views), "total", len(files))
	}

	camera := gocv.NewMat()
	defer camera.Close()
	dist := gocv.NewMat()
	defer dist.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objPts, imgPts, size, &camera, &dist, &rvecs, &tvecs, gocv.CalibFlag(0))

	cal := &Calibration{
		CameraMatrix: matToMatrix3(camera),
		DistCoeffs:   matToDist(dist),
		ImageSize:    Size{Width: size.X, Height: size.Y},
		Board:        board,
		Views:        views,
		RMS:          rms,
		CreatedAt:    time.Now(),
	}

	if err := solvePoses(cal, object, camera, dist); err != nil {
		return nil, err
	}

	log.Info("camera calibrated",
		"images", len(views),
		"rms", fmt.Sprintf("%.4f", rms),
		"mean_view_error", fmt.Sprintf("%.4f", cal.MeanError()))
	return cal, nil
}

// solvePoses recovers each view's board pose against the calibrated
// intrinsics and scores its reprojection error.
func solvePoses(cal *Calibration, object []Point3, camera, dist gocv.Mat) error {
	ov := gocv.NewPoint3fVectorFromPoints(toPoint3f(object))
	defer ov.Close()

	for i := range cal.Views {
		iv := gocv.NewPoint2fVectorFromPoints(toPoint2f(cal.Views[i].Corners))
		rvec := gocv.NewMat()
		tvec := gocv.NewMat()
		ok := gocv.SolvePnP(ov, iv, camera, dist, &rvec, &tvec, false, 0)
		if !ok {
			iv.Close()
			rvec.Close()
			tvec.Close()
			return &FileError{File: cal.Views[i].File, Err: fmt.Errorf("pose estimation failed")}
		}
		cal.Views[i].Rotation = matToVector3(rvec)
		cal.Views[i].Translation = matToVector3(tvec)
		cal.Views[i].Error = ReprojectionError(object, cal.Views[i].Corners,
			cal.Views[i].Rotation, cal.Views[i].Translation,
			cal.CameraMatrix, cal.DistCoeffs)
		iv.Close()
		rvec.Close()
		tvec.Close()
	}
	return nil
}

// writeDebugImage saves a color preview with the detected pattern
// drawn, named after the source file.
func writeDebugImage(file string, gray gocv.Mat, board Board, corners gocv.Mat) {
	preview := gocv.NewMat()
	defer preview.Close()
	gocv.CvtColor(gray, &preview, gocv.ColorGrayToBGR)
	DrawPattern(&preview, board, corners, true)

	name := debugImageName(file)
	if !gocv.IMWrite(name, preview) {
		log.Warn("could not write debug image", "file", name)
	}
}

// debugImageName derives the preview path: base-chessboard.png next to
// the source image.
func debugImageName(file string) string {
	ext := filepath.Ext(file)
	return strings.TrimSuffix(file, ext) + "-chessboard.png"
}
