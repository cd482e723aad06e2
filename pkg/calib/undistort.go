package calib

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/camtk/stereocam/internal/log"
)

// Undistort corrects lens distortion in a set of images, writing each
// result next to its source with an -undistorted suffix. With no
// explicit file list, the calibration's own images are corrected.
func Undistort(cal *Calibration, files []string) error {
	if cal.CameraMatrix == (Matrix3{}) {
		return ErrNotCalibrated
	}
	if len(files) == 0 {
		files = cal.Files()
	}
	if len(files) == 0 {
		return ErrNoImages
	}

	camera := matrix3ToMat(cal.CameraMatrix)
	defer camera.Close()
	dist := distToMat(cal.DistCoeffs)
	defer dist.Close()

	size := image.Pt(cal.ImageSize.Width, cal.ImageSize.Height)
	newCam, _ := gocv.GetOptimalNewCameraMatrixWithParams(camera, dist, size, 1.0, size, false)
	defer newCam.Close()

	for _, file := range files {
		img := gocv.IMRead(file, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			return &FileError{File: file, Err: fmt.Errorf("unreadable image")}
		}
		dst := gocv.NewMat()
		gocv.Undistort(img, &dst, camera, dist, newCam)

		out := undistortedName(file)
		ok := gocv.IMWrite(out, dst)
		dst.Close()
		img.Close()
		if !ok {
			return &FileError{File: out, Err: fmt.Errorf("could not write image")}
		}
		log.Info("undistorted", "file", file, "output", out)
	}
	return nil
}

// UndistortStereo rectifies image pairs into a single side-by-side
// view with epipolar guide lines, for visually checking the stereo
// calibration. With no explicit lists, the calibrations' own images
// are used.
func UndistortStereo(left, right *Calibration, sc *StereoCalibration, leftFiles, rightFiles []string) error {
	if left.CameraMatrix == (Matrix3{}) || right.CameraMatrix == (Matrix3{}) {
		return ErrNotCalibrated
	}
	if len(leftFiles) == 0 {
		leftFiles = left.Files()
	}
	if len(rightFiles) == 0 {
		rightFiles = right.Files()
	}
	if len(leftFiles) == 0 || len(rightFiles) == 0 {
		return ErrNoImages
	}
	if len(leftFiles) != len(rightFiles) {
		return fmt.Errorf("%w: %d left files, %d right files", ErrViewMismatch, len(leftFiles), len(rightFiles))
	}

	size := image.Pt(sc.ImageSize.Width, sc.ImageSize.Height)
	lmap1, lmap2 := rectifyMaps(left, sc.R1, sc.P1, size)
	defer lmap1.Close()
	defer lmap2.Close()
	rmap1, rmap2 := rectifyMaps(right, sc.R2, sc.P2, size)
	defer rmap1.Close()
	defer rmap2.Close()

	for i := range leftFiles {
		if err := writeRectifiedPair(leftFiles[i], rightFiles[i], lmap1, lmap2, rmap1, rmap2); err != nil {
			return err
		}
	}
	return nil
}

// rectifyMaps builds the per-camera remap tables for a rectification
// transform.
func rectifyMaps(cal *Calibration, r Matrix3, p Matrix34, size image.Point) (gocv.Mat, gocv.Mat) {
	camera := matrix3ToMat(cal.CameraMatrix)
	defer camera.Close()
	dist := distToMat(cal.DistCoeffs)
	defer dist.Close()
	rot := matrix3ToMat(r)
	defer rot.Close()
	newCam := matrix3ToMat(projection3(p))
	defer newCam.Close()

	map1 := gocv.NewMat()
	map2 := gocv.NewMat()
	gocv.InitUndistortRectifyMap(camera, dist, rot, newCam, size, int(gocv.MatTypeCV32F), map1, map2)
	return map1, map2
}

func writeRectifiedPair(leftFile, rightFile string, lmap1, lmap2, rmap1, rmap2 gocv.Mat) error {
	l := gocv.IMRead(leftFile, gocv.IMReadColor)
	if l.Empty() {
		l.Close()
		return &FileError{File: leftFile, Err: fmt.Errorf("unreadable image")}
	}
	defer l.Close()
	r := gocv.IMRead(rightFile, gocv.IMReadColor)
	if r.Empty() {
		r.Close()
		return &FileError{File: rightFile, Err: fmt.Errorf("unreadable image")}
	}
	defer r.Close()

	lr := gocv.NewMat()
	defer lr.Close()
	rr := gocv.NewMat()
	defer rr.Close()
	gocv.Remap(l, &lr, lmap1, lmap2, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	gocv.Remap(r, &rr, rmap1, rmap2, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	combined := gocv.NewMat()
	defer combined.Close()
	gocv.Hconcat(lr, rr, &combined)

	// Horizontal guide lines: on a good calibration the same scene
	// feature sits on the same line in both halves.
	green := color.RGBA{G: 255}
	for y := 40; y < combined.Rows(); y += 40 {
		gocv.Line(&combined, image.Pt(0, y), image.Pt(combined.Cols(), y), green, 1)
	}

	out := rectifiedName(leftFile)
	if !gocv.IMWrite(out, combined) {
		return &FileError{File: out, Err: fmt.Errorf("could not write image")}
	}
	log.Info("rectified pair", "left", leftFile, "right", rightFile, "output", out)
	return nil
}

// undistortedName derives the output path: base-undistorted + original
// extension, next to the source.
func undistortedName(file string) string {
	ext := filepath.Ext(file)
	return strings.TrimSuffix(file, ext) + "-undistorted" + ext
}

// rectifiedName derives the side-by-side output path from the left
// image path.
func rectifiedName(leftFile string) string {
	ext := filepath.Ext(leftFile)
	return strings.TrimSuffix(leftFile, ext) + "-rectified" + ext
}
