package calib

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImages indicates an empty input file set.
	ErrNoImages = errors.New("calib: no input images")

	// ErrNoPatternFound indicates the chessboard was not detected in
	// any input image.
	ErrNoPatternFound = errors.New("calib: chessboard pattern not found in any image")

	// ErrSizeMismatch indicates input images with differing dimensions.
	ErrSizeMismatch = errors.New("calib: image size mismatch")

	// ErrViewMismatch indicates left/right calibrations whose view
	// counts cannot be paired for stereo.
	ErrViewMismatch = errors.New("calib: left and right view counts differ")

	// ErrBoardMismatch indicates left/right calibrations taken against
	// different board geometries.
	ErrBoardMismatch = errors.New("calib: left and right boards differ")

	// ErrNotCalibrated indicates an operation that needs a completed
	// calibration was given an empty one.
	ErrNotCalibrated = errors.New("calib: calibration has no views")
)

// FileError wraps a per-file failure during calibration or
// undistortion.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("calib: %s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IsPatternNotFound reports whether err is a missing-pattern error,
// directly or wrapped in a FileError.
func IsPatternNotFound(err error) bool {
	return errors.Is(err, ErrNoPatternFound)
}
