// Package calib sequences chessboard camera calibration, stereo
// extrinsics and image undistortion over the OpenCV bindings. Corner
// detection, intrinsic estimation and distortion modeling are library
// calls; this package wires them together and owns the result types.
package calib

import "image"

// Board describes the chessboard calibration target: the number of
// inner corners per row and per column, and the physical square size.
// A printed 16x11-square board has 15x10 inner corners.
type Board struct {
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	SquareSize float64 `json:"square_size"`
}

// DefaultBoard returns the 15x10 inner-corner target used by the
// stereo rig, with unit squares.
func DefaultBoard() Board {
	return Board{Rows: 15, Cols: 10, SquareSize: 1.0}
}

// PatternSize returns the detector pattern size, corners per row
// first.
func (b Board) PatternSize() image.Point {
	return image.Pt(b.Rows, b.Cols)
}

// CornerCount returns the total number of inner corners.
func (b Board) CornerCount() int {
	return b.Rows * b.Cols
}

// ObjectPoints returns the board corner lattice in board coordinates,
// row-major to match the detector's corner ordering, Z always zero.
func (b Board) ObjectPoints() []Point3 {
	pts := make([]Point3, 0, b.CornerCount())
	for j := 0; j < b.Cols; j++ {
		for i := 0; i < b.Rows; i++ {
			pts = append(pts, Point3{
				X: float64(i) * b.SquareSize,
				Y: float64(j) * b.SquareSize,
			})
		}
	}
	return pts
}

// Validate checks the board geometry. Returns a list of validation
// errors, or nil if valid.
func (b Board) Validate() []string {
	var errors []string
	if b.Rows < 2 {
		errors = append(errors, "rows must be at least 2")
	}
	if b.Cols < 2 {
		errors = append(errors, "cols must be at least 2")
	}
	if b.Rows == b.Cols {
		errors = append(errors, "rows and cols must differ so pattern orientation is unambiguous")
	}
	if b.SquareSize <= 0 {
		errors = append(errors, "square_size must be positive")
	}
	return errors
}
