package calib

import (
	"time"
)

// Point2 is an image-plane point in pixels.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3 is a scene point in board coordinates.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Matrix3 is a row-major 3x3 matrix.
type Matrix3 [3][3]float64

// Matrix34 is a row-major 3x4 projection matrix.
type Matrix34 [3][4]float64

// Vector3 is a 3-vector.
type Vector3 [3]float64

// Size is an image size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// View holds the per-image calibration data: the refined corner
// positions, the board pose for that image and its reprojection error.
type View struct {
	File        string  `json:"file"`
	Corners     []Point2 `json:"corners"`
	Rotation    Vector3 `json:"rotation"`
	Translation Vector3 `json:"translation"`
	Error       float64 `json:"error"`
}

// Calibration is the result of calibrating a single camera: the
// intrinsic matrix, the distortion coefficients (k1 k2 p1 p2 k3) and
// the per-view reprojection data. The numbers come from the vision
// library; this type only carries them.
type Calibration struct {
	CameraMatrix Matrix3   `json:"camera_matrix"`
	DistCoeffs   []float64 `json:"dist_coeffs"`
	ImageSize    Size      `json:"image_size"`
	Board        Board     `json:"board"`
	Views        []View    `json:"views"`
	RMS          float64   `json:"rms"`
	CreatedAt    time.Time `json:"created_at"`
}

// MeanError returns the mean per-view reprojection error.
func (c *Calibration) MeanError() float64 {
	if len(c.Views) == 0 {
		return 0
	}
	var sum float64
	for _, v := range c.Views {
		sum += v.Error
	}
	return sum / float64(len(c.Views))
}

// Files returns the image files that contributed a view.
func (c *Calibration) Files() []string {
	files := make([]string, len(c.Views))
	for i, v := range c.Views {
		files[i] = v.File
	}
	return files
}

// StereoCalibration relates a calibrated left/right camera pair: the
// rotation and translation bringing left-camera coordinates into the
// right camera, and the rectification transforms derived from them.
type StereoCalibration struct {
	Rotation    Matrix3  `json:"rotation"`
	Translation Vector3  `json:"translation"`
	ImageSize   Size     `json:"image_size"`

	// Rectification transforms: per-camera rotations and projection
	// matrices that map both images onto a common, row-aligned plane.
	R1 Matrix3  `json:"r1"`
	R2 Matrix3  `json:"r2"`
	P1 Matrix34 `json:"p1"`
	P2 Matrix34 `json:"p2"`

	// AlignmentError is the spread of the per-view relative poses
	// around their mean, a consistency estimate for the rig.
	AlignmentError float64 `json:"alignment_error"`

	CreatedAt time.Time `json:"created_at"`
}

// Baseline returns the inter-camera distance in board units.
func (s *StereoCalibration) Baseline() float64 {
	return s.Translation.Norm()
}
