package frame

import "errors"

var (
	// ErrEmptyFrame indicates a frame with no data.
	ErrEmptyFrame = errors.New("frame: empty frame")

	// ErrEmptyMat indicates a conversion from an empty Mat.
	ErrEmptyMat = errors.New("frame: empty mat")

	// ErrBadLength indicates Data does not match Width*Height for the
	// declared format.
	ErrBadLength = errors.New("frame: data length does not match dimensions")
)
