package viewer

import (
	"image"

	"github.com/camtk/stereocam/pkg/calib"
	"github.com/camtk/stereocam/pkg/frame"
)

// renderFrame converts a captured frame into a displayable image,
// optionally drawing detected chessboard corners on top. Detection runs
// on the caller's goroutine, never on the UI thread.
func renderFrame(f frame.Frame, overlay bool, board calib.Board) (image.Image, error) {
	if !overlay {
		return f.ToImage()
	}

	gray, err := f.ToGrayMat()
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	corners, found := calib.DetectCorners(gray, board)
	defer corners.Close()

	bgr, err := f.ToBGRMat()
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	calib.DrawPattern(&bgr, board, corners, found)
	return bgr.ToImage()
}
