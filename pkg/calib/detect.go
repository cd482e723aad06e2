package calib

import (
	"image"

	"gocv.io/x/gocv"
)

// DetectCorners finds the chessboard pattern in a grayscale image and
// refines the corner positions to sub-pixel accuracy. The caller owns
// the returned corner Mat and must Close it whether or not the pattern
// was found.
func DetectCorners(gray gocv.Mat, board Board) (gocv.Mat, bool) {
	corners := gocv.NewMat()
	found := gocv.FindChessboardCorners(gray, board.PatternSize(), &corners,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)
	if !found {
		return corners, false
	}
	criteria := gocv.NewTermCriteria(gocv.MaxIter+gocv.EPS, 30, 0.001)
	gocv.CornerSubPix(gray, &corners, image.Pt(11, 11), image.Pt(-1, -1), criteria)
	return corners, true
}

// CornerPoints converts a detector corner Mat to plain points.
func CornerPoints(corners gocv.Mat) []Point2 {
	v := gocv.NewPoint2fVectorFromMat(corners)
	defer v.Close()
	pts := v.ToPoints()
	out := make([]Point2, len(pts))
	for i, p := range pts {
		out[i] = Point2{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

// DrawPattern renders detected corners onto a color image, in place.
func DrawPattern(img *gocv.Mat, board Board, corners gocv.Mat, found bool) {
	gocv.DrawChessboardCorners(img, board.PatternSize(), corners, found)
}
