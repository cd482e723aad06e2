package calib

import "gocv.io/x/gocv"

// Converters between the stored calibration types and the library's
// Mat form. Callers own every returned Mat.

func matrix3ToMat(m Matrix3) gocv.Mat {
	out := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.SetDoubleAt(i, j, m[i][j])
		}
	}
	return out
}

func matToMatrix3(m gocv.Mat) Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m.GetDoubleAt(i, j)
		}
	}
	return out
}

func distToMat(d []float64) gocv.Mat {
	out := gocv.NewMatWithSize(1, len(d), gocv.MatTypeCV64F)
	for i, v := range d {
		out.SetDoubleAt(0, i, v)
	}
	return out
}

// matToDist reads a distortion row or column vector.
func matToDist(m gocv.Mat) []float64 {
	n := m.Cols()
	byRow := true
	if m.Rows() > m.Cols() {
		n = m.Rows()
		byRow = false
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if byRow {
			out[i] = m.GetDoubleAt(0, i)
		} else {
			out[i] = m.GetDoubleAt(i, 0)
		}
	}
	return out
}

// matToVector3 reads a 3x1 or 1x3 vector.
func matToVector3(m gocv.Mat) Vector3 {
	var out Vector3
	for i := 0; i < 3; i++ {
		if m.Rows() >= 3 {
			out[i] = m.GetDoubleAt(i, 0)
		} else {
			out[i] = m.GetDoubleAt(0, i)
		}
	}
	return out
}

func toPoint3f(pts []Point3) []gocv.Point3f {
	out := make([]gocv.Point3f, len(pts))
	for i, p := range pts {
		out[i] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
	}
	return out
}

func toPoint2f(pts []Point2) []gocv.Point2f {
	out := make([]gocv.Point2f, len(pts))
	for i, p := range pts {
		out[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	return out
}
