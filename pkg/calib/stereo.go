package calib

import (
	"fmt"
	"math"
	"time"

	"github.com/camtk/stereocam/internal/log"
)

// CalibrateStereo derives the left-to-right camera transform from two
// completed calibrations whose views were captured in lockstep pairs:
// view i of the left camera saw the board at the same instant as view
// i of the right camera.
//
// The bindings expose per-view board poses but not a joint stereo
// solver, so the relative pose is composed per pair and averaged: for
// each pair, R_i = Rr * Rl^T and t_i = tr - R_i * tl; the result is
// the chordal mean rotation and the mean translation, with the spread
// around the mean reported as AlignmentError.
func CalibrateStereo(left, right *Calibration) (*StereoCalibration, error) {
	if len(left.Views) == 0 || len(right.Views) == 0 {
		return nil, ErrNotCalibrated
	}
	if left.Board != right.Board {
		return nil, ErrBoardMismatch
	}
	if len(left.Views) != len(right.Views) {
		return nil, fmt.Errorf("%w: left %d, right %d", ErrViewMismatch, len(left.Views), len(right.Views))
	}
	if left.ImageSize != right.ImageSize {
		return nil, ErrSizeMismatch
	}

	n := len(left.Views)
	rels := make([]Matrix3, 0, n)
	trans := make([]Vector3, 0, n)
	for i := 0; i < n; i++ {
		rl := RotationFromRodrigues(left.Views[i].Rotation)
		rr := RotationFromRodrigues(right.Views[i].Rotation)
		rel := rr.Mul(rl.Transpose())
		t := right.Views[i].Translation.Sub(rel.MulVec(left.Views[i].Translation))
		rels = append(rels, rel)
		trans = append(trans, t)
	}

	rot := AverageRotations(rels)
	var tsum Vector3
	for _, t := range trans {
		tsum = tsum.Add(t)
	}
	tmean := tsum.Scale(1 / float64(n))

	var spread float64
	for i := range rels {
		dr := rels[i].FrobeniusDist(rot)
		dt := trans[i].Sub(tmean).Norm()
		spread += dr*dr + dt*dt
	}
	spread = math.Sqrt(spread / float64(n))

	sc := &StereoCalibration{
		Rotation:       rot,
		Translation:    tmean,
		ImageSize:      left.ImageSize,
		AlignmentError: spread,
		CreatedAt:      time.Now(),
	}
	rectify(sc, left, right)

	log.Info("stereo pair calibrated",
		"pairs", n,
		"baseline", fmt.Sprintf("%.4f", sc.Baseline()),
		"alignment_error", fmt.Sprintf("%.4f", spread))
	return sc, nil
}

// rectify fills in the rectification transforms following Bouguet's
// construction: split the relative rotation evenly across the two
// cameras, then rotate both so the baseline lands on the image axis
// carrying the larger translation component.
func rectify(sc *StereoCalibration, left, right *Calibration) {
	om := RodriguesFromRotation(sc.Rotation)
	half := RotationFromRodrigues(om.Scale(-0.5))
	t := half.MulVec(sc.Translation)

	idx := 0
	if math.Abs(t[1]) > math.Abs(t[0]) {
		idx = 1
	}
	var uu Vector3
	if t[idx] > 0 {
		uu[idx] = 1
	} else {
		uu[idx] = -1
	}

	ww := t.Cross(uu)
	if nw := ww.Norm(); nw > 1e-12 {
		nt := t.Norm()
		ww = ww.Scale(math.Acos(math.Abs(t[idx])/nt) / nw)
	}
	wr := RotationFromRodrigues(ww)

	sc.R1 = wr.Mul(half.Transpose())
	sc.R2 = wr.Mul(half)

	tnew := sc.R2.MulVec(sc.Translation)

	// Shared pinhole for both rectified views: the smaller of the two
	// focal lengths, principal point averaged, so epipolar lines land
	// on the same rows.
	f := math.Min(left.CameraMatrix[1][1], right.CameraMatrix[1][1])
	cx := (left.CameraMatrix[0][2] + right.CameraMatrix[0][2]) / 2
	cy := (left.CameraMatrix[1][2] + right.CameraMatrix[1][2]) / 2

	sc.P1 = Matrix34{
		{f, 0, cx, 0},
		{0, f, cy, 0},
		{0, 0, 1, 0},
	}
	sc.P2 = sc.P1
	sc.P2[idx][3] = tnew[idx] * f
}

// projection3 returns the 3x3 camera block of a projection matrix.
func projection3(p Matrix34) Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = p[i][j]
		}
	}
	return out
}
