package calib

import "math"

// Project maps a board point through a camera pose and the calibrated
// intrinsics onto the image plane, applying the standard radial and
// tangential distortion terms (k1 k2 p1 p2 k3). The model itself is
// the vision library's; this is only a closed-form evaluation of it,
// used to score views because the library does not expose its own
// projection through the bindings.
func Project(p Point3, rot Matrix3, trans Vector3, k Matrix3, dist []float64) Point2 {
	c := rot.MulVec(Vector3{p.X, p.Y, p.Z}).Add(trans)
	if c[2] == 0 {
		c[2] = 1e-12
	}
	x := c[0] / c[2]
	y := c[1] / c[2]

	var k1, k2, p1, p2, k3 float64
	if len(dist) > 0 {
		k1 = dist[0]
	}
	if len(dist) > 1 {
		k2 = dist[1]
	}
	if len(dist) > 2 {
		p1 = dist[2]
	}
	if len(dist) > 3 {
		p2 = dist[3]
	}
	if len(dist) > 4 {
		k3 = dist[4]
	}

	r2 := x*x + y*y
	radial := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
	xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y

	return Point2{
		X: k[0][0]*xd + k[0][1]*yd + k[0][2],
		Y: k[1][1]*yd + k[1][2],
	}
}

// ReprojectionError returns the RMS distance in pixels between the
// detected corners and the board points projected through the given
// pose.
func ReprojectionError(object []Point3, image []Point2, rvec, tvec Vector3, k Matrix3, dist []float64) float64 {
	n := len(object)
	if n == 0 || n != len(image) {
		return 0
	}
	rot := RotationFromRodrigues(rvec)
	var sum float64
	for i, p := range object {
		proj := Project(p, rot, tvec, k, dist)
		dx := proj.X - image[i].X
		dy := proj.Y - image[i].Y
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / float64(n))
}
