package calib

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Norm returns the Euclidean length of the vector.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v scaled by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v[0] * s, v[1] * s, v[2] * s}
}

// Cross returns the cross product v x o.
func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Identity3 returns the 3x3 identity matrix.
func Identity3() Matrix3 {
	return Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns the matrix product m * o.
func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return out
}

// Transpose returns the transposed matrix.
func (m Matrix3) Transpose() Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// MulVec returns m * v.
func (m Matrix3) MulVec(v Vector3) Vector3 {
	var out Vector3
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

// FrobeniusDist returns the Frobenius norm of m - o.
func (m Matrix3) FrobeniusDist(o Matrix3) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d := m[i][j] - o[i][j]
			sum += d * d
		}
	}
	return math.Sqrt(sum)
}

// RotationFromRodrigues converts an axis-angle rotation vector to its
// rotation matrix via the exponential map.
func RotationFromRodrigues(r Vector3) Matrix3 {
	theta := r.Norm()
	if theta < 1e-12 {
		return Identity3()
	}
	k := r.Scale(1 / theta)
	kx := Matrix3{
		{0, -k[2], k[1]},
		{k[2], 0, -k[0]},
		{-k[1], k[0], 0},
	}
	s, c := math.Sin(theta), math.Cos(theta)
	kx2 := kx.Mul(kx)
	out := Identity3()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] += s*kx[i][j] + (1-c)*kx2[i][j]
		}
	}
	return out
}

// RodriguesFromRotation converts a rotation matrix back to its
// axis-angle vector, the inverse of RotationFromRodrigues.
func RodriguesFromRotation(m Matrix3) Vector3 {
	trace := m[0][0] + m[1][1] + m[2][2]
	cos := (trace - 1) / 2
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	theta := math.Acos(cos)
	if theta < 1e-12 {
		return Vector3{}
	}
	axis := Vector3{
		m[2][1] - m[1][2],
		m[0][2] - m[2][0],
		m[1][0] - m[0][1],
	}
	n := axis.Norm()
	if n < 1e-12 {
		// theta near pi, axis from the diagonal.
		for i := 0; i < 3; i++ {
			v := math.Sqrt(math.Max(0, (m[i][i]+1)/2))
			axis[i] = v
		}
		if axis[0] >= axis[1] && axis[0] >= axis[2] && axis[0] > 0 {
			if m[0][1] < 0 {
				axis[1] = -axis[1]
			}
			if m[0][2] < 0 {
				axis[2] = -axis[2]
			}
		}
		return axis.Scale(theta / math.Max(axis.Norm(), 1e-12))
	}
	return axis.Scale(theta / n)
}

// NearestRotation projects a matrix onto the closest proper rotation
// using the SVD, M = U S Vt giving R = U diag(1,1,det(U Vt)) Vt.
func NearestRotation(m Matrix3) Matrix3 {
	d := denseOf(m)
	var svd mat.SVD
	if !svd.Factorize(d, mat.SVDFull) {
		return Identity3()
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var uvt mat.Dense
	uvt.Mul(&u, v.T())
	sign := 1.0
	if mat.Det(&uvt) < 0 {
		sign = -1.0
	}

	corr := mat.NewDiagDense(3, []float64{1, 1, sign})
	var tmp, r mat.Dense
	tmp.Mul(&u, corr)
	r.Mul(&tmp, v.T())
	return matrix3Of(&r)
}

// AverageRotations returns the chordal mean of a set of rotations:
// the elementwise average projected back onto the rotation group.
func AverageRotations(rs []Matrix3) Matrix3 {
	if len(rs) == 0 {
		return Identity3()
	}
	var sum Matrix3
	for _, r := range rs {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				sum[i][j] += r[i][j]
			}
		}
	}
	n := float64(len(rs))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum[i][j] /= n
		}
	}
	return NearestRotation(sum)
}

func denseOf(m Matrix3) *mat.Dense {
	flat := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		flat = append(flat, m[i][0], m[i][1], m[i][2])
	}
	return mat.NewDense(3, 3, flat)
}

func matrix3Of(d mat.Matrix) Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = d.At(i, j)
		}
	}
	return out
}
