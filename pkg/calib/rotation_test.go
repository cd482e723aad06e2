package calib

import (
	"math"
	"testing"
)

func matricesClose(t *testing.T, got, want Matrix3, tol float64) {
	t.Helper()
	if d := got.FrobeniusDist(want); d > tol {
		t.Errorf("matrices differ by %v (tol %v):\n got %v\nwant %v", d, tol, got, want)
	}
}

func vectorsClose(t *testing.T, got, want Vector3, tol float64) {
	t.Helper()
	if d := got.Sub(want).Norm(); d > tol {
		t.Errorf("vectors differ by %v (tol %v): got %v, want %v", d, tol, got, want)
	}
}

func det3(m Matrix3) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

func TestRotationFromRodriguesZero(t *testing.T) {
	matricesClose(t, RotationFromRodrigues(Vector3{}), Identity3(), 1e-12)
}

func TestRotationFromRodriguesQuarterTurn(t *testing.T) {
	r := RotationFromRodrigues(Vector3{0, 0, math.Pi / 2})
	want := Matrix3{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}
	matricesClose(t, r, want, 1e-9)
}

func TestRotationOrthonormal(t *testing.T) {
	tests := []struct {
		name string
		rvec Vector3
	}{
		{"x axis", Vector3{0.7, 0, 0}},
		{"mixed", Vector3{0.3, -0.5, 0.2}},
		{"large angle", Vector3{1.2, 1.1, -0.9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RotationFromRodrigues(tt.rvec)
			matricesClose(t, r.Mul(r.Transpose()), Identity3(), 1e-9)
			if d := det3(r); math.Abs(d-1) > 1e-9 {
				t.Errorf("det = %v, want 1", d)
			}
		})
	}
}

func TestRodriguesRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rvec Vector3
	}{
		{"small", Vector3{0.01, -0.02, 0.03}},
		{"quarter turn z", Vector3{0, 0, math.Pi / 2}},
		{"mixed", Vector3{0.5, 0.4, -0.3}},
		{"near pi", Vector3{3.0, 0.2, 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back := RodriguesFromRotation(RotationFromRodrigues(tt.rvec))
			vectorsClose(t, back, tt.rvec, 1e-6)
		})
	}
}

func TestNearestRotation(t *testing.T) {
	base := RotationFromRodrigues(Vector3{0.2, -0.4, 0.1})

	t.Run("already a rotation", func(t *testing.T) {
		matricesClose(t, NearestRotation(base), base, 1e-9)
	})

	t.Run("perturbed", func(t *testing.T) {
		noisy := base
		noisy[0][1] += 0.01
		noisy[2][0] -= 0.02
		r := NearestRotation(noisy)
		matricesClose(t, r.Mul(r.Transpose()), Identity3(), 1e-9)
		if d := det3(r); math.Abs(d-1) > 1e-9 {
			t.Errorf("det = %v, want 1", d)
		}
		if d := r.FrobeniusDist(base); d > 0.1 {
			t.Errorf("projected rotation drifted too far: %v", d)
		}
	})
}

func TestAverageRotations(t *testing.T) {
	t.Run("identical inputs", func(t *testing.T) {
		r := RotationFromRodrigues(Vector3{0.1, 0.2, 0.3})
		got := AverageRotations([]Matrix3{r, r, r})
		matricesClose(t, got, r, 1e-9)
	})

	t.Run("opposing pair averages to identity", func(t *testing.T) {
		a := RotationFromRodrigues(Vector3{0, 0, 0.4})
		b := RotationFromRodrigues(Vector3{0, 0, -0.4})
		got := AverageRotations([]Matrix3{a, b})
		matricesClose(t, got, Identity3(), 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		matricesClose(t, AverageRotations(nil), Identity3(), 1e-12)
	})
}

func TestVectorOps(t *testing.T) {
	v := Vector3{3, 4, 0}
	if math.Abs(v.Norm()-5) > 1e-12 {
		t.Errorf("Norm = %v, want 5", v.Norm())
	}
	if got := v.Add(Vector3{1, 1, 1}); got != (Vector3{4, 5, 1}) {
		t.Errorf("Add = %v", got)
	}
	if got := v.Sub(Vector3{1, 1, 1}); got != (Vector3{2, 3, -1}) {
		t.Errorf("Sub = %v", got)
	}
	if got := v.Scale(2); got != (Vector3{6, 8, 0}) {
		t.Errorf("Scale = %v", got)
	}
	// Right-handed cross product.
	x, y := Vector3{1, 0, 0}, Vector3{0, 1, 0}
	if got := x.Cross(y); got != (Vector3{0, 0, 1}) {
		t.Errorf("Cross = %v, want z", got)
	}
}

func TestMatrixMulVec(t *testing.T) {
	r := RotationFromRodrigues(Vector3{0, 0, math.Pi / 2})
	got := r.MulVec(Vector3{1, 0, 0})
	vectorsClose(t, got, Vector3{0, 1, 0}, 1e-9)
}
