package calib

import (
	"math"
	"testing"
)

func testIntrinsics() Matrix3 {
	return Matrix3{
		{100, 0, 50},
		{0, 100, 50},
		{0, 0, 1},
	}
}

func TestProjectPinhole(t *testing.T) {
	k := testIntrinsics()
	rot := Identity3()
	trans := Vector3{0, 0, 5}

	tests := []struct {
		name  string
		point Point3
		want  Point2
	}{
		{"principal axis", Point3{}, Point2{X: 50, Y: 50}},
		{"unit x", Point3{X: 1}, Point2{X: 70, Y: 50}},
		{"unit y", Point3{Y: 1}, Point2{X: 50, Y: 70}},
		{"diagonal", Point3{X: 1, Y: 1}, Point2{X: 70, Y: 70}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.point, rot, trans, k, nil)
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
				t.Errorf("Project = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectRadialDistortion(t *testing.T) {
	k := testIntrinsics()
	// x' = 0.2, r^2 = 0.04, radial = 1 + 0.1*0.04.
	got := Project(Point3{X: 1}, Identity3(), Vector3{0, 0, 5}, k, []float64{0.1, 0, 0, 0, 0})
	want := 50 + 100*0.2*1.004
	if math.Abs(got.X-want) > 1e-9 {
		t.Errorf("X = %v, want %v", got.X, want)
	}
	if math.Abs(got.Y-50) > 1e-9 {
		t.Errorf("Y = %v, want 50", got.Y)
	}
}

func TestProjectTangentialDistortion(t *testing.T) {
	k := testIntrinsics()
	// x' = y' = 0.2: p2 adds p2*(r^2 + 2x'^2) to x.
	got := Project(Point3{X: 1, Y: 1}, Identity3(), Vector3{0, 0, 5}, k, []float64{0, 0, 0.01, 0.02, 0})
	r2 := 0.08
	wantX := 50 + 100*(0.2+2*0.01*0.04+0.02*(r2+2*0.04))
	wantY := 50 + 100*(0.2+0.01*(r2+2*0.04)+2*0.02*0.04)
	if math.Abs(got.X-wantX) > 1e-9 {
		t.Errorf("X = %v, want %v", got.X, wantX)
	}
	if math.Abs(got.Y-wantY) > 1e-9 {
		t.Errorf("Y = %v, want %v", got.Y, wantY)
	}
}

func TestProjectWithRotation(t *testing.T) {
	k := testIntrinsics()
	// Quarter turn about Z maps board x onto camera y.
	rot := RotationFromRodrigues(Vector3{0, 0, math.Pi / 2})
	got := Project(Point3{X: 1}, rot, Vector3{0, 0, 5}, k, nil)
	if math.Abs(got.X-50) > 1e-6 || math.Abs(got.Y-70) > 1e-6 {
		t.Errorf("Project = %v, want (50,70)", got)
	}
}

func TestReprojectionError(t *testing.T) {
	k := testIntrinsics()
	board := Board{Rows: 4, Cols: 3, SquareSize: 1}
	object := board.ObjectPoints()
	rvec := Vector3{0.05, -0.03, 0.02}
	tvec := Vector3{-1, -0.5, 8}

	rot := RotationFromRodrigues(rvec)
	image := make([]Point2, len(object))
	for i, p := range object {
		image[i] = Project(p, rot, tvec, k, []float64{0.05, 0, 0, 0, 0})
	}

	t.Run("exact projection scores zero", func(t *testing.T) {
		got := ReprojectionError(object, image, rvec, tvec, k, []float64{0.05, 0, 0, 0, 0})
		if got > 1e-9 {
			t.Errorf("error = %v, want 0", got)
		}
	})

	t.Run("uniform one pixel shift scores one", func(t *testing.T) {
		shifted := make([]Point2, len(image))
		for i, p := range image {
			shifted[i] = Point2{X: p.X + 1, Y: p.Y}
		}
		got := ReprojectionError(object, shifted, rvec, tvec, k, []float64{0.05, 0, 0, 0, 0})
		if math.Abs(got-1) > 1e-9 {
			t.Errorf("error = %v, want 1", got)
		}
	})

	t.Run("empty input scores zero", func(t *testing.T) {
		if got := ReprojectionError(nil, nil, rvec, tvec, k, nil); got != 0 {
			t.Errorf("error = %v, want 0", got)
		}
	})
}

func TestMeanError(t *testing.T) {
	cal := &Calibration{Views: []View{{Error: 0.2}, {Error: 0.4}, {Error: 0.6}}}
	if got := cal.MeanError(); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("MeanError = %v, want 0.4", got)
	}
	empty := &Calibration{}
	if got := empty.MeanError(); got != 0 {
		t.Errorf("empty MeanError = %v, want 0", got)
	}
}
