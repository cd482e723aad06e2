package store

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/camtk/stereocam/pkg/calib"
)

func storeFixture(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func calibrationFixture() *calib.Calibration {
	return &calib.Calibration{
		CameraMatrix: calib.Matrix3{{900, 0, 640}, {0, 901, 480}, {0, 0, 1}},
		DistCoeffs:   []float64{-0.21, 0.05, 0.001, -0.002, 0.01},
		ImageSize:    calib.Size{Width: 1280, Height: 960},
		Board:        calib.Board{Rows: 15, Cols: 10, SquareSize: 1},
		Views: []calib.View{
			{
				File:        "left-01.png",
				Corners:     []calib.Point2{{X: 12.5, Y: 40.25}},
				Rotation:    calib.Vector3{0.1, 0, 0},
				Translation: calib.Vector3{0, 0, 10},
				Error:       0.31,
			},
		},
		RMS:       0.29,
		CreatedAt: time.Now().Truncate(time.Second),
	}
}

func TestCameraRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		role Role
		file string
	}{
		{"default", RoleDefault, "camera-calibration.gob"},
		{"left", RoleLeft, "camera-calibration-left.gob"},
		{"right", RoleRight, "camera-calibration-right.gob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storeFixture(t)
			want := calibrationFixture()

			if s.CameraExists(tt.role) {
				t.Error("CameraExists before save")
			}
			if err := s.SaveCamera(tt.role, want); err != nil {
				t.Fatalf("SaveCamera: %v", err)
			}
			if !s.CameraExists(tt.role) {
				t.Error("CameraExists false after save")
			}
			if got := filepath.Base(s.CameraPath(tt.role)); got != tt.file {
				t.Errorf("file = %q, want %q", got, tt.file)
			}

			got, err := s.LoadCamera(tt.role)
			if err != nil {
				t.Fatalf("LoadCamera: %v", err)
			}
			if got.CameraMatrix != want.CameraMatrix {
				t.Errorf("camera matrix = %v, want %v", got.CameraMatrix, want.CameraMatrix)
			}
			if len(got.Views) != 1 || got.Views[0].File != "left-01.png" {
				t.Errorf("views not preserved: %+v", got.Views)
			}
			if math.Abs(got.RMS-want.RMS) > 1e-12 {
				t.Errorf("rms = %v, want %v", got.RMS, want.RMS)
			}
		})
	}
}

func TestStereoRoundTrip(t *testing.T) {
	s := storeFixture(t)
	want := &calib.StereoCalibration{
		Rotation:       calib.Identity3(),
		Translation:    calib.Vector3{-7, 0.1, 0},
		ImageSize:      calib.Size{Width: 1280, Height: 960},
		AlignmentError: 0.02,
		CreatedAt:      time.Now(),
	}

	if s.StereoExists() {
		t.Error("StereoExists before save")
	}
	if err := s.SaveStereo(want); err != nil {
		t.Fatalf("SaveStereo: %v", err)
	}
	if !s.StereoExists() {
		t.Error("StereoExists false after save")
	}

	got, err := s.LoadStereo()
	if err != nil {
		t.Fatalf("LoadStereo: %v", err)
	}
	if got.Translation != want.Translation {
		t.Errorf("translation = %v, want %v", got.Translation, want.Translation)
	}
	if math.Abs(got.Baseline()-want.Baseline()) > 1e-12 {
		t.Errorf("baseline = %v, want %v", got.Baseline(), want.Baseline())
	}
}

func TestLoadMissing(t *testing.T) {
	s := storeFixture(t)
	if _, err := s.LoadCamera(RoleDefault); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadCamera err = %v, want ErrNotFound", err)
	}
	if _, err := s.LoadStereo(); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadStereo err = %v, want ErrNotFound", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	s := storeFixture(t)
	if err := os.WriteFile(s.CameraPath(RoleDefault), []byte("not a gob"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.LoadCamera(RoleDefault); !errors.Is(err, ErrBadFormat) {
		t.Errorf("err = %v, want ErrBadFormat", err)
	}
}

func TestKindMismatch(t *testing.T) {
	s := storeFixture(t)
	if err := s.SaveStereo(&calib.StereoCalibration{}); err != nil {
		t.Fatalf("SaveStereo: %v", err)
	}
	// Point a camera load at the stereo file by copying it over.
	data, err := os.ReadFile(s.StereoPath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(s.CameraPath(RoleLeft), data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.LoadCamera(RoleLeft); !errors.Is(err, ErrBadFormat) {
		t.Errorf("err = %v, want ErrBadFormat", err)
	}
}

func TestNoTempFileLeftBehind(t *testing.T) {
	s := storeFixture(t)
	if err := s.SaveCamera(RoleDefault, calibrationFixture()); err != nil {
		t.Fatalf("SaveCamera: %v", err)
	}
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestExportJSON(t *testing.T) {
	s := storeFixture(t)
	cal := calibrationFixture()
	if err := s.ExportCameraJSON(RoleLeft, cal); err != nil {
		t.Fatalf("ExportCameraJSON: %v", err)
	}

	path := filepath.Join(s.Dir(), "camera-calibration-left.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var decoded calib.Calibration
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.CameraMatrix != cal.CameraMatrix {
		t.Errorf("camera matrix = %v, want %v", decoded.CameraMatrix, cal.CameraMatrix)
	}
	if decoded.ImageSize != cal.ImageSize {
		t.Errorf("image size = %v, want %v", decoded.ImageSize, cal.ImageSize)
	}
}
