package calib

import (
	"image"
	"math"
	"testing"
)

func TestDefaultBoard(t *testing.T) {
	b := DefaultBoard()
	if b.Rows != 15 || b.Cols != 10 {
		t.Errorf("default board = %dx%d, want 15x10", b.Rows, b.Cols)
	}
	if b.SquareSize != 1.0 {
		t.Errorf("square size = %v, want 1.0", b.SquareSize)
	}
	if errs := b.Validate(); errs != nil {
		t.Errorf("default board should validate, got %v", errs)
	}
}

func TestBoardPatternSize(t *testing.T) {
	b := Board{Rows: 15, Cols: 10, SquareSize: 1}
	if got := b.PatternSize(); got != image.Pt(15, 10) {
		t.Errorf("PatternSize() = %v, want (15,10)", got)
	}
	if got := b.CornerCount(); got != 150 {
		t.Errorf("CornerCount() = %d, want 150", got)
	}
}

func TestBoardObjectPoints(t *testing.T) {
	b := Board{Rows: 4, Cols: 3, SquareSize: 2.5}
	pts := b.ObjectPoints()

	if len(pts) != 12 {
		t.Fatalf("len = %d, want 12", len(pts))
	}
	if pts[0] != (Point3{}) {
		t.Errorf("first point = %v, want origin", pts[0])
	}
	// Row-major: the second point advances along the row.
	if pts[1] != (Point3{X: 2.5}) {
		t.Errorf("second point = %v, want (2.5,0,0)", pts[1])
	}
	// After Rows points the column advances.
	if pts[4] != (Point3{Y: 2.5}) {
		t.Errorf("pts[4] = %v, want (0,2.5,0)", pts[4])
	}
	last := pts[len(pts)-1]
	if math.Abs(last.X-7.5) > 1e-12 || math.Abs(last.Y-5.0) > 1e-12 {
		t.Errorf("last point = %v, want (7.5,5,0)", last)
	}
	for i, p := range pts {
		if p.Z != 0 {
			t.Fatalf("pts[%d].Z = %v, want 0", i, p.Z)
		}
	}
}

func TestBoardValidate(t *testing.T) {
	tests := []struct {
		name    string
		board   Board
		wantErr bool
	}{
		{"valid", Board{Rows: 15, Cols: 10, SquareSize: 1}, false},
		{"valid small", Board{Rows: 3, Cols: 2, SquareSize: 0.5}, false},
		{"rows too small", Board{Rows: 1, Cols: 10, SquareSize: 1}, true},
		{"cols too small", Board{Rows: 15, Cols: 0, SquareSize: 1}, true},
		{"square board ambiguous", Board{Rows: 8, Cols: 8, SquareSize: 1}, true},
		{"zero square size", Board{Rows: 15, Cols: 10, SquareSize: 0}, true},
		{"negative square size", Board{Rows: 15, Cols: 10, SquareSize: -2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.board.Validate()
			if tt.wantErr && len(errs) == 0 {
				t.Error("expected validation errors, got none")
			}
			if !tt.wantErr && len(errs) > 0 {
				t.Errorf("unexpected validation errors: %v", errs)
			}
		})
	}
}
