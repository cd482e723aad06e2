package viewer

import (
	"github.com/camtk/stereocam/pkg/calib"
)

// Config holds viewer window settings.
type Config struct {
	// === Window ===

	// Title is the window title.
	Title string

	// Width and Height set the minimum size of each feed in pixels.
	Width  int
	Height int

	// === Chessboard overlay ===

	// Overlay draws detected chessboard corners on the preview.
	Overlay bool

	// Board is the pattern searched for when Overlay is enabled.
	Board calib.Board

	// === Snapshots ===

	// SnapshotDir receives image pairs saved with the space key.
	SnapshotDir string
}

// DefaultConfig returns viewer settings matching the bundled USB preview:
// a 640x480 feed with no overlay, saving snapshots to the working directory.
func DefaultConfig() Config {
	return Config{
		Title:       "stereocam",
		Width:       640,
		Height:      480,
		Overlay:     false,
		Board:       calib.DefaultBoard(),
		SnapshotDir: ".",
	}
}

// Validate returns a list of problems with the config. An empty list
// means the config is usable.
func (c Config) Validate() []string {
	var problems []string

	if c.Title == "" {
		problems = append(problems, "title must not be empty")
	}
	if c.Width <= 0 {
		problems = append(problems, "width must be positive")
	}
	if c.Height <= 0 {
		problems = append(problems, "height must be positive")
	}
	if c.SnapshotDir == "" {
		problems = append(problems, "snapshot dir must not be empty")
	}
	if c.Overlay {
		problems = append(problems, c.Board.Validate()...)
	}

	return problems
}
