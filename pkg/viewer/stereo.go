package viewer

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/capture"
	"github.com/camtk/stereocam/pkg/frame"
)

// StereoViewer displays two camera feeds side by side. The space key
// saves the current frames as a numbered PNG pair for calibration, and
// escape closes the window.
type StereoViewer struct {
	cfg   Config
	left  *capture.Runner
	right *capture.Runner

	app       fyne.App
	win       fyne.Window
	leftFeed  *canvas.Image
	rightFeed *canvas.Image
	status    *widget.Label

	mu        sync.Mutex
	leftLast  frame.Frame
	rightLast frame.Frame
	pairIndex int
	saved     int
}

// NewStereo builds a stereo viewer window for the given runners. Pair
// numbering continues after any left-NN.png files already present in the
// snapshot directory.
func NewStereo(cfg Config, left, right *capture.Runner) (*StereoViewer, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("viewer: invalid config: %v", problems)
	}

	a := app.New()
	win := a.NewWindow(cfg.Title)

	leftFeed := canvas.NewImageFromImage(nil)
	leftFeed.FillMode = canvas.ImageFillContain
	leftFeed.SetMinSize(fyne.NewSize(float32(cfg.Width), float32(cfg.Height)))

	rightFeed := canvas.NewImageFromImage(nil)
	rightFeed.FillMode = canvas.ImageFillContain
	rightFeed.SetMinSize(fyne.NewSize(float32(cfg.Width), float32(cfg.Height)))

	status := widget.NewLabel("waiting for frames")
	feeds := container.NewGridWithColumns(2, leftFeed, rightFeed)
	win.SetContent(container.NewBorder(nil, status, nil, nil, feeds))

	s := &StereoViewer{
		cfg:       cfg,
		left:      left,
		right:     right,
		app:       a,
		win:       win,
		leftFeed:  leftFeed,
		rightFeed: rightFeed,
		status:    status,
		pairIndex: nextPairIndex(cfg.SnapshotDir),
	}

	win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape:
			win.Close()
		case fyne.KeySpace:
			go s.saveSnapshotPair()
		}
	})

	return s, nil
}

// Run starts both capture loops and shows the window. It blocks until
// the window is closed or ctx is cancelled, and must be called from the
// main goroutine.
func (s *StereoViewer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	leftErr := make(chan error, 1)
	rightErr := make(chan error, 1)
	go func() { leftErr <- s.left.Run(ctx) }()
	go func() { rightErr <- s.right.Run(ctx) }()

	go s.updateSide(ctx, s.left, s.leftFeed, s.storeLeft)
	go s.updateSide(ctx, s.right, s.rightFeed, s.storeRight)
	go func() {
		<-ctx.Done()
		fyne.Do(s.win.Close)
	}()

	s.win.SetOnClosed(cancel)
	s.win.ShowAndRun()

	cancel()
	for _, ch := range []chan error{leftErr, rightErr} {
		if err := <-ch; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

func (s *StereoViewer) updateSide(ctx context.Context, runner *capture.Runner, feed *canvas.Image, store func(frame.Frame)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-runner.Ready():
		}

		f, ok := runner.Latest()
		if !ok {
			continue
		}
		store(f)

		img, err := renderFrame(f, s.cfg.Overlay, s.cfg.Board)
		if err != nil {
			log.Warn("frame render failed", "source", runner.Source().Name(), "error", err)
			continue
		}

		text := s.statusText()
		fyne.Do(func() {
			feed.Image = img
			feed.Refresh()
			s.status.SetText(text)
		})
	}
}

func (s *StereoViewer) storeLeft(f frame.Frame) {
	s.mu.Lock()
	s.leftLast = f
	s.mu.Unlock()
}

func (s *StereoViewer) storeRight(f frame.Frame) {
	s.mu.Lock()
	s.rightLast = f
	s.mu.Unlock()
}

func (s *StereoViewer) statusText() string {
	ls := s.left.Stats()
	rs := s.right.Stats()
	s.mu.Lock()
	saved := s.saved
	s.mu.Unlock()
	return fmt.Sprintf("left %d frames  right %d frames  pairs saved %d  (space: save, esc: quit)",
		ls.Frames, rs.Frames, saved)
}

// saveSnapshotPair writes the most recent left and right frames as
// left-NN.png and right-NN.png in the snapshot directory.
func (s *StereoViewer) saveSnapshotPair() {
	s.mu.Lock()
	left, right := s.leftLast, s.rightLast
	idx := s.pairIndex
	s.mu.Unlock()

	if left.Empty() || right.Empty() {
		log.Warn("snapshot skipped, both frames not ready")
		return
	}

	leftPath := pairPath(s.cfg.SnapshotDir, "left", idx)
	rightPath := pairPath(s.cfg.SnapshotDir, "right", idx)
	if err := writePNG(leftPath, left); err != nil {
		log.Error("snapshot save failed", "file", leftPath, "error", err)
		return
	}
	if err := writePNG(rightPath, right); err != nil {
		log.Error("snapshot save failed", "file", rightPath, "error", err)
		return
	}

	s.mu.Lock()
	s.pairIndex = idx + 1
	s.saved++
	s.mu.Unlock()
	log.Info("snapshot pair saved", "index", idx, "dir", s.cfg.SnapshotDir)
}

// pairPath returns the snapshot file name for one side of a pair, for
// example left-03.png.
func pairPath(dir, side string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%02d.png", side, index))
}

// nextPairIndex returns the first pair number not already used by a
// left-NN.png file in dir, so repeated sessions never overwrite pairs.
func nextPairIndex(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, "left-*.png"))
	if err != nil {
		return 0
	}
	next := 0
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".png")
		n, err := strconv.Atoi(strings.TrimPrefix(base, "left-"))
		if err == nil && n+1 > next {
			next = n + 1
		}
	}
	return next
}

func writePNG(path string, f frame.Frame) error {
	img, err := f.ToImage()
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
