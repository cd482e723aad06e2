// Package viewer provides desktop live-view windows for capture sources.
//
// A Viewer shows a single camera feed; a StereoViewer shows two feeds side
// by side and can save snapshot pairs for calibration. Both refresh the
// window from a background goroutine while Fyne owns the main goroutine,
// so Run must be called from main.
package viewer

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/capture"
)

// Viewer displays a single camera feed in a desktop window.
type Viewer struct {
	cfg    Config
	runner *capture.Runner

	app    fyne.App
	win    fyne.Window
	feed   *canvas.Image
	status *widget.Label
}

// New builds a viewer window for the given runner. The window is not
// shown until Run is called.
func New(cfg Config, runner *capture.Runner) (*Viewer, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("viewer: invalid config: %v", problems)
	}

	a := app.New()
	win := a.NewWindow(cfg.Title)

	feed := canvas.NewImageFromImage(nil)
	feed.FillMode = canvas.ImageFillContain
	feed.SetMinSize(fyne.NewSize(float32(cfg.Width), float32(cfg.Height)))

	status := widget.NewLabel("waiting for frames")
	win.SetContent(container.NewBorder(nil, status, nil, nil, feed))

	v := &Viewer{
		cfg:    cfg,
		runner: runner,
		app:    a,
		win:    win,
		feed:   feed,
		status: status,
	}

	win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			win.Close()
		}
	})

	return v, nil
}

// Run starts the capture loop and shows the window. It blocks until the
// window is closed or ctx is cancelled, and must be called from the main
// goroutine.
func (v *Viewer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- v.runner.Run(ctx) }()
	go v.updateLoop(ctx)
	go func() {
		<-ctx.Done()
		fyne.Do(v.win.Close)
	}()

	v.win.SetOnClosed(cancel)
	v.win.ShowAndRun()

	cancel()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (v *Viewer) updateLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.runner.Ready():
		}

		f, ok := v.runner.Latest()
		if !ok {
			continue
		}

		img, err := renderFrame(f, v.cfg.Overlay, v.cfg.Board)
		if err != nil {
			log.Warn("frame render failed", "source", v.runner.Source().Name(), "error", err)
			continue
		}

		stats := v.runner.Stats()
		bounds := img.Bounds()
		text := fmt.Sprintf("%s  %dx%d  frames %d  drops %d",
			v.runner.Source().Name(), bounds.Dx(), bounds.Dy(), stats.Frames, stats.Drops)

		fyne.Do(func() {
			v.feed.Image = img
			v.feed.Refresh()
			v.status.SetText(text)
		})
	}
}
