package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/frame"
)

// Runner pumps frames from a source into a single latest-frame slot.
// Consumers read the newest frame whenever they want one; frames that
// arrive before the previous one was read are overwritten and counted
// as drops. Nothing ever blocks on a slow consumer.
type Runner struct {
	source Source
	cfg    Config

	mu       sync.Mutex
	latest   frame.Frame
	consumed bool

	frameReady chan struct{}
	frames     uint64
	drops      uint64

	handlerMu sync.RWMutex
	handlers  []func(frame.Frame)
}

// RunnerStats counts delivered and overwritten frames.
type RunnerStats struct {
	Frames uint64 `json:"frames"`
	Drops  uint64 `json:"drops"`
}

// NewRunner wraps a source with the latest-frame pump.
func NewRunner(source Source, cfg Config) *Runner {
	return &Runner{
		source:     source,
		cfg:        cfg,
		frameReady: make(chan struct{}, 1),
	}
}

// Run opens the source and captures until the context is canceled or
// the source drains. It blocks; run it on its own goroutine. Canceling
// the context also closes the source so a blocked read unblocks.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.source.Open(); err != nil {
		return err
	}
	defer r.source.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			r.source.Close()
		case <-done:
		}
	}()

	log.Info("capture started", "source", r.source.Name(), "fps", r.cfg.FPS)

	var tick <-chan time.Time
	if interval := r.cfg.Interval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		f, err := r.source.Read()
		if err != nil {
			if errors.Is(err, ErrClosed) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Info("capture source drained", "source", r.source.Name())
				return nil
			}
			if errors.Is(err, ErrNoFrame) {
				continue
			}
			log.Warn("capture read failed", "source", r.source.Name(), "error", err)
			continue
		}
		r.publish(f)
	}
}

func (r *Runner) publish(f frame.Frame) {
	r.mu.Lock()
	if !r.consumed && !r.latest.Empty() {
		atomic.AddUint64(&r.drops, 1)
	}
	r.latest = f
	r.consumed = false
	r.mu.Unlock()
	atomic.AddUint64(&r.frames, 1)

	select {
	case r.frameReady <- struct{}{}:
	default:
	}

	r.handlerMu.RLock()
	handlers := r.handlers
	r.handlerMu.RUnlock()
	for _, h := range handlers {
		h(f)
	}
}

// Latest returns the newest captured frame. The second result is false
// until the first frame arrives. Callers must treat the frame data as
// read-only; sources never reuse a delivered buffer.
func (r *Runner) Latest() (frame.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest.Empty() {
		return frame.Frame{}, false
	}
	r.consumed = true
	return r.latest, true
}

// Ready signals at most one pending notification when a new frame
// lands. Pair it with Latest in a select loop.
func (r *Runner) Ready() <-chan struct{} {
	return r.frameReady
}

// OnFrame registers a callback invoked on the capture goroutine for
// every frame. Callbacks must not block; slow work belongs behind the
// latest-frame slot instead.
func (r *Runner) OnFrame(fn func(frame.Frame)) {
	r.handlerMu.Lock()
	r.handlers = append(r.handlers, fn)
	r.handlerMu.Unlock()
}

// Stats returns capture counters.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Frames: atomic.LoadUint64(&r.frames),
		Drops:  atomic.LoadUint64(&r.drops),
	}
}

// Source exposes the wrapped source, mainly for its Name.
func (r *Runner) Source() Source {
	return r.source
}

// Config returns the settings the runner was built with.
func (r *Runner) Config() Config {
	return r.cfg
}
