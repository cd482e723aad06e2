// Package web serves captured frames over HTTP: an MJPEG stream for
// browsers, a websocket frame feed, and a small status and snapshot
// API.
package web

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/hybridgroup/mjpeg"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/capture"
	"github.com/camtk/stereocam/pkg/frame"
	"github.com/camtk/stereocam/pkg/hub"
)

// Server exposes one capture runner over HTTP and websocket.
type Server struct {
	cfg     Config
	app     *fiber.App
	runner  *capture.Runner
	manager *capture.Manager

	frameHub *hub.Hub
	stream   *mjpeg.Stream

	frameMu  sync.RWMutex
	lastJPEG []byte

	started time.Time
}

// NewServer wires the routes. The runner does not need to be running
// yet; frames start flowing once both Run loops are up.
func NewServer(cfg Config, runner *capture.Runner) (*Server, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("web: invalid config: %s", strings.Join(errs, "; "))
	}

	s := &Server{
		cfg:      cfg,
		runner:   runner,
		manager:  capture.NewManager(runner.Config()),
		frameHub: hub.New("frames"),
		stream:   mjpeg.NewStream(),
		started:  time.Now(),
	}
	s.manager.OnChange = func(c capture.Config) error {
		log.Info("capture config updated", "device", c.Device, "kind", c.Kind,
			"width", c.Width, "height", c.Height, "fps", c.FPS)
		return nil
	}

	app := fiber.New(fiber.Config{
		AppName:               "stereocam",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	// CORS for browser viewers on other origins.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	app.Get("/", s.handleIndex)
	app.Get("/healthz", s.handleHealthz)
	app.Get("/stream/mjpeg", adaptor.HTTPHandler(s.stream))

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handleUpdateConfig)
	api.Get("/snapshot", s.handleSnapshot)
	api.Post("/snapshot", s.handleSaveSnapshot)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s, nil
}

// Run serves until the context is canceled, then shuts down
// gracefully. The frame hub runs for the same lifetime.
func (s *Server) Run(ctx context.Context) error {
	go s.frameHub.Run(ctx)
	s.runner.OnFrame(s.onFrame)

	log.Info("web server listening", "port", s.cfg.Port)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(":" + s.cfg.Port) }()

	select {
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			log.Warn("server shutdown failed", "error", err)
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// onFrame runs on the capture goroutine: encode once, feed every sink.
func (s *Server) onFrame(f frame.Frame) {
	data, err := f.EncodeJPEG(s.cfg.Quality)
	if err != nil {
		log.Warn("frame encode failed", "error", err)
		return
	}

	s.frameMu.Lock()
	s.lastJPEG = data
	s.frameMu.Unlock()

	s.stream.UpdateJPEG(data)
	s.frameHub.BroadcastBinary(data)
}

func (s *Server) lastFrameJPEG() []byte {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.lastJPEG
}

// Hub returns the frame hub, mainly for status reporting.
func (s *Server) Hub() *hub.Hub {
	return s.frameHub
}

// App returns the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
