package web

import (
	"bytes"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/camtk/stereocam/pkg/capture"
	"github.com/camtk/stereocam/pkg/frame"
	"github.com/camtk/stereocam/pkg/hub"
)

const indexPage = `<!doctype html>
<html>
<head><title>stereocam</title></head>
<body style="margin:0;background:#111;display:flex;justify-content:center">
<img src="/stream/mjpeg" alt="camera stream">
</body>
</html>`

// Status is the /api/status response body.
type Status struct {
	Source        string              `json:"source"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	Capture       capture.RunnerStats `json:"capture"`
	Hub           hub.Stats           `json:"hub"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexPage)
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(Status{
		Source:        s.runner.Source().Name(),
		UptimeSeconds: time.Since(s.started).Seconds(),
		Capture:       s.runner.Stats(),
		Hub:           s.frameHub.Stats(),
	})
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.manager.GetConfig())
}

// handleUpdateConfig applies partial capture settings from a JSON
// body. Accepted settings take effect when the source is next opened.
func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.manager.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.manager.GetConfig())
}

// handleSnapshot returns the current frame as a JPEG. An optional
// width query scales it down, never up.
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	data := s.lastFrameJPEG()
	if data == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame captured yet",
		})
	}

	if width := c.QueryInt("width"); width > 0 {
		scaled, err := scaleJPEG(data, width, s.cfg.Quality)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		data = scaled
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}

// handleSaveSnapshot writes the current frame to the snapshot dir and
// returns the generated name.
func (s *Server) handleSaveSnapshot(c *fiber.Ctx) error {
	data := s.lastFrameJPEG()
	if data == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame captured yet",
		})
	}

	name := "snapshot-" + uuid.New().String()[:8] + ".jpg"
	path := filepath.Join(s.cfg.SnapshotDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"file": name})
}

func (s *Server) handleFramesWS(c *websocket.Conn) {
	client, err := hub.NewClient(s.frameHub, c)
	if err != nil {
		c.Close()
		return
	}
	client.Run()
}

func scaleJPEG(data []byte, width, quality int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if width >= bounds.Dx() {
		return data, nil
	}
	height := bounds.Dy() * width / bounds.Dx()
	scaled := frame.Scale(img, width, height)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
