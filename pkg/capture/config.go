// Package capture acquires frames from cameras: local devices through
// the vision library or raw V4L2, and network cameras over MJPEG,
// websocket or WebRTC. A Runner owns the capture goroutine and hands
// the latest frame to consumers without backpressure.
package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/camtk/stereocam/internal/config"
)

// Source kinds accepted by New. KindAuto picks from the device string.
const (
	KindAuto   = "auto"
	KindDevice = "device"
	KindV4L2   = "v4l2"
	KindMJPEG  = "mjpeg"
	KindWS     = "ws"
	KindWebRTC = "webrtc"
)

// Config holds capture parameters for one camera.
type Config struct {
	// === Source selection ===
	// Kind picks the source implementation; auto infers it from
	// Device.
	Kind string `json:"kind"`
	// Device is a numeric index, a /dev/video path, or a URL
	// (http/ws/webrtc) depending on Kind.
	Device string `json:"device"`

	// === Capture geometry ===
	// Width and Height request a capture resolution; zero leaves the
	// driver's default in place.
	Width  int `json:"width"`
	Height int `json:"height"`
	// FPS paces the capture loop. Zero reads as fast as the source
	// delivers.
	FPS float64 `json:"fps"`
	// Grayscale converts frames to single-channel before handoff.
	Grayscale bool `json:"grayscale"`

	// === Encoding ===
	// Quality is the JPEG quality used when frames are compressed for
	// streaming (1-100).
	Quality int `json:"quality"`

	// === Network sources ===
	// Producer names the remote stream for WebRTC signalling.
	Producer string `json:"producer"`
	// Timeout bounds network source connection setup.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns the USB webcam configuration: first device,
// color frames, the conservative 5 fps the rig has always used.
func DefaultConfig() Config {
	return Config{
		Kind:    KindAuto,
		Device:  "0",
		FPS:     5,
		Quality: 85,
		Timeout: 15 * time.Second,
	}
}

// VendorConfig returns the machine-vision camera configuration:
// grayscale frames at the fixed 7.4 Hz trigger rate of the stereo
// rig's sync signal.
func VendorConfig() Config {
	cfg := DefaultConfig()
	cfg.FPS = 7.4
	cfg.Grayscale = true
	return cfg
}

// FromEnv overlays environment overrides onto the config. CAMERA_DEVICE,
// CAMERA_WIDTH, CAMERA_HEIGHT, CAMERA_FPS, CAMERA_GRAYSCALE and
// CAMERA_QUALITY are honored.
func (c Config) FromEnv() Config {
	c.Device = config.GetEnv("CAMERA_DEVICE", c.Device)
	c.Width = config.GetEnvInt("CAMERA_WIDTH", c.Width)
	c.Height = config.GetEnvInt("CAMERA_HEIGHT", c.Height)
	c.FPS = config.GetEnvFloat("CAMERA_FPS", c.FPS)
	c.Grayscale = config.GetEnvBool("CAMERA_GRAYSCALE", c.Grayscale)
	c.Quality = config.GetEnvInt("CAMERA_QUALITY", c.Quality)
	return c
}

// Validate checks the config values. Returns a list of validation
// errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Kind {
	case KindAuto, KindDevice, KindV4L2, KindMJPEG, KindWS, KindWebRTC:
	default:
		errors = append(errors, fmt.Sprintf("unknown source kind %q", c.Kind))
	}
	if c.Device == "" {
		errors = append(errors, "device must be set")
	}
	if c.Width < 0 || c.Height < 0 {
		errors = append(errors, "width and height must not be negative")
	}
	if c.FPS < 0 || c.FPS > 240 {
		errors = append(errors, "fps must be between 0 and 240")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.Timeout < 0 {
		errors = append(errors, "timeout must not be negative")
	}
	return errors
}

// ResolveKind returns the concrete source kind, inferring it from the
// device string when Kind is auto.
func (c *Config) ResolveKind() string {
	if c.Kind != KindAuto && c.Kind != "" {
		return c.Kind
	}
	switch {
	case strings.HasPrefix(c.Device, "webrtc://"):
		return KindWebRTC
	case strings.HasPrefix(c.Device, "ws://"), strings.HasPrefix(c.Device, "wss://"):
		return KindWS
	case strings.HasPrefix(c.Device, "http://"), strings.HasPrefix(c.Device, "https://"):
		return KindMJPEG
	case strings.HasPrefix(c.Device, "/dev/video"):
		return KindV4L2
	default:
		return KindDevice
	}
}

// Interval returns the capture pacing interval, zero when unpaced.
func (c *Config) Interval() time.Duration {
	if c.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.FPS)
}
