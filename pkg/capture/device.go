package capture

import (
	"strconv"

	"gocv.io/x/gocv"

	"github.com/camtk/stereocam/pkg/frame"
)

// DeviceSource captures through the vision library's VideoCapture. It
// accepts a numeric device index or any path the library recognizes.
type DeviceSource struct {
	cfg    Config
	cap    *gocv.VideoCapture
	buf    gocv.Mat
	gray   gocv.Mat
	seq    uint64
	opened bool
}

// NewDeviceSource builds an unopened device source.
func NewDeviceSource(cfg Config) *DeviceSource {
	return &DeviceSource{cfg: cfg}
}

// Open acquires the device and applies the requested capture
// properties. Drivers are free to ignore them; actual geometry comes
// from the frames.
func (s *DeviceSource) Open() error {
	var dev interface{} = s.cfg.Device
	if n, err := strconv.Atoi(s.cfg.Device); err == nil {
		dev = n
	}
	cap, err := gocv.OpenVideoCapture(dev)
	if err != nil {
		return &OpenError{Device: s.cfg.Device, Err: err}
	}
	if s.cfg.Width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(s.cfg.Width))
	}
	if s.cfg.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(s.cfg.Height))
	}
	if s.cfg.FPS > 0 {
		cap.Set(gocv.VideoCaptureFPS, s.cfg.FPS)
	}

	s.cap = cap
	s.buf = gocv.NewMat()
	s.gray = gocv.NewMat()
	s.opened = true
	return nil
}

// Read grabs the next frame, converting to grayscale when configured.
func (s *DeviceSource) Read() (frame.Frame, error) {
	if !s.opened {
		return frame.Frame{}, ErrNotOpened
	}
	if ok := s.cap.Read(&s.buf); !ok || s.buf.Empty() {
		return frame.Frame{}, ErrNoFrame
	}

	m := s.buf
	if s.cfg.Grayscale {
		gocv.CvtColor(s.buf, &s.gray, gocv.ColorBGRToGray)
		m = s.gray
	}
	s.seq++
	return frame.FromMat(m, s.seq)
}

// Close releases the device.
func (s *DeviceSource) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	s.buf.Close()
	s.gray.Close()
	return s.cap.Close()
}

// Name identifies the source in logs.
func (s *DeviceSource) Name() string {
	return "device:" + s.cfg.Device
}
