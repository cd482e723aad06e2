//go:build linux

package capture

import (
	"fmt"
	"sort"

	"github.com/blackjack/webcam"

	"github.com/camtk/stereocam/pkg/frame"
)

// V4L2 fourcc codes for the two formats we can decode.
const (
	pixFmtMJPEG webcam.PixelFormat = 0x47504A4D
	pixFmtYUYV  webcam.PixelFormat = 0x56595559
)

const (
	v4l2Buffers     = 4
	v4l2WaitSeconds = 5
)

// V4L2Source reads frames straight from a Video4Linux device, skipping
// the vision library. MJPEG is preferred when the driver offers it;
// packed YUYV is the fallback and gets converted in process.
type V4L2Source struct {
	cfg    Config
	cam    *webcam.Webcam
	format webcam.PixelFormat
	width  int
	height int
	seq    uint64
	opened bool
}

// NewV4L2Source builds an unopened V4L2 source.
func NewV4L2Source(cfg Config) (*V4L2Source, error) {
	return &V4L2Source{cfg: cfg}, nil
}

// Open acquires the device and negotiates format and frame size.
func (s *V4L2Source) Open() error {
	cam, err := webcam.Open(s.cfg.Device)
	if err != nil {
		return &OpenError{Device: s.cfg.Device, Err: err}
	}

	format, err := pickFormat(cam.GetSupportedFormats())
	if err != nil {
		cam.Close()
		return &OpenError{Device: s.cfg.Device, Err: err}
	}
	w, h := pickFrameSize(cam.GetSupportedFrameSizes(format), s.cfg.Width, s.cfg.Height)

	format, fw, fh, err := cam.SetImageFormat(format, w, h)
	if err != nil {
		cam.Close()
		return &OpenError{Device: s.cfg.Device, Err: err}
	}
	if err := cam.SetBufferCount(v4l2Buffers); err != nil {
		cam.Close()
		return &OpenError{Device: s.cfg.Device, Err: err}
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return &OpenError{Device: s.cfg.Device, Err: err}
	}

	s.cam = cam
	s.format = format
	s.width = int(fw)
	s.height = int(fh)
	s.opened = true
	return nil
}

// Read waits for the next frame and converts it to the configured
// representation. The driver buffer is copied out before return.
func (s *V4L2Source) Read() (frame.Frame, error) {
	if !s.opened {
		return frame.Frame{}, ErrNotOpened
	}

	err := s.cam.WaitForFrame(v4l2WaitSeconds)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return frame.Frame{}, ErrNoFrame
	default:
		return frame.Frame{}, fmt.Errorf("capture: wait for frame: %w", err)
	}

	data, err := s.cam.ReadFrame()
	if err != nil {
		return frame.Frame{}, fmt.Errorf("capture: read frame: %w", err)
	}
	if len(data) == 0 {
		return frame.Frame{}, ErrNoFrame
	}

	s.seq++
	switch s.format {
	case pixFmtMJPEG:
		buf := make([]byte, len(data))
		copy(buf, data)
		return frame.FromJPEG(buf, s.seq), nil
	case pixFmtYUYV:
		if s.cfg.Grayscale {
			gray := frame.YUYVToGray(data, s.width, s.height)
			return frame.NewGray(gray, s.width, s.height, s.seq), nil
		}
		rgba := frame.YUYVToRGBA(data, s.width, s.height)
		return frame.NewRGBA(rgba, s.width, s.height, s.seq), nil
	default:
		return frame.Frame{}, fmt.Errorf("capture: unhandled pixel format %#x", uint32(s.format))
	}
}

// Close stops streaming and releases the device.
func (s *V4L2Source) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	s.cam.StopStreaming()
	return s.cam.Close()
}

// Name identifies the source in logs.
func (s *V4L2Source) Name() string {
	return "v4l2:" + s.cfg.Device
}

func pickFormat(formats map[webcam.PixelFormat]string) (webcam.PixelFormat, error) {
	if _, ok := formats[pixFmtMJPEG]; ok {
		return pixFmtMJPEG, nil
	}
	if _, ok := formats[pixFmtYUYV]; ok {
		return pixFmtYUYV, nil
	}
	names := make([]string, 0, len(formats))
	for _, name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return 0, fmt.Errorf("device offers neither MJPEG nor YUYV: %v", names)
}

// pickFrameSize honors an exact requested geometry when the driver
// lists it and falls back to the largest discrete size otherwise.
func pickFrameSize(sizes []webcam.FrameSize, wantW, wantH int) (uint32, uint32) {
	if wantW > 0 && wantH > 0 {
		for _, fs := range sizes {
			if int(fs.MaxWidth) == wantW && int(fs.MaxHeight) == wantH {
				return fs.MaxWidth, fs.MaxHeight
			}
		}
	}
	if len(sizes) == 0 {
		return uint32(wantW), uint32(wantH)
	}
	sort.Slice(sizes, func(i, j int) bool {
		return sizes[i].MaxWidth*sizes[i].MaxHeight < sizes[j].MaxWidth*sizes[j].MaxHeight
	})
	best := sizes[len(sizes)-1]
	return best.MaxWidth, best.MaxHeight
}
