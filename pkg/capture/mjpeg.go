package capture

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/camtk/stereocam/internal/httpc"
	"github.com/camtk/stereocam/pkg/frame"
)

// MJPEGSource consumes a multipart/x-mixed-replace JPEG stream over
// HTTP, the format most IP cameras serve. cfg.Device holds the URL.
type MJPEGSource struct {
	cfg    Config
	client *http.Client

	mu     sync.Mutex
	resp   *http.Response
	parts  *multipart.Reader
	seq    uint64
	opened bool
	closed bool
}

// NewMJPEGSource builds an unopened MJPEG stream source.
func NewMJPEGSource(cfg Config) *MJPEGSource {
	return &MJPEGSource{cfg: cfg, client: httpc.NewStreamClient()}
}

// Open connects to the stream and parses the multipart boundary.
func (s *MJPEGSource) Open() error {
	req, err := http.NewRequest(http.MethodGet, s.cfg.Device, nil)
	if err != nil {
		return &OpenError{Device: s.cfg.Device, Err: err}
	}
	req.Header.Set("Accept", "multipart/x-mixed-replace")

	resp, err := s.client.Do(req)
	if err != nil {
		return &OpenError{Device: s.cfg.Device, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return &OpenError{Device: s.cfg.Device, Err: fmt.Errorf("bad status: %s", resp.Status)}
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return &OpenError{Device: s.cfg.Device, Err: fmt.Errorf("parse content type: %w", err)}
	}
	if !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		return &OpenError{Device: s.cfg.Device, Err: fmt.Errorf("not an MJPEG stream: %s", mediaType)}
	}

	s.mu.Lock()
	s.resp = resp
	s.parts = multipart.NewReader(resp.Body, params["boundary"])
	s.opened = true
	s.mu.Unlock()
	return nil
}

// Read returns the next JPEG part of the stream. A closed or drained
// stream yields ErrClosed.
func (s *MJPEGSource) Read() (frame.Frame, error) {
	if s.isClosed() {
		return frame.Frame{}, ErrClosed
	}
	if !s.isOpen() {
		return frame.Frame{}, ErrNotOpened
	}

	part, err := s.parts.NextPart()
	if err != nil {
		if errors.Is(err, io.EOF) || s.isClosed() {
			return frame.Frame{}, ErrClosed
		}
		return frame.Frame{}, fmt.Errorf("capture: next stream part: %w", err)
	}
	data, err := io.ReadAll(part)
	part.Close()
	if err != nil {
		if s.isClosed() {
			return frame.Frame{}, ErrClosed
		}
		return frame.Frame{}, fmt.Errorf("capture: read stream part: %w", err)
	}
	if len(data) == 0 {
		return frame.Frame{}, ErrNoFrame
	}

	s.seq++
	return frame.FromJPEG(data, s.seq), nil
}

// Close drops the connection. A Read blocked on the stream unblocks
// with ErrClosed.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened || s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Body.Close()
}

// Name identifies the source in logs.
func (s *MJPEGSource) Name() string {
	return "mjpeg:" + s.cfg.Device
}

func (s *MJPEGSource) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *MJPEGSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
