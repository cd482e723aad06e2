package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/camtk/stereocam/pkg/frame"
)

// WSSource reads JPEG frames pushed as binary websocket messages, the
// wire format of the frame hub's /ws/frames endpoint. Text messages
// are skipped.
type WSSource struct {
	cfg Config

	mu     sync.Mutex
	conn   *websocket.Conn
	seq    uint64
	opened bool
	closed bool
}

// NewWSSource builds an unopened websocket source. cfg.Device holds
// the ws:// or wss:// URL.
func NewWSSource(cfg Config) *WSSource {
	return &WSSource{cfg: cfg}
}

// Open dials the websocket endpoint.
func (s *WSSource) Open() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.Timeout,
	}
	conn, _, err := dialer.Dial(s.cfg.Device, nil)
	if err != nil {
		return &OpenError{Device: s.cfg.Device, Err: err}
	}

	s.mu.Lock()
	s.conn = conn
	s.opened = true
	s.mu.Unlock()
	return nil
}

// Read returns the next binary message as a JPEG frame. Read errors
// leave the connection unusable, so any failure here is terminal: the
// source marks itself closed before returning.
func (s *WSSource) Read() (frame.Frame, error) {
	if s.isClosed() {
		return frame.Frame{}, ErrClosed
	}
	if !s.isOpen() {
		return frame.Frame{}, ErrNotOpened
	}

	for {
		if s.cfg.Timeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout))
		}
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			wasClosed := s.isClosed()
			s.Close()
			if wasClosed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return frame.Frame{}, ErrClosed
			}
			return frame.Frame{}, fmt.Errorf("capture: websocket read: %w", err)
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		s.seq++
		return frame.FromJPEG(data, s.seq), nil
	}
}

// Close drops the connection. A Read blocked on the socket unblocks
// with ErrClosed.
func (s *WSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened || s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// Name identifies the source in logs.
func (s *WSSource) Name() string {
	return "ws:" + s.cfg.Device
}

func (s *WSSource) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *WSSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
