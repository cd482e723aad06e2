package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/frame"
)

const (
	webrtcDefaultPort  = "8443"
	webrtcDecodeEvery  = 100 * time.Millisecond
	webrtcOpenTimeout  = 15 * time.Second
	webrtcFrameTimeout = 5 * time.Second
)

// WebRTCSource pulls H264 video from a GStreamer signalling server and
// decodes it to JPEG frames with ffmpeg. cfg.Device holds a
// webrtc://host[:port] address; cfg.Producer selects the stream by its
// advertised name, or the first producer when empty.
type WebRTCSource struct {
	cfg           Config
	signallingURL string
	tmpDir        string

	ws      *websocket.Conn
	pc      *webrtc.PeerConnection
	wsMutex sync.Mutex

	peerID     string
	producerID string
	sessionID  string

	frameMu    sync.RWMutex
	latest     []byte
	frameReady chan struct{}
	done       chan struct{}

	mu     sync.Mutex
	seq    uint64
	opened bool
	closed bool
}

// Signalling wire messages. The server speaks a single envelope; which
// fields are set depends on the type.
type signalMsg struct {
	Type      string         `json:"type"`
	PeerID    string         `json:"peerId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Producers []producerInfo `json:"producers,omitempty"`
	SDP       *sdpPayload    `json:"sdp,omitempty"`
	ICE       *icePayload    `json:"ice,omitempty"`
}

type producerInfo struct {
	ID   string            `json:"id"`
	Meta map[string]string `json:"meta"`
}

type sdpPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type icePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
}

// NewWebRTCSource builds an unopened WebRTC source.
func NewWebRTCSource(cfg Config) *WebRTCSource {
	host := strings.TrimPrefix(cfg.Device, "webrtc://")
	if !strings.Contains(host, ":") {
		host += ":" + webrtcDefaultPort
	}
	return &WebRTCSource{
		cfg:           cfg,
		signallingURL: "ws://" + host,
		frameReady:    make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Open connects to the signalling server, negotiates a receive-only
// video session and waits for the track to come up.
func (s *WebRTCSource) Open() error {
	tmpDir, err := os.MkdirTemp("", "stereocam-webrtc-")
	if err != nil {
		return &OpenError{Device: s.cfg.Device, Err: err}
	}
	s.tmpDir = tmpDir

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	s.ws, _, err = dialer.Dial(s.signallingURL, nil)
	if err != nil {
		os.RemoveAll(tmpDir)
		return &OpenError{Device: s.cfg.Device, Err: fmt.Errorf("signalling connect: %w", err)}
	}

	if err := s.waitForWelcome(); err != nil {
		return s.openFailed(fmt.Errorf("welcome: %w", err))
	}
	log.Debug("signalling peer registered", "peer_id", s.peerID)

	if err := s.findProducer(); err != nil {
		return s.openFailed(err)
	}
	log.Debug("producer found", "producer_id", s.producerID)

	if err := s.createPeerConnection(); err != nil {
		return s.openFailed(fmt.Errorf("peer connection: %w", err))
	}

	if err := s.startSession(); err != nil {
		return s.openFailed(fmt.Errorf("start session: %w", err))
	}

	go s.handleSignalling()

	select {
	case <-s.frameReady:
		log.Info("video track up", "source", s.Name())
	case <-time.After(webrtcOpenTimeout):
		return s.openFailed(fmt.Errorf("timeout waiting for video track"))
	}

	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
	return nil
}

func (s *WebRTCSource) openFailed(err error) error {
	s.teardown()
	return &OpenError{Device: s.cfg.Device, Err: err}
}

func (s *WebRTCSource) waitForWelcome() error {
	s.ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := s.ws.ReadMessage()
	s.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var welcome signalMsg
	if err := json.Unmarshal(msg, &welcome); err != nil {
		return err
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %q", welcome.Type)
	}
	s.peerID = welcome.PeerID
	return nil
}

func (s *WebRTCSource) findProducer() error {
	if err := s.writeSignal(signalMsg{Type: "list"}); err != nil {
		return err
	}

	s.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := s.ws.ReadMessage()
	s.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var list signalMsg
	if err := json.Unmarshal(msg, &list); err != nil {
		return err
	}

	for _, p := range list.Producers {
		if s.cfg.Producer == "" || p.Meta["name"] == s.cfg.Producer {
			s.producerID = p.ID
			return nil
		}
	}
	return fmt.Errorf("producer %q not found among %d producers", s.cfg.Producer, len(list.Producers))
}

func (s *WebRTCSource) createPeerConnection() error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}
	s.pc = pc

	if _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Debug("track received", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go s.handleVideoTrack(track)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			s.sendICECandidate(candidate)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("peer connection state", "state", state.String())
	})

	return nil
}

func (s *WebRTCSource) startSession() error {
	return s.writeSignal(signalMsg{Type: "startSession", PeerID: s.producerID})
}

func (s *WebRTCSource) handleSignalling() {
	for !s.isClosed() {
		_, msg, err := s.ws.ReadMessage()
		if err != nil {
			if !s.isClosed() {
				log.Warn("signalling read failed", "error", err)
			}
			return
		}

		var sig signalMsg
		if err := json.Unmarshal(msg, &sig); err != nil {
			log.Warn("bad signalling message", "error", err)
			continue
		}

		switch sig.Type {
		case "sessionStarted":
			s.sessionID = sig.SessionID
		case "peer":
			s.handlePeer(sig)
		case "endSession":
			return
		}
	}
}

func (s *WebRTCSource) handlePeer(sig signalMsg) {
	if sig.SDP != nil && sig.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  sig.SDP.SDP,
		}
		if err := s.pc.SetRemoteDescription(offer); err != nil {
			log.Warn("set remote description failed", "error", err)
			return
		}

		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			log.Warn("create answer failed", "error", err)
			return
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			log.Warn("set local description failed", "error", err)
			return
		}
		s.sendSDP(answer)
	}

	if sig.ICE != nil {
		err := s.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     sig.ICE.Candidate,
			SDPMid:        sig.ICE.SDPMid,
			SDPMLineIndex: sig.ICE.SDPMLineIndex,
		})
		if err != nil {
			log.Warn("add ICE candidate failed", "error", err)
		}
	}
}

func (s *WebRTCSource) sendSDP(sdp webrtc.SessionDescription) {
	err := s.writeSignal(signalMsg{
		Type:      "peer",
		SessionID: s.sessionID,
		SDP:       &sdpPayload{Type: sdp.Type.String(), SDP: sdp.SDP},
	})
	if err != nil {
		log.Warn("send SDP failed", "error", err)
	}
}

func (s *WebRTCSource) sendICECandidate(candidate *webrtc.ICECandidate) {
	if s.sessionID == "" {
		return
	}
	init := candidate.ToJSON()
	err := s.writeSignal(signalMsg{
		Type:      "peer",
		SessionID: s.sessionID,
		ICE: &icePayload{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		},
	})
	if err != nil {
		log.Warn("send ICE candidate failed", "error", err)
	}
}

func (s *WebRTCSource) writeSignal(sig signalMsg) error {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	return s.ws.WriteJSON(sig)
}

// handleVideoTrack reassembles H264 NAL units from RTP and decodes a
// short segment every webrtcDecodeEvery.
func (s *WebRTCSource) handleVideoTrack(track *webrtc.TrackRemote) {
	s.signalReady()

	depacketizer := &codecs.H264Packet{}
	var nalBuffer bytes.Buffer
	lastDecode := time.Now()

	for !s.isClosed() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		nal, err := depacketizer.Unmarshal(pkt.Payload)
		if err != nil {
			continue
		}
		if len(nal) > 0 {
			nalBuffer.Write(nal)
		}

		if time.Since(lastDecode) > webrtcDecodeEvery && nalBuffer.Len() > 0 {
			s.decodeSegment(nalBuffer.Bytes())
			nalBuffer.Reset()
			lastDecode = time.Now()
		}
	}
}

// decodeSegment shells out to ffmpeg for one JPEG still. Short or
// broken segments are skipped; the next keyframe recovers.
func (s *WebRTCSource) decodeSegment(h264Data []byte) {
	if len(h264Data) < 100 {
		return
	}

	h264Path := filepath.Join(s.tmpDir, "segment.h264")
	jpegPath := filepath.Join(s.tmpDir, "frame.jpg")

	if err := os.WriteFile(h264Path, h264Data, 0644); err != nil {
		log.Warn("write segment failed", "error", err)
		return
	}

	cmd := exec.Command("ffmpeg", "-y", "-i", h264Path, "-vframes", "1", "-f", "image2", jpegPath)
	if err := cmd.Run(); err != nil {
		return
	}

	data, err := os.ReadFile(jpegPath)
	if err != nil || len(data) < 1000 {
		return
	}

	s.frameMu.Lock()
	s.latest = data
	s.frameMu.Unlock()
	s.signalReady()
}

func (s *WebRTCSource) signalReady() {
	select {
	case s.frameReady <- struct{}{}:
	default:
	}
}

// Read blocks until a fresh decoded frame arrives, then returns a copy.
func (s *WebRTCSource) Read() (frame.Frame, error) {
	if s.isClosed() {
		return frame.Frame{}, ErrClosed
	}
	if !s.isOpen() {
		return frame.Frame{}, ErrNotOpened
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = webrtcFrameTimeout
	}
	select {
	case <-s.frameReady:
	case <-s.done:
		return frame.Frame{}, ErrClosed
	case <-time.After(timeout):
		return frame.Frame{}, ErrNoFrame
	}

	s.frameMu.RLock()
	data := make([]byte, len(s.latest))
	copy(data, s.latest)
	s.frameMu.RUnlock()

	if len(data) == 0 {
		return frame.Frame{}, ErrNoFrame
	}
	s.seq++
	return frame.FromJPEG(data, s.seq), nil
}

// Close tears the session down and removes the decode scratch dir.
func (s *WebRTCSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.teardown()
	return nil
}

func (s *WebRTCSource) teardown() {
	if s.pc != nil {
		s.pc.Close()
	}
	if s.ws != nil {
		s.ws.Close()
	}
	if s.tmpDir != "" {
		os.RemoveAll(s.tmpDir)
	}
}

// Name identifies the source in logs.
func (s *WebRTCSource) Name() string {
	return "webrtc:" + s.cfg.Device
}

func (s *WebRTCSource) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *WebRTCSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
