package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/camtk/stereocam/internal/log"
	"github.com/camtk/stereocam/pkg/frame"
)

// ErrStopped indicates a client tried to join after the hub shut down.
var ErrStopped = errors.New("hub: stopped")

// Hub maintains the set of active clients and broadcasts frames and
// status messages to them.
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// mu guards clients for reads from outside the Run goroutine.
	mu sync.RWMutex

	framesOut      uint64
	clientsDropped uint64
}

// Stats counts hub activity for the status endpoint.
type Stats struct {
	Clients        int    `json:"clients"`
	FramesOut      uint64 `json:"frames_out"`
	ClientsDropped uint64 `json:"clients_dropped"`
}

// New creates a hub. Run must be started before clients are served.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until the context is canceled. Call it on
// its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	log.Debug("hub started", "hub", h.name)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("viewer connected", "hub", h.name, "client", client.id, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("viewer disconnected", "hub", h.name, "client", client.id, "remaining", count)

		case message := <-h.broadcast:
			if message.Type == BinaryMessage {
				atomic.AddUint64(&h.framesOut, 1)
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full, the client is too slow to
					// keep the frame rate. Cut it loose.
					close(client.send)
					delete(h.clients, client)
					atomic.AddUint64(&h.clientsDropped, 1)
					log.Warn("dropped slow viewer", "hub", h.name, "client", client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	close(h.done)
	log.Debug("hub stopped", "hub", h.name)
}

// Broadcast queues a message for all connected clients. A full queue
// drops the message instead of blocking the caller.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		log.Warn("broadcast queue full, dropping message", "hub", h.name)
	}
}

// BroadcastJSON encodes and broadcasts a JSON message.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts a JPEG frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// BroadcastFrame JPEG-encodes a frame and fans it out. Encoding is
// skipped while nobody is connected.
func (h *Hub) BroadcastFrame(f frame.Frame, quality int) error {
	if h.ClientCount() == 0 {
		return nil
	}
	data, err := f.EncodeJPEG(quality)
	if err != nil {
		return err
	}
	h.BroadcastBinary(data)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:        h.ClientCount(),
		FramesOut:      atomic.LoadUint64(&h.framesOut),
		ClientsDropped: atomic.LoadUint64(&h.clientsDropped),
	}
}
