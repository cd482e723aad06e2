// Package hub fans captured camera frames out to websocket viewers.
// One goroutine owns the client set; clients that cannot keep up are
// dropped rather than slowing the capture path.
package hub

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded status or event message.
	JSONMessage MessageType = iota
	// BinaryMessage is a JPEG-encoded frame.
	BinaryMessage
)

// Message is one unit of fan-out.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps a JPEG-encoded frame.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
