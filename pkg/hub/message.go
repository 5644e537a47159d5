// Package hub fans messages out to a set of websocket clients.
// One goroutine owns the client set; each client has its own write pump, so
// a slow browser never blocks the publisher.
package hub

import "github.com/gofiber/websocket/v2"

// MessageType indicates the websocket frame type a message is sent as.
type MessageType int

const (
	// JSONMessage is sent as a text frame.
	JSONMessage MessageType = iota
	// BinaryMessage is sent as a binary frame (e.g. a JPEG snapshot).
	BinaryMessage
)

// wsType maps the message type onto the websocket opcode.
func (t MessageType) wsType() int {
	if t == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Message is one payload for every client.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
